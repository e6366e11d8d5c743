package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/desertthunder/soundpy/internal/models"
	"github.com/desertthunder/soundpy/internal/shared"
)

// PlaylistRepository implements [models.Store] for playlists and their tracks.
type PlaylistRepository struct {
	db      *sql.DB
	dialect dialect
}

// NewPlaylistRepository creates a repository for a database opened with driver.
func NewPlaylistRepository(db *sql.DB, driver shared.Driver) (*PlaylistRepository, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &PlaylistRepository{db: db, dialect: d}, nil
}

// FindByLink returns the playlist stored for link with its tracks in position order, or nil when absent.
func (r *PlaylistRepository) FindByLink(ctx context.Context, link string) (*models.Playlist, error) {
	query := `
		SELECT p.id, p.link, m.id, m.title, m.thumb, m.author, m.url
		FROM playlist p
		LEFT JOIN playlist_music_relation pmr ON pmr.playlist_id = p.id
		LEFT JOIN music m ON m.id = pmr.music_id
		WHERE p.link = ?
		ORDER BY pmr.position, m.id
	`

	rows, err := r.db.QueryContext(ctx, query, link)
	if err != nil {
		return nil, shared.Store("find playlist", fmt.Errorf("failed to query playlist: %w", err))
	}
	defer rows.Close()

	var playlist *models.Playlist
	for rows.Next() {
		var (
			playlistID int64
			playlistLn string
			musicID    sql.NullInt64
			title      sql.NullString
			thumb      sql.NullString
			author     sql.NullString
			url        sql.NullString
		)
		if err := rows.Scan(&playlistID, &playlistLn, &musicID, &title, &thumb, &author, &url); err != nil {
			return nil, shared.Store("find playlist", fmt.Errorf("failed to scan playlist row: %w", err))
		}

		if playlist == nil {
			playlist = &models.Playlist{ID: playlistID, Link: playlistLn, Tracks: []models.Track{}}
		}
		if musicID.Valid {
			playlist.Tracks = append(playlist.Tracks, models.Track{
				ID:     musicID.Int64,
				Title:  title.String,
				Thumb:  thumb.String,
				URL:    url.String,
				Author: author.String,
			})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, shared.Store("find playlist", fmt.Errorf("row iteration error: %w", err))
	}
	return playlist, nil
}

// CreateIfAbsent inserts the playlist for link unless it exists and attaches
// tracks, all in one transaction. It returns the id of the single row for link.
//
// A concurrent creator that loses the race reuses the winner's row; tracks it
// attaches that are already members are ignored.
func (r *PlaylistRepository) CreateIfAbsent(ctx context.Context, link string, tracks []models.Track) (int64, error) {
	var id int64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		if id, err = r.ensurePlaylist(ctx, tx, link); err != nil {
			return err
		}
		_, err = r.attach(ctx, tx, id, tracks)
		return err
	})
	if err != nil {
		return 0, shared.Store("create playlist", err)
	}
	return id, nil
}

// CreatePlaylist inserts an empty playlist for link unless it exists and returns its id.
func (r *PlaylistRepository) CreatePlaylist(ctx context.Context, link string) (int64, error) {
	return r.CreateIfAbsent(ctx, link, nil)
}

// AddTracks attaches tracks to an existing playlist after its current last position.
func (r *PlaylistRepository) AddTracks(ctx context.Context, playlistID int64, tracks []models.Track) error {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := r.requirePlaylist(ctx, tx, playlistID); err != nil {
			return err
		}
		_, err := r.attach(ctx, tx, playlistID, tracks)
		return err
	})
	if err != nil {
		return shared.Store("add tracks", err)
	}
	return nil
}

// CreateTrack stores one track, links it to the playlist and returns the track id.
//
// A track whose url is already stored is reused as-is.
func (r *PlaylistRepository) CreateTrack(ctx context.Context, playlistID int64, track models.Track) (int64, error) {
	var id int64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := r.requirePlaylist(ctx, tx, playlistID); err != nil {
			return err
		}
		ids, err := r.attach(ctx, tx, playlistID, []models.Track{track})
		if err != nil {
			return err
		}
		id = ids[0]
		return nil
	})
	if err != nil {
		return 0, shared.Store("create track", err)
	}
	return id, nil
}

// Delete removes the playlist for link. Memberships cascade; tracks stay.
func (r *PlaylistRepository) Delete(ctx context.Context, link string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM playlist WHERE link = ?", link)
	if err != nil {
		return shared.Store("delete playlist", fmt.Errorf("failed to delete playlist: %w", err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return shared.Store("delete playlist", fmt.Errorf("failed to get affected rows: %w", err))
	}
	if rows == 0 {
		return shared.NotFound("delete playlist", link)
	}
	return nil
}

// List returns every stored playlist with its track count, oldest first.
func (r *PlaylistRepository) List(ctx context.Context) ([]models.PlaylistSummary, error) {
	query := `
		SELECT p.id, p.link, COUNT(pmr.music_id), p.created_at
		FROM playlist p
		LEFT JOIN playlist_music_relation pmr ON pmr.playlist_id = p.id
		GROUP BY p.id, p.link, p.created_at
		ORDER BY p.id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, shared.Store("list playlists", fmt.Errorf("failed to query playlists: %w", err))
	}
	defer rows.Close()

	summaries := []models.PlaylistSummary{}
	for rows.Next() {
		var s models.PlaylistSummary
		if err := rows.Scan(&s.ID, &s.Link, &s.TrackCount, &s.CreatedAt); err != nil {
			return nil, shared.Store("list playlists", fmt.Errorf("failed to scan playlist: %w", err))
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, shared.Store("list playlists", fmt.Errorf("row iteration error: %w", err))
	}
	return summaries, nil
}

// Ping verifies the store is reachable.
func (r *PlaylistRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return shared.Store("ping", err)
	}
	return nil
}

func (r *PlaylistRepository) ensurePlaylist(ctx context.Context, tx *sql.Tx, link string) (int64, error) {
	if _, err := tx.ExecContext(ctx, r.dialect.insertPlaylist, link); err != nil {
		return 0, fmt.Errorf("failed to insert playlist: %w", err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, "SELECT id FROM playlist WHERE link = ?", link).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to select playlist id: %w", err)
	}
	return id, nil
}

func (r *PlaylistRepository) requirePlaylist(ctx context.Context, tx *sql.Tx, playlistID int64) error {
	var n int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM playlist WHERE id = ?", playlistID).Scan(&n); err != nil {
		return fmt.Errorf("failed to check playlist: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: playlist %d", shared.ErrNotFound, playlistID)
	}
	return nil
}

// attach stores each track if absent and links it to the playlist after the
// current last position. It returns the track ids in input order.
func (r *PlaylistRepository) attach(ctx context.Context, tx *sql.Tx, playlistID int64, tracks []models.Track) ([]int64, error) {
	if len(tracks) == 0 {
		return nil, nil
	}

	var next int
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(position), -1) + 1 FROM playlist_music_relation WHERE playlist_id = ?",
		playlistID,
	).Scan(&next); err != nil {
		return nil, fmt.Errorf("failed to read last position: %w", err)
	}

	ids := make([]int64, 0, len(tracks))
	for _, t := range tracks {
		url := strings.TrimSpace(t.URL)
		if _, err := tx.ExecContext(ctx, r.dialect.insertMusic, t.Title, t.Thumb, t.Author, url); err != nil {
			return nil, fmt.Errorf("failed to insert track %s: %w", url, err)
		}

		var musicID int64
		if err := tx.QueryRowContext(ctx, "SELECT id FROM music WHERE url = ?", url).Scan(&musicID); err != nil {
			return nil, fmt.Errorf("failed to select track id %s: %w", url, err)
		}

		result, err := tx.ExecContext(ctx, r.dialect.insertRelation, playlistID, musicID, next)
		if err != nil {
			return nil, fmt.Errorf("failed to link track %s: %w", url, err)
		}
		if n, err := result.RowsAffected(); err == nil && n > 0 {
			next++
		}
		ids = append(ids, musicID)
	}
	return ids, nil
}
