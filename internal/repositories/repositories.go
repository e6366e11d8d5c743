// package repositories persists playlists and tracks in a relational store.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/soundpy/internal/shared"
)

// dialect holds the statements whose syntax differs between drivers.
//
// Each insert leaves an existing row untouched when its unique key is already present.
type dialect struct {
	insertPlaylist string
	insertMusic    string
	insertRelation string
}

var dialects = map[shared.Driver]dialect{
	shared.SQLite: {
		insertPlaylist: "INSERT INTO playlist (link) VALUES (?) ON CONFLICT(link) DO NOTHING",
		insertMusic:    "INSERT INTO music (title, thumb, author, url) VALUES (?, ?, ?, ?) ON CONFLICT(url) DO NOTHING",
		insertRelation: "INSERT OR IGNORE INTO playlist_music_relation (playlist_id, music_id, position) VALUES (?, ?, ?)",
	},
	shared.MySQL: {
		insertPlaylist: "INSERT IGNORE INTO playlist (link) VALUES (?)",
		insertMusic:    "INSERT IGNORE INTO music (title, thumb, author, url) VALUES (?, ?, ?, ?)",
		insertRelation: "INSERT IGNORE INTO playlist_music_relation (playlist_id, music_id, position) VALUES (?, ?, ?)",
	},
}

func dialectFor(driver shared.Driver) (dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return dialect{}, fmt.Errorf("%w: unsupported database driver %q", shared.ErrInvalidConfig, driver)
	}
	return d, nil
}

// withTx runs fn inside a transaction and commits when it returns nil.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
