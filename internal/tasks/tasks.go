// package tasks implements the soundpy workflows: playlist sync, search, download and stream resolution.
//
// The core abstraction is Engine, which validates input, applies the upstream deadline and
// maps failures onto the shared error taxonomy. Long-running operations emit progress updates
// via channels for non-blocking status reporting to the CLI layer.
package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/soundpy/internal/models"
	"github.com/desertthunder/soundpy/internal/services"
	"github.com/desertthunder/soundpy/internal/shared"
)

// Library is a [models.Store] that can also enumerate and remove playlists.
type Library interface {
	models.Store
	List(ctx context.Context) ([]models.PlaylistSummary, error)
	Delete(ctx context.Context, link string) error
}

// Engine runs the soundpy workflows against its collaborators.
//
// The catalog and extractor are expected to be the cached decorators from [services];
// the engine itself keeps no state between calls.
type Engine struct {
	store     models.Store
	catalog   services.Catalog
	extractor services.Extractor
	timeout   time.Duration
	logger    *log.Logger
}

// NewEngine creates an Engine. A zero timeout leaves upstream calls bounded only by ctx.
func NewEngine(store models.Store, catalog services.Catalog, extractor services.Extractor, timeout time.Duration, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		store:     store,
		catalog:   catalog,
		extractor: extractor,
		timeout:   timeout,
		logger:    logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// upstream derives the context for one upstream call.
func (e *Engine) upstream(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

// SyncPlaylist returns the stored playlist for link, creating or backfilling it from the
// upstream listing first when it has no tracks.
func (e *Engine) SyncPlaylist(ctx context.Context, link string) (*models.Playlist, error) {
	return e.SyncPlaylistWithProgress(ctx, nil, link)
}

// SyncPlaylistWithProgress is [Engine.SyncPlaylist] with progress reporting.
//
// A playlist that already has tracks is served without contacting upstream. One that is
// missing is created together with its tracks in a single store transaction. One that
// exists with zero tracks is backfilled; a genuinely empty upstream playlist is therefore
// fetched again on every call.
func (e *Engine) SyncPlaylistWithProgress(ctx context.Context, progress chan<- ProgressUpdate, link string) (*models.Playlist, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return nil, shared.Validation("sync playlist", "link")
	}
	if e.store == nil {
		return nil, fmt.Errorf("%w: store not initialized", shared.ErrServiceUnavailable)
	}

	e.sendProgress(progress, lookupUpdate(link))
	existing, err := e.store.FindByLink(ctx, link)
	if err != nil {
		return nil, e.syncFailed(link, err)
	}
	if existing != nil && !existing.Empty() {
		e.sendProgress(progress, serveUpdate(existing))
		return existing, nil
	}

	playlistID := services.PlaylistID(link)
	e.sendProgress(progress, fetchListingUpdate(playlistID))
	tracks, err := e.listTracks(ctx, playlistID)
	if err != nil {
		return nil, e.syncFailed(link, err)
	}

	if existing == nil {
		e.sendProgress(progress, storeTracksUpdate(CreatePlaylist, len(tracks)))
		if _, err := e.store.CreateIfAbsent(ctx, link, tracks); err != nil {
			return nil, e.syncFailed(link, err)
		}
	} else {
		e.sendProgress(progress, storeTracksUpdate(Backfill, len(tracks)))
		if err := e.store.AddTracks(ctx, existing.ID, tracks); err != nil {
			return nil, e.syncFailed(link, err)
		}
	}

	playlist, err := e.store.FindByLink(ctx, link)
	if err != nil {
		return nil, e.syncFailed(link, err)
	}
	if playlist == nil {
		return nil, e.syncFailed(link, shared.Store("sync playlist", fmt.Errorf("%w: playlist missing after write", shared.ErrNotFound)))
	}

	e.logger.Debug("synced playlist", "link", link, "playlist", playlist.ID, "tracks", len(playlist.Tracks))
	e.sendProgress(progress, serveUpdate(playlist))
	return playlist, nil
}

// listTracks fetches the upstream listing and keeps complete hits, first occurrence per URL.
func (e *Engine) listTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	ctx, cancel := e.upstream(ctx)
	defer cancel()

	results, err := e.catalog.ListPlaylistItems(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(results))
	tracks := make([]models.Track, 0, len(results))
	for _, r := range results {
		if !r.Complete() {
			continue
		}
		if _, dup := seen[r.URL]; dup {
			continue
		}
		seen[r.URL] = struct{}{}
		tracks = append(tracks, r.Track())
	}
	return tracks, nil
}

func (e *Engine) syncFailed(link string, err error) error {
	e.logger.Error("playlist sync failed", "link", link, "error", err)
	return &shared.Error{
		Kind: shared.KindOf(err),
		Op:   "sync playlist",
		Err:  fmt.Errorf("%w: %w", shared.ErrPlaylistSync, err),
	}
}

// Search returns video hits for query.
func (e *Engine) Search(ctx context.Context, query string) ([]models.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, shared.Validation("search", "query")
	}

	ctx, cancel := e.upstream(ctx)
	defer cancel()
	return e.catalog.Search(ctx, query)
}

// SearchPlaylists returns playlist hits for query.
func (e *Engine) SearchPlaylists(ctx context.Context, query string) ([]models.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, shared.Validation("search playlists", "query")
	}

	ctx, cancel := e.upstream(ctx)
	defer cancel()
	return e.catalog.SearchPlaylists(ctx, query)
}

// Download returns the audio for a video id or watch URL.
func (e *Engine) Download(ctx context.Context, id string) (*models.Media, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, shared.Validation("download", "link")
	}

	ctx, cancel := e.upstream(ctx)
	defer cancel()
	return e.extractor.Download(ctx, id)
}

// ResolveStream returns a direct audio stream URL for a video id or watch URL.
func (e *Engine) ResolveStream(ctx context.Context, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", shared.Validation("stream", "link")
	}

	ctx, cancel := e.upstream(ctx)
	defer cancel()
	return e.extractor.StreamURL(ctx, id)
}

// Playlists lists every stored playlist with its track count.
func (e *Engine) Playlists(ctx context.Context) ([]models.PlaylistSummary, error) {
	lib, ok := e.store.(Library)
	if !ok {
		return nil, fmt.Errorf("%w: store cannot list playlists", shared.ErrNotImplemented)
	}
	return lib.List(ctx)
}

// DeletePlaylist removes the stored playlist for link. Shared track rows are kept.
func (e *Engine) DeletePlaylist(ctx context.Context, link string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return shared.Validation("delete playlist", "link")
	}
	lib, ok := e.store.(Library)
	if !ok {
		return fmt.Errorf("%w: store cannot delete playlists", shared.ErrNotImplemented)
	}
	return lib.Delete(ctx, link)
}
