package services

import (
	"context"

	"github.com/desertthunder/soundpy/internal/cache"
	"github.com/desertthunder/soundpy/internal/models"
	"github.com/desertthunder/soundpy/internal/shared"
)

// CachedCatalog memoizes each [Catalog] operation in its own bounded cache.
type CachedCatalog struct {
	search          *cache.Memo[string, []models.Result]
	playlistItems   *cache.Memo[string, []models.Result]
	searchPlaylists *cache.Memo[string, []models.Result]
}

// NewCachedCatalog wraps next with the search, playlist_items and playlist_search capacities.
//
// opts apply to every operation's cache.
func NewCachedCatalog(next Catalog, cfg shared.CacheConfig, opts ...cache.Option) *CachedCatalog {
	return &CachedCatalog{
		search:          cache.New(cfg.Search, cache.Key, next.Search, opts...),
		playlistItems:   cache.New(cfg.PlaylistItems, cache.Key, next.ListPlaylistItems, opts...),
		searchPlaylists: cache.New(cfg.PlaylistSearch, cache.Key, next.SearchPlaylists, opts...),
	}
}

func (c *CachedCatalog) Search(ctx context.Context, query string) ([]models.Result, error) {
	return c.search.Get(ctx, query)
}

func (c *CachedCatalog) ListPlaylistItems(ctx context.Context, playlistID string) ([]models.Result, error) {
	return c.playlistItems.Get(ctx, playlistID)
}

func (c *CachedCatalog) SearchPlaylists(ctx context.Context, query string) ([]models.Result, error) {
	return c.searchPlaylists.Get(ctx, query)
}

// Stats reports the per-operation cache counters keyed by config name.
func (c *CachedCatalog) Stats() map[string]cache.Stats {
	return map[string]cache.Stats{
		"search":          c.search.Stats(),
		"playlist_items":  c.playlistItems.Stats(),
		"playlist_search": c.searchPlaylists.Stats(),
	}
}

// Close drops every cached result.
func (c *CachedCatalog) Close() {
	c.search.Close()
	c.playlistItems.Close()
	c.searchPlaylists.Close()
}

// CachedExtractor memoizes stream resolution and downloads.
//
// Resolve is passed through; it is only called on the download path, which is already cached.
type CachedExtractor struct {
	next     Extractor
	stream   *cache.Memo[string, string]
	download *cache.Memo[string, *models.Media]
}

// NewCachedExtractor wraps next with the stream and download capacities.
func NewCachedExtractor(next Extractor, cfg shared.CacheConfig, opts ...cache.Option) *CachedExtractor {
	return &CachedExtractor{
		next:     next,
		stream:   cache.New(cfg.Stream, cache.Key, next.StreamURL, opts...),
		download: cache.New(cfg.Download, cache.Key, next.Download, opts...),
	}
}

func (c *CachedExtractor) Resolve(ctx context.Context, id string) (*models.VideoInfo, error) {
	return c.next.Resolve(ctx, id)
}

func (c *CachedExtractor) StreamURL(ctx context.Context, id string) (string, error) {
	return c.stream.Get(ctx, id)
}

func (c *CachedExtractor) Download(ctx context.Context, id string) (*models.Media, error) {
	return c.download.Get(ctx, id)
}

// Stats reports the per-operation cache counters keyed by config name.
func (c *CachedExtractor) Stats() map[string]cache.Stats {
	return map[string]cache.Stats{
		"stream":   c.stream.Stats(),
		"download": c.download.Stats(),
	}
}

// Close drops every cached result.
func (c *CachedExtractor) Close() {
	c.stream.Close()
	c.download.Close()
}
