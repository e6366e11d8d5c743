package services

import (
	"context"
	"net/url"
	"strings"

	"github.com/desertthunder/soundpy/internal/models"
)

const (
	watchURLPrefix    = "https://www.youtube.com/watch?v="
	playlistURLPrefix = "https://www.youtube.com/playlist?list="
)

// Catalog is the playlist and search API the workflow reads from.
type Catalog interface {
	// Search returns video hits for query.
	Search(ctx context.Context, query string) ([]models.Result, error)

	// ListPlaylistItems returns every video of the upstream playlist in playlist order.
	ListPlaylistItems(ctx context.Context, playlistID string) ([]models.Result, error)

	// SearchPlaylists returns playlist hits for query. Result.URL points at the playlist.
	SearchPlaylists(ctx context.Context, query string) ([]models.Result, error)
}

// Extractor resolves and downloads media for a single video.
type Extractor interface {
	// Resolve returns the title, thumbnail and author of a video.
	Resolve(ctx context.Context, id string) (*models.VideoInfo, error)

	// StreamURL returns a direct, time-limited audio stream URL.
	StreamURL(ctx context.Context, id string) (string, error)

	// Download fetches the audio and returns it read into memory.
	Download(ctx context.Context, id string) (*models.Media, error)
}

// WatchURL returns the canonical watch URL for a video id.
func WatchURL(videoID string) string {
	return watchURLPrefix + videoID
}

// PlaylistURL returns the canonical URL for a playlist id.
func PlaylistURL(playlistID string) string {
	return playlistURLPrefix + playlistID
}

// PlaylistID derives the upstream playlist id from a link.
//
// A URL yields its list query parameter. Anything else is taken to be the id itself.
func PlaylistID(link string) string {
	link = strings.TrimSpace(link)
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return link
	}
	if id := u.Query().Get("list"); id != "" {
		return id
	}
	return link
}

// mediaTarget returns what yt-dlp should be pointed at for id.
func mediaTarget(id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://") {
		return id
	}
	return WatchURL(id)
}
