// YouTube Data API v3 [Catalog] implementation
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/desertthunder/soundpy/internal/models"
	"github.com/desertthunder/soundpy/internal/shared"
)

const (
	defaultMaxResults int64 = 20
	playlistPageSize  int64 = 50
)

// YouTubeService implements [Catalog] against the YouTube Data API.
type YouTubeService struct {
	service    *youtube.Service
	maxResults int64
	limiter    *rate.Limiter
}

// NewYouTubeService creates a catalog authenticated with the configured API key.
//
// Extra client options are appended after the key, which lets tests point the
// client at a local server.
func NewYouTubeService(ctx context.Context, cfg shared.YouTubeConfig, opts ...option.ClientOption) (*YouTubeService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: youtube api_key", shared.ErrMissingCredentials)
	}

	opts = append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 || maxResults > playlistPageSize {
		maxResults = defaultMaxResults
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &YouTubeService{
		service:    service,
		maxResults: maxResults,
		limiter:    rate.NewLimiter(limit, 1),
	}, nil
}

// Search returns video hits for query with watch URLs.
func (y *YouTubeService) Search(ctx context.Context, query string) ([]models.Result, error) {
	items, err := y.search(ctx, "search", query, "video")
	if err != nil {
		return nil, err
	}

	results := make([]models.Result, 0, len(items))
	for _, item := range items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		results = append(results, models.Result{
			Title:  item.Snippet.Title,
			Thumb:  thumbnailURL(item.Snippet.Thumbnails),
			URL:    WatchURL(item.Id.VideoId),
			Author: item.Snippet.ChannelTitle,
		})
	}
	return results, nil
}

// SearchPlaylists returns playlist hits for query with playlist URLs.
func (y *YouTubeService) SearchPlaylists(ctx context.Context, query string) ([]models.Result, error) {
	items, err := y.search(ctx, "search playlists", query, "playlist")
	if err != nil {
		return nil, err
	}

	results := make([]models.Result, 0, len(items))
	for _, item := range items {
		if item.Id == nil || item.Id.PlaylistId == "" || item.Snippet == nil {
			continue
		}
		results = append(results, models.Result{
			Title:  item.Snippet.Title,
			Thumb:  thumbnailURL(item.Snippet.Thumbnails),
			URL:    PlaylistURL(item.Id.PlaylistId),
			Author: item.Snippet.ChannelTitle,
		})
	}
	return results, nil
}

func (y *YouTubeService) search(ctx context.Context, op, query, kind string) ([]*youtube.SearchResult, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, classifyAPIError(op, err)
	}

	resp, err := y.service.Search.List([]string{"snippet"}).
		Q(query).
		Type(kind).
		MaxResults(y.maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classifyAPIError(op, err)
	}
	return resp.Items, nil
}

// ListPlaylistItems pages through the whole playlist.
//
// Author is the channel that uploaded each video, so deleted and private
// entries come back without one.
func (y *YouTubeService) ListPlaylistItems(ctx context.Context, playlistID string) ([]models.Result, error) {
	var (
		results   []models.Result
		pageToken string
	)

	for {
		if err := y.limiter.Wait(ctx); err != nil {
			return nil, classifyAPIError("list playlist items", err)
		}

		call := y.service.PlaylistItems.List([]string{"snippet", "contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(playlistPageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, classifyAPIError("list playlist items", err)
		}

		for _, item := range resp.Items {
			if r, ok := playlistItemResult(item); ok {
				results = append(results, r)
			}
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	if results == nil {
		results = []models.Result{}
	}
	return results, nil
}

func playlistItemResult(item *youtube.PlaylistItem) (models.Result, bool) {
	if item == nil || item.Snippet == nil {
		return models.Result{}, false
	}

	videoID := ""
	if item.ContentDetails != nil {
		videoID = item.ContentDetails.VideoId
	}
	if videoID == "" && item.Snippet.ResourceId != nil {
		videoID = item.Snippet.ResourceId.VideoId
	}
	if videoID == "" {
		return models.Result{}, false
	}

	return models.Result{
		Title:  item.Snippet.Title,
		Thumb:  thumbnailURL(item.Snippet.Thumbnails),
		URL:    WatchURL(videoID),
		Author: item.Snippet.VideoOwnerChannelTitle,
	}, true
}

// thumbnailURL picks the highest resolution thumbnail on offer.
func thumbnailURL(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, thumb := range []*youtube.Thumbnail{t.Maxres, t.Standard, t.High, t.Medium, t.Default} {
		if thumb != nil && thumb.Url != "" {
			return thumb.Url
		}
	}
	return ""
}

// classifyAPIError maps client and API failures onto the shared sentinels.
func classifyAPIError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return shared.Upstream(op, fmt.Errorf("%w: %v", shared.ErrTimeout, err))
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return shared.Upstream(op, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err))
	}

	for _, item := range apiErr.Errors {
		switch item.Reason {
		case "quotaExceeded", "dailyLimitExceeded", "rateLimitExceeded":
			return shared.Upstream(op, fmt.Errorf("%w: %s", shared.ErrQuotaExceeded, apiErr.Message))
		case "keyInvalid", "keyExpired":
			return shared.Upstream(op, fmt.Errorf("%w: %s", shared.ErrInvalidKey, apiErr.Message))
		case "playlistNotFound", "videoNotFound":
			return shared.Upstream(op, fmt.Errorf("%w: %s", shared.ErrNotFound, apiErr.Message))
		}
	}

	switch {
	case apiErr.Code == http.StatusNotFound:
		return shared.Upstream(op, fmt.Errorf("%w: %s", shared.ErrNotFound, apiErr.Message))
	case apiErr.Code == http.StatusBadRequest && strings.Contains(apiErr.Message, "API key"):
		return shared.Upstream(op, fmt.Errorf("%w: %s", shared.ErrInvalidKey, apiErr.Message))
	}
	return shared.Upstream(op, fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, apiErr.Code, apiErr.Message))
}
