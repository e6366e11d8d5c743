package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/desertthunder/soundpy/internal/models"
	"github.com/desertthunder/soundpy/internal/shared"
	tu "github.com/desertthunder/soundpy/internal/testing"
)

func testCacheConfig() shared.CacheConfig {
	return shared.CacheConfig{Search: 2, PlaylistItems: 2, Stream: 2, PlaylistSearch: 1, Download: 1}
}

func TestCachedCatalog(t *testing.T) {
	ctx := context.Background()

	t.Run("memoizes each operation separately", func(t *testing.T) {
		mock := tu.NewMockCatalog()
		mock.Hits["q"] = []models.Result{{Title: "hit"}}
		mock.Items["q"] = []models.Result{{Title: "item"}}
		mock.Lists["q"] = []models.Result{{Title: "list"}}

		c := NewCachedCatalog(mock, testCacheConfig())
		defer c.Close()

		for range 3 {
			if r, err := c.Search(ctx, "q"); err != nil || r[0].Title != "hit" {
				t.Fatalf("unexpected search result %v, %v", r, err)
			}
			if r, err := c.ListPlaylistItems(ctx, "q"); err != nil || r[0].Title != "item" {
				t.Fatalf("unexpected listing %v, %v", r, err)
			}
			if r, err := c.SearchPlaylists(ctx, "q"); err != nil || r[0].Title != "list" {
				t.Fatalf("unexpected playlist search %v, %v", r, err)
			}
		}

		for _, op := range []string{"search", "items", "playlists"} {
			if mock.Calls(op, "q") != 1 {
				t.Errorf("expected one %s call, got %d", op, mock.Calls(op, "q"))
			}
		}

		stats := c.Stats()
		if stats["search"].Hits != 2 || stats["search"].Misses != 1 {
			t.Errorf("unexpected search stats %+v", stats["search"])
		}
	})

	t.Run("failures are retried", func(t *testing.T) {
		mock := tu.NewMockCatalog()
		mock.SetErr(shared.ErrQuotaExceeded)

		c := NewCachedCatalog(mock, testCacheConfig())
		defer c.Close()

		if _, err := c.Search(ctx, "q"); !errors.Is(err, shared.ErrQuotaExceeded) {
			t.Fatalf("expected quota error, got %v", err)
		}

		mock.SetErr(nil)
		if _, err := c.Search(ctx, "q"); err != nil {
			t.Fatalf("expected recovery, got %v", err)
		}
		if mock.Calls("search", "q") != 2 {
			t.Errorf("expected 2 calls, got %d", mock.Calls("search", "q"))
		}
	})
}

func TestCachedExtractor(t *testing.T) {
	ctx := context.Background()

	mock := tu.NewMockExtractor()
	mock.Info["abc"] = &models.VideoInfo{ID: "abc", Title: "Song"}
	mock.Streams["abc"] = "https://stream/abc"
	mock.Media["abc"] = &models.Media{Filename: "Song.mp3", Data: []byte("x")}

	c := NewCachedExtractor(mock, testCacheConfig())
	defer c.Close()

	for range 2 {
		if _, err := c.Resolve(ctx, "abc"); err != nil {
			t.Fatalf("unexpected resolve error: %v", err)
		}
		if u, err := c.StreamURL(ctx, "abc"); err != nil || u != "https://stream/abc" {
			t.Fatalf("unexpected stream %q, %v", u, err)
		}
		if m, err := c.Download(ctx, "abc"); err != nil || m.Filename != "Song.mp3" {
			t.Fatalf("unexpected media %v, %v", m, err)
		}
	}

	if mock.Calls("resolve", "abc") != 2 {
		t.Errorf("resolve should pass through, got %d calls", mock.Calls("resolve", "abc"))
	}
	if mock.Calls("stream", "abc") != 1 || mock.Calls("download", "abc") != 1 {
		t.Errorf("expected stream and download to be cached")
	}
	if c.Stats()["download"].Entries != 1 {
		t.Errorf("expected one download entry, got %+v", c.Stats()["download"])
	}
}

func TestFetcherTransportError(t *testing.T) {
	client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
	_, err := NewFetcher(client).Get(context.Background(), "http://example.invalid/cover.jpg")
	if !errors.Is(err, shared.ErrAPIRequest) {
		t.Fatalf("expected ErrAPIRequest, got %v", err)
	}
}
