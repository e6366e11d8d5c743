package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/desertthunder/soundpy/internal/models"
	"github.com/desertthunder/soundpy/internal/shared"
	tu "github.com/desertthunder/soundpy/internal/testing"
)

func TestEngine_BulkDownload(t *testing.T) {
	ctx := context.Background()

	t.Run("downloads every track and writes manifest", func(t *testing.T) {
		engine, _, catalog, extractor := newTestEngine(t)
		catalog.Items["PL123"] = listing()
		extractor.Media["v1"] = &models.Media{Filename: "A.mp3", Data: []byte("aaa")}
		extractor.Media["v2"] = &models.Media{Filename: "B.mp3", Data: []byte("bbbb")}
		dir := filepath.Join(t.TempDir(), "out")
		progress := make(chan ProgressUpdate, 20)

		result, err := engine.BulkDownload(ctx, progress, "PL123", BulkDownloadOpts{OutputDir: dir, NumWorkers: 2, RateLimit: 100})
		if err != nil {
			t.Fatalf("BulkDownload failed: %v", err)
		}

		if result.Total != 2 || result.Succeeded != 2 || result.Failed != 0 {
			t.Errorf("unexpected counts: %+v", result)
		}
		if result.Results[0].Position != 1 || result.Results[1].Position != 2 {
			t.Errorf("expected results in playlist order, got %+v", result.Results)
		}

		for _, name := range []string{"001 - A.mp3", "002 - B.mp3"} {
			tu.AssertFileExists(t, filepath.Join(dir, name))
		}
		if got := tu.MustReadFile(t, filepath.Join(dir, "002 - B.mp3")); got != "bbbb" {
			t.Errorf("unexpected file content %q", got)
		}

		var manifest BulkDownloadResult
		if err := json.Unmarshal([]byte(tu.MustReadFile(t, result.ManifestPath)), &manifest); err != nil {
			t.Fatalf("manifest is not valid JSON: %v", err)
		}
		if manifest.Succeeded != 2 || manifest.Link != "PL123" {
			t.Errorf("unexpected manifest: %+v", manifest)
		}

		close(progress)
		sawDownload := false
		for update := range progress {
			if update.Phase == DownloadTracks {
				sawDownload = true
			}
		}
		if !sawDownload {
			t.Error("expected download progress updates")
		}
	})

	t.Run("records track failures", func(t *testing.T) {
		engine, _, catalog, extractor := newTestEngine(t)
		catalog.Items["PL123"] = listing()
		extractor.Media["v1"] = &models.Media{Filename: "A.mp3", Data: []byte("aaa")}
		dir := t.TempDir()

		result, err := engine.BulkDownload(ctx, nil, "PL123", BulkDownloadOpts{OutputDir: dir, RateLimit: 100})
		if err != nil {
			t.Fatalf("BulkDownload failed: %v", err)
		}

		if result.Succeeded != 1 || result.Failed != 1 {
			t.Fatalf("expected 1 success and 1 failure, got %+v", result)
		}
		failed := result.Results[1]
		if failed.Success || failed.Error == nil || !strings.Contains(failed.Message, "media not found") {
			t.Errorf("unexpected failed result: %+v", failed)
		}
		if _, err := os.Stat(filepath.Join(dir, "002 - B.mp3")); !os.IsNotExist(err) {
			t.Error("expected no file for failed track")
		}
	})

	t.Run("sync failure aborts", func(t *testing.T) {
		engine, _, catalog, _ := newTestEngine(t)
		catalog.SetErr(shared.Upstream("list playlist items", shared.ErrInvalidKey))

		_, err := engine.BulkDownload(ctx, nil, "PL123", BulkDownloadOpts{OutputDir: t.TempDir()})
		if !errors.Is(err, shared.ErrPlaylistSync) {
			t.Errorf("expected ErrPlaylistSync, got %v", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		engine, _, catalog, extractor := newTestEngine(t)
		catalog.Items["PL123"] = listing()
		extractor.Media["v1"] = &models.Media{Filename: "A.mp3", Data: []byte("aaa")}
		extractor.Media["v2"] = &models.Media{Filename: "B.mp3", Data: []byte("bbb")}

		if _, err := engine.SyncPlaylist(ctx, "PL123"); err != nil {
			t.Fatalf("SyncPlaylist failed: %v", err)
		}

		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := engine.BulkDownload(canceled, nil, "PL123", BulkDownloadOpts{OutputDir: t.TempDir()})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestTrackFilename(t *testing.T) {
	tests := []struct {
		position int
		name     string
		want     string
	}{
		{1, "Song.mp3", "001 - Song.mp3"},
		{12, ".hidden.mp3", "012 - hidden.mp3"},
		{250, "Long Title.mp4", "250 - Long Title.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := trackFilename(tt.position, tt.name); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
