package formatter

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/desertthunder/soundpy/internal/models"
	"github.com/desertthunder/soundpy/internal/shared"
	th "github.com/desertthunder/soundpy/internal/testing"
)

func samplePlaylist() *models.Playlist {
	return &models.Playlist{
		ID:   7,
		Link: "PL123",
		Tracks: []models.Track{
			{ID: 1, Title: "Song One", Thumb: "https://i.ytimg.com/vi/v1/hq.jpg", URL: "https://www.youtube.com/watch?v=v1", Author: "Artist One"},
			{ID: 2, Title: "Song, Two", URL: "https://www.youtube.com/watch?v=v2", Author: "Artist Two"},
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(samplePlaylist())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "Position,ID,Title,Author,URL,Thumbnail") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "1,1,Song One,Artist One,https://www.youtube.com/watch?v=v1,https://i.ytimg.com/vi/v1/hq.jpg") {
			t.Errorf("CSV missing track1 row, got: %s", output)
		}
		if !strings.Contains(output, `2,2,"Song, Two",Artist Two,https://www.youtube.com/watch?v=v2,`) {
			t.Errorf("CSV did not quote title with comma, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		t.Run("without cover image", func(t *testing.T) {
			data, err := ExportToMarkdown(samplePlaylist(), "")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}

			output := string(data)

			if !strings.Contains(output, "# Playlist 7") {
				t.Errorf("Markdown missing title")
			}
			if !strings.Contains(output, "**Link**: PL123") {
				t.Errorf("Markdown missing link")
			}
			if !strings.Contains(output, "**Tracks**: 2") {
				t.Errorf("Markdown missing track count")
			}
			if !strings.Contains(output, "1. [Artist One - Song One](https://www.youtube.com/watch?v=v1)") {
				t.Errorf("Markdown missing track1, got: %s", output)
			}
			if strings.Contains(output, "![Cover]") {
				t.Errorf("Markdown should not reference a cover")
			}
		})

		t.Run("with cover image", func(t *testing.T) {
			data, err := ExportToMarkdown(samplePlaylist(), "cover.jpg")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}
			if !strings.Contains(string(data), "![Cover](cover.jpg)") {
				t.Errorf("Markdown missing cover image reference")
			}
		})
	})

	t.Run("ExportToM3U", func(t *testing.T) {
		data, err := ExportToM3U(samplePlaylist())
		if err != nil {
			t.Fatalf("ExportToM3U failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		want := []string{
			"#EXTM3U",
			"#PLAYLIST:PL123",
			"#EXTINF:-1,Artist One - Song One",
			"#EXTIMG:https://i.ytimg.com/vi/v1/hq.jpg",
			"https://www.youtube.com/watch?v=v1",
			"#EXTINF:-1,Artist Two - Song, Two",
			"https://www.youtube.com/watch?v=v2",
		}
		if len(lines) != len(want) {
			t.Fatalf("expected %d lines, got %d: %q", len(want), len(lines), lines)
		}
		for i := range want {
			if lines[i] != want[i] {
				t.Errorf("line %d: expected %q, got %q", i, want[i], lines[i])
			}
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(samplePlaylist())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "Playlist: PL123") {
			t.Errorf("Text missing playlist link")
		}
		if !strings.Contains(output, "Tracks: 2") {
			t.Errorf("Text missing track count")
		}
		if !strings.Contains(output, "1. Artist One - Song One") {
			t.Errorf("Text missing track1")
		}
		if !strings.Contains(output, "2. Artist Two - Song, Two") {
			t.Errorf("Text missing track2")
		}
	})

	t.Run("ToJSON", func(t *testing.T) {
		data, err := ToJSON(samplePlaylist())
		if err != nil {
			t.Fatalf("ToJSON failed: %v", err)
		}

		var decoded struct {
			ID     int64          `json:"id"`
			Link   string         `json:"link"`
			Musics []models.Track `json:"musics"`
		}
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("ToJSON output is not valid JSON: %v", err)
		}
		if decoded.ID != 7 || decoded.Link != "PL123" || len(decoded.Musics) != 2 {
			t.Errorf("unexpected decoded playlist: %+v", decoded)
		}
		if !strings.HasSuffix(string(data), "\n") {
			t.Errorf("expected trailing newline")
		}
	})

	t.Run("EmptyPlaylist", func(t *testing.T) {
		empty := &models.Playlist{ID: 1, Link: "PLempty", Tracks: []models.Track{}}
		for _, format := range Formats {
			if _, err := Export(empty, format); err != nil {
				t.Errorf("Export(%s) failed on empty playlist: %v", format, err)
			}
		}
	})
}

func TestNormalizeFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: "json"},
		{in: "JSON", want: "json"},
		{in: "md", want: "markdown"},
		{in: "markdown", want: "markdown"},
		{in: "text", want: "txt"},
		{in: " csv ", want: "csv"},
		{in: "m3u", want: "m3u"},
		{in: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeFormat(tt.in)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Fatalf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestWriters(t *testing.T) {
	t.Run("WriteExport", func(t *testing.T) {
		t.Run("WithDefaultPath", func(t *testing.T) {
			t.Chdir(t.TempDir())

			path, err := WriteExport(samplePlaylist(), "csv", "")
			if err != nil {
				t.Fatalf("WriteExport failed: %v", err)
			}
			if path != "playlist_7.csv" {
				t.Errorf("expected default path playlist_7.csv, got %s", path)
			}

			th.AssertFileExists(t, path)
			if content := th.MustReadFile(t, path); !strings.Contains(content, "Song One") {
				t.Errorf("CSV file missing track data")
			}
		})

		t.Run("WithCustomPath", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "out.m3u")

			got, err := WriteExport(samplePlaylist(), "m3u", path)
			if err != nil {
				t.Fatalf("WriteExport failed: %v", err)
			}
			if got != path {
				t.Errorf("expected %s, got %s", path, got)
			}
			if content := th.MustReadFile(t, path); !strings.HasPrefix(content, "#EXTM3U") {
				t.Errorf("M3U file missing header")
			}
		})

		t.Run("UnknownFormat", func(t *testing.T) {
			if _, err := WriteExport(samplePlaylist(), "xml", filepath.Join(t.TempDir(), "out.xml")); err == nil {
				t.Fatal("expected error for unknown format")
			}
		})
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		t.Run("WithDefaultDirectory", func(t *testing.T) {
			t.Chdir(t.TempDir())

			result, err := WriteMarkdownExport(samplePlaylist(), "", nil)
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}
			if result.Directory != "playlist_7" {
				t.Errorf("expected directory playlist_7, got %s", result.Directory)
			}
			if result.CoverImage != "" {
				t.Errorf("expected no cover image, got %s", result.CoverImage)
			}
			if len(result.Files) != 1 {
				t.Errorf("expected 1 file, got %d", len(result.Files))
			}
			th.AssertFileExists(t, filepath.Join("playlist_7", "README.md"))
		})

		t.Run("WithCover", func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "export")

			result, err := WriteMarkdownExport(samplePlaylist(), dir, []byte{0xFF, 0xD8, 0xFF})
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}
			if len(result.Files) != 2 {
				t.Errorf("expected 2 files, got %d", len(result.Files))
			}
			th.AssertFileExists(t, result.CoverImage)

			readme := th.MustReadFile(t, filepath.Join(dir, "README.md"))
			if !strings.Contains(readme, "![Cover](cover.jpg)") {
				t.Errorf("README missing cover reference")
			}
		})
	})

	t.Run("WriteJSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "manifest.json")
		if err := WriteJSON(map[string]int{"total": 2}, path); err != nil {
			t.Fatalf("WriteJSON failed: %v", err)
		}
		if content := th.MustReadFile(t, path); !strings.Contains(content, `"total": 2`) {
			t.Errorf("unexpected manifest content: %s", content)
		}

		if err := WriteJSON(map[string]int{}, filepath.Join(t.TempDir(), "missing", "x.json")); err == nil {
			t.Error("expected error writing into a missing directory")
		}
	})
}
