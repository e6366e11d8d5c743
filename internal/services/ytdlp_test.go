package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/desertthunder/soundpy/internal/shared"
)

// fakeYtdlp answers yt-dlp invocations without touching the network.
type fakeYtdlp struct {
	info    string
	stream  string
	audio   []byte
	failOn  string
	failErr error
	calls   [][]string
	workDir string
}

func (f *fakeYtdlp) run(_ context.Context, _ string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, args)

	switch {
	case f.failOn != "" && slices.Contains(args, f.failOn):
		return nil, f.failErr
	case slices.Contains(args, "-J"):
		return []byte(f.info), nil
	case slices.Contains(args, "-g"):
		return []byte(f.stream + "\n"), nil
	case slices.Contains(args, "--print"):
		tmpl := args[slices.Index(args, "-o")+1]
		f.workDir = filepath.Dir(tmpl)
		ext := "mp3"
		if slices.Contains(args, "--embed-thumbnail") {
			ext = "m4a"
		}
		path := filepath.Join(f.workDir, "abc."+ext)
		if err := os.WriteFile(path, f.audio, 0o644); err != nil {
			return nil, err
		}
		return []byte("[download] 100%\n" + path + "\n"), nil
	}
	return nil, errors.New("unexpected invocation")
}

const testInfo = `{"id":"abc","title":"Song: Live/Remix","thumbnail":"","uploader":"","channel":"Artist"}`

func TestYtdlp(t *testing.T) {
	ctx := context.Background()

	t.Run("Resolve", func(t *testing.T) {
		fake := &fakeYtdlp{info: testInfo}
		y := NewYtdlp(shared.ExtractorConfig{Mode: "mp3"}, fake.run, nil, nil)

		info, err := y.Resolve(ctx, "abc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.Title != "Song: Live/Remix" || info.Author != "Artist" {
			t.Errorf("unexpected info %+v", info)
		}
		if last := fake.calls[0][len(fake.calls[0])-1]; last != "https://www.youtube.com/watch?v=abc" {
			t.Errorf("expected watch url target, got %s", last)
		}
	})

	t.Run("Resolve bad json", func(t *testing.T) {
		fake := &fakeYtdlp{info: "not json"}
		y := NewYtdlp(shared.ExtractorConfig{}, fake.run, nil, nil)

		if _, err := y.Resolve(ctx, "abc"); !errors.Is(err, shared.ErrExtractionFailed) {
			t.Fatalf("expected ErrExtractionFailed, got %v", err)
		}
	})

	t.Run("StreamURL", func(t *testing.T) {
		fake := &fakeYtdlp{stream: "https://rr1.googlevideo.com/audio"}
		y := NewYtdlp(shared.ExtractorConfig{}, fake.run, nil, nil)

		got, err := y.StreamURL(ctx, "https://www.youtube.com/watch?v=abc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "https://rr1.googlevideo.com/audio" {
			t.Errorf("unexpected stream url %s", got)
		}
		if last := fake.calls[0][len(fake.calls[0])-1]; last != "https://www.youtube.com/watch?v=abc" {
			t.Errorf("url targets should pass through, got %s", last)
		}
	})

	t.Run("StreamURL empty", func(t *testing.T) {
		fake := &fakeYtdlp{stream: ""}
		y := NewYtdlp(shared.ExtractorConfig{}, fake.run, nil, nil)

		if _, err := y.StreamURL(ctx, "abc"); !errors.Is(err, shared.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Download mp3 tags and cleans up", func(t *testing.T) {
		fake := &fakeYtdlp{info: testInfo, audio: []byte("fake-audio-payload")}
		workDir := t.TempDir()
		y := NewYtdlp(shared.ExtractorConfig{Mode: "mp3", WorkDir: workDir}, fake.run, nil, nil)

		media, err := y.Download(ctx, "abc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if media.Filename != "Song_ Live_Remix.mp3" {
			t.Errorf("unexpected filename %q", media.Filename)
		}
		if media.ContentType != "audio/mpeg" {
			t.Errorf("unexpected content type %q", media.ContentType)
		}
		if !strings.HasPrefix(string(media.Data), "ID3") {
			t.Errorf("expected ID3 header, got %q", media.Data[:3])
		}
		if !strings.HasSuffix(string(media.Data), "fake-audio-payload") {
			t.Error("expected audio payload after tag")
		}

		if _, err := os.Stat(fake.workDir); !os.IsNotExist(err) {
			t.Errorf("work dir should be removed, stat err = %v", err)
		}

		args := fake.calls[len(fake.calls)-1]
		if !slices.Contains(args, "-x") || !slices.Contains(args, "192K") {
			t.Errorf("expected mp3 extraction args, got %v", args)
		}
	})

	t.Run("Download mp4 skips tagger", func(t *testing.T) {
		fake := &fakeYtdlp{info: testInfo, audio: []byte("m4a-bytes")}
		y := NewYtdlp(shared.ExtractorConfig{Mode: "mp4", WorkDir: t.TempDir()}, fake.run, nil, nil)

		media, err := y.Download(ctx, "abc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(media.Data) != "m4a-bytes" {
			t.Errorf("mp4 payload should be untouched, got %q", media.Data)
		}
		if media.Filename != "Song_ Live_Remix.mp4" || media.ContentType != "audio/mp4" {
			t.Errorf("unexpected media %q %q", media.Filename, media.ContentType)
		}
	})

	t.Run("Download failure removes work dir", func(t *testing.T) {
		workDir := t.TempDir()
		fake := &fakeYtdlp{info: testInfo, failOn: "--print", failErr: errors.New("ERROR: [youtube] abc: Video unavailable")}
		y := NewYtdlp(shared.ExtractorConfig{WorkDir: workDir}, fake.run, nil, nil)

		_, err := y.Download(ctx, "abc")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		entries, _ := os.ReadDir(workDir)
		if len(entries) != 0 {
			t.Errorf("expected empty work dir, found %d entries", len(entries))
		}
	})

	t.Run("timeout", func(t *testing.T) {
		fake := &fakeYtdlp{failOn: "-J", failErr: errors.New("signal: killed")}
		y := NewYtdlp(shared.ExtractorConfig{}, fake.run, nil, nil)

		cctx, cancel := context.WithTimeout(ctx, 0)
		defer cancel()
		<-cctx.Done()

		if _, err := y.Resolve(cctx, "abc"); !errors.Is(err, shared.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
	})
}

func TestSanitizeFilename(t *testing.T) {
	tc := []struct {
		in   string
		want string
	}{
		{in: "plain", want: "plain"},
		{in: "a/b\\c", want: "a_b_c"},
		{in: `say "hi"?`, want: "say _hi__"},
		{in: "  ", want: "audio"},
	}

	for _, tt := range tc {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
