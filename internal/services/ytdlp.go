// yt-dlp [Extractor] implementation
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"

	"github.com/desertthunder/soundpy/internal/models"
	"github.com/desertthunder/soundpy/internal/shared"
)

const (
	defaultYtdlpPath    = "yt-dlp"
	defaultAudioQuality = 192
)

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the command with [exec.CommandContext]. Standard error is folded into the returned error.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// Ytdlp implements [Extractor] with the yt-dlp executable.
type Ytdlp struct {
	path         string
	mode         string
	audioQuality int
	workDir      string
	run          Runner
	tagger       *Tagger
	logger       *log.Logger
}

// NewYtdlp creates an extractor from the extractor config.
//
// A nil run uses [ExecRunner]. The tagger is only consulted in mp3 mode.
func NewYtdlp(cfg shared.ExtractorConfig, run Runner, tagger *Tagger, logger *log.Logger) *Ytdlp {
	if run == nil {
		run = ExecRunner
	}
	if logger == nil {
		logger = log.Default()
	}
	if tagger == nil {
		tagger = NewTagger(nil, logger)
	}

	y := &Ytdlp{
		path:         cfg.YtdlpPath,
		mode:         cfg.Mode,
		audioQuality: cfg.AudioQuality,
		workDir:      cfg.WorkDir,
		run:          run,
		tagger:       tagger,
		logger:       logger,
	}
	if y.path == "" {
		y.path = defaultYtdlpPath
	}
	if y.mode != "mp4" {
		y.mode = "mp3"
	}
	if y.audioQuality <= 0 {
		y.audioQuality = defaultAudioQuality
	}
	return y
}

// Mode returns the container the extractor produces, mp3 or mp4.
func (y *Ytdlp) Mode() string {
	return y.mode
}

type ytdlpInfo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Uploader  string `json:"uploader"`
	Channel   string `json:"channel"`
}

// Resolve reads video metadata with yt-dlp -J.
func (y *Ytdlp) Resolve(ctx context.Context, id string) (*models.VideoInfo, error) {
	out, err := y.run(ctx, y.path, "-J", "--no-warnings", "--no-playlist", mediaTarget(id))
	if err != nil {
		return nil, classifyYtdlpError(ctx, "resolve", err)
	}

	var raw ytdlpInfo
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, shared.Upstream("resolve", fmt.Errorf("%w: parse metadata: %v", shared.ErrExtractionFailed, err))
	}

	author := raw.Uploader
	if author == "" {
		author = raw.Channel
	}
	return &models.VideoInfo{ID: raw.ID, Title: raw.Title, Thumb: raw.Thumbnail, Author: author}, nil
}

// StreamURL resolves the best audio-only stream with yt-dlp -g.
func (y *Ytdlp) StreamURL(ctx context.Context, id string) (string, error) {
	out, err := y.run(ctx, y.path, "-f", "bestaudio", "-g", "--no-warnings", "--no-playlist", mediaTarget(id))
	if err != nil {
		return "", classifyYtdlpError(ctx, "stream", err)
	}

	streamURL := firstLine(out)
	if streamURL == "" {
		return "", shared.Upstream("stream", fmt.Errorf("%w: no stream url for %s", shared.ErrNotFound, id))
	}
	return streamURL, nil
}

// Download fetches the audio for id into a temporary directory, tags it in mp3
// mode and returns its bytes. The directory is removed on every path.
func (y *Ytdlp) Download(ctx context.Context, id string) (*models.Media, error) {
	info, err := y.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(y.workDir, "soundpy-*")
	if err != nil {
		return nil, shared.Upstream("download", fmt.Errorf("create work dir: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			y.logger.Warn("failed to remove work dir", "dir", dir, "error", err)
		}
	}()

	out, err := y.run(ctx, y.path, y.downloadArgs(dir, mediaTarget(id))...)
	if err != nil {
		return nil, classifyYtdlpError(ctx, "download", err)
	}

	path := lastPath(out)
	if path == "" {
		return nil, shared.Upstream("download", fmt.Errorf("%w: yt-dlp reported no output file", shared.ErrExtractionFailed))
	}

	if y.mode == "mp3" {
		if err := y.tagger.Tag(ctx, path, *info); err != nil {
			return nil, shared.Upstream("download", fmt.Errorf("%w: %v", shared.ErrExtractionFailed, err))
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, shared.Upstream("download", fmt.Errorf("read %s: %w", path, err))
	}

	y.logger.Debug("downloaded audio", "video", info.ID, "bytes", len(data), "mode", y.mode)
	return &models.Media{
		Filename:    sanitizeFilename(info.Title) + "." + y.mode,
		ContentType: y.contentType(),
		Data:        data,
		Info:        *info,
	}, nil
}

func (y *Ytdlp) downloadArgs(dir, target string) []string {
	args := []string{
		"--no-warnings",
		"--no-playlist",
		"--no-progress",
		"-o", filepath.Join(dir, "%(id)s.%(ext)s"),
		"--print", "after_move:filepath",
	}

	if y.mode == "mp4" {
		args = append(args,
			"-f", "bestaudio[ext=m4a]/bestaudio",
			"--embed-metadata",
			"--embed-thumbnail",
		)
	} else {
		args = append(args,
			"-f", "bestaudio/best",
			"-x",
			"--audio-format", "mp3",
			"--audio-quality", strconv.Itoa(y.audioQuality)+"K",
		)
	}

	return append(args, target)
}

func (y *Ytdlp) contentType() string {
	if y.mode == "mp4" {
		return "audio/mp4"
	}
	return "audio/mpeg"
}

func classifyYtdlpError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return shared.Upstream(op, fmt.Errorf("%w: %v", shared.ErrTimeout, err))
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "Video unavailable"),
		strings.Contains(msg, "does not exist"),
		strings.Contains(msg, "Incomplete YouTube ID"):
		return shared.Upstream(op, fmt.Errorf("%w: %v", shared.ErrNotFound, err))
	}
	return shared.Upstream(op, fmt.Errorf("%w: %v", shared.ErrExtractionFailed, err))
}

func firstLine(out []byte) string {
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// lastPath returns the last non-empty line that looks like a file path.
func lastPath(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line != "" && strings.Contains(line, string(os.PathSeparator)) {
			return line
		}
	}
	return ""
}

// sanitizeFilename replaces characters that are unsafe in file names and
// Content-Disposition headers.
func sanitizeFilename(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "audio"
	}
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_", "\n", " ", "\r", " ")
	return replacer.Replace(s)
}
