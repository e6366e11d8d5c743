package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/soundpy/internal/formatter"
	"github.com/desertthunder/soundpy/internal/models"
)

// BulkDownloadOpts contains configuration for downloading every track of a playlist.
type BulkDownloadOpts struct {
	OutputDir  string  // Base output directory (default: soundpy_{epoch})
	NumWorkers int     // Concurrent workers (default: 3, max: 8)
	RateLimit  float64 // Downloads started per second (default: 1)
}

// TrackDownloadResult is the outcome for a single track of a bulk download.
type TrackDownloadResult struct {
	Position int          `json:"position"`
	Track    models.Track `json:"track"`
	File     string       `json:"file,omitempty"`
	Bytes    int          `json:"bytes"`
	Success  bool         `json:"success"`
	Error    error        `json:"-"`
	Message  string       `json:"error,omitempty"`
}

// BulkDownloadResult summarizes a bulk download.
type BulkDownloadResult struct {
	Link            string                `json:"link"`
	PlaylistID      int64                 `json:"playlist_id"`
	Total           int                   `json:"total"`
	Succeeded       int                   `json:"succeeded"`
	Failed          int                   `json:"failed"`
	OutputDirectory string                `json:"output_directory"`
	ManifestPath    string                `json:"-"`
	Results         []TrackDownloadResult `json:"results"`
}

type downloadJob struct {
	position int
	track    models.Track
}

// BulkDownload syncs the playlist for link and downloads each of its tracks into
// opts.OutputDir with a rate-limited worker pool.
//
// Individual track failures are recorded in the result and do not abort the run. A
// download_manifest.json summarizing the run is written next to the files.
func (e *Engine) BulkDownload(ctx context.Context, prog chan<- ProgressUpdate, link string, opts BulkDownloadOpts) (*BulkDownloadResult, error) {
	playlist, err := e.SyncPlaylistWithProgress(ctx, prog, link)
	if err != nil {
		return nil, err
	}

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("soundpy_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 8 {
		opts.NumWorkers = 8
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 1.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	total := len(playlist.Tracks)
	result := &BulkDownloadResult{
		Link:            playlist.Link,
		PlaylistID:      playlist.ID,
		Total:           total,
		OutputDirectory: opts.OutputDir,
		Results:         make([]TrackDownloadResult, 0, total),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan downloadJob, total)
	results := make(chan TrackDownloadResult, total)

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.downloadWorker(ctx, &wg, jobs, results, opts.OutputDir)
	}

	go func() {
		defer close(jobs)
		for i, track := range playlist.Tracks {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			e.sendProgress(prog, downloadingTrackUpdate(i+1, total, track))
			jobs <- downloadJob{position: i + 1, track: track}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.Succeeded++
			e.sendProgress(prog, downloadCompletedUpdate(completed, total, res))
		} else {
			result.Failed++
			e.sendProgress(prog, downloadFailedUpdate(completed, total, res))
		}
	}
	sort.Slice(result.Results, func(i, j int) bool { return result.Results[i].Position < result.Results[j].Position })

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, "download_manifest.json")
	if err := formatter.WriteJSON(result, manifestPath); err != nil {
		return result, fmt.Errorf("download completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// downloadWorker downloads tracks from the jobs channel until it is closed.
func (e *Engine) downloadWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan downloadJob,
	results chan<- TrackDownloadResult,
	dir string,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		results <- e.downloadTrack(ctx, job, dir)
	}
}

func (e *Engine) downloadTrack(ctx context.Context, job downloadJob, dir string) TrackDownloadResult {
	res := TrackDownloadResult{Position: job.position, Track: job.track}

	media, err := e.Download(ctx, job.track.URL)
	if err != nil {
		res.Error = err
		res.Message = err.Error()
		return res
	}

	path := filepath.Join(dir, trackFilename(job.position, media.Filename))
	if err := os.WriteFile(path, media.Data, 0644); err != nil {
		res.Error = fmt.Errorf("write %s: %w", path, err)
		res.Message = res.Error.Error()
		return res
	}

	res.File = path
	res.Bytes = len(media.Data)
	res.Success = true
	return res
}

// trackFilename prefixes name with the playlist position so files sort in playlist order
// and tracks with equal titles do not overwrite each other.
func trackFilename(position int, name string) string {
	return fmt.Sprintf("%03d - %s", position, strings.TrimLeft(name, ". "))
}
