package main

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/desertthunder/soundpy/internal/formatter"
	"github.com/desertthunder/soundpy/internal/models"
	"github.com/desertthunder/soundpy/internal/shared"
	"github.com/desertthunder/soundpy/internal/tasks"
	"github.com/desertthunder/soundpy/internal/ui"
	"github.com/urfave/cli/v3"
)

// PlaylistSync mirrors an upstream playlist into the store and prints its tracks.
func (r *Runner) PlaylistSync(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.Engine(ctx)
	if err != nil {
		return err
	}

	playlist, err := r.syncWithProgress(ctx, engine, cmd.StringArg("link"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlist, cmd.Bool("pretty"))
	}
	return r.writePlaylist(playlist)
}

// PlaylistSearch prints playlist hits for the query argument.
func (r *Runner) PlaylistSearch(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.Engine(ctx)
	if err != nil {
		return err
	}

	results, err := engine.SearchPlaylists(ctx, cmd.StringArg("query"))
	if err != nil {
		return fmt.Errorf("playlist search failed: %w", err)
	}
	return r.writeResults(cmd, results)
}

// PlaylistList prints every stored playlist.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.Library(ctx)
	if err != nil {
		return err
	}

	playlists, err := engine.Playlists(ctx)
	if err != nil {
		return fmt.Errorf("failed to list playlists: %w", err)
	}

	if cmd.Bool("json") {
		if playlists == nil {
			playlists = []models.PlaylistSummary{}
		}
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	if len(playlists) == 0 {
		return r.writePlainln("%s", ui.Styles.Warn("No playlists stored yet"))
	}

	rows := make([][]string, 0, len(playlists))
	for _, p := range playlists {
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			p.Link,
			strconv.Itoa(p.TrackCount),
			p.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return r.writePlainln("%s", ui.RenderTable(
		[]string{"ID", "Link", "Tracks", "Created"}, rows,
		ui.AlignRight, ui.AlignLeft, ui.AlignRight,
	))
}

// PlaylistExport syncs a playlist and writes it in the requested format.
//
// Markdown exports get their own directory with the first track's thumbnail as cover.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.NormalizeFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	engine, err := r.Engine(ctx)
	if err != nil {
		return err
	}

	playlist, err := r.syncWithProgress(ctx, engine, cmd.StringArg("link"))
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if format == "markdown" {
		result, err := formatter.WriteMarkdownExport(playlist, output, r.cover(ctx, playlist))
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		return r.writePlainln("%s", ui.Styles.OK("Exported %d tracks to %s", len(playlist.Tracks), result.Directory))
	}

	path, err := formatter.WriteExport(playlist, format, output)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	return r.writePlainln("%s", ui.Styles.OK("Exported %d tracks to %s", len(playlist.Tracks), path))
}

// PlaylistDelete removes a stored playlist and its track links.
func (r *Runner) PlaylistDelete(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.Library(ctx)
	if err != nil {
		return err
	}

	link := cmd.StringArg("link")
	if err := engine.DeletePlaylist(ctx, link); err != nil {
		if shared.KindOf(err) == shared.KindNotFound {
			return r.writePlainln("%s", ui.Styles.Warn("No stored playlist for %s", link))
		}
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	return r.writePlainln("%s", ui.Styles.OK("Deleted %s", link))
}

// PlaylistDownload syncs a playlist and downloads every track with a worker pool.
func (r *Runner) PlaylistDownload(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.Engine(ctx)
	if err != nil {
		return err
	}

	opts := tasks.BulkDownloadOpts{
		OutputDir:  cmd.String("output"),
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate"),
	}

	var result *tasks.BulkDownloadResult
	err = r.withProgress(func(progress chan<- tasks.ProgressUpdate) error {
		var err error
		result, err = engine.BulkDownload(ctx, progress, cmd.StringArg("link"), opts)
		return err
	})
	if err != nil && result == nil {
		return err
	}

	if cmd.Bool("json") {
		if jerr := r.writeJSON(result, cmd.Bool("pretty")); jerr != nil {
			return jerr
		}
		return err
	}

	r.writePlainln("")
	for _, res := range result.Results {
		if !res.Success {
			r.writePlainln("%s", ui.Styles.Err("%03d %s - %s: %s", res.Position, res.Track.Author, res.Track.Title, res.Message))
		}
	}
	r.writePlainln("%s", ui.Styles.OK("%d/%d tracks saved to %s", result.Succeeded, result.Total, result.OutputDirectory))
	if result.ManifestPath != "" {
		r.writePlainln("%s", ui.Styles.Help("Manifest: %s", result.ManifestPath))
	}
	return err
}

func (r *Runner) syncWithProgress(ctx context.Context, engine *tasks.Engine, link string) (*models.Playlist, error) {
	var playlist *models.Playlist
	err := r.withProgress(func(progress chan<- tasks.ProgressUpdate) error {
		var err error
		playlist, err = engine.SyncPlaylistWithProgress(ctx, progress, link)
		return err
	})
	return playlist, err
}

// withProgress runs fn with a progress channel and prints every update until fn returns.
func (r *Runner) withProgress(fn func(chan<- tasks.ProgressUpdate) error) error {
	progress := make(chan tasks.ProgressUpdate, 16)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.writePlainln("%s", ui.Styles.Progress(update.Phase.String(), update.Message))
		}
	}()

	err := fn(progress)
	close(progress)
	wg.Wait()
	return err
}

// cover fetches the first track thumbnail. Failures only cost the cover image.
func (r *Runner) cover(ctx context.Context, p *models.Playlist) []byte {
	for _, t := range p.Tracks {
		if t.Thumb == "" {
			continue
		}
		resp, err := r.fetcher.Get(ctx, t.Thumb)
		if err != nil {
			r.logger.Warn("failed to fetch cover", "url", t.Thumb, "error", err)
			return nil
		}
		return resp.Body
	}
	return nil
}

func (r *Runner) writePlaylist(p *models.Playlist) error {
	r.writePlainln("%s", ui.Styles.Title(fmt.Sprintf("Playlist %d", p.ID)))
	r.writePlainln("%s", p.Link)

	rows := make([][]string, 0, len(p.Tracks))
	for i, t := range p.Tracks {
		rows = append(rows, []string{strconv.Itoa(i + 1), t.Title, t.Author, t.URL})
	}
	return r.writePlainln("%s", ui.RenderTable([]string{"#", "Title", "Author", "URL"}, rows, ui.AlignRight))
}
