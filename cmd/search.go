package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/desertthunder/soundpy/internal/models"
	"github.com/desertthunder/soundpy/internal/ui"
	"github.com/urfave/cli/v3"
)

// Search prints video hits for the query argument.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.Engine(ctx)
	if err != nil {
		return err
	}

	results, err := engine.Search(ctx, cmd.StringArg("query"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return r.writeResults(cmd, results)
}

// Download saves the audio of one video into the output directory.
func (r *Runner) Download(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.Engine(ctx)
	if err != nil {
		return err
	}

	media, err := engine.Download(ctx, cmd.StringArg("id"))
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	dir := cmd.String("output")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, media.Filename)
	if err := os.WriteFile(path, media.Data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	r.logger.Info("download saved", "path", path, "bytes", len(media.Data))
	return r.writePlainln("%s", ui.Styles.OK("Saved %s (%d bytes)", path, len(media.Data)))
}

// Stream prints a direct audio stream URL for one video.
func (r *Runner) Stream(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.Engine(ctx)
	if err != nil {
		return err
	}

	url, err := engine.ResolveStream(ctx, cmd.StringArg("id"))
	if err != nil {
		return fmt.Errorf("stream resolution failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]string{"url": url}, cmd.Bool("pretty"))
	}
	return r.writePlainln("%s", url)
}

// writeResults prints hits as JSON with --json, or as a table.
func (r *Runner) writeResults(cmd *cli.Command, results []models.Result) error {
	if cmd.Bool("json") {
		if results == nil {
			results = []models.Result{}
		}
		return r.writeJSON(results, cmd.Bool("pretty"))
	}

	if len(results) == 0 {
		return r.writePlainln("%s", ui.Styles.Warn("No results"))
	}

	rows := make([][]string, 0, len(results))
	for i, res := range results {
		rows = append(rows, []string{strconv.Itoa(i + 1), res.Title, res.Author, res.URL})
	}
	return r.writePlainln("%s", ui.RenderTable([]string{"#", "Title", "Author", "URL"}, rows, ui.AlignRight))
}
