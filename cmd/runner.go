package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"

	"github.com/desertthunder/soundpy/internal/cache"
	"github.com/desertthunder/soundpy/internal/repositories"
	"github.com/desertthunder/soundpy/internal/services"
	"github.com/desertthunder/soundpy/internal/shared"
	"github.com/desertthunder/soundpy/internal/tasks"
	"github.com/urfave/cli/v3"
)

const connectTimeout = 10 * time.Second

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The store, catalog and extractor are built on first use so commands that never touch
// them (setup, --help) do not need an API key or a reachable database.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	db        *sql.DB
	store     *repositories.PlaylistRepository
	catalog   services.Catalog
	extractor services.Extractor
	fetcher   *services.Fetcher
	engine    *tasks.Engine
	closers   []func()
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Store, Catalog and Extractor replace the ones built from Config.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Store      *repositories.PlaylistRepository
	Catalog    services.Catalog
	Extractor  services.Extractor
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		store:      opts.Store,
		catalog:    opts.Catalog,
		extractor:  opts.Extractor,
		fetcher:    services.NewFetcher(opts.HTTPClient),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, setupCommand, searchCommand, playlistCommand, downloadCommand, streamCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Store opens the configured database, applies pending migrations and returns the playlist repository.
func (r *Runner) Store(ctx context.Context) (*repositories.PlaylistRepository, error) {
	if r.store != nil {
		return r.store, nil
	}

	driver := shared.Driver(r.config.Database.Driver)
	r.logger.Debug("opening database", "driver", driver)

	db, err := shared.NewDatabase(driver, r.config.Database.DSN, connectTimeout)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, driver, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	store, err := repositories.NewPlaylistRepository(db, driver)
	if err != nil {
		db.Close()
		return nil, err
	}

	r.db = db
	r.store = store
	return store, nil
}

// Catalog returns the cached YouTube Data API catalog.
func (r *Runner) Catalog(ctx context.Context) (services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	yt, err := services.NewYouTubeService(ctx, r.config.Credentials.YouTube)
	if err != nil {
		return nil, err
	}

	cached := services.NewCachedCatalog(yt, r.config.Cache, cache.WithTimeout(r.config.Server.UpstreamTimeout()))
	r.closers = append(r.closers, cached.Close, func() { r.logStats("catalog", cached.Stats()) })
	r.catalog = cached
	return cached, nil
}

// Extractor returns the cached yt-dlp extractor.
func (r *Runner) Extractor() services.Extractor {
	if r.extractor != nil {
		return r.extractor
	}

	tagger := services.NewTagger(r.fetcher, r.logger)
	ytdlp := services.NewYtdlp(r.config.Extractor, nil, tagger, r.logger)

	cached := services.NewCachedExtractor(ytdlp, r.config.Cache, cache.WithTimeout(r.config.Server.UpstreamTimeout()))
	r.closers = append(r.closers, tagger.Close, cached.Close, func() { r.logStats("extractor", cached.Stats()) })
	r.extractor = cached
	return cached
}

// Engine wires the store, catalog and extractor into the workflow engine.
func (r *Runner) Engine(ctx context.Context) (*tasks.Engine, error) {
	if r.engine != nil {
		return r.engine, nil
	}

	store, err := r.Store(ctx)
	if err != nil {
		return nil, err
	}
	catalog, err := r.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	r.engine = tasks.NewEngine(store, catalog, r.Extractor(), r.config.Server.UpstreamTimeout(), r.logger)
	return r.engine, nil
}

// Library returns an engine for stored-playlist commands. It needs no catalog or extractor.
func (r *Runner) Library(ctx context.Context) (*tasks.Engine, error) {
	if r.engine != nil {
		return r.engine, nil
	}

	store, err := r.Store(ctx)
	if err != nil {
		return nil, err
	}
	return tasks.NewEngine(store, nil, nil, r.config.Server.UpstreamTimeout(), r.logger), nil
}

// Close releases the caches and the database connection.
func (r *Runner) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil

	if r.db != nil {
		if err := r.db.Close(); err != nil {
			r.logger.Warn("failed to close database", "error", err)
		}
		r.db = nil
	}
}

func (r *Runner) logStats(name string, stats map[string]cache.Stats) {
	for op, s := range stats {
		r.logger.Debug("cache stats", "cache", name, "op", op, "hits", s.Hits, "misses", s.Misses, "entries", s.Entries)
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	return r.writePlain(format+"\n", args...)
}
