// package server contains middleware & handlers for the soundpy web service
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/soundpy/internal/shared"
)

const shutdownTimeout = 10 * time.Second

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, CORS, admission control, etc.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers that own their routes.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and configure the HTTP server.
type Router interface {
	Use(middleware ...Middleware)                                // Use adds middleware to the router's middleware stack
	Handle(path string, handler http.Handler, methods ...string) // Handle registers a handler for path and methods
	Handler(handler Handler)                                     // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request)            // ServeHTTP implements http.Handler for the entire router
}

// Server is the soundpy HTTP service.
type Server struct {
	cfg    shared.ServerConfig
	router *BasicRouter
	http   *http.Server
	logger *log.Logger
}

// New builds the router and registers every route.
//
// store backs /health and may be nil.
func New(cfg shared.ServerConfig, engine Engine, store Pinger, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	router := NewBasicRouter()
	router.Use(
		Recover(logger),
		ProxyHeaders(),
		RequestID(),
		AccessLog(logger),
		CORS(),
		Admission(cfg.MaxInFlight),
	)

	a := &api{engine: engine, logger: logger}
	router.Handle("/{$}", http.HandlerFunc(a.index), http.MethodGet)
	router.Handle("/search", http.HandlerFunc(a.search), http.MethodGet)
	router.Handle("/getPlaylist", http.HandlerFunc(a.searchPlaylists), http.MethodGet)
	router.Handle("/playlist", http.HandlerFunc(a.playlist), http.MethodGet)
	router.Handle("/download", http.HandlerFunc(a.download), http.MethodGet, http.MethodPost)
	router.Handle("/stream", http.HandlerFunc(a.stream), http.MethodGet)
	router.Handler(&healthHandler{store: store})

	s := &Server{cfg: cfg, router: router, logger: logger}
	s.http = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       seconds(cfg.ReadTimeoutSeconds),
		WriteTimeout:      seconds(cfg.WriteTimeoutSeconds),
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed handler with its middleware.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe listens on the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.http.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down gracefully,
// letting in-flight requests finish within the shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "address", ln.Addr().String())
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
