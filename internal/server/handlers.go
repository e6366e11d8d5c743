package server

import (
	"context"
	"mime"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"

	"github.com/desertthunder/soundpy/internal/models"
	"github.com/desertthunder/soundpy/internal/shared"
)

// Client-facing failure messages. Internal detail only goes to the log.
const (
	msgSearchFailed   = "search failed"
	msgPlaylistFailed = "playlist manipulation failed"
	msgDownloadFailed = "download failed"
	msgStreamFailed   = "stream resolution failed"

	msgMissingQuery = "query parameter is required"
	msgMissingLink  = "link parameter is required"
)

// Engine is the set of workflows the HTTP layer exposes.
type Engine interface {
	Search(ctx context.Context, query string) ([]models.Result, error)
	SearchPlaylists(ctx context.Context, query string) ([]models.Result, error)
	SyncPlaylist(ctx context.Context, link string) (*models.Playlist, error)
	Download(ctx context.Context, id string) (*models.Media, error)
	ResolveStream(ctx context.Context, id string) (string, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type api struct {
	engine Engine
	logger *log.Logger
}

type searchResponse struct {
	Results []models.Result `json:"results"`
}

type streamResponse struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *api) index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte("<h1>Sound Py</h1>"))
}

func (a *api) search(w http.ResponseWriter, r *http.Request) {
	results, err := a.engine.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		a.fail(w, r, err, msgMissingQuery, msgSearchFailed)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: nonNil(results)})
}

func (a *api) searchPlaylists(w http.ResponseWriter, r *http.Request) {
	results, err := a.engine.SearchPlaylists(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		a.fail(w, r, err, msgMissingQuery, msgSearchFailed)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(results))
}

func (a *api) playlist(w http.ResponseWriter, r *http.Request) {
	playlist, err := a.engine.SyncPlaylist(r.Context(), r.URL.Query().Get("link"))
	if err != nil {
		a.fail(w, r, err, msgMissingLink, msgPlaylistFailed)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

func (a *api) download(w http.ResponseWriter, r *http.Request) {
	media, err := a.engine.Download(r.Context(), param(r, "link"))
	if err != nil {
		a.fail(w, r, err, msgMissingLink, msgDownloadFailed)
		return
	}

	contentType := media.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(media.Data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": media.Filename}))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(media.Data)
	}
}

func (a *api) stream(w http.ResponseWriter, r *http.Request) {
	url, err := a.engine.ResolveStream(r.Context(), r.URL.Query().Get("link"))
	if err != nil {
		a.fail(w, r, err, msgMissingLink, msgStreamFailed)
		return
	}
	writeJSON(w, http.StatusOK, streamResponse{URL: url})
}

// fail logs err with its full chain and answers 400 with a fixed message.
//
// Validation errors get invalid, everything else gets msg. Nothing from err reaches the client.
func (a *api) fail(w http.ResponseWriter, r *http.Request, err error, invalid, msg string) {
	kind := shared.KindOf(err)
	a.logger.Error("request failed",
		"path", r.URL.Path,
		"kind", kind,
		"error", err,
		"request_id", RequestIDFrom(r.Context()),
	)

	if kind == shared.KindValidation {
		msg = invalid
	}
	writeError(w, http.StatusBadRequest, msg)
}

// healthHandler answers /health, pinging the store when one is configured.
type healthHandler struct {
	store Pinger
}

func (h *healthHandler) Routes() []string {
	return []string{"/health"}
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// param reads name from the query string, falling back to a form body for POST.
func param(r *http.Request, name string) string {
	if v := r.URL.Query().Get(name); v != "" {
		return v
	}
	if r.Method == http.MethodPost {
		return r.PostFormValue(name)
	}
	return ""
}

func nonNil(results []models.Result) []models.Result {
	if results == nil {
		return []models.Result{}
	}
	return results
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
