// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/soundpy/internal/models"
)

// MockCatalog is a test double for services.Catalog.
//
// Results are served from the maps; a missing key yields an empty list.
// Setting Err makes every call fail.
type MockCatalog struct {
	mu      sync.Mutex
	Hits    map[string][]models.Result
	Items   map[string][]models.Result
	Lists   map[string][]models.Result
	Err     error
	calls   map[string]int
	blocker chan struct{}
}

func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		Hits:  map[string][]models.Result{},
		Items: map[string][]models.Result{},
		Lists: map[string][]models.Result{},
		calls: map[string]int{},
	}
}

// Block makes every call wait until the returned release func is called.
func (m *MockCatalog) Block() (release func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocker = make(chan struct{})
	ch := m.blocker
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (m *MockCatalog) record(ctx context.Context, op, arg string, src map[string][]models.Result) ([]models.Result, error) {
	m.mu.Lock()
	m.calls[op+":"+arg]++
	blocker, err := m.blocker, m.Err
	out := append([]models.Result{}, src[arg]...)
	m.mu.Unlock()

	if blocker != nil {
		select {
		case <-blocker:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MockCatalog) Search(ctx context.Context, query string) ([]models.Result, error) {
	return m.record(ctx, "search", query, m.Hits)
}

func (m *MockCatalog) ListPlaylistItems(ctx context.Context, playlistID string) ([]models.Result, error) {
	return m.record(ctx, "items", playlistID, m.Items)
}

func (m *MockCatalog) SearchPlaylists(ctx context.Context, query string) ([]models.Result, error) {
	return m.record(ctx, "playlists", query, m.Lists)
}

// Calls returns how many times op ran with arg. Ops are search, items and playlists.
func (m *MockCatalog) Calls(op, arg string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op+":"+arg]
}

// TotalCalls returns the number of calls across all operations.
func (m *MockCatalog) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

// SetErr replaces the error returned by every call.
func (m *MockCatalog) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

// MockExtractor is a test double for services.Extractor.
type MockExtractor struct {
	mu      sync.Mutex
	Info    map[string]*models.VideoInfo
	Streams map[string]string
	Media   map[string]*models.Media
	Err     error
	calls   map[string]int
}

func NewMockExtractor() *MockExtractor {
	return &MockExtractor{
		Info:    map[string]*models.VideoInfo{},
		Streams: map[string]string{},
		Media:   map[string]*models.Media{},
		calls:   map[string]int{},
	}
}

func (m *MockExtractor) count(op, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op+":"+id]++
	return m.Err
}

func (m *MockExtractor) Resolve(_ context.Context, id string) (*models.VideoInfo, error) {
	if err := m.count("resolve", id); err != nil {
		return nil, err
	}
	if info, ok := m.Info[id]; ok {
		return info, nil
	}
	return nil, errors.New("video not found")
}

func (m *MockExtractor) StreamURL(_ context.Context, id string) (string, error) {
	if err := m.count("stream", id); err != nil {
		return "", err
	}
	if u, ok := m.Streams[id]; ok {
		return u, nil
	}
	return "", errors.New("stream not found")
}

func (m *MockExtractor) Download(_ context.Context, id string) (*models.Media, error) {
	if err := m.count("download", id); err != nil {
		return nil, err
	}
	if media, ok := m.Media[id]; ok {
		return media, nil
	}
	return nil, errors.New("media not found")
}

// Calls returns how many times op ran with id. Ops are resolve, stream and download.
func (m *MockExtractor) Calls(op, id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op+":"+id]
}

// SetErr replaces the error returned by every call.
func (m *MockExtractor) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
