// Plain HTTP fetches for artwork referenced by upstream metadata
package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/desertthunder/soundpy/internal/shared"
)

const (
	defaultFetchTimeout       = 30 * time.Second
	maxFetchBytes       int64 = 10 << 20
)

// Fetcher downloads small binary resources such as thumbnails.
type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher creates a fetcher on client. A nil client gets a 30 second timeout.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return &Fetcher{httpClient: client}
}

// FetchResponse is a fetched body with its declared content type.
type FetchResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Get performs a GET request for rawURL and fails on any non-2xx status.
//
// Bodies larger than 10 MiB are rejected.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*FetchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: GET %s: status %d", shared.ErrAPIRequest, rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > maxFetchBytes {
		return nil, fmt.Errorf("%w: GET %s: body exceeds %d bytes", shared.ErrAPIRequest, rawURL, maxFetchBytes)
	}

	return &FetchResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
