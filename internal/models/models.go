// package models defines the data model for the soundpy web service
package models

import (
	"context"
	"strings"
	"time"
)

// Track is one persisted audio item.
//
// ID is assigned by the store and is zero until the track has been persisted.
type Track struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Thumb  string `json:"thumb"`
	URL    string `json:"url"`
	Author string `json:"author"`
}

// Playlist is a durable mirror of one upstream playlist.
//
// Link is unique across the store. Tracks are returned in upstream order.
type Playlist struct {
	ID     int64   `json:"id"`
	Link   string  `json:"link"`
	Tracks []Track `json:"musics"`
}

// Empty reports whether the playlist has no persisted tracks yet.
func (p *Playlist) Empty() bool {
	return len(p.Tracks) == 0
}

// PlaylistSummary is a stored playlist without its tracks.
type PlaylistSummary struct {
	ID         int64     `json:"id"`
	Link       string    `json:"link"`
	TrackCount int       `json:"track_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Result is a single upstream hit. It is never stored.
type Result struct {
	Title  string `json:"title"`
	Thumb  string `json:"thumb"`
	URL    string `json:"url"`
	Author string `json:"author"`
}

// Complete reports whether a listing hit carries the fields required to persist it as a [Track].
//
// The thumbnail is optional.
func (r Result) Complete() bool {
	return strings.TrimSpace(r.Title) != "" &&
		strings.TrimSpace(r.Author) != "" &&
		strings.TrimSpace(r.URL) != ""
}

// Track converts a listing hit into an unpersisted [Track].
func (r Result) Track() Track {
	return Track{Title: r.Title, Thumb: r.Thumb, URL: r.URL, Author: r.Author}
}

// VideoInfo is the metadata the extractor resolves for one video.
type VideoInfo struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Thumb  string `json:"thumb"`
	Author string `json:"author"`
}

// Media is a downloaded audio file read into memory.
type Media struct {
	Filename    string
	ContentType string
	Data        []byte
	Info        VideoInfo
}

// Store defines the persistence operations used by the playlist sync workflow.
type Store interface {
	// FindByLink returns the playlist for link with its tracks, or nil when absent.
	FindByLink(ctx context.Context, link string) (*Playlist, error)

	// CreateIfAbsent inserts the playlist row unless one already exists for link,
	// then attaches tracks. Both steps share one transaction.
	CreateIfAbsent(ctx context.Context, link string, tracks []Track) (int64, error)

	// AddTracks attaches tracks to an existing playlist in one transaction.
	AddTracks(ctx context.Context, playlistID int64, tracks []Track) error
}
