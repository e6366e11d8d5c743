// Package models defines the value types shared by the soundpy service.
//
// The package contains two categories of types:
//
// 1. Persistent Entities: rows owned by the relational store
//   - [Track] : one audio item (the "music" table)
//   - [Playlist] : an upstream playlist keyed by its link, with its tracks
//   - [PlaylistSummary] : a stored playlist listed without its tracks
//
// 2. Ephemeral Values: returned to callers and never stored
//   - [Result] : one search, listing or playlist-search hit
//   - [VideoInfo] : metadata resolved by the extractor for a single video
//   - [Media] : a downloaded, tagged audio file held in memory
//
// The [Store] interface lists the persistence operations the playlist sync workflow depends on.
package models
