// Package repositories implements relational persistence for playlists and tracks.
//
// [PlaylistRepository] implements [models.Store] on database/sql for SQLite and MySQL.
//
// Schema:
//   - playlist : one row per distinct link
//   - music : tracks shared between playlists, unique by url
//   - playlist_music_relation : membership with position, cascading from both sides
//
// Writes never fail on an existing unique key. Playlist, track and membership
// inserts are each "insert if absent" followed by a lookup, so two requests
// creating the same playlist converge on one row. Every write operation runs
// in a single transaction.
package repositories
