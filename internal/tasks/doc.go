// Package tasks orchestrates the soundpy workflows with real-time progress reporting.
//
// # Core Operations
//
// [Engine] exposes the operations the HTTP and CLI layers call:
//
//  1. [Engine.SyncPlaylist] : Mirror an upstream playlist into the store
//     - Serves a stored playlist that already has tracks without an upstream call
//     - Creates a missing playlist and its tracks in one transaction
//     - Backfills a stored playlist that has zero tracks
//     - Any failure is reported as [shared.ErrPlaylistSync] wrapping the cause
//
//  2. [Engine.Search] and [Engine.SearchPlaylists] : Query the catalog
//
//  3. [Engine.Download] and [Engine.ResolveStream] : Fetch audio or a stream URL for one video
//
//  4. [Engine.BulkDownload] : Sync a playlist and download every track with a worker pool
//
// Every operation rejects empty input with a validation error before any upstream or store
// call, and every upstream call runs under the engine's timeout.
//
// # Progress Reporting
//
// Long-running operations accept a channel of [ProgressUpdate] values.
// Updates use select with default so a slow reader never blocks the workflow.
//
// # Listing Policy
//
// A listing hit becomes a track only when [models.Result.Complete] holds. Repeated URLs
// within one listing collapse to their first occurrence.
package tasks
