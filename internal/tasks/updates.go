package tasks

import (
	"fmt"

	"github.com/desertthunder/soundpy/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	Lookup Phase = iota
	FetchListing
	CreatePlaylist
	Backfill
	Serve
	DownloadTracks
)

func (p Phase) String() string {
	switch p {
	case Lookup:
		return "lookup"
	case FetchListing:
		return "fetch_listing"
	case CreatePlaylist:
		return "create_playlist"
	case Backfill:
		return "backfill"
	case Serve:
		return "serve"
	case DownloadTracks:
		return "download_tracks"
	default:
		return ""
	}
}

func lookupUpdate(link string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Lookup,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Looking up playlist %s...", link),
	}
}

func fetchListingUpdate(playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchListing,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching upstream listing (%s)...", playlistID),
	}
}

func storeTracksUpdate(phase Phase, count int) ProgressUpdate {
	verb := "Creating playlist with"
	if phase == Backfill {
		verb = "Backfilling"
	}
	return ProgressUpdate{
		Phase:   phase,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%s %d tracks...", verb, count),
	}
}

func serveUpdate(pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Serve,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist %d ready (%d tracks)", pl.ID, len(pl.Tracks)),
		Data:    pl,
	}
}

func downloadingTrackUpdate(step, total int, tr models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Downloading: %s - %s...", step, total, tr.Author, tr.Title),
	}
}

func downloadCompletedUpdate(step, total int, res TrackDownloadResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d bytes)", step, total, res.Track.Title, res.Bytes),
		Data:    res,
	}
}

func downloadFailedUpdate(step, total int, res TrackDownloadResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Track.Title, res.Error),
		Data:    res,
	}
}
