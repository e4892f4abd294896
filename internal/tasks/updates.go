package tasks

import (
	"fmt"

	"github.com/desertthunder/libstats/internal/stats"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchTracks Phase = iota
	SortRecords
	ResolveAlbums
	Aggregate
	ExportPolicy
	Done
)

func (p Phase) String() string {
	switch p {
	case FetchTracks:
		return "fetch_tracks"
	case SortRecords:
		return "sort_records"
	case ResolveAlbums:
		return "resolve_albums"
	case Aggregate:
		return "aggregate"
	case ExportPolicy:
		return "export_policy"
	case Done:
		return "done"
	default:
		return ""
	}
}

func fetchingTracksUpdate(cached bool) ProgressUpdate {
	msg := "Fetching saved tracks from Spotify..."
	if cached {
		msg = "Using cached saved tracks..."
	}
	return ProgressUpdate{Phase: FetchTracks, Step: 0, Total: 1, Message: msg}
}

func fetchedTracksUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetched %d saved tracks", count),
		Data:    count,
	}
}

func sortRecordsUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SortRecords,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Ordering %d tracks oldest first...", count),
	}
}

func resolveAlbumsUpdate(albums int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveAlbums,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Resolving genres for %d albums...", albums),
	}
}

func aggregateUpdate(policy stats.Policy) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Aggregate,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Counting by %s...", policy),
	}
}

func doneUpdate(policy stats.Policy, fm *stats.FrequencyMap) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%d %s buckets", fm.Len(), policy),
		Data:    fm,
	}
}

func exportCompletedUpdate(step, total int, policy stats.Policy, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPolicy,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s → %s", step, total, policy, path),
	}
}

func exportFailedUpdate(step, total int, policy stats.Policy, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPolicy,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, policy, err),
	}
}
