package tasks

import (
	"fmt"

	"github.com/tracklift/tracklift/internal/models"
)

// ProgressUpdate represents a progress event during a transfer.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Transfer phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Transfer phase enumeration
type Phase int

const (
	FetchSource Phase = iota
	Resolve
	Write
	Finish
)

func (p Phase) String() string {
	switch p {
	case FetchSource:
		return "fetch_source"
	case Resolve:
		return "resolve"
	case Write:
		return "write"
	case Finish:
		return "finish"
	default:
		return ""
	}
}

func fetchingSourceUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching source playlist (%s)...", name),
	}
}

func fetchedPageUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetched %d tracks so far...", count),
	}
}

func resolvingUpdate(step, total int, item models.TransferItemResult) ProgressUpdate {
	symbol := "✓"
	switch item.Outcome {
	case models.OutcomeNoMatch:
		symbol = "✗"
	case models.OutcomeAmbiguous:
		symbol = "?"
	case models.OutcomeProviderError:
		symbol = "!"
	}
	return ProgressUpdate{
		Phase:   Resolve,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s - %s", step, total, symbol, item.Source.PrimaryArtist(), item.Source.Title),
		Data:    item,
	}
}

func createdPlaylistUpdate(pl *models.PlaylistRef) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Write,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", pl.Name, pl.ID),
		Data:    pl,
	}
}

func wroteBatchUpdate(step, total, size int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Write,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Added batch of %d tracks", step, total, size),
	}
}

func batchFailedUpdate(step, total int, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Write,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ batch failed: %v", step, total, err),
	}
}

func finishedUpdate(report *models.JobReport) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Finish,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Transfer %s: %d matched, %d ambiguous, %d unmatched, %d errors", report.Status, report.Counts.Matched, report.Counts.Ambiguous, report.Counts.NoMatch, report.Counts.Errors),
		Data:    report,
	}
}
