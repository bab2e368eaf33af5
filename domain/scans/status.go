package scans

import (
	"fmt"

	"github.com/oversec/bucketscan/internal/stepfn"
)

// Job-level statuses reported by the aggregator.
const (
	JobStatusListing    = "listing"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
	JobStatusAborted    = "aborted"
)

// deriveStatus fuses the durable-loop execution state with the object
// counters into a single job status. An empty execution status means no
// execution was found (sync fallback or lookup failure).
func deriveStatus(exec stepfn.ExecutionStatus, stats *JobStats) (status, message string) {
	completed := stats.Completed()

	switch exec {
	case stepfn.StatusRunning:
		return JobStatusListing, "Lister is enumerating objects"
	case stepfn.StatusSucceeded:
		switch {
		case stats.Total == 0:
			return JobStatusCompleted, "No objects found to scan"
		case completed >= stats.Total:
			return JobStatusCompleted, "All objects scanned"
		default:
			return JobStatusProcessing, fmt.Sprintf("Scanning objects (%d/%d completed)", completed, stats.Total)
		}
	case stepfn.StatusFailed:
		return JobStatusFailed, "Listing execution failed"
	case stepfn.StatusTimedOut:
		return JobStatusFailed, "Listing execution timed out"
	case stepfn.StatusAborted:
		return JobStatusAborted, "Scan was aborted"
	}

	// No execution reference: derive purely from counters.
	switch {
	case stats.Total == 0:
		return JobStatusCompleted, "No objects found to scan"
	case completed < stats.Total:
		return JobStatusProcessing, fmt.Sprintf("Scanning objects (%d/%d completed)", completed, stats.Total)
	default:
		return JobStatusCompleted, "All objects scanned"
	}
}
