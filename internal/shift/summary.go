package shift

import (
	"time"

	"github.com/starford/timeshift/internal/models"
)

// Summarize builds the outcome of a run.
func Summarize(t models.Tally, totalMatched, hours int, cutoff time.Time, filterDescription string) models.Outcome {
	return models.Outcome{
		TotalMatched:      totalMatched,
		Updated:           t.Updated,
		Skipped:           t.Skipped,
		Failed:            t.Failed,
		HoursApplied:      hours,
		CutoffDate:        cutoff,
		FilterDescription: filterDescription,
	}
}
