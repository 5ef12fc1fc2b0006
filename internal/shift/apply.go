package shift

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/timeshift/internal/models"
	"github.com/starford/timeshift/internal/notion"
)

// Status is the per-record result of a shift pass.
type Status string

const (
	StatusUpdated Status = "updated"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// RecordEvent reports what happened to one record.
type RecordEvent struct {
	RecordID string `json:"record_id"`
	Status   Status `json:"status"`
	Reason   string `json:"reason,omitempty"`
}

// Observer receives one event per processed record, in processing order.
type Observer func(RecordEvent)

// Applier rewrites the date range of records at or after a cutoff.
type Applier struct {
	remote       Remote
	dateProperty string
	logger       *slog.Logger
}

// NewApplier creates an Applier writing to dateProperty.
func NewApplier(remote Remote, dateProperty string, logger *slog.Logger) *Applier {
	return &Applier{remote: remote, dateProperty: dateProperty, logger: logger}
}

// Apply shifts every record whose start is not before cutoff by hours. Records are
// processed one at a time; a failure on one never stops the others, and nothing is retried
// or rolled back.
func (a *Applier) Apply(ctx context.Context, records []models.Record, hours int, cutoff time.Time, obs Observer) models.Tally {
	var tally models.Tally
	for _, rec := range records {
		status, reason := a.applyOne(ctx, rec, hours, cutoff)
		switch status {
		case StatusUpdated:
			tally.Updated++
		case StatusSkipped:
			tally.Skipped++
		default:
			tally.Failed++
		}
		if obs != nil {
			obs(RecordEvent{RecordID: rec.ID, Status: status, Reason: reason})
		}
	}
	return tally
}

func (a *Applier) applyOne(ctx context.Context, rec models.Record, hours int, cutoff time.Time) (Status, string) {
	if rec.ID == "" {
		a.logger.Warn("apply: record without id, skipping")
		return StatusSkipped, "missing id"
	}
	if rec.Date == nil || rec.Date.Start == "" {
		a.logger.Info("apply: record without date, skipping", slog.String("page_id", rec.ID))
		return StatusSkipped, "no date"
	}

	start, err := ParseNaive(rec.Date.Start)
	if err != nil {
		a.logger.Error("apply: invalid start date", slog.String("page_id", rec.ID), slog.String("error", err.Error()))
		return StatusFailed, "invalid start: " + err.Error()
	}
	var end *time.Time
	if rec.Date.End != "" {
		e, err := ParseNaive(rec.Date.End)
		if err != nil {
			a.logger.Error("apply: invalid end date", slog.String("page_id", rec.ID), slog.String("error", err.Error()))
			return StatusFailed, "invalid end: " + err.Error()
		}
		end = &e
	}

	if start.Before(cutoff) {
		a.logger.Info("apply: record before cutoff, skipping",
			slog.String("page_id", rec.ID),
			slog.String("start", FormatNaive(start)))
		return StatusSkipped, "before cutoff"
	}

	newStart := ShiftHours(start, hours)
	if !inYearRange(newStart) {
		a.logger.Error("apply: shifted date out of range", slog.String("page_id", rec.ID), slog.Int("hours", hours))
		return StatusFailed, "shifted date out of range"
	}
	value := notion.DateValue{Start: FormatNaive(newStart)}
	if end != nil {
		newEnd := ShiftHours(*end, hours)
		if !inYearRange(newEnd) {
			a.logger.Error("apply: shifted end out of range", slog.String("page_id", rec.ID), slog.Int("hours", hours))
			return StatusFailed, "shifted end out of range"
		}
		s := FormatNaive(newEnd)
		value.End = &s
	}

	if err := a.remote.UpdatePageDate(ctx, rec.ID, a.dateProperty, value); err != nil {
		a.logger.Error("apply: update failed", slog.String("page_id", rec.ID), slog.String("error", err.Error()))
		return StatusFailed, fmt.Sprintf("update failed: %v", err)
	}
	a.logger.Info("apply: record updated", slog.String("page_id", rec.ID), slog.String("start", value.Start))
	return StatusUpdated, ""
}
