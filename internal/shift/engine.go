// Package shift implements the date-adjustment engine: it resolves property filters
// against the database schema, pages through the matching rows and moves their date
// range by a number of hours, counting what was updated, skipped and failed.
package shift

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/timeshift/internal/apperr"
	"github.com/starford/timeshift/internal/models"
	"github.com/starford/timeshift/internal/notion"
)

// DefaultDateProperty is the property read and written by every run.
const DefaultDateProperty = "Date"

// Remote is the subset of the Notion API the engine needs.
type Remote interface {
	RetrieveDatabase(ctx context.Context, databaseID string) (*notion.Database, error)
	QueryDatabase(ctx context.Context, databaseID string, q notion.QueryRequest) (*notion.QueryResponse, error)
	UpdatePageDate(ctx context.Context, pageID, property string, date notion.DateValue) error
}

// Settings configures an Engine.
type Settings struct {
	DatabaseID   string
	DateProperty string
	PageSize     int
}

// Params are the inputs of one run.
type Params struct {
	Hours     int
	StartDate string
	Filters   map[string]any
	Observer  Observer
}

// Result is the outcome of one run as reported to callers.
type Result struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
	Outcome *models.Outcome `json:"outcome,omitempty"`
	// Err carries the failure for callers that classify it.
	Err error `json:"-"`
}

// Engine wires the inspector, fetcher and applier into one sequential pipeline.
type Engine struct {
	inspector *Inspector
	fetcher   *Fetcher
	applier   *Applier
	logger    *slog.Logger
}

// NewEngine creates an Engine against remote.
func NewEngine(remote Remote, s Settings, logger *slog.Logger) *Engine {
	if s.DateProperty == "" {
		s.DateProperty = DefaultDateProperty
	}
	return &Engine{
		inspector: NewInspector(remote, s.DatabaseID, logger),
		fetcher:   NewFetcher(remote, s.DatabaseID, s.DateProperty, s.PageSize, logger),
		applier:   NewApplier(remote, s.DateProperty, logger),
		logger:    logger,
	}
}

// Inspector exposes the schema inspector for property listing and health checks.
func (e *Engine) Inspector() *Inspector {
	return e.inspector
}

// AdjustDates shifts by hours every record starting at or after startDate and matching
// filters.
func (e *Engine) AdjustDates(ctx context.Context, hours int, startDate string, filters map[string]string) Result {
	raw := make(map[string]any, len(filters))
	for k, v := range filters {
		raw[k] = v
	}
	return e.Run(ctx, Params{Hours: hours, StartDate: startDate, Filters: raw})
}

// Run executes one adjustment. Soft failures (schema or page fetch errors, per-record
// errors) reduce the completeness of the outcome but still produce a summary; only an
// invalid start date or an unexpected panic yields Success=false. Once past input
// validation the run ignores cancellation of ctx.
func (e *Engine) Run(ctx context.Context, p Params) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("error adjusting dates: %v", r)
			e.logger.Error("adjust: unexpected failure", slog.String("error", err.Error()))
			res = Result{Success: false, Error: err.Error(), Err: err}
		}
	}()

	cutoff, err := ParseNaive(p.StartDate)
	if err != nil {
		err = fmt.Errorf("%w: %s", apperr.ErrInvalidDate, err.Error())
		e.logger.Error("adjust: rejected start date", slog.String("error", err.Error()))
		return Result{Success: false, Error: err.Error(), Err: err}
	}

	if p.Hours > MaxShiftHours || p.Hours < -MaxShiftHours {
		err = fmt.Errorf("%w: %d exceeds %d", apperr.ErrInvalidHours, p.Hours, MaxShiftHours)
		e.logger.Error("adjust: rejected hours", slog.String("error", err.Error()))
		return Result{Success: false, Error: err.Error(), Err: err}
	}

	ctx = context.WithoutCancel(ctx)
	startedAt := time.Now()

	var preds []Predicate
	if len(p.Filters) > 0 {
		schema := e.inspector.FetchSchema(ctx)
		preds = Compile(p.Filters, schema, e.logger)
		if len(preds) == 0 {
			e.logger.Warn("adjust: no supplied filter could be resolved, running unfiltered",
				slog.Int("supplied", len(p.Filters)))
		}
	}
	desc := Describe(preds)

	e.logger.Info("adjust: starting",
		slog.Int("hours", p.Hours),
		slog.String("cutoff", FormatNaive(cutoff)),
		slog.String("filters", desc))

	records := e.fetcher.FetchMatching(ctx, preds)
	tally := e.applier.Apply(ctx, records, p.Hours, cutoff, p.Observer)
	if tally.Total() != len(records) {
		e.logger.Error("adjust: tally does not account for every record",
			slog.Int("records", len(records)),
			slog.Int("tallied", tally.Total()))
	}
	outcome := Summarize(tally, len(records), p.Hours, cutoff, desc)

	e.logger.Info("adjust: completed",
		slog.Int("total", outcome.TotalMatched),
		slog.Int("updated", outcome.Updated),
		slog.Int("skipped", outcome.Skipped),
		slog.Int("failed", outcome.Failed),
		slog.Duration("elapsed", time.Since(startedAt)))

	return Result{Success: true, Message: outcome.Summary(), Outcome: &outcome}
}
