package shift

import (
	"context"
	"log/slog"

	"github.com/starford/timeshift/internal/models"
	"github.com/starford/timeshift/internal/notion"
)

// DefaultPageSize is the number of rows requested per query call.
const DefaultPageSize = 100

// Fetcher pages through every row matching a set of predicates.
type Fetcher struct {
	remote       Remote
	databaseID   string
	dateProperty string
	pageSize     int
	logger       *slog.Logger
}

// NewFetcher creates a Fetcher. A non-positive pageSize selects DefaultPageSize.
func NewFetcher(remote Remote, databaseID, dateProperty string, pageSize int, logger *slog.Logger) *Fetcher {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Fetcher{
		remote:       remote,
		databaseID:   databaseID,
		dateProperty: dateProperty,
		pageSize:     pageSize,
		logger:       logger,
	}
}

// FetchMatching returns all rows matching preds in the order the remote service returns
// them. A failing page ends the loop and the rows gathered so far are returned.
func (f *Fetcher) FetchMatching(ctx context.Context, preds []Predicate) []models.Record {
	req := notion.QueryRequest{Filter: Combine(preds), PageSize: f.pageSize}

	var out []models.Record
	for page := 1; ; page++ {
		resp, err := f.remote.QueryDatabase(ctx, f.databaseID, req)
		if err != nil {
			f.logger.Error("fetch: query failed, returning partial results",
				slog.Int("page", page),
				slog.Int("fetched", len(out)),
				slog.String("error", err.Error()))
			break
		}
		for _, p := range resp.Results {
			out = append(out, f.toRecord(p))
		}
		f.logger.Info("fetch: page retrieved",
			slog.Int("page", page),
			slog.Int("records", len(resp.Results)),
			slog.Int("total", len(out)))

		if !resp.HasMore {
			break
		}
		if resp.NextCursor == nil || *resp.NextCursor == "" {
			f.logger.Warn("fetch: has_more without next_cursor, stopping", slog.Int("page", page))
			break
		}
		req.StartCursor = *resp.NextCursor
	}
	return out
}

func (f *Fetcher) toRecord(p notion.Page) models.Record {
	rec := models.Record{ID: p.ID}
	d, err := p.Date(f.dateProperty)
	if err != nil {
		f.logger.Warn("fetch: unreadable date property",
			slog.String("page_id", p.ID),
			slog.String("error", err.Error()))
		return rec
	}
	if d == nil {
		return rec
	}
	rec.Date = &models.DateRange{Start: d.Start}
	if d.End != nil {
		rec.Date.End = *d.End
	}
	return rec
}
