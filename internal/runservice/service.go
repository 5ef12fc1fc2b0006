// Package runservice wraps the date-adjustment engine for its callers: it
// resolves presets, records every run and streams progress while it executes.
package runservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/timeshift/internal/apperr"
	"github.com/starford/timeshift/internal/audit"
	"github.com/starford/timeshift/internal/checksum"
	"github.com/starford/timeshift/internal/metrics"
	"github.com/starford/timeshift/internal/presets"
	"github.com/starford/timeshift/internal/shift"
	"github.com/starford/timeshift/internal/sse"
)

// Request is one adjustment as submitted by a caller.
type Request struct {
	Hours     int               `json:"hours"`
	StartDate string            `json:"start_date"`
	Backward  bool              `json:"move_backward"`
	Filters   map[string]string `json:"filters,omitempty"`
	Preset    string            `json:"preset,omitempty"`
}

// Response is the engine result plus the run id and an optional warning.
type Response struct {
	RunID   string `json:"run_id"`
	Warning string `json:"warning,omitempty"`
	shift.Result
}

// Deps are the optional collaborators. Nil fields are skipped.
type Deps struct {
	Audit   audit.Log
	Broker  *sse.Broker
	Metrics *metrics.Metrics
	Presets *presets.Store
	Logger  *slog.Logger
}

// Service runs adjustments one at a time.
type Service struct {
	engine *shift.Engine
	deps   Deps
	logger *slog.Logger
	now    func() time.Time

	runMu sync.Mutex
}

// NewService creates a Service around engine.
func NewService(engine *shift.Engine, deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{engine: engine, deps: deps, logger: logger, now: time.Now}
}

// Adjust runs one adjustment. Errors are returned only for requests rejected before
// the engine starts (missing start date, unknown preset); engine failures are
// reported through Response.Result.
func (s *Service) Adjust(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.StartDate) == "" {
		return nil, fmt.Errorf("%w: start date is required", apperr.ErrMissingInput)
	}

	filters, err := s.resolveFilters(req)
	if err != nil {
		return nil, err
	}

	hours := req.Hours
	if req.Backward && hours > 0 {
		hours = -hours
	}

	raw := make(map[string]any, len(filters))
	for k, v := range filters {
		raw[k] = v
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	runID := uuid.NewString()
	resp := &Response{RunID: runID}

	var fingerprint string
	if cutoff, err := shift.ParseNaive(req.StartDate); err == nil {
		fingerprint = checksum.Run(hours, cutoff, raw)
		resp.Warning = s.repeatWarning(ctx, fingerprint)
	}

	logger := s.logger.With(slog.String("run_id", runID))
	logger.Info("run: starting", slog.Int("hours", hours), slog.String("start_date", req.StartDate))

	if s.deps.Broker != nil {
		s.deps.Broker.PublishRunStarted(sse.RunStarted{
			RunID: runID, Hours: hours, StartDate: req.StartDate, Filters: filters,
		})
	}

	startedAt := s.now()
	resp.Result = s.engine.Run(ctx, shift.Params{
		Hours:     hours,
		StartDate: req.StartDate,
		Filters:   raw,
		Observer:  s.observer(runID),
	})
	finishedAt := s.now()

	s.record(ctx, logger, runRecord{
		id: runID, hours: hours, startDate: req.StartDate, filters: filters,
		fingerprint: fingerprint, startedAt: startedAt, finishedAt: finishedAt,
		result: resp.Result,
	})
	return resp, nil
}

func (s *Service) resolveFilters(req Request) (map[string]string, error) {
	merged := map[string]string{}
	if req.Preset != "" {
		if s.deps.Presets == nil {
			return nil, fmt.Errorf("%w: %s", apperr.ErrUnknownPreset, req.Preset)
		}
		p, err := s.deps.Presets.Get(req.Preset)
		if err != nil {
			return nil, err
		}
		maps.Copy(merged, p.Filters)
	}
	for k, v := range req.Filters {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		merged[k] = v
	}
	return merged, nil
}

func (s *Service) repeatWarning(ctx context.Context, fingerprint string) string {
	if s.deps.Audit == nil {
		return ""
	}
	prev, err := s.deps.Audit.LastSuccessByFingerprint(ctx, fingerprint)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			s.logger.Warn("run: fingerprint lookup failed", slog.String("error", err.Error()))
		}
		return ""
	}
	return fmt.Sprintf("an identical adjustment already ran at %s (run %s); dates were shifted again",
		prev.FinishedAt.Format(time.RFC3339), prev.ID)
}

func (s *Service) observer(runID string) shift.Observer {
	if s.deps.Broker == nil {
		return nil
	}
	var processed, updated, skipped, failed int
	return func(ev shift.RecordEvent) {
		processed++
		switch ev.Status {
		case shift.StatusUpdated:
			updated++
		case shift.StatusSkipped:
			skipped++
		default:
			failed++
		}
		s.deps.Broker.PublishRecord(sse.RecordProgress{
			RunID:     runID,
			RecordID:  ev.RecordID,
			Status:    string(ev.Status),
			Reason:    ev.Reason,
			Processed: processed,
			Updated:   updated,
			Skipped:   skipped,
			Failed:    failed,
		})
	}
}

type runRecord struct {
	id          string
	hours       int
	startDate   string
	filters     map[string]string
	fingerprint string
	startedAt   time.Time
	finishedAt  time.Time
	result      shift.Result
}

func (s *Service) record(ctx context.Context, logger *slog.Logger, r runRecord) {
	var updated, skipped, failed, total int
	if o := r.result.Outcome; o != nil {
		updated, skipped, failed, total = o.Updated, o.Skipped, o.Failed, o.TotalMatched
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveRun(r.result.Success, updated, skipped, failed, r.finishedAt.Sub(r.startedAt))
	}

	if s.deps.Audit != nil {
		err := s.deps.Audit.Insert(context.WithoutCancel(ctx), audit.Run{
			ID:           r.id,
			StartedAt:    r.startedAt,
			FinishedAt:   r.finishedAt,
			Hours:        r.hours,
			Cutoff:       r.startDate,
			Filters:      r.filters,
			Fingerprint:  r.fingerprint,
			Success:      r.result.Success,
			Error:        r.result.Error,
			TotalMatched: total,
			Updated:      updated,
			Skipped:      skipped,
			Failed:       failed,
			Summary:      r.result.Message,
		})
		if err != nil {
			logger.Error("run: audit insert failed", slog.String("error", err.Error()))
		}
	}

	if s.deps.Broker != nil {
		s.deps.Broker.PublishRunCompleted(sse.RunCompleted{
			RunID:   r.id,
			Success: r.result.Success,
			Message: r.result.Message,
			Error:   r.result.Error,
			Updated: updated,
			Skipped: skipped,
			Failed:  failed,
		})
	}

	if r.result.Success {
		logger.Info("run: finished", slog.Int("updated", updated), slog.Int("skipped", skipped), slog.Int("failed", failed))
	} else {
		logger.Error("run: failed", slog.String("error", r.result.Error))
	}
}

// Properties lists the database properties usable as filters.
func (s *Service) Properties(ctx context.Context) ([]shift.PropertyInfo, error) {
	return s.engine.Inspector().ListProperties(ctx)
}

// Ping checks that the database is reachable with the configured credentials.
func (s *Service) Ping(ctx context.Context) error {
	return s.engine.Inspector().Ping(ctx)
}

// Runs returns the most recent runs, newest first.
func (s *Service) Runs(ctx context.Context, limit int) ([]audit.Run, error) {
	if s.deps.Audit == nil {
		return []audit.Run{}, nil
	}
	return s.deps.Audit.List(ctx, limit)
}

// Presets returns the configured filter presets.
func (s *Service) Presets() []presets.Preset {
	if s.deps.Presets == nil {
		return []presets.Preset{}
	}
	return s.deps.Presets.List()
}
