package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/timeshift/internal/apperr"
)

// Run is one row of the audit log.
type Run struct {
	ID           string            `json:"id"`
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   time.Time         `json:"finished_at"`
	Hours        int               `json:"hours"`
	Cutoff       string            `json:"cutoff"`
	Filters      map[string]string `json:"filters"`
	Fingerprint  string            `json:"fingerprint"`
	Success      bool              `json:"success"`
	Error        string            `json:"error,omitempty"`
	TotalMatched int               `json:"total_matched"`
	Updated      int               `json:"updated"`
	Skipped      int               `json:"skipped"`
	Failed       int               `json:"failed"`
	Summary      string            `json:"summary,omitempty"`
}

// Log is the interface callers depend on.
type Log interface {
	Insert(ctx context.Context, r Run) error
	List(ctx context.Context, limit int) ([]Run, error)
	LastSuccessByFingerprint(ctx context.Context, fingerprint string) (*Run, error)
}

var _ Log = (*DB)(nil)

const runColumns = `id, started_at, finished_at, hours, cutoff, filters, fingerprint,
	success, error, total_matched, updated, skipped, failed, summary`

// Insert stores a finished run.
func (db *DB) Insert(ctx context.Context, r Run) error {
	filters, err := json.Marshal(nonNilMap(r.Filters))
	if err != nil {
		return fmt.Errorf("audit: encode filters: %w", err)
	}
	_, err = db.conn.ExecContext(ctx, `INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UTC(), r.FinishedAt.UTC(), r.Hours, r.Cutoff, string(filters), r.Fingerprint,
		r.Success, r.Error, r.TotalMatched, r.Updated, r.Skipped, r.Failed, r.Summary)
	if err != nil {
		return fmt.Errorf("audit: insert run: %w", err)
	}
	return nil
}

// List returns the most recent runs first. A non-positive limit defaults to 20.
func (db *DB) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: list runs: %w", err)
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// LastSuccessByFingerprint returns the latest successful run with the given fingerprint,
// or apperr.ErrNotFound.
func (db *DB) LastSuccessByFingerprint(ctx context.Context, fingerprint string) (*Run, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs
		WHERE fingerprint = ? AND success = 1
		ORDER BY started_at DESC LIMIT 1`, fingerprint)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		r       Run
		filters string
	)
	err := s.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Hours, &r.Cutoff, &filters, &r.Fingerprint,
		&r.Success, &r.Error, &r.TotalMatched, &r.Updated, &r.Skipped, &r.Failed, &r.Summary)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("audit: scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(filters), &r.Filters); err != nil {
		return nil, fmt.Errorf("audit: decode filters: %w", err)
	}
	return &r, nil
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
