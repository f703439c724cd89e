// Package postgres records completed scenario runs in a PostgreSQL ledger.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS ccart_runs (
	run_id       TEXT PRIMARY KEY,
	storm_slug   TEXT NOT NULL,
	storm_sid    TEXT NOT NULL,
	threshold    DOUBLE PRECISION NOT NULL,
	total_impact DOUBLE PRECISION NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ NOT NULL,
	summary      JSONB NOT NULL
)`

const insertRun = `
INSERT INTO ccart_runs (run_id, storm_slug, storm_sid, threshold, total_impact, started_at, completed_at, summary)
VALUES (:run_id, :storm_slug, :storm_sid, :threshold, :total_impact, :started_at, :completed_at, :summary)
ON CONFLICT (run_id) DO NOTHING`

const selectRun = `SELECT run_id, storm_slug, storm_sid, threshold, total_impact, started_at, completed_at, summary
FROM ccart_runs WHERE run_id = $1`

type runRow struct {
	RunID       string    `db:"run_id"`
	StormSlug   string    `db:"storm_slug"`
	StormSID    string    `db:"storm_sid"`
	Threshold   float64   `db:"threshold"`
	TotalImpact float64   `db:"total_impact"`
	StartedAt   time.Time `db:"started_at"`
	CompletedAt time.Time `db:"completed_at"`
	Summary     []byte    `db:"summary"`
}

// Ledger stores run summaries keyed by run ID.
type Ledger struct {
	db *sqlx.DB
}

// Connect opens the database at url ("postgres://...") and verifies the
// connection.
func Connect(ctx context.Context, url string) (*Ledger, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, fmt.Errorf("connect run ledger: %w", err)
	}
	return &Ledger{db: db}, nil
}

// EnsureSchema creates the runs table when missing.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}
	return nil
}

// RecordRun inserts the summary. Recording the same run ID twice is a no-op.
func (l *Ledger) RecordRun(ctx context.Context, s domain.RunSummary) error {
	row, err := toRow(s)
	if err != nil {
		return err
	}
	if _, err := l.db.NamedExecContext(ctx, insertRun, row); err != nil {
		return fmt.Errorf("record run %s: %w", s.RunID, err)
	}
	return nil
}

// GetRun loads a recorded summary.
func (l *Ledger) GetRun(ctx context.Context, runID string) (domain.RunSummary, error) {
	var row runRow
	if err := l.db.GetContext(ctx, &row, selectRun, runID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.RunSummary{}, fmt.Errorf("%w: %s", domain.ErrRunNotFound, runID)
		}
		return domain.RunSummary{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return fromRow(row)
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

func toRow(s domain.RunSummary) (runRow, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return runRow{}, fmt.Errorf("encode run summary: %w", err)
	}
	var total float64
	for _, p := range s.Pathways {
		total += p.TotalImpactUSD
	}
	return runRow{
		RunID:       s.RunID,
		StormSlug:   s.Scenario.Slug(),
		StormSID:    s.StormSID,
		Threshold:   s.Threshold,
		TotalImpact: total,
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
		Summary:     data,
	}, nil
}

func fromRow(r runRow) (domain.RunSummary, error) {
	var s domain.RunSummary
	if err := json.Unmarshal(r.Summary, &s); err != nil {
		return domain.RunSummary{}, fmt.Errorf("decode run %s: %w", r.RunID, err)
	}
	return s, nil
}
