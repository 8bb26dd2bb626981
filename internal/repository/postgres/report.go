package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/faxcloud/analyzer/internal/analysis"
	"github.com/faxcloud/analyzer/internal/faxlog"
)

// ErrNotFound is returned when a report or run does not exist.
var ErrNotFound = errors.New("not found")

// Report is one imported export file.
type Report struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	Checksum     string    `json:"checksum"`
	OriginalPath string    `json:"original_path"`
	PublicToken  string    `json:"public_token"`
	CreatedAt    time.Time `json:"created_at"`
	LatestRunID  string    `json:"latest_run_id,omitempty"`
}

// Run is one analysis pass over a report's records.
type Run struct {
	ID          string    `json:"id"`
	ReportID    string    `json:"report_id"`
	Status      string    `json:"status"`
	StatsJSON   string    `json:"-"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// ReportRepo implements report persistence against PostgreSQL.
type ReportRepo struct{ db *sql.DB }

// NewReportRepo creates a Postgres-backed report repository.
func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{db: db} }

// EnsureSchema applies idempotent schema setup for the report tables.
func (r *ReportRepo) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS fax_reports (
			id UUID PRIMARY KEY,
			filename TEXT NOT NULL,
			checksum TEXT NOT NULL,
			original_path TEXT NOT NULL DEFAULT '',
			public_token TEXT NOT NULL UNIQUE,
			latest_run_id UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fax_reports_checksum ON fax_reports (checksum)`,
		`CREATE TABLE IF NOT EXISTS fax_report_runs (
			id UUID PRIMARY KEY,
			report_id UUID NOT NULL REFERENCES fax_reports(id),
			status TEXT NOT NULL DEFAULT 'completed',
			stats_json TEXT NOT NULL DEFAULT '{}',
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS fax_transmissions (
			id BIGSERIAL PRIMARY KEY,
			run_id UUID NOT NULL REFERENCES fax_report_runs(id),
			sent_at TIMESTAMPTZ,
			fax_user TEXT NOT NULL,
			mode TEXT NOT NULL,
			phone_raw TEXT NOT NULL,
			phone_normalized TEXT NOT NULL,
			pages INTEGER NOT NULL,
			duration_seconds INTEGER,
			is_valid BOOLEAN NOT NULL,
			errors TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fax_transmissions_run ON fax_transmissions (run_id)`,
	}
	for _, s := range stmts {
		if _, err := r.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// FindByChecksum returns the report previously created for a file with
// the same checksum, or ErrNotFound.
func (r *ReportRepo) FindByChecksum(ctx context.Context, checksum string) (*Report, error) {
	rep := &Report{}
	var latestRun sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, filename, checksum, original_path, public_token, latest_run_id, created_at
		FROM fax_reports
		WHERE checksum = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, checksum).Scan(
		&rep.ID, &rep.Filename, &rep.Checksum, &rep.OriginalPath,
		&rep.PublicToken, &latestRun, &rep.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find report by checksum: %w", err)
	}
	rep.LatestRunID = latestRun.String
	return rep, nil
}

// Create inserts a new report row.
func (r *ReportRepo) Create(ctx context.Context, rep *Report) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fax_reports (id, filename, checksum, original_path, public_token, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, rep.ID, rep.Filename, rep.Checksum, rep.OriginalPath, rep.PublicToken)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// SetOriginalPath records where the archived original ended up.
func (r *ReportRepo) SetOriginalPath(ctx context.Context, reportID, path string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE fax_reports SET original_path = $1 WHERE id = $2`, path, reportID)
	if err != nil {
		return fmt.Errorf("set original path: %w", err)
	}
	return nil
}

// Get returns one report by ID.
func (r *ReportRepo) Get(ctx context.Context, id string) (*Report, error) {
	rep := &Report{}
	var latestRun sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, filename, checksum, original_path, public_token, latest_run_id, created_at
		FROM fax_reports
		WHERE id = $1
	`, id).Scan(
		&rep.ID, &rep.Filename, &rep.Checksum, &rep.OriginalPath,
		&rep.PublicToken, &latestRun, &rep.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	rep.LatestRunID = latestRun.String
	return rep, nil
}

// List returns reports newest-first plus the total count.
func (r *ReportRepo) List(ctx context.Context, limit, offset int) ([]Report, int, error) {
	if limit <= 0 {
		limit = 50
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fax_reports`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, filename, checksum, original_path, public_token, latest_run_id, created_at
		FROM fax_reports
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		var rep Report
		var latestRun sql.NullString
		if err := rows.Scan(
			&rep.ID, &rep.Filename, &rep.Checksum, &rep.OriginalPath,
			&rep.PublicToken, &latestRun, &rep.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan report: %w", err)
		}
		rep.LatestRunID = latestRun.String
		out = append(out, rep)
	}
	return out, total, nil
}

// CreateRun inserts a run and marks it as the report's latest.
func (r *ReportRepo) CreateRun(ctx context.Context, run *Run) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fax_report_runs (id, report_id, status, stats_json, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, run.ID, run.ReportID, run.Status, run.StatsJSON, run.StartedAt, run.CompletedAt)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE fax_reports SET latest_run_id = $1 WHERE id = $2`, run.ID, run.ReportID)
	if err != nil {
		return fmt.Errorf("set latest run: %w", err)
	}
	return nil
}

// GetRun returns one run by ID.
func (r *ReportRepo) GetRun(ctx context.Context, id string) (*Run, error) {
	run := &Run{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, report_id, status, stats_json, started_at, completed_at
		FROM fax_report_runs
		WHERE id = $1
	`, id).Scan(&run.ID, &run.ReportID, &run.Status, &run.StatsJSON, &run.StartedAt, &run.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// InsertTransmissions stores every analyzed record for a run inside one
// transaction.
func (r *ReportRepo) InsertTransmissions(ctx context.Context, runID string, records []analysis.RecordResult) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transmissions tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fax_transmissions
			(run_id, sent_at, fax_user, mode, phone_raw, phone_normalized,
			 pages, duration_seconds, is_valid, errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`)
	if err != nil {
		return fmt.Errorf("prepare transmissions insert: %w", err)
	}
	defer stmt.Close()

	for _, rr := range records {
		verdictErrors := rr.Verdict.Errors
		if verdictErrors == nil {
			verdictErrors = []faxlog.ErrorReason{}
		}
		errsJSON, _ := json.Marshal(verdictErrors)
		var sentAt interface{}
		if rr.Record.Timestamp != nil {
			sentAt = *rr.Record.Timestamp
		}
		var duration interface{}
		if rr.Record.DurationSeconds != nil {
			duration = *rr.Record.DurationSeconds
		}
		if _, err := stmt.ExecContext(ctx,
			runID, sentAt, rr.Record.User, string(rr.Record.Mode),
			rr.Record.PhoneRaw, rr.Record.PhoneNormalized,
			rr.Record.Pages, duration, rr.Verdict.Valid, string(errsJSON),
		); err != nil {
			return fmt.Errorf("insert transmission: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transmissions: %w", err)
	}
	return nil
}
