package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"annotation-insights/internal/model"
)

var (
	// ErrNotFound is returned when a run or fragment does not exist.
	ErrNotFound = errors.New("not found")
	// ErrRunInProgress is returned when a run that has not finished is claimed for a retry.
	ErrRunInProgress = errors.New("run is still in progress")
)

// Store persists runs, their logs, errors and outputs, and curated fragments.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	spec TEXT,
	status TEXT,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS run_errors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT,
	error_message TEXT,
	created_at DATETIME
);
CREATE TABLE IF NOT EXISTS run_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT,
	stage TEXT,
	level TEXT,
	message TEXT,
	details TEXT,
	created_at DATETIME
);
CREATE TABLE IF NOT EXISTS run_outputs (
	run_id TEXT PRIMARY KEY,
	output TEXT,
	created_at DATETIME
);
CREATE TABLE IF NOT EXISTS fragments (
	id TEXT PRIMARY KEY,
	asset_id INTEGER,
	fragment_key TEXT,
	fragment_value TEXT,
	source_run_id INTEGER,
	curated_by TEXT,
	forwarded INTEGER DEFAULT 0,
	created_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_run_logs_run ON run_logs(run_id);
CREATE INDEX IF NOT EXISTS idx_run_errors_run ON run_errors(run_id);
CREATE INDEX IF NOT EXISTS idx_fragments_asset ON fragments(asset_id);
`

// Open opens (creating if needed) the SQLite database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// one writer; run goroutines share the handle
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores a new run in pending state.
func (s *Store) SaveRun(ctx context.Context, runID string, spec model.RunSpec) error {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, spec, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		runID, string(specJSON), model.RunPending, now, now)
	return err
}

// ListRuns returns every run, newest first. Specs are left out.
func (s *Store) ListRuns(ctx context.Context) ([]model.Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, status, created_at, updated_at FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []model.Run{}
	for rows.Next() {
		var r model.Run
		if err := rows.Scan(&r.ID, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun fetches a run with its spec.
func (s *Store) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var specJSON string
	r := model.Run{ID: runID}
	err := s.db.QueryRowContext(ctx, `SELECT spec, status, created_at, updated_at FROM runs WHERE id = ?`, runID).
		Scan(&specJSON, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(specJSON), &r.Spec); err != nil {
		return nil, fmt.Errorf("decode spec of run %s: %w", runID, err)
	}
	return &r, nil
}

// UpdateRunStatus moves a run to status.
func (s *Store) UpdateRunStatus(ctx context.Context, runID, status string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), runID)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// SaveRunError records an error for a run.
func (s *Store) SaveRunError(ctx context.Context, runID string, runErr error) error {
	if runErr == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO run_errors (run_id, error_message, created_at) VALUES (?, ?, ?)`,
		runID, runErr.Error(), time.Now().UTC())
	return err
}

func (s *Store) GetRunErrors(ctx context.Context, runID string) ([]model.RunError, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT error_message, created_at FROM run_errors WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	errs := []model.RunError{}
	for rows.Next() {
		var e model.RunError
		if err := rows.Scan(&e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		errs = append(errs, e)
	}
	return errs, rows.Err()
}

// SaveRunLog appends a log line to a run.
func (s *Store) SaveRunLog(ctx context.Context, runID, stage, level, message string, details map[string]interface{}) error {
	var detailsJSON []byte
	if details != nil {
		var err error
		if detailsJSON, err = json.Marshal(details); err != nil {
			return err
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_logs (run_id, stage, level, message, details, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, stage, level, message, string(detailsJSON), time.Now().UTC())
	return err
}

// GetRunLogs returns the log lines of a run, oldest first, optionally
// restricted to one stage.
func (s *Store) GetRunLogs(ctx context.Context, runID, stage string) ([]model.RunLog, error) {
	query := `SELECT stage, level, message, details, created_at FROM run_logs WHERE run_id = ?`
	args := []interface{}{runID}
	if stage != "" {
		query += ` AND stage = ?`
		args = append(args, stage)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []model.RunLog{}
	for rows.Next() {
		var l model.RunLog
		var details string
		if err := rows.Scan(&l.Stage, &l.Level, &l.Message, &details, &l.CreatedAt); err != nil {
			return nil, err
		}
		if details != "" {
			if err := json.Unmarshal([]byte(details), &l.Details); err != nil {
				return nil, err
			}
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// SaveRunOutput stores (or replaces) the output of a run.
func (s *Store) SaveRunOutput(ctx context.Context, runID string, out *model.RunOutput) error {
	data, err := json.Marshal(out)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO run_outputs (run_id, output, created_at) VALUES (?, ?, ?)`,
		runID, string(data), time.Now().UTC())
	return err
}

func (s *Store) GetRunOutput(ctx context.Context, runID string) (*model.RunOutput, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT output FROM run_outputs WHERE run_id = ?`, runID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var out model.RunOutput
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResetRun claims a finished run for a retry, moving it to retrying, and
// clears its errors, logs and output. Only one of several concurrent claims
// succeeds; the others get ErrRunInProgress.
func (s *Store) ResetRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ? AND status IN (?, ?)`,
		model.RunRetrying, time.Now().UTC(), runID, model.RunCompleted, model.RunFailed)
	if err != nil {
		return err
	}
	if err := expectRow(res); err != nil {
		if _, gerr := s.GetRun(ctx, runID); errors.Is(gerr, ErrNotFound) {
			return ErrNotFound
		}
		return ErrRunInProgress
	}
	return s.deleteChildren(ctx, runID)
}

// DeleteRun removes a run and everything recorded for it.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	if err := s.deleteChildren(ctx, runID); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (s *Store) deleteChildren(ctx context.Context, runID string) error {
	for _, table := range []string{"run_logs", "run_errors", "run_outputs"} {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ?`, runID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
