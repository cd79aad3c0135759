package sqlite

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/vertextoedge/txtfetch/internal/domain"
)

// CreateRun records the start of a run
func (s *Store) CreateRun(run *domain.RunSummary) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		run.ID, run.StartedAt.UnixNano(),
	)
	if isUniqueConstraintError(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// SaveTaskResult records the outcome of one task
func (s *Store) SaveTaskResult(runID string, result *domain.TaskResult) error {
	query := `
		INSERT INTO task_results (
			run_id, slug, url, status, bytes, attempts, error, error_kind, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, slug) DO UPDATE SET
			url = excluded.url,
			status = excluded.status,
			bytes = excluded.bytes,
			attempts = excluded.attempts,
			error = excluded.error,
			error_kind = excluded.error_kind,
			finished_at = excluded.finished_at
	`

	finishedAt := result.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}

	_, err := s.db.Exec(query,
		runID, result.Slug, result.URL, string(result.Status), result.Bytes,
		result.Attempts, nullString(result.Error), nullString(result.ErrorKind),
		finishedAt.UnixNano())
	return err
}

// FinishRun stores the final counters of a run
func (s *Store) FinishRun(run *domain.RunSummary) error {
	finishedAt := run.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}

	result, err := s.db.Exec(`
		UPDATE runs SET
			finished_at = ?, total = ?, completed = ?, failed = ?,
			skipped = ?, bytes = ?, error = ?
		WHERE id = ?`,
		finishedAt.UnixNano(), run.Total, run.Completed, run.Failed,
		run.Skipped, run.Bytes, nullString(run.Error), run.ID)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetRun returns a run by ID
func (s *Store) GetRun(runID string) (*domain.RunSummary, error) {
	row := s.db.QueryRow(`
		SELECT id, started_at, finished_at, total, completed, failed, skipped, bytes, error
		FROM runs WHERE id = ?`, runID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return run, err
}

// ListRuns returns the most recent runs, newest first
func (s *Store) ListRuns(limit int) ([]*domain.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, total, completed, failed, skipped, bytes, error
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.RunSummary
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRunResults returns the task results of a run
func (s *Store) GetRunResults(runID string, status domain.TaskStatus) ([]*domain.TaskResult, error) {
	query := `
		SELECT slug, url, status, bytes, attempts, error, error_kind, finished_at
		FROM task_results
		WHERE run_id = ?`
	args := []any{runID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY finished_at ASC, slug ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.TaskResult
	for rows.Next() {
		res := &domain.TaskResult{}
		var statusStr string
		var errMsg, errKind sql.NullString
		var finishedAt int64

		if err := rows.Scan(&res.Slug, &res.URL, &statusStr, &res.Bytes,
			&res.Attempts, &errMsg, &errKind, &finishedAt); err != nil {
			return nil, err
		}

		res.Status = domain.TaskStatus(statusStr)
		res.Error = errMsg.String
		res.ErrorKind = errKind.String
		res.FinishedAt = time.Unix(0, finishedAt)
		results = append(results, res)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun scans a single run row
func scanRun(row rowScanner) (*domain.RunSummary, error) {
	run := &domain.RunSummary{}
	var startedAt int64
	var finishedAt sql.NullInt64
	var errMsg sql.NullString

	err := row.Scan(&run.ID, &startedAt, &finishedAt, &run.Total, &run.Completed,
		&run.Failed, &run.Skipped, &run.Bytes, &errMsg)
	if err != nil {
		return nil, err
	}

	run.StartedAt = time.Unix(0, startedAt)
	if finishedAt.Valid {
		run.FinishedAt = time.Unix(0, finishedAt.Int64)
	}
	run.Error = errMsg.String
	return run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// isUniqueConstraintError checks if the error is a unique constraint violation
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "duplicate key")
}
