package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Run is a row of the runs table.
type Run struct {
	ID         string
	LogID      string
	Expression string

	// Seq is assigned by StartRun and orders runs within the database.
	Seq int64

	// ExitCode is only meaningful when Finished is true.
	ExitCode int
	Finished bool
}

// Invocation is a row of the invocations table.
type Invocation struct {
	RunID  string
	Seq    int64
	Task   string
	Args   []string
	Status int
}

// StartRun inserts an unfinished run. run.Seq is ignored; the store assigns
// the next sequence number.
func (s *Store) StartRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, log_id, expression, seq, exit_code)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), NULL)
	`, run.ID, run.LogID, run.Expression)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// FinishRun records the exit code of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, exitCode int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET exit_code = ? WHERE id = ?`, exitCode, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run: unknown run %q", runID)
	}
	return nil
}

// WriteInvocation appends one task invocation to a run. Args are stored as a
// JSON array. Duplicate (run_id, seq) pairs are silently ignored.
func (s *Store) WriteInvocation(ctx context.Context, inv Invocation) error {
	args := inv.Args
	if args == nil {
		args = []string{}
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("write invocation: marshal args: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO invocations (run_id, seq, task_name, args, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`, inv.RunID, inv.Seq, inv.Task, string(argsJSON), inv.Status)
	if err != nil {
		return fmt.Errorf("write invocation: %w", err)
	}
	return nil
}

// RunsByLogID returns every run recorded under logID, oldest first.
// Returns an empty slice (not nil) if none exist.
func (s *Store) RunsByLogID(ctx context.Context, logID string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, log_id, expression, seq, exit_code
		FROM runs
		WHERE log_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, logID)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		var exit sql.NullInt64
		if err := rows.Scan(&r.ID, &r.LogID, &r.Expression, &r.Seq, &exit); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Finished = exit.Valid
		r.ExitCode = int(exit.Int64)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Invocations returns the invocations of a run in seq order.
// Returns an empty slice (not nil) if none exist.
func (s *Store) Invocations(ctx context.Context, runID string) ([]Invocation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, task_name, args, status
		FROM invocations
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query invocations: %w", err)
	}
	defer rows.Close()

	invs := []Invocation{}
	for rows.Next() {
		var inv Invocation
		var argsJSON string
		if err := rows.Scan(&inv.RunID, &inv.Seq, &inv.Task, &argsJSON, &inv.Status); err != nil {
			return nil, fmt.Errorf("scan invocation: %w", err)
		}
		if err := json.Unmarshal([]byte(argsJSON), &inv.Args); err != nil {
			return nil, fmt.Errorf("unmarshal args for %s/%d: %w", inv.RunID, inv.Seq, err)
		}
		invs = append(invs, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invocations: %w", err)
	}
	return invs, nil
}
