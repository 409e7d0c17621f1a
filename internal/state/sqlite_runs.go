package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/sqlint/pkg/lint"
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DefaultListLimit is used by ListRuns when limit is not positive.
const DefaultListLimit = 20

// RecordRun stores results as a new run in one transaction.
func (s *SQLiteStore) RecordRun(ctx context.Context, results []lint.LintResult, cfgSummary string) (*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	sum := lint.Summarize(results)
	run := &Run{
		ID:        generateID(),
		StartedAt: time.Now().UTC(),
		Config:    cfgSummary,
		Files:     sum.TotalFiles,
		Errors:    sum.TotalErrors,
		Warnings:  sum.TotalWarnings,
		Infos:     sum.TotalInfos,
	}

	s.logger.Debug("recording run",
		slog.String("id", run.ID),
		slog.Int("files", run.Files),
		slog.Int("problems", run.Problems()))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, config, files, errors, warnings, infos) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.Format(timeLayout), run.Config, run.Files, run.Errors, run.Warnings, run.Infos,
	); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	for _, r := range results {
		for _, m := range r.Messages {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO run_messages (run_id, filename, rule_id, severity, message, line, col, node_type) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				run.ID, r.Filename, m.RuleID, m.Severity.String(), m.Message, m.Line, m.Column, m.NodeType,
			); err != nil {
				return nil, fmt.Errorf("failed to record message: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves the most recent runs up to the given limit.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, config, files, errors, warnings, infos FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, config, files, errors, warnings, infos FROM runs WHERE id = ?`,
		id,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// GetRunMessages returns the messages of a run in recording order. An
// unknown run is ErrRunNotFound.
func (s *SQLiteStore) GetRunMessages(ctx context.Context, runID string) ([]StoredMessage, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, filename, rule_id, severity, message, line, col, node_type FROM run_messages WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get run messages: %w", err)
	}
	defer rows.Close()

	var msgs []StoredMessage
	for rows.Next() {
		var (
			m   StoredMessage
			sev string
		)
		if err := rows.Scan(&m.RunID, &m.Filename, &m.RuleID, &sev, &m.Message, &m.Line, &m.Column, &m.NodeType); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		parsed, ok := lint.ParseSeverity(sev)
		if !ok {
			return nil, fmt.Errorf("invalid stored severity %q", sev)
		}
		m.Severity = parsed
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get run messages: %w", err)
	}
	return msgs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run     Run
		started string
	)
	if err := sc.Scan(&run.ID, &started, &run.Config, &run.Files, &run.Errors, &run.Warnings, &run.Infos); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	t, err := time.Parse(timeLayout, started)
	if err != nil {
		return nil, fmt.Errorf("invalid run timestamp %q: %w", started, err)
	}
	run.StartedAt = t
	return &run, nil
}
