package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/chromara/hq/internal/agent"
)

const runColumns = `id, kind, owner_id, status, inputs, submitted_at, started_at, finished_at, succeeded, failures, error_text`

// CreateRun inserts a queued run row.
func (s *Store) CreateRun(ctx context.Context, run agent.Run) error {
	inputs, err := json.Marshal(nonNil(run.Inputs))
	if err != nil {
		return fmt.Errorf("marshal inputs: %w", err)
	}
	failures, err := json.Marshal(nonNil(run.Outcome.Failures))
	if err != nil {
		return fmt.Errorf("marshal failures: %w", err)
	}
	_, err = s.db.Exec(ctx, `
INSERT INTO agent_runs (`+runColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		run.ID,
		string(run.Kind),
		run.OwnerID,
		string(run.Status),
		inputs,
		run.Submitted,
		run.Started,
		run.Finished,
		run.Outcome.Succeeded,
		failures,
		run.ErrorText,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// MarkRunning flips a run to running, keeping the first start time.
func (s *Store) MarkRunning(ctx context.Context, runID string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
UPDATE agent_runs
SET status = $2, started_at = COALESCE(started_at, $3)
WHERE id = $1`, runID, string(agent.RunRunning), at)
	if err != nil {
		return fmt.Errorf("mark run running: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return agent.ErrNotFound
	}
	return nil
}

// CompleteRun records the terminal status and outcome.
func (s *Store) CompleteRun(
	ctx context.Context,
	runID string,
	status agent.RunStatus,
	outcome agent.Outcome,
	errText string,
	at time.Time,
) error {
	failures, err := json.Marshal(nonNil(outcome.Failures))
	if err != nil {
		return fmt.Errorf("marshal failures: %w", err)
	}
	tag, err := s.db.Exec(ctx, `
UPDATE agent_runs
SET status = $2, succeeded = $3, failures = $4, error_text = $5, finished_at = $6
WHERE id = $1`, runID, string(status), outcome.Succeeded, failures, errText, at)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return agent.ErrNotFound
	}
	return nil
}

// GetRun fetches one run.
func (s *Store) GetRun(ctx context.Context, runID string) (agent.Run, error) {
	row := s.db.QueryRow(ctx, `SELECT `+runColumns+` FROM agent_runs WHERE id = $1`, runID)
	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return agent.Run{}, agent.ErrNotFound
	}
	if err != nil {
		return agent.Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs newest first.
func (s *Store) ListRuns(ctx context.Context, filter agent.RunFilter) ([]agent.Run, error) {
	var (
		where []string
		args  []any
	)
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	query := `SELECT ` + runColumns + ` FROM agent_runs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limitOf(filter.Limit), offsetOf(filter.Offset))
	query += fmt.Sprintf(` ORDER BY submitted_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := []agent.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

func scanRun(row pgx.Row) (agent.Run, error) {
	var (
		run            agent.Run
		kind, status   string
		inputs, failed []byte
	)
	err := row.Scan(
		&run.ID,
		&kind,
		&run.OwnerID,
		&status,
		&inputs,
		&run.Submitted,
		&run.Started,
		&run.Finished,
		&run.Outcome.Succeeded,
		&failed,
		&run.ErrorText,
	)
	if err != nil {
		return agent.Run{}, err
	}
	run.Kind = agent.Kind(kind)
	run.Status = agent.RunStatus(status)
	if err := json.Unmarshal(inputs, &run.Inputs); err != nil {
		return agent.Run{}, fmt.Errorf("decode inputs: %w", err)
	}
	if err := json.Unmarshal(failed, &run.Outcome.Failures); err != nil {
		return agent.Run{}, fmt.Errorf("decode failures: %w", err)
	}
	return run, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
