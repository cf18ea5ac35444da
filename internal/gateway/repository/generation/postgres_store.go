package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"reelsmith/internal/compose"
)

// Run is one persisted pipeline invocation: the request that started it,
// every attempt made, and the terminal outcome.
type Run struct {
	ID        int64
	Request   compose.GenerationRequest
	Attempts  []compose.Attempt
	Outcome   compose.GenerationOutcome
	CreatedAt time.Time
}

// PostgresStore persists generation runs so later requests can carry the
// conversation history forward.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("database url is required")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS generation_runs (
	id           BIGSERIAL PRIMARY KEY,
	instruction  TEXT NOT NULL,
	prior_code   TEXT NOT NULL DEFAULT '',
	success      BOOLEAN NOT NULL,
	code         TEXT NOT NULL DEFAULT '',
	duration     DOUBLE PRECISION NOT NULL DEFAULT 0,
	explanation  TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS generation_attempts (
	id           BIGSERIAL PRIMARY KEY,
	run_id       BIGINT NOT NULL REFERENCES generation_runs(id) ON DELETE CASCADE,
	idx          INT NOT NULL,
	valid        BOOLEAN NOT NULL,
	diagnostic   TEXT NOT NULL DEFAULT '',
	duration     DOUBLE PRECISION NOT NULL DEFAULT 0,
	code         TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS generation_attempts_run_idx ON generation_attempts (run_id, idx);
`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// SaveRun stores a run and its attempts atomically and returns the run id.
func (s *PostgresStore) SaveRun(ctx context.Context, run Run) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, fmt.Errorf("store is nil")
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO generation_runs (instruction, prior_code, success, code, duration, explanation, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		run.Request.Instruction,
		run.Request.PriorCode,
		run.Outcome.Success,
		run.Outcome.CompositionCode,
		run.Outcome.Duration,
		run.Outcome.Explanation,
		run.Outcome.ErrorMessage,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	for _, att := range run.Attempts {
		_, err = tx.Exec(ctx,
			`INSERT INTO generation_attempts (run_id, idx, valid, diagnostic, duration, code)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			id, att.Index, att.Validation.Valid, att.Validation.Diagnostic, att.Duration, att.Code,
		)
		if err != nil {
			return 0, fmt.Errorf("insert attempt %d: %w", att.Index, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// RecentHistory rebuilds the conversation from the latest runs, oldest
// first: the user's instruction paired with the assistant's explanation.
func (s *PostgresStore) RecentHistory(ctx context.Context, limit int) ([]compose.ChatMessage, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT instruction, explanation FROM generation_runs ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var reversed []compose.ChatMessage
	for rows.Next() {
		var instruction, explanation string
		if err := rows.Scan(&instruction, &explanation); err != nil {
			return nil, err
		}
		reversed = append(reversed,
			compose.ChatMessage{Role: "assistant", Content: explanation},
			compose.ChatMessage{Role: "user", Content: instruction},
		)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]compose.ChatMessage, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		out = append(out, reversed[i])
	}
	return out, nil
}

// LatestComposition returns the most recent successfully applied code, or
// empty strings when no run has succeeded yet.
func (s *PostgresStore) LatestComposition(ctx context.Context) (string, float64, error) {
	if s == nil || s.pool == nil {
		return "", 0, fmt.Errorf("store is nil")
	}
	var code string
	var duration float64
	err := s.pool.QueryRow(ctx,
		`SELECT code, duration FROM generation_runs WHERE success ORDER BY id DESC LIMIT 1`,
	).Scan(&code, &duration)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, err
	}
	return code, duration, nil
}
