// Package postgres provides Postgres-backed implementations of the agent stores.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querier interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Ping(context.Context) error
	Close()
}

// Store persists runs, contact lookups, insights, patents and drafts.
type Store struct {
	db querier
}

// Open connects a pool using cfg.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: pool}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(db querier) (*Store, error) {
	if db == nil {
		return nil, errors.New("pool is required")
	}
	return &Store{db: db}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.db == nil {
		return
	}
	s.db.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS agent_runs (
	id           TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	owner_id     TEXT NOT NULL,
	status       TEXT NOT NULL,
	inputs       JSONB NOT NULL DEFAULT '[]',
	submitted_at TIMESTAMPTZ NOT NULL,
	started_at   TIMESTAMPTZ,
	finished_at  TIMESTAMPTZ,
	succeeded    INTEGER NOT NULL DEFAULT 0,
	failures     JSONB NOT NULL DEFAULT '[]',
	error_text   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS agent_runs_submitted_idx ON agent_runs (submitted_at DESC);

CREATE TABLE IF NOT EXISTS contact_lookups (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	domain     TEXT NOT NULL,
	company    TEXT NOT NULL DEFAULT '',
	source_url TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL,
	contacts   JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL
);
ALTER TABLE contact_lookups ADD COLUMN IF NOT EXISTS company TEXT NOT NULL DEFAULT '';
UPDATE contact_lookups SET company = domain WHERE company = '';
CREATE INDEX IF NOT EXISTS contact_lookups_company_idx ON contact_lookups (company, created_at DESC);

CREATE TABLE IF NOT EXISTS competitor_insights (
	id           TEXT PRIMARY KEY,
	run_id       TEXT NOT NULL,
	owner_id     TEXT NOT NULL,
	url          TEXT NOT NULL,
	domain       TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	excerpt      TEXT NOT NULL DEFAULT '',
	summary      TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL,
	blob_uri     TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS patents (
	patent_id  TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	abstract   TEXT NOT NULL DEFAULT '',
	grant_date TEXT NOT NULL DEFAULT '',
	assignees  JSONB NOT NULL DEFAULT '[]',
	query      TEXT NOT NULL,
	run_id     TEXT NOT NULL DEFAULT '',
	fetched_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS generated_content (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	topic      TEXT NOT NULL,
	channel    TEXT NOT NULL,
	tone       TEXT NOT NULL,
	body       TEXT NOT NULL,
	model      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`

func limitOf(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}

func offsetOf(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
