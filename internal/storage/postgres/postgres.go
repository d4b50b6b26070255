// Package postgres implements the candidate, job, decision and model stores
// on PostgreSQL. Profiles and snapshots are kept as JSONB documents.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spigell/helper-matcher/internal/decisions"
	"github.com/spigell/helper-matcher/internal/logger"
	"github.com/spigell/helper-matcher/internal/personalization"
	"github.com/spigell/helper-matcher/internal/storage"
)

var (
	_ decisions.Log         = (*Store)(nil)
	_ personalization.Store = (*Store)(nil)
)

type Config struct {
	DSN      string `mapstructure:"dsn"`
	DSNFile  string `mapstructure:"dsn-file"`
	MaxConns int32  `mapstructure:"max-conns"`
	MinConns int32  `mapstructure:"min-conns"`
}

// NewPool creates a pool and verifies it with a ping.
func NewPool(ctx context.Context, dsn string, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	poolCfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return pool, nil
}

// Store serves every store interface from one pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func New(pool *pgxpool.Pool, lg *zap.Logger) *Store {
	return &Store{pool: pool, logger: logger.WithFields(lg)}
}

const schema = `
CREATE TABLE IF NOT EXISTS candidates (
	id          TEXT PRIMARY KEY,
	helper_type TEXT NOT NULL,
	document    JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS candidates_helper_type_idx ON candidates (helper_type, created_at, id);

CREATE TABLE IF NOT EXISTS jobs (
	id          TEXT PRIMARY KEY,
	employer_id TEXT NOT NULL DEFAULT '',
	document    JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS decisions (
	seq          BIGSERIAL PRIMARY KEY,
	id           UUID NOT NULL UNIQUE,
	employer_id  TEXT NOT NULL,
	candidate_id TEXT NOT NULL,
	job_id       TEXT NOT NULL,
	action       TEXT NOT NULL,
	decided_at   TIMESTAMPTZ NOT NULL,
	candidate    JSONB NOT NULL,
	job          JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS decisions_employer_idx ON decisions (employer_id, seq);

CREATE TABLE IF NOT EXISTS personalization_models (
	employer_id TEXT NOT NULL,
	version     BIGINT NOT NULL,
	document    JSONB NOT NULL,
	trained_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (employer_id, version)
);

CREATE TABLE IF NOT EXISTS personalization_model_heads (
	employer_id TEXT PRIMARY KEY,
	version     BIGINT NOT NULL
);
`

// EnsureSchema creates missing tables and indexes.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return storage.Wrap("ensure schema", err)
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// limitArg maps a non-positive limit to NULL, which Postgres reads as no limit.
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}
