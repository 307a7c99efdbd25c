// Package postgres implements the watchlist and safeguard stores on
// PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a connection pool and verifies connectivity.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

const pgErrUniqueViolation = "23505"

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}
	return false
}

func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// Migrate creates the engine tables when they do not exist yet.
func Migrate(ctx context.Context, pool *Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS watchlist_entries (
			mint            TEXT PRIMARY KEY,
			symbol          TEXT NOT NULL DEFAULT '',
			name            TEXT NOT NULL DEFAULT '',
			creator         TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL,
			rejection_kind  TEXT NOT NULL DEFAULT '',
			first_seen_at   TIMESTAMPTZ NOT NULL,
			last_checked_at TIMESTAMPTZ NOT NULL,
			qualified_at    TIMESTAMPTZ,
			rejected_at     TIMESTAMPTZ,
			removed_at      TIMESTAMPTZ,
			below_alive_since TIMESTAMPTZ,
			metrics         JSONB,
			prev_metrics    JSONB,
			score           JSONB NOT NULL DEFAULT '{}',
			risk            JSONB NOT NULL DEFAULT '{}',
			qualify_reason  TEXT NOT NULL DEFAULT '',
			reject_reason   TEXT NOT NULL DEFAULT '',
			remove_reason   TEXT NOT NULL DEFAULT '',
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_watchlist_status
			ON watchlist_entries (status)`,
		`CREATE INDEX IF NOT EXISTS idx_watchlist_last_checked
			ON watchlist_entries (last_checked_at)`,
		`CREATE TABLE IF NOT EXISTS watchlist_transitions (
			id          UUID PRIMARY KEY,
			mint        TEXT NOT NULL,
			from_status TEXT NOT NULL,
			to_status   TEXT NOT NULL,
			kind        TEXT NOT NULL DEFAULT '',
			reason      TEXT NOT NULL DEFAULT '',
			occurred_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transitions_mint
			ON watchlist_transitions (mint, occurred_at DESC)`,
		`CREATE TABLE IF NOT EXISTS safeguard_state (
			id         SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			state      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
