package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lewisian8787/wrestleguess/logging"
)

// schema mirrors the relational layout of the web app: matches and pick
// choices live in their own tables and league_members keeps per-event scores
// in a JSONB object keyed by event id.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	display_name VARCHAR(50) NOT NULL,
	email        VARCHAR(255) NOT NULL UNIQUE,
	password     VARCHAR(255) NOT NULL,
	is_admin     BOOLEAN NOT NULL DEFAULT FALSE,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS leagues (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       VARCHAR(100) NOT NULL,
	join_code  VARCHAR(20) NOT NULL UNIQUE,
	created_by TEXT REFERENCES users(id) ON DELETE SET NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS league_members (
	league_id    TEXT NOT NULL REFERENCES leagues(id) ON DELETE CASCADE,
	user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	display_name VARCHAR(50) NOT NULL DEFAULT '',
	total_points NUMERIC(12, 2) NOT NULL DEFAULT 0,
	event_scores JSONB NOT NULL DEFAULT '{}'::jsonb,
	joined_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (league_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_league_members_user_id ON league_members(user_id);
CREATE INDEX IF NOT EXISTS idx_league_members_points ON league_members(league_id, total_points DESC);

CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       VARCHAR(255) NOT NULL,
	brand      VARCHAR(100) NOT NULL DEFAULT 'Wrestling',
	date       TIMESTAMPTZ NOT NULL,
	locked     BOOLEAN NOT NULL DEFAULT FALSE,
	scored     BOOLEAN NOT NULL DEFAULT FALSE,
	scored_at  TIMESTAMPTZ,
	created_by TEXT REFERENCES users(id) ON DELETE SET NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_events_date ON events(date DESC);

CREATE TABLE IF NOT EXISTS matches (
	event_id    TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	match_id    VARCHAR(50) NOT NULL,
	match_type  VARCHAR(50) NOT NULL DEFAULT 'Singles',
	title_match BOOLEAN NOT NULL DEFAULT FALSE,
	competitors TEXT[] NOT NULL,
	winner      VARCHAR(255),
	multiplier  NUMERIC(3, 2) NOT NULL DEFAULT 1.0,
	match_order INTEGER NOT NULL,
	PRIMARY KEY (event_id, match_id)
);

CREATE TABLE IF NOT EXISTS picks (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	event_id         TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	user_id          TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	version          INTEGER NOT NULL DEFAULT 2,
	total_confidence INTEGER,
	submitted_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (event_id, user_id)
);

CREATE TABLE IF NOT EXISTS pick_choices (
	pick_id    TEXT NOT NULL REFERENCES picks(id) ON DELETE CASCADE,
	match_id   VARCHAR(50) NOT NULL,
	winner     VARCHAR(255) NOT NULL,
	confidence INTEGER CHECK (confidence >= 0 AND confidence <= 100),
	PRIMARY KEY (pick_id, match_id)
);
`

// Postgres wraps a pgx connection pool
type Postgres struct {
	Pool *pgxpool.Pool
}

// NewPostgres creates a pool for url and verifies it with a ping
func NewPostgres(ctx context.Context, url string, timeout time.Duration) (*Postgres, error) {
	logger := logging.WithPrefix("Postgres")

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres url: %w", err)
	}
	cfg.ConnConfig.ConnectTimeout = timeout

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		logger.Errorf("Failed to ping: %v", err)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infof("Connected to %s/%s", cfg.ConnConfig.Host, cfg.ConnConfig.Database)
	return &Postgres{Pool: pool}, nil
}

// Migrate creates any missing tables and indexes
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Ping is used by the health endpoint
func (p *Postgres) Ping(ctx context.Context) error {
	return p.Pool.Ping(ctx)
}

// Close closes the connection pool
func (p *Postgres) Close() {
	p.Pool.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
