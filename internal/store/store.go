package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS rewards (
	id            UUID PRIMARY KEY,
	sample_id     TEXT NOT NULL,
	split         TEXT NOT NULL DEFAULT '',
	step          INTEGER NOT NULL DEFAULT 0,
	model_id      TEXT NOT NULL DEFAULT '',
	score         DOUBLE PRECISION NOT NULL,
	format_ok     BOOLEAN NOT NULL,
	valid_action  BOOLEAN NOT NULL,
	correct       BOOLEAN NOT NULL,
	action        TEXT NOT NULL DEFAULT '',
	ground_truth  TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS rewards_split_idx ON rewards (split);
CREATE INDEX IF NOT EXISTS rewards_sample_idx ON rewards (sample_id);
`

// Migrate creates the rewards table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
