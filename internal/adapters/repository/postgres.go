package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/squadron/internal/domain/model"
	"github.com/okian/squadron/pkg/metrics"
)

const createRunsTable = `
CREATE TABLE IF NOT EXISTS formation_runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	payload     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsertRun = `
INSERT INTO formation_runs (id, status, payload, created_at, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (id) DO UPDATE
SET status = EXCLUDED.status, payload = EXCLUDED.payload, updated_at = now()`

// PostgresStore keeps runs in the formation_runs table as JSONB.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a pool for dsn, verifies it and creates the
// runs table when missing.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if pcfg.ConnConfig.ConnectTimeout == 0 {
		pcfg.ConnConfig.ConnectTimeout = 5 * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("%w: postgres: %w", ErrUnavailable, err)
	}

	pingCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: postgres: %w", ErrUnavailable, err)
	}
	if _, err := pool.Exec(pingCtx, createRunsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create formation_runs: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Save implements Store.
func (s *PostgresStore) Save(ctx context.Context, run *model.Run) error {
	if run == nil || run.ID == "" {
		return ErrInvalidRun
	}
	b, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", run.ID, err)
	}
	if _, err := s.pool.Exec(ctx, upsertRun, run.ID, string(run.Status), b, run.CreatedAt); err != nil {
		metrics.RecordStoreError("save")
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, id string) (*model.Run, error) {
	var b []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM formation_runs WHERE id = $1`, id).Scan(&b)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		metrics.RecordStoreError("get")
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	var run model.Run
	if err := json.Unmarshal(b, &run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &run, nil
}

// Count implements Store.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM formation_runs`).Scan(&n); err != nil {
		metrics.RecordStoreError("count")
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
