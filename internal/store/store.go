// Package store persists run history and product snapshots in
// Postgres. The monitor works fine without it; persistence is enabled
// by configuration.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocksentry/stocksentry/internal/config"
	"github.com/stocksentry/stocksentry/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL,
	total_checked INT NOT NULL,
	sold_out      INT NOT NULL
);

CREATE TABLE IF NOT EXISTS product_snapshots (
	id            BIGSERIAL PRIMARY KEY,
	run_id        TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	title         TEXT NOT NULL,
	url           TEXT NOT NULL DEFAULT '',
	price         TEXT NOT NULL DEFAULT '',
	price_numeric DOUBLE PRECISION,
	status        TEXT NOT NULL,
	status_reason TEXT NOT NULL DEFAULT '',
	is_available  BOOLEAN NOT NULL,
	discovered_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_run ON product_snapshots(run_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_url ON product_snapshots(url);
`

type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func New(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, cfg.SSLMode)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	poolConfig.MaxConns = 4
	poolConfig.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		pool:   pool,
		logger: slog.Default().With("component", "store"),
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return s, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// SaveRun writes the run record and all product snapshots in one
// transaction.
func (s *Store) SaveRun(ctx context.Context, result *model.RunResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO runs (run_id, started_at, finished_at, total_checked, sold_out)
		 VALUES ($1, $2, $3, $4, $5)`,
		result.RunID, result.StartedAt, result.FinishedAt,
		result.TotalChecked, result.SoldOutCount); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, p := range result.Products {
		if _, err := tx.Exec(ctx,
			`INSERT INTO product_snapshots
			 (run_id, title, url, price, price_numeric, status, status_reason, is_available, discovered_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			result.RunID, p.Title, p.URL, p.Price, p.PriceNumeric,
			string(p.AvailabilityStatus), p.StatusReason, p.IsAvailable, p.DiscoveredAt); err != nil {
			return fmt.Errorf("failed to insert snapshot for %q: %w", p.Title, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("run persisted", "run_id", result.RunID, "products", len(result.Products))
	return nil
}

// RecentRuns returns run summaries, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*model.RunResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, started_at, finished_at, total_checked, sold_out
		 FROM runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var results []*model.RunResult
	for rows.Next() {
		r := &model.RunResult{}
		if err := rows.Scan(&r.RunID, &r.StartedAt, &r.FinishedAt,
			&r.TotalChecked, &r.SoldOutCount); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ProductHistory returns snapshots for one product URL, newest first.
func (s *Store) ProductHistory(ctx context.Context, url string, limit int) ([]*model.Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT title, url, price, price_numeric, status, status_reason, is_available, discovered_at
		 FROM product_snapshots WHERE url = $1 ORDER BY discovered_at DESC LIMIT $2`,
		url, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var products []*model.Product
	for rows.Next() {
		p := &model.Product{}
		var status string
		if err := rows.Scan(&p.Title, &p.URL, &p.Price, &p.PriceNumeric,
			&status, &p.StatusReason, &p.IsAvailable, &p.DiscoveredAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		p.AvailabilityStatus = model.AvailabilityStatus(status)
		products = append(products, p)
	}
	return products, rows.Err()
}
