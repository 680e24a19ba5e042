// Package store implements the idempotent persistence sinks (C7): one
// upsert entrypoint per entity type, each batched and conflict-keyed per
// spec.md §4.7, backed directly by pgx/v5 rather than an ORM.
package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ballistic-intel/signalpipe/internal/runctx"
)

// Client wraps a connection pool and exposes the per-entity upsert sinks.
type Client struct {
	pool   *pgxpool.Pool
	cfg    Config
	logger *slog.Logger
}

// NewClient runs pending migrations, then opens the runtime connection
// pool. Pool and migration connections are kept separate so the
// migration connection can be closed immediately.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := runMigrations(ctx, cfg); err != nil {
		return nil, &runctx.PersistenceError{Sink: "migrate", Err: err}
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, &runctx.PersistenceError{Sink: "pool-config", Err: err}
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, &runctx.PersistenceError{Sink: "pool-open", Err: err}
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &runctx.PersistenceError{Sink: "ping", Err: err}
	}

	logger.Info("store client ready", "host", cfg.Host, "database", cfg.Database)
	return &Client{pool: pool, cfg: cfg, logger: logger}, nil
}

// Close releases the connection pool.
func (c *Client) Close() {
	c.pool.Close()
}

// Ping issues a single cheap read to validate connectivity, satisfying
// spec.md §7's preflight health check before the DAG starts.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.pool.Ping(ctx); err != nil {
		return &runctx.PreflightError{Check: "database", Err: err}
	}
	return nil
}

// HealthStatus mirrors the teacher's database health snapshot shape.
type HealthStatus struct {
	Status          string
	ResponseTime    time.Duration
	AcquiredConns   int32
	IdleConns       int32
	TotalConns      int32
	MaxConns        int32
}

// Health checks connectivity and reports pool statistics.
func (c *Client) Health(ctx context.Context) HealthStatus {
	start := time.Now()
	if err := c.pool.Ping(ctx); err != nil {
		return HealthStatus{Status: "unhealthy", ResponseTime: time.Since(start)}
	}
	stats := c.pool.Stat()
	return HealthStatus{
		Status:        "healthy",
		ResponseTime:  time.Since(start),
		AcquiredConns: stats.AcquiredConns(),
		IdleConns:     stats.IdleConns(),
		TotalConns:    stats.TotalConns(),
		MaxConns:      stats.MaxConns(),
	}
}

// UpsertResult is the outcome of one sink's upsert call.
type UpsertResult struct {
	Count   int
	Success bool
	Err     error
}

// withRetry retries op using exponential backoff, bounded to
// cfg.MaxRetries attempts, only for transient PostgreSQL errors.
// Permanent errors (constraint/schema violations) return immediately.
func (c *Client) withRetry(ctx context.Context, sink string, op func(context.Context) error) error {
	// WithMaxRetries counts retries after the first attempt.
	retries := c.cfg.MaxRetries - 1
	if retries < 0 {
		retries = 0
	}
	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(retries)),
		ctx,
	)

	attempt := func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !isTransientPgError(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	if err := backoff.Retry(attempt, bo); err != nil {
		return wrapPersistenceErr(sink, err)
	}
	return nil
}

func isTransientPgError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code[:2] {
	case "08": // connection exception
		return true
	case "53": // insufficient resources
		return true
	case "57": // operator intervention
		return true
	}
	switch pgErr.Code {
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return true
	}
	return false
}

func wrapPersistenceErr(sink string, err error) error {
	if err == nil {
		return nil
	}
	return &runctx.PersistenceError{Sink: sink, Err: err}
}
