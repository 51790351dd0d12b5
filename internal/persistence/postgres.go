package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/config"
)

// Postgres holds the complaint store pool. A nil Pool means the service runs
// on the in-memory store.
type Postgres struct {
	Pool *pgxpool.Pool
}

// NewPostgres opens the pool when a DSN is configured, retrying the initial
// ping with linear backoff so the service can start alongside its database.
func NewPostgres(ctx context.Context, cfg config.PostgresConfig, appName string, logger *zap.Logger) (*Postgres, error) {
	if cfg.DSN == "" {
		logger.Warn("POSTGRES_DSN not provided; using in-memory store")
		return &Postgres{}, nil
	}

	poolCfg, err := buildPoolConfig(cfg, appName)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	attempts := cfg.ConnectAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 1; ; attempt++ {
		err = pool.Ping(ctx)
		if err == nil {
			break
		}
		if attempt >= attempts {
			pool.Close()
			return nil, fmt.Errorf("ping postgres after %d attempts: %w", attempt, err)
		}
		logger.Warn("postgres not ready", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}

	logger.Info("connected to postgres",
		zap.Int32("max_conns", poolCfg.MaxConns),
		zap.Int32("min_conns", poolCfg.MinConns),
	)
	return &Postgres{Pool: pool}, nil
}

func buildPoolConfig(cfg config.PostgresConfig, appName string) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse POSTGRES_DSN: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleSec) * time.Second
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeSec) * time.Second
	}
	if appName != "" {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = appName
	}
	// Deadlines are compared in UTC everywhere.
	poolCfg.ConnConfig.RuntimeParams["timezone"] = "UTC"
	return poolCfg, nil
}

// Close releases pool resources.
func (p *Postgres) Close() {
	if p.Enabled() {
		p.Pool.Close()
	}
}

// Ping verifies database connectivity for readiness checks.
func (p *Postgres) Ping(ctx context.Context) error {
	if !p.Enabled() {
		return errors.New("postgres pool not configured")
	}
	return p.Pool.Ping(ctx)
}

// Enabled reports whether a pool was opened.
func (p *Postgres) Enabled() bool {
	return p != nil && p.Pool != nil
}

// PoolHandle returns the underlying pgx pool, or nil when disabled.
func (p *Postgres) PoolHandle() *pgxpool.Pool {
	if !p.Enabled() {
		return nil
	}
	return p.Pool
}
