package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/pioneer-isp/helpdesk/internal/config"
)

// ErrPostgresDisabled is returned by Ping on a service running without a DSN.
var ErrPostgresDisabled = errors.New("postgres not configured")

// Postgres owns the pgx pool behind the ticket, event, customer and staff tables.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres dials the pool described by cfg. With no DSN it returns
// (nil, nil) and the caller falls back to the in-memory store.
func OpenPostgres(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*Postgres, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		logger.Warn("POSTGRES_DSN not provided; tickets are kept in memory")
		return nil, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	applyPoolLimits(poolCfg, cfg)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("connected to postgres",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns))
	return &Postgres{pool: pool}, nil
}

func applyPoolLimits(poolCfg *pgxpool.Config, cfg config.PostgresConfig) {
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 && cfg.MinConns <= poolCfg.MaxConns {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleSec) * time.Second
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeSec) * time.Second
	}
}

// Pool returns the pgx pool, or nil when p is nil.
func (p *Postgres) Pool() *pgxpool.Pool {
	if p == nil {
		return nil
	}
	return p.pool
}

// Migrate applies pending migrations from dir.
func (p *Postgres) Migrate(ctx context.Context, dir string, logger *zap.Logger) error {
	return RunMigrations(ctx, p.Pool(), dir, logger)
}

// Ping checks the pool for the readiness probe.
func (p *Postgres) Ping(ctx context.Context) error {
	if p == nil || p.pool == nil {
		return ErrPostgresDisabled
	}
	return p.pool.Ping(ctx)
}

// Close releases the pool. Safe on nil.
func (p *Postgres) Close() {
	if p != nil && p.pool != nil {
		p.pool.Close()
	}
}
