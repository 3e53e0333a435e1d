package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ogurasousui/cafe-staffing/internal/platform/config"
	"go.uber.org/zap"
)

// BuildPoolConfig は database 設定から pgxpool.Config を構築します。
func BuildPoolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}

	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	}

	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	if cfg.ConnMaxIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}

	return poolCfg, nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// NewPool は pgxpool.Pool を生成し疎通確認を行います。
// 起動直後はデータベースが未準備のことがあるため、設定回数まで ping を再試行します。
func NewPool(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := BuildPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	if err := waitReady(ctx, pool, cfg.ConnectAttempts, cfg.ConnectRetryDelay, log); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

func waitReady(ctx context.Context, db pinger, attempts int, delay time.Duration, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = db.Ping(ctx); lastErr == nil {
			log.Info("database is ready", zap.Int("attempt", attempt))
			return nil
		}

		if attempt == attempts {
			break
		}

		log.Warn("database not ready yet",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("retry_in", delay),
			zap.Error(lastErr),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres: ping: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("postgres: ping after %d attempts: %w", attempts, lastErr)
}
