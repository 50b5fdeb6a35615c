package database

import (
	"context"
	"fmt"
	"time"

	"github.com/court-opinions/engine/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Pool sizes the connection pool and the connect retry budget.
type Pool struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectRetries  int
}

// DefaultPool suits a single API replica.
func DefaultPool() Pool {
	return Pool{MaxOpenConns: 25, MaxIdleConns: 10, ConnMaxLifetime: 30 * time.Minute, ConnectRetries: 5}
}

// OpenPostgres connects with exponential backoff while the server comes up,
// then applies the pool limits and pings.
func OpenPostgres(ctx context.Context, dsn string, level gormlogger.LogLevel, pool Pool) (*gorm.DB, error) {
	b := backoff{
		maxRetries: pool.ConnectRetries,
		delay:      500 * time.Millisecond,
		maxDelay:   5 * time.Second,
	}

	var (
		db  *gorm.DB
		err error
	)
	for attempt := 0; ; attempt++ {
		db, err = gorm.Open(postgres.New(postgres.Config{DSN: dsn}), &gorm.Config{
			Logger:         newGormLogger(level),
			TranslateError: true,
			NowFunc:        func() time.Time { return time.Now().UTC() },
		})
		if err == nil {
			break
		}
		if attempt >= b.maxRetries {
			return nil, fmt.Errorf("open postgres failed after %d attempts: %w", attempt+1, err)
		}
		wait := b.nextDelay(attempt)
		logger.Named("database").Warn("postgres not reachable, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("open postgres canceled: %w", ctx.Err())
		case <-time.After(wait):
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db db() error: %w", err)
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	if err := Ping(ctx, db); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return db, nil
}
