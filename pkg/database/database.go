package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/court-opinions/engine/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Settings selects the driver and connection parameters.
type Settings struct {
	Driver string
	DSN    string
	// AppEnv selects gorm's log verbosity.
	AppEnv string
	Pool   Pool
}

// Open connects to the configured driver. The pool applies to PostgreSQL only.
func Open(ctx context.Context, s Settings) (*gorm.DB, error) {
	level := LogLevelFor(s.AppEnv)
	switch s.Driver {
	case "postgres":
		return OpenPostgres(ctx, s.DSN, level, s.Pool)
	case "sqlite":
		return OpenSQLite(s.DSN, level)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", s.Driver)
	}
}

// LogLevelFor maps an application environment to a gorm log level.
func LogLevelFor(appEnv string) gormlogger.LogLevel {
	if appEnv == "development" || appEnv == "test" {
		return gormlogger.Warn
	}
	return gormlogger.Silent
}

// Ping checks that the underlying connection pool is reachable.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("db db() error: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctxPing)
}

type zapGormLogger struct {
	zap   *zap.Logger
	level gormlogger.LogLevel
}

func newGormLogger(level gormlogger.LogLevel) gormlogger.Interface {
	return zapGormLogger{zap: logger.Named("gorm"), level: level}
}

func (l zapGormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	l.level = level
	return l
}

func (l zapGormLogger) Info(ctx context.Context, s string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.zap.Sugar().Infof(s, args...)
	}
}

func (l zapGormLogger) Warn(ctx context.Context, s string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.zap.Sugar().Warnf(s, args...)
	}
}

func (l zapGormLogger) Error(ctx context.Context, s string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.zap.Sugar().Errorf(s, args...)
	}
}

func (l zapGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level == gormlogger.Silent {
		return
	}
	sql, rows := fc()
	dur := time.Since(begin)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error {
		l.zap.Error("gorm query error", zap.Duration("duration", dur), zap.Int64("rows", rows), zap.String("sql", sql), zap.Error(err))
		return
	}
	l.zap.Debug("gorm query", zap.Duration("duration", dur), zap.Int64("rows", rows), zap.String("sql", sql))
}

type backoff struct {
	maxRetries int
	delay      time.Duration
	maxDelay   time.Duration
}

func (b backoff) nextDelay(attempt int) time.Duration {
	d := b.delay << attempt
	if d > b.maxDelay {
		return b.maxDelay
	}
	return d
}
