package main

import (
	"context"
	"flag"
	"time"

	"github.com/court-opinions/engine/pkg/config"
	"github.com/court-opinions/engine/pkg/database"
	"github.com/court-opinions/engine/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	timeout := flag.Duration("timeout", 2*time.Minute, "abort if migrations take longer")
	flag.Parse()

	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := database.Open(ctx, cfg.DatabaseSettings())
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	start := time.Now()
	if err := runMigrations(db.WithContext(ctx)); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	log.Info("migrations completed",
		zap.String("driver", cfg.DatabaseDriver),
		zap.Duration("duration", time.Since(start)),
	)
}
