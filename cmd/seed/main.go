// Command seed creates user accounts listed in a YAML file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/court-opinions/engine/internal/repository"
	"github.com/court-opinions/engine/internal/services"
	"github.com/court-opinions/engine/pkg/config"
	"github.com/court-opinions/engine/pkg/database"
	"github.com/court-opinions/engine/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	path := flag.String("file", "seed/users.example.yaml", "YAML file listing users to create")
	flag.Parse()

	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	f, err := os.Open(*path)
	if err != nil {
		log.Fatal("failed to open seed file", zap.String("file", *path), zap.Error(err))
	}
	defer f.Close()

	users, err := parseSeed(f)
	if err != nil {
		log.Fatal("invalid seed file", zap.String("file", *path), zap.Error(err))
	}

	ctx := context.Background()
	db, err := database.Open(ctx, cfg.DatabaseSettings())
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	auth := services.NewAuthService(repository.NewUserRepository(db), []byte(cfg.JWTSecret), cfg.TokenTTL)
	created, skipped, err := seed(ctx, auth, users)
	if err != nil {
		log.Fatal("seeding failed", zap.Error(err))
	}

	fmt.Fprintf(os.Stdout, "seeded %d users (%d already present)\n", created, skipped)
}
