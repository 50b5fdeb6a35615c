package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/court-opinions/engine/internal/api"
	"github.com/court-opinions/engine/internal/api/handlers"
	"github.com/court-opinions/engine/internal/lock"
	"github.com/court-opinions/engine/internal/repository"
	"github.com/court-opinions/engine/internal/services"
	"github.com/court-opinions/engine/internal/storage"
	"github.com/court-opinions/engine/pkg/config"
	"github.com/court-opinions/engine/pkg/database"
	"github.com/court-opinions/engine/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	// Initialize logger
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("Starting case review engine",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
		zap.String("db_driver", cfg.DatabaseDriver),
	)

	// Connect to database
	ctx := context.Background()
	db, err := database.Open(ctx, cfg.DatabaseSettings())
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	caseRepo := repository.NewCaseRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)

	maxBytes := cfg.MaxUploadBytes()
	store, err := storage.NewFileStore(afero.NewOsFs(), cfg.UploadDir, maxBytes)
	if err != nil {
		log.Fatal("Failed to prepare upload directory", zap.Error(err), zap.String("dir", cfg.UploadDir))
	}

	locker, closeLocker := newLocker(ctx, cfg, log)
	defer closeLocker()

	// Initialize services
	auth := services.NewAuthService(userRepo, []byte(cfg.JWTSecret), cfg.TokenTTL)
	projects := services.NewProjectService(db, projectRepo, userRepo, assignmentRepo, store, locker, services.ProjectDefaults{
		AIModel:     cfg.DefaultAIModel,
		BudgetLimit: cfg.DefaultBudgetLimit,
	})
	uploads := services.NewUploadService(db, projectRepo, caseRepo, assignmentRepo, store, locker)
	cases := services.NewCaseService(db, projectRepo, caseRepo, assignmentRepo, locker)
	assignments := services.NewAssignmentService(db, projectRepo, caseRepo, userRepo, assignmentRepo, locker)

	// Create router with dependencies
	router := api.NewRouter(api.Dependencies{
		Tokens:          auth,
		AuthHandler:     handlers.NewAuthHandler(auth, cfg.TokenTTL),
		ProjectsHandler: handlers.NewProjectsHandler(projects),
		UploadsHandler:  handlers.NewUploadsHandler(uploads, maxBytes, cfg.UploadTimeout),
		CasesHandler:    handlers.NewCasesHandler(cases, assignments),
		HealthHandler: handlers.NewHealthHandler(func(ctx context.Context) error {
			return database.Ping(ctx, db)
		}),
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		CORSOrigins:    cfg.CORSOrigins(),
	})

	// Create HTTP server. Uploads may stream for up to UploadTimeout.
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.UploadTimeout + 30*time.Second,
		WriteTimeout:      cfg.UploadTimeout + 60*time.Second,
		IdleTimeout:       90 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
	closeDB(db, log)
}

// newLocker uses a Redis lease lock when REDIS_ADDR is set so several API
// replicas serialize project mutations; otherwise an in-process mutex.
func newLocker(ctx context.Context, cfg *config.Config, log *zap.Logger) (lock.Locker, func()) {
	if cfg.RedisAddr == "" {
		log.Info("using in-process project locks")
		return lock.NewMemory(), func() {}
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	log.Info("using redis project locks", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.LockTTL))
	return lock.NewRedis(rdb, cfg.LockTTL), func() { _ = rdb.Close() }
}

func closeDB(db *gorm.DB, log *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("database close error", zap.Error(err))
	}
}
