package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/devclub-edu/leaderboard/internal/api"
	"github.com/devclub-edu/leaderboard/internal/auth"
	"github.com/devclub-edu/leaderboard/internal/config"
	"github.com/devclub-edu/leaderboard/internal/leaderboard"
	"github.com/devclub-edu/leaderboard/internal/metrics"
	"github.com/devclub-edu/leaderboard/internal/resync"
	"github.com/devclub-edu/leaderboard/internal/services"
	"github.com/devclub-edu/leaderboard/internal/sheets"
	"github.com/devclub-edu/leaderboard/internal/storage"
	"github.com/devclub-edu/leaderboard/internal/templates"
	"github.com/devclub-edu/leaderboard/internal/tracker"
)

var errSheetsDisabled = errors.New("spreadsheet mirror disabled")

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// A missing .env file is fine; the environment may already be populated
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting leaderboard",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"sheets_backend", cfg.Sheets.Backend,
	)

	metrics.Register(prometheus.DefaultRegisterer)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	repo, err := openRepository(initCtx, cfg.Database, cfg.UseMemoryStore())
	if err != nil {
		slog.Error("failed to create repository", "error", err)
		os.Exit(1)
	}

	// Initialize service registry
	registry := services.NewRegistry()
	storeType := "postgres"
	if cfg.UseMemoryStore() {
		storeType = "memory"
	}
	registry.Register("database", services.NewCheckFunc(storeType, repo.Ping))

	var locker leaderboard.Locker = leaderboard.NewLocalLocker()
	if cfg.Redis.Address != "" {
		redisLocker, err := services.NewRedisLocker(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.LockTTL)
		if err != nil {
			slog.Error("failed to create redis locker", "error", err)
			os.Exit(1)
		}
		registry.Register("redis", redisLocker)
		locker = redisLocker
		slog.Info("using redis sync lock", "address", cfg.Redis.Address)
	}

	// Load templates
	templateLoader, err := templates.NewDefaultLoader()
	if err != nil {
		slog.Error("failed to load task templates", "error", err)
		os.Exit(1)
	}
	if cfg.Templates.File != "" {
		if err := templateLoader.LoadFromFile(cfg.Templates.File); err != nil {
			slog.Error("failed to load task templates from file", "file", cfg.Templates.File, "error", err)
			os.Exit(1)
		}
	}

	// Spreadsheet mirror. Failing to initialize leaves the API up with reads answering 503.
	hub := leaderboard.NewHub()
	synchronizer := leaderboard.New(sheetsOpener(cfg.Sheets), leaderboard.WithLocker(locker), leaderboard.WithHub(hub))
	if err := synchronizer.Init(initCtx); err != nil {
		slog.Error("failed to initialize leaderboard synchronizer", "error", err)
	}

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL)
	service := tracker.NewService(repo, templateLoader, issuer, synchronizer, tracker.Options{
		Cooldown:    cfg.Requests.Cooldown,
		SyncTimeout: cfg.Sheets.SyncTimeout,
	})

	if cfg.Auth.AdminEmail != "" {
		admin, created, err := service.EnsureAdmin(initCtx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
		if err != nil {
			slog.Error("failed to ensure admin account", "error", err)
			os.Exit(1)
		}
		slog.Info("admin account ready", "email", admin.Email, "created", created)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start rebuild worker
	if cfg.Sheets.Backend != config.SheetsDisabled && cfg.Resync.Interval > 0 {
		resync.NewWorker(service, synchronizer, cfg.Resync.Interval).Start(ctx)
	}

	// Setup HTTP server
	server := api.NewServer(cfg.Server, service, templateLoader, registry, synchronizer, hub)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if err := synchronizer.Close(); err != nil {
		slog.Error("synchronizer close error", "error", err)
	}
	if redisLocker, ok := locker.(*services.RedisLocker); ok {
		if err := redisLocker.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}
	if err := repo.Close(); err != nil {
		slog.Error("repository close error", "error", err)
	}

	slog.Info("leaderboard stopped")
}

// openRepository connects and migrates PostgreSQL, or returns the in-process store
func openRepository(ctx context.Context, cfg config.DatabaseConfig, memory bool) (storage.Repository, error) {
	if memory {
		slog.Warn("using in-memory store, data is lost on restart")
		return storage.NewMemoryRepository(), nil
	}

	repo, err := storage.NewPostgresRepository(ctx, storage.PostgresConfig{
		DSN:          cfg.DSN,
		MaxOpenConns: int32(cfg.MaxOpenConns),
		MaxIdleConns: int32(cfg.MaxIdleConns),
	})
	if err != nil {
		return nil, err
	}
	slog.Info("database connected successfully")

	slog.Info("running database migrations")
	if err := repo.Migrate(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return repo, nil
}

// sheetsOpener selects the spreadsheet backend
func sheetsOpener(cfg config.SheetsConfig) leaderboard.Opener {
	switch cfg.Backend {
	case config.SheetsMemory:
		doc := sheets.NewMemoryDocument()
		return func(ctx context.Context) (sheets.Document, error) {
			return doc, nil
		}
	case config.SheetsDisabled:
		return func(ctx context.Context) (sheets.Document, error) {
			return nil, errSheetsDisabled
		}
	default:
		return func(ctx context.Context) (sheets.Document, error) {
			return sheets.OpenGoogle(ctx, sheets.GoogleConfig{
				SpreadsheetID:       cfg.SpreadsheetID,
				ServiceAccountEmail: cfg.ServiceAccountEmail,
				PrivateKey:          cfg.PrivateKey,
			})
		}
	}
}
