// cmd/service/main.go
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

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"gitsync-standup/internal/aggregate"
	"gitsync-standup/internal/api"
	"gitsync-standup/internal/config"
	"gitsync-standup/internal/database"
	"gitsync-standup/internal/github"
	"gitsync-standup/internal/maintenance"
	"gitsync-standup/internal/pipeline"
	"gitsync-standup/internal/registry"
	"gitsync-standup/internal/summarize"
	"gitsync-standup/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Application startup error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Initialize structured logger
	logLevel := new(slog.LevelVar)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// 2. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setLogLevel(cfg.LogLevel, logLevel)
	logger.Info("Configuration loaded successfully")

	loc, err := time.LoadLocation(cfg.PresentationTimezone)
	if err != nil {
		return fmt.Errorf("invalid presentation timezone %q: %w", cfg.PresentationTimezone, err)
	}

	// 3. Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 4. Initialize database connection and run migrations
	dbpool, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbpool.Close()
	logger.Info("Database connection established")

	if err := runMigrations(cfg.DBURL); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info("Database migrations applied successfully")

	// 5. Initialize application components
	queries := database.New(dbpool)
	reg := registry.New(queries, logger)
	vault, err := registry.NewVault(queries, cfg.TokenCipherKeyBytes, logger)
	if err != nil {
		return fmt.Errorf("failed to create token vault: %w", err)
	}
	ghClient := github.NewClient(logger)
	gemini := summarize.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	summarizer := summarize.NewSummarizer(gemini, cfg.PromptCommitCeiling, cfg.SummarizeTimeout, logger)
	chat := telegram.NewClient(cfg.TelegramBotToken, logger)
	pl := pipeline.New(queries, reg, vault, summarizer, chat, ghClient, loc, cfg.DeliveryTimeout, logger)
	agg := aggregate.New(queries, loc)

	// 6. Start the retention janitor in a separate goroutine
	janitor := maintenance.NewJanitor(queries, cfg.RetentionDays, cfg.RetentionInterval, logger)
	go janitor.Start(ctx)

	// 7. Start the HTTP server
	router := api.NewRouter(pl, reg, vault, agg, chat, ghClient, cfg.AppBaseURL, cfg.BotUsername, logger)
	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 8. Wait for shutdown signal or server failure
	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		logger.Info("Shutdown signal received. Exiting.")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	return nil
}

func runMigrations(dbURL string) error {
	m, err := migrate.New("file://migrations", dbURL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
