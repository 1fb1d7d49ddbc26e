package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adou/portfolio-api/db"
	"github.com/adou/portfolio-api/internal/config"
	"github.com/adou/portfolio-api/internal/qa"
)

// runSeed loads the starter question bank. Reseeding is safe: existing
// questions keep their answers, only category, sources, and weight refresh.
// No AI provider is needed, so this connects to the database directly
// instead of going through full application setup.
func runSeed() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	logger := slog.Default()
	n, err := qa.Seed(ctx, pool, logger)
	if err != nil {
		return fmt.Errorf("seeding questions: %w", err)
	}

	logger.Info("seed complete", "questions", n)
	return nil
}
