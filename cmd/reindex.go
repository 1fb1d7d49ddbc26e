package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/adou/portfolio-api/internal/app"
	"github.com/adou/portfolio-api/internal/config"
)

// runReindex re-embeds every answered entry. Used after changing the
// embedding model or recovering from a string of embedding failures.
func runReindex() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = config.ValidateAPIKey(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	ok, skipped, err := a.Indexer.ReindexAll(ctx)
	if err != nil {
		return fmt.Errorf("reindexing: %w", err)
	}

	logger.Info("reindex complete", "indexed", ok, "skipped", skipped)
	if skipped > 0 {
		return fmt.Errorf("%d entries failed to embed, rerun reindex to retry", skipped)
	}
	return nil
}
