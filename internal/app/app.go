// Package app wires the application together.
//
// Setup builds every component in dependency order: tracing, database pool
// (with migrations), Genkit with the Google AI plugin, then the knowledge
// store, indexer, retriever, curator, composer, and mailer. App is the
// container handed to the entry points; Close releases everything in
// reverse order.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adou/portfolio-api/internal/chat"
	"github.com/adou/portfolio-api/internal/config"
	"github.com/adou/portfolio-api/internal/contact"
	"github.com/adou/portfolio-api/internal/qa"
)

// App is the core application container.
type App struct {
	Config *config.Config

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Model    ai.Model
	Pool     *pgxpool.Pool

	Store     *qa.Store
	Indexer   *qa.Indexer
	Retriever *qa.Retriever
	Curator   *qa.Curator
	Composer  *chat.Composer

	// Mailer is nil when the contact form is not configured.
	Mailer contact.Mailer

	logger       *slog.Logger
	traceCleanup func(context.Context) error
}

// Close releases all resources: flushes pending trace spans, then closes
// the database pool. Safe to call on a partially initialized App.
func (a *App) Close() error {
	logger := a.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("shutting down application")

	if a.traceCleanup != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.traceCleanup(ctx); err != nil {
			logger.Warn("flushing tracer", "error", err)
		}
	}

	if a.Pool != nil {
		a.Pool.Close()
		logger.Info("database pool closed")
	}

	return nil
}
