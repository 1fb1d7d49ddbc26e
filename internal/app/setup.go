package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adou/portfolio-api/db"
	"github.com/adou/portfolio-api/internal/chat"
	"github.com/adou/portfolio-api/internal/config"
	"github.com/adou/portfolio-api/internal/contact"
	"github.com/adou/portfolio-api/internal/observability"
	"github.com/adou/portfolio-api/internal/qa"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup. Call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.SetupTracing(ctx, observability.Config{
			Endpoint:    cfg.OTLPEndpoint,
			Environment: cfg.Environment,
			ServiceName: cfg.ServiceName,
		})
		if err != nil {
			return nil, fmt.Errorf("setting up tracing: %w", err)
		}
		a.traceCleanup = shutdown
	}

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	a.Embedder = googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if a.Embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}

	a.Model = genkit.LookupModel(g, cfg.FullModelName())
	if a.Model == nil {
		return nil, fmt.Errorf("model %q not found", cfg.FullModelName())
	}

	if err := provideKnowledge(a, logger); err != nil {
		return nil, err
	}

	composer, err := chat.NewComposer(chat.Config{
		Genkit:    g,
		Model:     a.Model,
		Retriever: a.Retriever,
		Logger:    logger.With("component", "composer"),
		OwnerName: cfg.OwnerName,
	})
	if err != nil {
		return nil, fmt.Errorf("creating composer: %w", err)
	}
	a.Composer = composer

	if cfg.ContactEnabled() {
		mailer, err := contact.NewResendMailer(cfg.ResendAPIKey, cfg.ContactFrom, cfg.ContactTo)
		if err != nil {
			return nil, fmt.Errorf("creating mailer: %w", err)
		}
		a.Mailer = mailer
	} else {
		logger.Info("contact form disabled, mailer not configured")
	}

	return a, nil
}

// provideDBPool runs migrations and creates the PostgreSQL connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the Google AI plugin.
// Call ordering in Setup ensures tracing is attached first.
func provideGenkit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit")
	}
	logger.Info("initialized Genkit", "model", cfg.ModelName, "embedder", cfg.EmbedderModel)
	return g, nil
}

// provideKnowledge builds the knowledge store and everything layered on it.
func provideKnowledge(a *App, logger *slog.Logger) error {
	store, err := qa.NewStore(a.Pool, logger.With("component", "store"))
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	a.Store = store

	indexer, err := qa.NewIndexer(a.Pool, a.Embedder, logger.With("component", "indexer"))
	if err != nil {
		return fmt.Errorf("creating indexer: %w", err)
	}
	a.Indexer = indexer

	retriever, err := qa.NewRetriever(a.Pool, a.Embedder, logger.With("component", "retriever"))
	if err != nil {
		return fmt.Errorf("creating retriever: %w", err)
	}
	a.Retriever = retriever

	curator, err := qa.NewCurator(store, indexer, logger.With("component", "curator"))
	if err != nil {
		return fmt.Errorf("creating curator: %w", err)
	}
	a.Curator = curator

	return nil
}
