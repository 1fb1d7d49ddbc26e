package qa

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// upsertVectorSQL is the single write path for qa_vectors.
// Insert-or-overwrite on qa_id: concurrent re-embeds of the same entry
// converge on whichever embedding completed last.
const upsertVectorSQL = `INSERT INTO qa_vectors (qa_id, embedding)
	VALUES ($1, $2)
	ON CONFLICT (qa_id) DO UPDATE SET embedding = EXCLUDED.embedding`

// Indexer keeps qa_vectors synchronized with answered entries.
// It is the only component that writes the vector table.
//
// Embedding failures are deliberately non-fatal: the entry write has already
// succeeded by the time the Indexer runs, and is never rolled back. Retrieval
// degrades to keyword search until the next successful re-embed.
type Indexer struct {
	pool     *pgxpool.Pool
	embedder ai.Embedder
	logger   *slog.Logger
}

// NewIndexer creates an Indexer.
func NewIndexer(pool *pgxpool.Pool, embedder ai.Embedder, logger *slog.Logger) (*Indexer, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{pool: pool, embedder: embedder, logger: logger}, nil
}

// OnAnswerChanged reconciles the vector row after an entry's answer changed.
// previousAnswer is the answer value before the write (nil = was unanswered).
//
// Returns indexed=true when the stored vector matches the saved answer,
// including the no-op case of an unchanged answer. An embedding-provider
// failure returns (false, nil): the existing vector (if any) is left in place
// and a warning is logged. Only datastore failures surface as errors.
func (ix *Indexer) OnAnswerChanged(ctx context.Context, entry *Entry, previousAnswer *string) (bool, error) {
	switch {
	case entry.Answer == nil && previousAnswer == nil:
		return false, nil
	case entry.Answer == nil:
		// Answer cleared: drop the vector.
		if err := ix.DeleteVector(ctx, entry.ID); err != nil {
			return false, err
		}
		return false, nil
	case previousAnswer != nil && *previousAnswer == *entry.Answer:
		// Unchanged answer: the stored vector is still current.
		return true, nil
	}

	vec, err := embedText(ctx, ix.embedder, indexText(entry.Question, *entry.Answer))
	if err != nil {
		ix.logger.Warn("embedding failed, vector left stale",
			"id", entry.ID, "error", err)
		return false, nil
	}

	if _, err := ix.pool.Exec(ctx, upsertVectorSQL, entry.ID, vec); err != nil {
		return false, fmt.Errorf("upserting vector for %s: %w", entry.ID, err)
	}
	ix.logger.Debug("indexed entry", "id", entry.ID)
	return true, nil
}

// DeleteVector removes the vector row for an entry, tolerating absence.
// Called before entry deletion so no dangling reference ever exists.
func (ix *Indexer) DeleteVector(ctx context.Context, qaID uuid.UUID) error {
	if _, err := ix.pool.Exec(ctx, `DELETE FROM qa_vectors WHERE qa_id = $1`, qaID); err != nil {
		return fmt.Errorf("deleting vector for %s: %w", qaID, err)
	}
	return nil
}

// ReindexAll rebuilds every answered entry's vector from scratch,
// oldest-updated first. A single embedding failure skips that entry and
// continues; the batch never aborts. Returns (ok, skipped) tallies.
func (ix *Indexer) ReindexAll(ctx context.Context) (ok, skipped int, err error) {
	rows, err := ix.pool.Query(ctx,
		`SELECT `+entryCols+`
		 FROM about_qa
		 WHERE answer IS NOT NULL
		 ORDER BY updated_at ASC`)
	if err != nil {
		return 0, 0, fmt.Errorf("listing answered entries: %w", err)
	}
	entries, err := pgx.CollectRows(rows, scanEntry)
	if err != nil {
		return 0, 0, fmt.Errorf("listing answered entries: %w", err)
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return ok, skipped, ctx.Err()
		}

		vec, embedErr := embedText(ctx, ix.embedder, indexText(entry.Question, *entry.Answer))
		if embedErr != nil {
			ix.logger.Warn("skipping entry, embedding failed",
				"id", entry.ID, "error", embedErr)
			skipped++
			continue
		}
		if _, execErr := ix.pool.Exec(ctx, upsertVectorSQL, entry.ID, vec); execErr != nil {
			return ok, skipped, fmt.Errorf("upserting vector for %s: %w", entry.ID, execErr)
		}
		ok++
	}

	ix.logger.Info("reindex complete", "ok", ok, "skipped", skipped)
	return ok, skipped, nil
}
