package qa

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Curator drives the human workflow of answering unanswered questions one at
// a time, highest weight first. Skipping is a pure re-read of NextQuestion;
// no per-session cursor is kept.
type Curator struct {
	store   *Store
	indexer *Indexer
	logger  *slog.Logger
}

// NewCurator creates a Curator.
func NewCurator(store *Store, indexer *Indexer, logger *slog.Logger) (*Curator, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if indexer == nil {
		return nil, fmt.Errorf("indexer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Curator{store: store, indexer: indexer, logger: logger}, nil
}

// NextQuestion returns the next unanswered entry (nil when done) together
// with overall completion progress.
func (c *Curator) NextQuestion(ctx context.Context) (*Entry, Progress, error) {
	next, err := c.store.NextUnanswered(ctx)
	if err != nil {
		return nil, Progress{}, err
	}
	progress, err := c.store.Progress(ctx)
	if err != nil {
		return nil, Progress{}, err
	}
	return next, progress, nil
}

// SubmitAnswer saves an answer and re-indexes the entry.
//
// The answer write is authoritative: an indexing failure never rolls it back
// and never fails the call. indexed=false with a nil error means "saved, but
// the vector is stale until the next re-embed".
func (c *Curator) SubmitAnswer(ctx context.Context, id uuid.UUID, text string) (indexed bool, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return false, &ValidationError{Field: "answer", Reason: "must not be empty"}
	}

	before, err := c.store.Entry(ctx, id)
	if err != nil {
		return false, err
	}

	entry, err := c.store.SetAnswer(ctx, id, text)
	if err != nil {
		return false, err
	}

	indexed, err = c.indexer.OnAnswerChanged(ctx, entry, before.Answer)
	if err != nil {
		// The answer is saved; report success with a stale vector.
		c.logger.Warn("indexing after answer save failed", "id", id, "error", err)
		return false, nil
	}
	return indexed, nil
}
