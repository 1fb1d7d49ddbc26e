package qa

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// DefaultTopK is the result count used when the caller passes k <= 0.
	DefaultTopK = 6

	// MaxTopK caps a single search.
	MaxTopK = 20
)

// Retriever answers free-text queries with the most relevant answered entries.
//
// Primary path is vector similarity over qa_vectors. When the embedding
// provider is unavailable the Retriever falls back to case-insensitive
// substring matching; an empty semantic result set is NOT a failure and does
// not trigger the fallback. Strict primary/fallback, first success wins;
// the two scores are never blended.
type Retriever struct {
	pool     *pgxpool.Pool
	embedder ai.Embedder
	logger   *slog.Logger
}

// NewRetriever creates a Retriever.
func NewRetriever(pool *pgxpool.Pool, embedder ai.Embedder, logger *slog.Logger) (*Retriever, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{pool: pool, embedder: embedder, logger: logger}, nil
}

// Search returns the k most relevant answered entries for the query.
// An empty or whitespace-only query yields an empty result, not an error.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}, nil
	}
	if k <= 0 {
		k = DefaultTopK
	}
	if k > MaxTopK {
		k = MaxTopK
	}

	vec, err := embedText(ctx, r.embedder, query)
	if err != nil {
		r.logger.Warn("query embedding failed, falling back to keyword search",
			"error", err)
		return r.keyword(ctx, query, k)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.category, q.question, q.sources, q.weight, q.answer,
		        q.created_at, q.updated_at,
		        1 - (v.embedding <=> $1) AS similarity
		 FROM qa_vectors v
		 JOIN about_qa q ON q.id = v.qa_id
		 WHERE q.answer IS NOT NULL
		 ORDER BY v.embedding <=> $1 ASC
		 LIMIT $2`,
		vec, k,
	)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// keyword is the degraded path for embedding-provider outages: substring
// match over question and answer, most-recently-updated first, each hit
// scored with the fixed KeywordSimilarity sentinel.
func (r *Retriever) keyword(ctx context.Context, query string, k int) ([]SearchResult, error) {
	pattern := "%" + escapeLike(query) + "%"

	rows, err := r.pool.Query(ctx,
		`SELECT `+entryCols+`
		 FROM about_qa
		 WHERE answer IS NOT NULL
		   AND (question ILIKE $1 OR answer ILIKE $1)
		 ORDER BY updated_at DESC
		 LIMIT $2`,
		pattern, k,
	)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	entries, err := pgx.CollectRows(rows, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	results := make([]SearchResult, len(entries))
	for i, e := range entries {
		results[i] = SearchResult{Entry: e, Similarity: KeywordSimilarity}
	}
	return results, nil
}

// scanResults reads SearchResults from rows carrying entryCols + similarity.
func scanResults(rows pgx.Rows) ([]SearchResult, error) {
	results := []SearchResult{}
	for rows.Next() {
		e := &Entry{}
		var similarity float64
		if err := rows.Scan(
			&e.ID, &e.Category, &e.Question, &e.Sources,
			&e.Weight, &e.Answer, &e.CreatedAt, &e.UpdatedAt,
			&similarity,
		); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		if e.Sources == nil {
			e.Sources = []string{}
		}
		results = append(results, SearchResult{Entry: e, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}
	return results, nil
}
