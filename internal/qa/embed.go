package qa

import (
	"context"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"
	"google.golang.org/genai"
)

const (
	// VectorDimension is the width of the qa_vectors embedding column.
	// gemini-embedding-001 supports truncation to 768 via OutputDimensionality;
	// the migration in db/migrations must match this value.
	VectorDimension int32 = 768

	// EmbedTimeout bounds a single embedding call so a stuck provider
	// degrades to the keyword fallback instead of hanging the request.
	EmbedTimeout = 15 * time.Second
)

// embedText generates the vector for a piece of text.
// Indexed content is always question + "\n" + answer; queries are embedded raw.
func embedText(ctx context.Context, embedder ai.Embedder, text string) (pgvector.Vector, error) {
	dim := VectorDimension
	ctx, cancel := context.WithTimeout(ctx, EmbedTimeout)
	defer cancel()

	resp, err := embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   []*ai.Document{ai.DocumentFromText(text, nil)},
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("embedding text: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, fmt.Errorf("empty embedding response")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}

// indexText is the canonical text embedded for an answered entry.
func indexText(question, answer string) string {
	return question + "\n" + answer
}
