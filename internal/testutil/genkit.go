package testutil

import (
	"context"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// AISetup bundles a Genkit instance with registered mock providers.
type AISetup struct {
	Genkit   *genkit.Genkit
	Model    ai.Model
	LLM      *MockLLM
	Embedder ai.Embedder
	MockEmb  *MockEmbedder
}

// SetupAI initializes Genkit with a mock model and mock embedder registered.
// No plugins or API keys are needed; everything is deterministic and local.
func SetupAI(t *testing.T, dim int, llmFallback string) *AISetup {
	t.Helper()

	g := genkit.Init(context.Background())

	llm := NewMockLLM(llmFallback)
	model := llm.RegisterModel(g)

	emb := NewMockEmbedder(dim)
	embedder := emb.RegisterEmbedder(g)

	return &AISetup{
		Genkit:   g,
		Model:    model,
		LLM:      llm,
		Embedder: embedder,
		MockEmb:  emb,
	}
}
