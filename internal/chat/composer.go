// Package chat composes grounded first-person answers to visitor questions.
//
// The Composer retrieves the most relevant curated Q&A facts for the incoming
// message, injects them into the system prompt, and asks the model to answer
// as the site owner. Retrieval failures degrade to an unguided answer;
// generation failures are hard errors.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"google.golang.org/genai"

	"github.com/adou/portfolio-api/internal/qa"
)

const (
	// FactCount is how many retrieved facts are offered to the model.
	FactCount = 6

	// retrievalTimeout limits how long fact retrieval can take per request.
	// A slow knowledge base should never stall the whole chat turn.
	retrievalTimeout = 5 * time.Second

	// temperature keeps answers factual rather than creative.
	temperature float32 = 0.3

	// fallbackMessage is returned when the model produces an empty response.
	fallbackMessage = "Sorry, no response."

	// MaxHistoryMessages caps how much prior conversation is replayed to the
	// model. Older turns are dropped silently.
	MaxHistoryMessages = 20
)

// ErrGenerationFailed indicates the model call failed outright.
var ErrGenerationFailed = errors.New("generation failed")

// Role identifies a conversation participant.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one turn of visitor conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Retriever supplies curated facts for a visitor question.
// *qa.Retriever satisfies this; tests substitute their own.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]qa.SearchResult, error)
}

// Config contains all required parameters for the Composer.
type Config struct {
	Genkit    *genkit.Genkit
	Model     ai.Model
	Retriever Retriever
	Logger    *slog.Logger

	// OwnerName personalizes the persona prompt. Optional.
	OwnerName string
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Model == nil {
		return errors.New("model is required")
	}
	if cfg.Retriever == nil {
		return errors.New("retriever is required")
	}
	return nil
}

// Composer answers visitor questions in the site owner's voice.
// It is stateless and safe for concurrent use.
type Composer struct {
	g         *genkit.Genkit
	model     ai.Model
	retriever Retriever
	logger    *slog.Logger
	ownerName string
}

// NewComposer creates a Composer from cfg.
func NewComposer(cfg Config) (*Composer, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid composer config: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{
		g:         cfg.Genkit,
		model:     cfg.Model,
		retriever: cfg.Retriever,
		logger:    logger,
		ownerName: cfg.OwnerName,
	}, nil
}

// Compose answers the conversation using retrieved facts. The most recent
// user-authored message is the retrieval query; when the conversation holds
// none (or only a blank one), composition proceeds with zero facts instead of
// failing. The full conversation is replayed to the model either way.
// A retrieval failure logs a warning and proceeds without facts; an empty
// model response yields the fixed fallback message.
func (c *Composer) Compose(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", &qa.ValidationError{Field: "messages", Reason: "must not be empty"}
	}

	var facts []qa.SearchResult
	if query := lastUserMessage(messages); query != "" {
		facts = c.retrieve(ctx, query)
	}

	modelMessages := buildMessages(messages)

	resp, err := genkit.Generate(ctx, c.g,
		ai.WithModel(c.model),
		ai.WithSystem(systemPrompt(c.ownerName, facts)),
		ai.WithMessages(modelMessages...),
		ai.WithConfig(&genai.GenerateContentConfig{
			Temperature: genai.Ptr(temperature),
		}),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		c.logger.Warn("model returned empty response")
		return fallbackMessage, nil
	}
	return text, nil
}

// retrieve fetches the top facts for the message, tolerating failure.
func (c *Composer) retrieve(ctx context.Context, message string) []qa.SearchResult {
	ctx, cancel := context.WithTimeout(ctx, retrievalTimeout)
	defer cancel()

	facts, err := c.retriever.Search(ctx, message, FactCount)
	if err != nil {
		c.logger.Warn("fact retrieval failed, composing without facts", "error", err)
		return nil
	}
	return facts
}

// lastUserMessage returns the most recent user-authored message, trimmed.
// Empty string when the conversation holds no user turn.
func lastUserMessage(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return strings.TrimSpace(messages[i].Content)
		}
	}
	return ""
}

// buildMessages converts the conversation into model messages, keeping only
// the most recent MaxHistoryMessages turns.
func buildMessages(messages []Message) []*ai.Message {
	if len(messages) > MaxHistoryMessages {
		messages = messages[len(messages)-MaxHistoryMessages:]
	}

	out := make([]*ai.Message, 0, len(messages))
	for _, m := range messages {
		part := ai.NewTextPart(m.Content)
		if m.Role == RoleModel {
			out = append(out, ai.NewModelMessage(part))
		} else {
			out = append(out, ai.NewUserMessage(part))
		}
	}
	return out
}

// systemPrompt renders the persona instructions with the facts block.
func systemPrompt(ownerName string, facts []qa.SearchResult) string {
	owner := "the site owner"
	if ownerName != "" {
		owner = ownerName
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `You are %s, answering questions from a visitor to your portfolio website.

Rules:
- Speak in the first person ("I"), as yourself.
- Be factual and concise: 3 to 6 sentences.
- Prefer the facts below over anything else. Use concrete numbers, tools, and dates from them when available.
- If the question is outside your work, skills, or services, say so briefly and redirect to what you can help with.
- Never invent projects, clients, or numbers that are not in the facts.
`, owner)

	if len(facts) == 0 {
		sb.WriteString("\nNo curated facts matched this question. Answer only from the rules above and say when you are unsure.\n")
		return sb.String()
	}

	sb.WriteString("\nFacts about you:\n")
	for i, f := range facts {
		answer := ""
		if f.Entry.Answer != nil {
			answer = *f.Entry.Answer
		}
		fmt.Fprintf(&sb, "%d. [%s] %s — %s\n", i+1, f.Entry.Category, f.Entry.Question, answer)
	}
	return sb.String()
}
