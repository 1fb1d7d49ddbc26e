package qa

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry is a single question/answer knowledge unit about the site owner.
// Question is the natural key: exactly one entry exists per distinct question.
// Answer == nil means the question is still waiting for curation.
type Entry struct {
	ID        uuid.UUID
	Category  string
	Question  string
	Sources   []string
	Weight    float64
	Answer    *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Answered reports whether the entry has a non-empty answer.
// Only answered entries are eligible for retrieval.
func (e *Entry) Answered() bool {
	return e.Answer != nil
}

// SearchResult pairs an entry with its relevance score.
// Semantic matches carry 1 - cosine_distance; keyword-fallback matches
// carry the fixed KeywordSimilarity sentinel.
type SearchResult struct {
	Entry      *Entry
	Similarity float64
}

// Progress summarizes curation completion.
type Progress struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
	Pct      int `json:"pct"`
}

// KeywordSimilarity is the nominal score assigned to keyword-fallback results.
// It marks "matched by substring, not semantically scored".
const KeywordSimilarity = 0.5

// Sentinel errors for store operations. Check with errors.Is().
var (
	// ErrNotFound indicates the referenced entry does not exist.
	ErrNotFound = errors.New("entry not found")

	// ErrDuplicateQuestion indicates a create would violate question uniqueness.
	ErrDuplicateQuestion = errors.New("question already exists")
)

// ValidationError reports a missing or empty required field.
// It is client-caused and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
