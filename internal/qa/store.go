package qa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// entryCols is the standard SELECT column list for scanEntries.
const entryCols = `id, category, question, sources, weight, answer, created_at, updated_at`

const (
	// DefaultPageSize is the page size for List when none is given.
	DefaultPageSize = 20

	// MaxPageSize caps a single List page.
	MaxPageSize = 200
)

// Store manages the about_qa table: the durable question/answer knowledge base.
// Vector state lives in qa_vectors and is owned by the Indexer, never the Store.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a knowledge Store.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Create inserts a new unanswered entry.
// Category and question are trimmed and must be non-empty; the question must be
// unique across all entries (ErrDuplicateQuestion on conflict).
func (s *Store) Create(ctx context.Context, category, question string, sources []string, weight float64) (*Entry, error) {
	category = strings.TrimSpace(category)
	question = strings.TrimSpace(question)
	if category == "" {
		return nil, &ValidationError{Field: "category", Reason: "must not be empty"}
	}
	if question == "" {
		return nil, &ValidationError{Field: "question", Reason: "must not be empty"}
	}
	if weight <= 0 {
		weight = 1
	}
	if sources == nil {
		sources = []string{}
	}

	rows, err := s.pool.Query(ctx,
		`INSERT INTO about_qa (category, question, sources, weight)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+entryCols,
		category, question, sources, weight,
	)
	if err != nil {
		return nil, fmt.Errorf("creating entry: %w", mapUniqueViolation(err))
	}
	entry, err := pgx.CollectExactlyOneRow(rows, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("creating entry: %w", mapUniqueViolation(err))
	}
	s.logger.Debug("created entry", "id", entry.ID, "category", entry.Category)
	return entry, nil
}

// Entry returns a single entry by ID. Returns ErrNotFound if absent.
func (s *Store) Entry(ctx context.Context, id uuid.UUID) (*Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+entryCols+` FROM about_qa WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("getting entry %s: %w", id, err)
	}
	entry, err := pgx.CollectExactlyOneRow(rows, scanEntry)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting entry %s: %w", id, err)
	}
	return entry, nil
}

// UpdateFields is the full field set applied by Update.
// An empty Answer (after trimming) is normalized to NULL, marking the entry
// unanswered again.
type UpdateFields struct {
	Category string
	Question string
	Sources  []string
	Weight   float64
	Answer   string
}

// Update replaces every mutable field of an entry and bumps updated_at.
// Returns ErrNotFound for an unknown ID and ValidationError when the resulting
// category or question would be empty.
func (s *Store) Update(ctx context.Context, id uuid.UUID, fields UpdateFields) (*Entry, error) {
	category := strings.TrimSpace(fields.Category)
	question := strings.TrimSpace(fields.Question)
	answer := strings.TrimSpace(fields.Answer)
	if category == "" {
		return nil, &ValidationError{Field: "category", Reason: "must not be empty"}
	}
	if question == "" {
		return nil, &ValidationError{Field: "question", Reason: "must not be empty"}
	}
	weight := fields.Weight
	if weight <= 0 {
		weight = 1
	}
	sources := fields.Sources
	if sources == nil {
		sources = []string{}
	}

	var answerArg *string
	if answer != "" {
		answerArg = &answer
	}

	rows, err := s.pool.Query(ctx,
		`UPDATE about_qa
		 SET category = $2, question = $3, sources = $4, weight = $5, answer = $6,
		     updated_at = now()
		 WHERE id = $1
		 RETURNING `+entryCols,
		id, category, question, sources, weight, answerArg,
	)
	if err != nil {
		return nil, fmt.Errorf("updating entry %s: %w", id, mapUniqueViolation(err))
	}
	entry, err := pgx.CollectExactlyOneRow(rows, scanEntry)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating entry %s: %w", id, mapUniqueViolation(err))
	}
	return entry, nil
}

// SetAnswer writes just the answer column (trimmed, must be non-empty).
// Used by the curation workflow; full edits go through Update.
func (s *Store) SetAnswer(ctx context.Context, id uuid.UUID, answer string) (*Entry, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, &ValidationError{Field: "answer", Reason: "must not be empty"}
	}

	rows, err := s.pool.Query(ctx,
		`UPDATE about_qa SET answer = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+entryCols,
		id, answer,
	)
	if err != nil {
		return nil, fmt.Errorf("saving answer for %s: %w", id, err)
	}
	entry, err := pgx.CollectExactlyOneRow(rows, scanEntry)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("saving answer for %s: %w", id, err)
	}
	return entry, nil
}

// Delete removes an entry. The caller (Indexer) must remove any vector row
// first; the schema's ON DELETE CASCADE backstops a missed cleanup.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM about_qa WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting entry %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.logger.Debug("deleted entry", "id", id)
	return nil
}

// List returns a page of entries ordered by most-recently-updated first,
// optionally filtered by a case-insensitive substring match against question,
// answer, and category. page is 1-indexed. Returns the page and total count.
func (s *Store) List(ctx context.Context, query string, page, pageSize int) ([]*Entry, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	offset := (page - 1) * pageSize

	query = strings.TrimSpace(query)
	pattern := "%" + escapeLike(query) + "%"

	var (
		rows pgx.Rows
		err  error
	)
	if query != "" {
		rows, err = s.pool.Query(ctx,
			`SELECT `+entryCols+`
			 FROM about_qa
			 WHERE question ILIKE $1 OR answer ILIKE $1 OR category ILIKE $1
			 ORDER BY updated_at DESC
			 LIMIT $2 OFFSET $3`,
			pattern, pageSize, offset,
		)
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT `+entryCols+`
			 FROM about_qa
			 ORDER BY updated_at DESC
			 LIMIT $1 OFFSET $2`,
			pageSize, offset,
		)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("listing entries: %w", err)
	}
	entries, err := pgx.CollectRows(rows, scanEntry)
	if err != nil {
		return nil, 0, fmt.Errorf("listing entries: %w", err)
	}

	var total int64
	if query != "" {
		err = s.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM about_qa
			 WHERE question ILIKE $1 OR answer ILIKE $1 OR category ILIKE $1`,
			pattern,
		).Scan(&total)
	} else {
		err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM about_qa`).Scan(&total)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("counting entries: %w", err)
	}

	return entries, int(total), nil
}

// NextUnanswered returns the unanswered entry with the highest weight,
// oldest-created first among ties. Returns (nil, nil) when every entry
// is answered.
func (s *Store) NextUnanswered(ctx context.Context) (*Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+entryCols+`
		 FROM about_qa
		 WHERE answer IS NULL
		 ORDER BY weight DESC, created_at ASC
		 LIMIT 1`)
	if err != nil {
		return nil, fmt.Errorf("finding next unanswered: %w", err)
	}
	entry, err := pgx.CollectExactlyOneRow(rows, scanEntry)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding next unanswered: %w", err)
	}
	return entry, nil
}

// Progress returns answered/total counts with a rounded percentage.
// Pct is 0 when the knowledge base is empty.
func (s *Store) Progress(ctx context.Context) (Progress, error) {
	var answered, total int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FILTER (WHERE answer IS NOT NULL), COUNT(*) FROM about_qa`,
	).Scan(&answered, &total)
	if err != nil {
		return Progress{}, fmt.Errorf("counting progress: %w", err)
	}
	return Progress{
		Answered: answered,
		Total:    total,
		Pct:      progressPct(answered, total),
	}, nil
}

// progressPct computes round(100 * answered / total), 0 for an empty base.
func progressPct(answered, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(answered) / float64(total)))
}

// mapUniqueViolation converts a Postgres unique-violation on the question
// column into ErrDuplicateQuestion so callers can respond with a conflict.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateQuestion
	}
	return err
}

// escapeLike escapes LIKE/ILIKE metacharacters in user-supplied filters.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// scanEntry reads one Entry from a pgx row (standard column set).
func scanEntry(row pgx.CollectableRow) (*Entry, error) {
	e := &Entry{}
	if err := row.Scan(
		&e.ID, &e.Category, &e.Question, &e.Sources,
		&e.Weight, &e.Answer, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("scanning entry: %w", err)
	}
	if e.Sources == nil {
		e.Sources = []string{}
	}
	return e, nil
}
