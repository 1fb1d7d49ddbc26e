package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/adou/portfolio-api/internal/qa"
)

// EntryStore is the knowledge-base surface the handlers need.
// *qa.Store satisfies this; tests substitute their own.
type EntryStore interface {
	Create(ctx context.Context, category, question string, sources []string, weight float64) (*qa.Entry, error)
	Entry(ctx context.Context, id uuid.UUID) (*qa.Entry, error)
	Update(ctx context.Context, id uuid.UUID, fields qa.UpdateFields) (*qa.Entry, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, query string, page, pageSize int) ([]*qa.Entry, int, error)
}

// Curator drives the answer workflow. *qa.Curator satisfies this.
type Curator interface {
	NextQuestion(ctx context.Context) (*qa.Entry, qa.Progress, error)
	SubmitAnswer(ctx context.Context, id uuid.UUID, text string) (bool, error)
}

// Indexer maintains the vector table. *qa.Indexer satisfies this.
type Indexer interface {
	OnAnswerChanged(ctx context.Context, entry *qa.Entry, previousAnswer *string) (bool, error)
	DeleteVector(ctx context.Context, qaID uuid.UUID) error
}

// embeddingWarning is surfaced to clients when a write succeeded but the
// vector could not be refreshed.
const embeddingWarning = "saved, but embedding failed; retrieval may be degraded until the next reindex"

// entryJSON is the wire shape of a knowledge entry.
type entryJSON struct {
	ID        uuid.UUID `json:"id"`
	Category  string    `json:"category"`
	Question  string    `json:"question"`
	Sources   []string  `json:"sources"`
	Weight    float64   `json:"weight"`
	Answer    *string   `json:"answer"`
	Answered  bool      `json:"answered"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toEntryJSON(e *qa.Entry) entryJSON {
	return entryJSON{
		ID:        e.ID,
		Category:  e.Category,
		Question:  e.Question,
		Sources:   e.Sources,
		Weight:    e.Weight,
		Answer:    e.Answer,
		Answered:  e.Answered(),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

// qaHandler serves entry CRUD and the curation workflow.
type qaHandler struct {
	store   EntryStore
	curator Curator
	indexer Indexer
	logger  *slog.Logger
}

// parseIDParam extracts and validates the {id} path parameter.
// Writes a 400 response and returns false on failure.
func parseIDParam(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "id must be a UUID", logger)
		return uuid.Nil, false
	}
	return id, true
}

// list handles GET /api/v1/qa.
func (h *qaHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))

	entries, total, err := h.store.List(r.Context(), q.Get("q"), page, pageSize)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	items := make([]entryJSON, len(entries))
	for i, e := range entries {
		items[i] = toEntryJSON(e)
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": total,
	})
}

type createRequest struct {
	Category string   `json:"category"`
	Question string   `json:"question"`
	Sources  []string `json:"sources"`
	Weight   float64  `json:"weight"`
}

// create handles POST /api/v1/qa.
func (h *qaHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body", h.logger)
		return
	}

	entry, err := h.store.Create(r.Context(), req.Category, req.Question, req.Sources, req.Weight)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusCreated, toEntryJSON(entry))
}

// get handles GET /api/v1/qa/{id}.
func (h *qaHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, h.logger)
	if !ok {
		return
	}
	entry, err := h.store.Entry(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, toEntryJSON(entry))
}

type updateRequest struct {
	Category string   `json:"category"`
	Question string   `json:"question"`
	Sources  []string `json:"sources"`
	Weight   float64  `json:"weight"`
	Answer   string   `json:"answer"`
}

type updateResponse struct {
	Entry    entryJSON `json:"entry"`
	Embedded bool      `json:"embedded"`
	Warn     string    `json:"warn,omitempty"`
}

// update handles PUT /api/v1/qa/{id}. A changed answer re-indexes the entry;
// a cleared answer drops its vector. Indexing failure degrades, never fails
// the update.
func (h *qaHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, h.logger)
	if !ok {
		return
	}
	var req updateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body", h.logger)
		return
	}

	before, err := h.store.Entry(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	entry, err := h.store.Update(r.Context(), id, qa.UpdateFields{
		Category: req.Category,
		Question: req.Question,
		Sources:  req.Sources,
		Weight:   req.Weight,
		Answer:   req.Answer,
	})
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	resp := updateResponse{Entry: toEntryJSON(entry)}
	embedded, err := h.indexer.OnAnswerChanged(r.Context(), entry, before.Answer)
	if err != nil {
		h.logger.Warn("re-indexing after update failed", "id", id, "error", err)
		resp.Warn = embeddingWarning
	} else {
		resp.Embedded = embedded
		if !embedded && entry.Answer != nil {
			resp.Warn = embeddingWarning
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}

// remove handles DELETE /api/v1/qa/{id}. The vector goes first so no search
// can rank an entry that is about to vanish.
func (h *qaHandler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, h.logger)
	if !ok {
		return
	}
	if err := h.indexer.DeleteVector(r.Context(), id); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// next handles GET /api/v1/qa/next: the curation queue head plus progress.
func (h *qaHandler) next(w http.ResponseWriter, r *http.Request) {
	entry, progress, err := h.curator.NextQuestion(r.Context())
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	resp := map[string]any{
		"question": nil,
		"progress": progress,
	}
	if entry != nil {
		resp["question"] = toEntryJSON(entry)
	}
	WriteJSON(w, http.StatusOK, resp)
}

type answerRequest struct {
	Answer string `json:"answer"`
}

type answerResponse struct {
	OK       bool   `json:"ok"`
	Embedded bool   `json:"embedded"`
	Warn     string `json:"warn,omitempty"`
}

// answer handles POST /api/v1/qa/{id}/answer.
func (h *qaHandler) answer(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, h.logger)
	if !ok {
		return
	}
	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body", h.logger)
		return
	}

	embedded, err := h.curator.SubmitAnswer(r.Context(), id, req.Answer)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	resp := answerResponse{OK: true, Embedded: embedded}
	if !embedded {
		resp.Warn = embeddingWarning
	}
	WriteJSON(w, http.StatusOK, resp)
}
