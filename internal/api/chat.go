package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/adou/portfolio-api/internal/chat"
)

// generateTimeout bounds a single composition call end to end.
const generateTimeout = 60 * time.Second

// Composer produces a grounded answer from a conversation.
// *chat.Composer satisfies this.
type Composer interface {
	Compose(ctx context.Context, messages []chat.Message) (string, error)
}

// chatHandler serves POST /api/v1/chat.
type chatHandler struct {
	composer Composer
	logger   *slog.Logger
}

type chatRequest struct {
	Messages []chat.Message `json:"messages"`
}

type chatResponse struct {
	Content string `json:"content"`
}

// send composes an answer to the conversation. The composer grounds itself on
// the most recent user-authored message; a conversation without one is still
// answered, just without retrieved facts.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body", h.logger)
		return
	}
	if len(req.Messages) == 0 {
		WriteError(w, http.StatusBadRequest, "invalid_messages", "messages must not be empty", h.logger)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), generateTimeout)
	defer cancel()

	content, err := h.composer.Compose(ctx, req.Messages)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, chatResponse{Content: content})
}
