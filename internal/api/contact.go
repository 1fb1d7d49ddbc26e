package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/adou/portfolio-api/internal/contact"
)

// contactHandler serves POST /api/v1/contact.
type contactHandler struct {
	mailer contact.Mailer
	logger *slog.Logger
}

// send validates the submission and forwards it to the mailer.
func (h *contactHandler) send(w http.ResponseWriter, r *http.Request) {
	var sub contact.Submission
	if err := decodeJSON(w, r, &sub); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body", h.logger)
		return
	}
	if err := sub.Validate(); err != nil {
		var fe *contact.FieldError
		if errors.As(err, &fe) {
			WriteError(w, http.StatusBadRequest, "invalid_"+fe.Field, fe.Error(), h.logger)
			return
		}
		WriteError(w, http.StatusBadRequest, "invalid_submission", "invalid submission", h.logger)
		return
	}

	if err := h.mailer.Send(r.Context(), sub); err != nil {
		h.logger.Error("contact delivery failed", "error", err)
		WriteError(w, http.StatusBadGateway, "delivery_failed", "could not deliver your message, please try again later", h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
