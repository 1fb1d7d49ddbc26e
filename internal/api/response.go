package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/adou/portfolio-api/internal/qa"
)

// maxBodyBytes caps request bodies; the largest legitimate payload is a
// long-form answer well under this.
const maxBodyBytes = 1 << 20

// WriteJSON writes a JSON response with the given status code.
// Uses buffer-first strategy to ensure headers are only sent after successful
// encoding. This allows returning a proper 500 error if JSON encoding fails.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Content-Type-Options", "nosniff") // Prevent MIME type sniffing attacks
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Log at debug level - client disconnects are common and expected
		slog.Debug("failed to write response body", "error", err)
	}
}

// errorBody is the fixed error envelope for all non-2xx responses.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response with the fixed envelope.
func WriteError(w http.ResponseWriter, status int, code, message string, logger *slog.Logger) {
	if logger != nil && status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "code", code)
	}
	WriteJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// writeDomainError maps a domain error onto the HTTP taxonomy.
// Internal details of unexpected errors never reach the client.
func writeDomainError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var ve *qa.ValidationError
	switch {
	case errors.As(err, &ve):
		WriteError(w, http.StatusBadRequest, "invalid_"+ve.Field, ve.Error(), logger)
	case errors.Is(err, qa.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "entry not found", logger)
	case errors.Is(err, qa.ErrDuplicateQuestion):
		WriteError(w, http.StatusConflict, "duplicate_question", "question already exists", logger)
	default:
		if logger != nil {
			logger.Error("internal error", "error", err)
		}
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error", logger)
	}
}

// decodeJSON reads a size-limited JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decoding request body: %w", err)
	}
	// Reject trailing garbage after the JSON value
	if dec.More() {
		return fmt.Errorf("decoding request body: unexpected trailing data")
	}
	_, _ = io.Copy(io.Discard, r.Body)
	return nil
}
