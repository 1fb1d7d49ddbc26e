package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/adou/portfolio-api/internal/qa"
)

// Retriever answers free-text retrieval queries. *qa.Retriever satisfies this.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]qa.SearchResult, error)
}

// searchHandler serves GET|POST /api/v1/search.
type searchHandler struct {
	retriever Retriever
	logger    *slog.Logger
}

type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

type searchItem struct {
	Entry      entryJSON `json:"entry"`
	Similarity float64   `json:"similarity"`
}

// search accepts the query either as URL parameters (GET: ?q=&k=) or as a
// JSON body (POST). Results are ranked best-first.
func (h *searchHandler) search(w http.ResponseWriter, r *http.Request) {
	var query string
	var k int

	if r.Method == http.MethodPost {
		var req searchRequest
		if err := decodeJSON(w, r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body", h.logger)
			return
		}
		query, k = req.Query, req.K
	} else {
		params := r.URL.Query()
		query = params.Get("q")
		k, _ = strconv.Atoi(params.Get("k"))
	}

	results, err := h.retriever.Search(r.Context(), query, k)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	items := make([]searchItem, len(results))
	for i, res := range results {
		items[i] = searchItem{
			Entry:      toEntryJSON(res.Entry),
			Similarity: res.Similarity,
		}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}
