package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adou/portfolio-api/internal/contact"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger    *slog.Logger
	Store     EntryStore     // Required
	Curator   Curator        // Required
	Indexer   Indexer        // Required
	Retriever Retriever      // Required
	Composer  Composer       // Optional: nil disables /chat
	Mailer    contact.Mailer // Optional: nil disables /contact
	Pool      *pgxpool.Pool  // Optional: nil disables the DB ping in /ready

	CORSOrigins []string // Allowed origins for CORS
	IsDev       bool     // Disables HSTS
	TrustProxy  bool     // Trust X-Real-IP/X-Forwarded-For headers (behind reverse proxy)
	RateRPS     float64  // Rate limiter refill per IP (0 = default 5/sec)
	RateBurst   int      // Rate limiter burst size per IP (0 = default 10)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("entry store is required")
	}
	if cfg.Curator == nil {
		return nil, errors.New("curator is required")
	}
	if cfg.Indexer == nil {
		return nil, errors.New("indexer is required")
	}
	if cfg.Retriever == nil {
		return nil, errors.New("retriever is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	qh := &qaHandler{
		store:   cfg.Store,
		curator: cfg.Curator,
		indexer: cfg.Indexer,
		logger:  logger,
	}

	mux := http.NewServeMux()

	// Knowledge entry CRUD and curation.
	// /qa/next is registered before /qa/{id}; the mux prefers the literal.
	mux.HandleFunc("GET /api/v1/qa", qh.list)
	mux.HandleFunc("POST /api/v1/qa", qh.create)
	mux.HandleFunc("GET /api/v1/qa/next", qh.next)
	mux.HandleFunc("GET /api/v1/qa/{id}", qh.get)
	mux.HandleFunc("PUT /api/v1/qa/{id}", qh.update)
	mux.HandleFunc("DELETE /api/v1/qa/{id}", qh.remove)
	mux.HandleFunc("POST /api/v1/qa/{id}/answer", qh.answer)

	// Retrieval
	sh := &searchHandler{retriever: cfg.Retriever, logger: logger}
	mux.HandleFunc("GET /api/v1/search", sh.search)
	mux.HandleFunc("POST /api/v1/search", sh.search)

	// Chat is only registered if a composer is provided.
	if cfg.Composer != nil {
		ch := &chatHandler{composer: cfg.Composer, logger: logger}
		mux.HandleFunc("POST /api/v1/chat", ch.send)
	}

	// Contact is only registered if a mailer is configured.
	if cfg.Mailer != nil {
		ct := &contactHandler{mailer: cfg.Mailer, logger: logger}
		mux.HandleFunc("POST /api/v1/contact", ct.send)
	}

	// Rate limiter: per-IP token bucket
	rps := cfg.RateRPS
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 10
	}
	rl := newRateLimiter(rps, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log attributes.
	// CORS must be before RateLimit so preflight OPTIONS gets proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Wrap with security headers
	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Use a top-level mux to separate health probes from middleware stack
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
