package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/adou/portfolio-api/internal/chat"
	"github.com/adou/portfolio-api/internal/contact"
	"github.com/adou/portfolio-api/internal/qa"
)

func TestNewServerValidation(t *testing.T) {
	base := defaultConfig()
	tests := []struct {
		name   string
		mutate func(*ServerConfig)
	}{
		{name: "missing store", mutate: func(c *ServerConfig) { c.Store = nil }},
		{name: "missing curator", mutate: func(c *ServerConfig) { c.Curator = nil }},
		{name: "missing indexer", mutate: func(c *ServerConfig) { c.Indexer = nil }},
		{name: "missing retriever", mutate: func(c *ServerConfig) { c.Retriever = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if _, err := NewServer(cfg); err == nil {
				t.Error("NewServer() should fail")
			}
		})
	}
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, defaultConfig())

	resp := doJSON(t, ts, http.MethodGet, "/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/health status = %d", resp.StatusCode)
	}

	resp = doJSON(t, ts, http.MethodGet, "/ready", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/ready status = %d", resp.StatusCode)
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, defaultConfig())
	resp := doJSON(t, ts, http.MethodGet, "/api/v1/nope", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestChatDisabledWithoutComposer(t *testing.T) {
	ts := newTestServer(t, defaultConfig())
	resp := doJSON(t, ts, http.MethodPost, "/api/v1/chat", `{"messages":[]}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when composer is absent", resp.StatusCode)
	}
}

func TestContactDisabledWithoutMailer(t *testing.T) {
	ts := newTestServer(t, defaultConfig())
	resp := doJSON(t, ts, http.MethodPost, "/api/v1/contact",
		`{"name":"Ada","email":"ada@example.com","message":"Hi"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when mailer is absent", resp.StatusCode)
	}
}

func TestSearchRoute(t *testing.T) {
	cfg := defaultConfig()
	var gotQuery string
	var gotK int
	cfg.Retriever.(*stubRetriever).searchFn = func(_ context.Context, query string, k int) ([]qa.SearchResult, error) {
		gotQuery, gotK = query, k
		return []qa.SearchResult{{Entry: testEntry(true), Similarity: 0.87}}, nil
	}
	ts := newTestServer(t, cfg)

	// GET with URL params
	resp := doJSON(t, ts, http.MethodGet, "/api/v1/search?q=three.js&k=3", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET status = %d", resp.StatusCode)
	}
	if gotQuery != "three.js" || gotK != 3 {
		t.Errorf("Search called with (%q, %d)", gotQuery, gotK)
	}
	body := decodeBody[struct {
		Items []searchItem `json:"items"`
	}](t, resp)
	if len(body.Items) != 1 || body.Items[0].Similarity != 0.87 {
		t.Errorf("items = %+v", body.Items)
	}

	// POST with JSON body
	resp = doJSON(t, ts, http.MethodPost, "/api/v1/search", `{"query":"react","k":2}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST status = %d", resp.StatusCode)
	}
	if gotQuery != "react" || gotK != 2 {
		t.Errorf("Search called with (%q, %d)", gotQuery, gotK)
	}
}

func TestChatRoute(t *testing.T) {
	cfg := defaultConfig()
	cfg.Composer = &stubComposer{
		composeFn: func(_ context.Context, messages []chat.Message) (string, error) {
			if len(messages) != 2 || messages[1].Content != "What kind exactly?" {
				t.Errorf("Compose(%v)", messages)
			}
			return "Mostly web work.", nil
		},
	}
	ts := newTestServer(t, cfg)

	resp := doJSON(t, ts, http.MethodPost, "/api/v1/chat",
		`{"messages":[{"role":"user","content":"What do you do?"},{"role":"user","content":"What kind exactly?"}]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody[chatResponse](t, resp)
	if body.Content != "Mostly web work." {
		t.Errorf("content = %q", body.Content)
	}
}

func TestChatRouteTrailingModelMessage(t *testing.T) {
	cfg := defaultConfig()
	var got []chat.Message
	cfg.Composer = &stubComposer{
		composeFn: func(_ context.Context, messages []chat.Message) (string, error) {
			got = messages
			return "Mostly client sites.", nil
		},
	}
	ts := newTestServer(t, cfg)

	// A conversation ending on a model turn is valid; the composer grounds
	// itself on the earlier user message.
	resp := doJSON(t, ts, http.MethodPost, "/api/v1/chat",
		`{"messages":[{"role":"user","content":"What do you build?"},{"role":"model","content":"Websites."}]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if len(got) != 2 || got[0].Content != "What do you build?" || got[1].Role != chat.RoleModel {
		t.Errorf("Compose received %v, want the full conversation", got)
	}
	body := decodeBody[chatResponse](t, resp)
	if body.Content != "Mostly client sites." {
		t.Errorf("content = %q", body.Content)
	}
}

func TestChatRouteRejectsEmptyConversation(t *testing.T) {
	cfg := defaultConfig()
	cfg.Composer = &stubComposer{
		composeFn: func(context.Context, []chat.Message) (string, error) {
			t.Error("Compose should not be called")
			return "", nil
		},
	}
	ts := newTestServer(t, cfg)

	resp := doJSON(t, ts, http.MethodPost, "/api/v1/chat", `{"messages":[]}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty messages status = %d, want 400", resp.StatusCode)
	}
}

func TestChatRouteGenerationFailure(t *testing.T) {
	cfg := defaultConfig()
	cfg.Composer = &stubComposer{
		composeFn: func(context.Context, []chat.Message) (string, error) {
			return "", chat.ErrGenerationFailed
		},
	}
	ts := newTestServer(t, cfg)

	resp := doJSON(t, ts, http.MethodPost, "/api/v1/chat",
		`{"messages":[{"role":"user","content":"Hi"}]}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestContactRoute(t *testing.T) {
	cfg := defaultConfig()
	var sent contact.Submission
	cfg.Mailer = &stubMailer{
		sendFn: func(_ context.Context, sub contact.Submission) error {
			sent = sub
			return nil
		},
	}
	ts := newTestServer(t, cfg)

	resp := doJSON(t, ts, http.MethodPost, "/api/v1/contact",
		`{"name":"Ada","email":"ada@example.com","message":"Hello"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if sent.Email != "ada@example.com" {
		t.Errorf("sent = %+v", sent)
	}

	// Invalid submission never reaches the mailer
	resp = doJSON(t, ts, http.MethodPost, "/api/v1/contact",
		`{"name":"Ada","email":"nope","message":"Hello"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid email status = %d, want 400", resp.StatusCode)
	}
}

func TestContactRouteDeliveryFailure(t *testing.T) {
	cfg := defaultConfig()
	cfg.Mailer = &stubMailer{
		sendFn: func(context.Context, contact.Submission) error {
			return errors.New("smtp exploded")
		},
	}
	ts := newTestServer(t, cfg)

	resp := doJSON(t, ts, http.MethodPost, "/api/v1/contact",
		`{"name":"Ada","email":"ada@example.com","message":"Hello"}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestRequestIDHeader(t *testing.T) {
	cfg := defaultConfig()
	cfg.Curator.(*stubCurator).nextFn = func(context.Context) (*qa.Entry, qa.Progress, error) {
		return nil, qa.Progress{}, nil
	}
	ts := newTestServer(t, cfg)

	resp := doJSON(t, ts, http.MethodGet, "/api/v1/qa/next", "")
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestSecurityHeaders(t *testing.T) {
	cfg := defaultConfig()
	cfg.Retriever.(*stubRetriever).searchFn = func(context.Context, string, int) ([]qa.SearchResult, error) {
		return nil, nil
	}
	ts := newTestServer(t, cfg)
	resp := doJSON(t, ts, http.MethodGet, "/api/v1/search?q=x", "")

	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := resp.Header.Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	// Dev mode: no HSTS
	if got := resp.Header.Get("Strict-Transport-Security"); got != "" {
		t.Errorf("Strict-Transport-Security = %q, want unset in dev", got)
	}
}
