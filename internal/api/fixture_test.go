package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/adou/portfolio-api/internal/chat"
	"github.com/adou/portfolio-api/internal/contact"
	"github.com/adou/portfolio-api/internal/qa"
	"github.com/adou/portfolio-api/internal/testutil"
)

// Function-field stubs so each test overrides only what it needs.

type stubStore struct {
	createFn func(ctx context.Context, category, question string, sources []string, weight float64) (*qa.Entry, error)
	entryFn  func(ctx context.Context, id uuid.UUID) (*qa.Entry, error)
	updateFn func(ctx context.Context, id uuid.UUID, fields qa.UpdateFields) (*qa.Entry, error)
	deleteFn func(ctx context.Context, id uuid.UUID) error
	listFn   func(ctx context.Context, query string, page, pageSize int) ([]*qa.Entry, int, error)
}

func (s *stubStore) Create(ctx context.Context, category, question string, sources []string, weight float64) (*qa.Entry, error) {
	return s.createFn(ctx, category, question, sources, weight)
}

func (s *stubStore) Entry(ctx context.Context, id uuid.UUID) (*qa.Entry, error) {
	return s.entryFn(ctx, id)
}

func (s *stubStore) Update(ctx context.Context, id uuid.UUID, fields qa.UpdateFields) (*qa.Entry, error) {
	return s.updateFn(ctx, id, fields)
}

func (s *stubStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.deleteFn(ctx, id)
}

func (s *stubStore) List(ctx context.Context, query string, page, pageSize int) ([]*qa.Entry, int, error) {
	return s.listFn(ctx, query, page, pageSize)
}

type stubCurator struct {
	nextFn   func(ctx context.Context) (*qa.Entry, qa.Progress, error)
	submitFn func(ctx context.Context, id uuid.UUID, text string) (bool, error)
}

func (c *stubCurator) NextQuestion(ctx context.Context) (*qa.Entry, qa.Progress, error) {
	return c.nextFn(ctx)
}

func (c *stubCurator) SubmitAnswer(ctx context.Context, id uuid.UUID, text string) (bool, error) {
	return c.submitFn(ctx, id, text)
}

type stubIndexer struct {
	onChangedFn func(ctx context.Context, entry *qa.Entry, prev *string) (bool, error)
	deleteFn    func(ctx context.Context, qaID uuid.UUID) error
}

func (i *stubIndexer) OnAnswerChanged(ctx context.Context, entry *qa.Entry, prev *string) (bool, error) {
	return i.onChangedFn(ctx, entry, prev)
}

func (i *stubIndexer) DeleteVector(ctx context.Context, qaID uuid.UUID) error {
	return i.deleteFn(ctx, qaID)
}

type stubRetriever struct {
	searchFn func(ctx context.Context, query string, k int) ([]qa.SearchResult, error)
}

func (r *stubRetriever) Search(ctx context.Context, query string, k int) ([]qa.SearchResult, error) {
	return r.searchFn(ctx, query, k)
}

type stubComposer struct {
	composeFn func(ctx context.Context, messages []chat.Message) (string, error)
}

func (c *stubComposer) Compose(ctx context.Context, messages []chat.Message) (string, error) {
	return c.composeFn(ctx, messages)
}

type stubMailer struct {
	sendFn func(ctx context.Context, sub contact.Submission) error
}

func (m *stubMailer) Send(ctx context.Context, sub contact.Submission) error {
	return m.sendFn(ctx, sub)
}

// testEntry builds a deterministic answered or unanswered entry.
func testEntry(answered bool) *qa.Entry {
	e := &qa.Entry{
		ID:        uuid.MustParse("11111111-2222-3333-4444-555555555555"),
		Category:  "Fit",
		Question:  "What excites you?",
		Sources:   []string{},
		Weight:    3,
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
	}
	if answered {
		answer := "3D web work."
		e.Answer = &answer
	}
	return e
}

// defaultConfig returns a ServerConfig whose stubs panic when hit, so tests
// must override the paths they exercise.
func defaultConfig() ServerConfig {
	return ServerConfig{
		Logger: testutil.DiscardLogger(),
		Store: &stubStore{
			createFn: func(context.Context, string, string, []string, float64) (*qa.Entry, error) {
				panic("unexpected Create")
			},
			entryFn:  func(context.Context, uuid.UUID) (*qa.Entry, error) { panic("unexpected Entry") },
			updateFn: func(context.Context, uuid.UUID, qa.UpdateFields) (*qa.Entry, error) { panic("unexpected Update") },
			deleteFn: func(context.Context, uuid.UUID) error { panic("unexpected Delete") },
			listFn: func(context.Context, string, int, int) ([]*qa.Entry, int, error) {
				panic("unexpected List")
			},
		},
		Curator: &stubCurator{
			nextFn:   func(context.Context) (*qa.Entry, qa.Progress, error) { panic("unexpected NextQuestion") },
			submitFn: func(context.Context, uuid.UUID, string) (bool, error) { panic("unexpected SubmitAnswer") },
		},
		Indexer: &stubIndexer{
			onChangedFn: func(context.Context, *qa.Entry, *string) (bool, error) { panic("unexpected OnAnswerChanged") },
			deleteFn:    func(context.Context, uuid.UUID) error { panic("unexpected DeleteVector") },
		},
		Retriever: &stubRetriever{
			searchFn: func(context.Context, string, int) ([]qa.SearchResult, error) { panic("unexpected Search") },
		},
		// High limits so middleware tests don't trip rate limiting
		RateRPS:   1000,
		RateBurst: 1000,
		IsDev:     true,
	}
}

// newTestServer builds a server and returns a request helper.
func newTestServer(t *testing.T, cfg ServerConfig) *httptest.Server {
	t.Helper()
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// doJSON issues a request with an optional JSON body and returns the response.
func doJSON(t *testing.T, ts *httptest.Server, method, path, body string) *http.Response {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}
