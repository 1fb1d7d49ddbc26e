package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/adou/portfolio-api/internal/qa"
	"github.com/adou/portfolio-api/internal/testutil"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]int{"n": 42})

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"n":42}` {
		t.Errorf("body = %q", got)
	}
}

func TestWriteErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusNotFound, "not_found", "entry not found", testutil.DiscardLogger())

	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Error.Code != "not_found" || body.Error.Message != "entry not found" {
		t.Errorf("body = %+v", body)
	}
}

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "validation", err: &qa.ValidationError{Field: "category", Reason: "x"}, wantStatus: 400},
		{name: "not found", err: qa.ErrNotFound, wantStatus: 404},
		{name: "duplicate", err: qa.ErrDuplicateQuestion, wantStatus: 409},
		{name: "wrapped not found", err: errors.Join(errors.New("ctx"), qa.ErrNotFound), wantStatus: 404},
		{name: "unknown", err: errors.New("disk on fire"), wantStatus: 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDomainError(rec, tt.err, testutil.DiscardLogger())
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok"}`))
		var p payload
		if err := decodeJSON(httptest.NewRecorder(), req, &p); err != nil {
			t.Fatalf("decodeJSON() error = %v", err)
		}
		if p.Name != "ok" {
			t.Errorf("name = %q", p.Name)
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"nope":1}`))
		var p payload
		if err := decodeJSON(httptest.NewRecorder(), req, &p); err == nil {
			t.Error("unknown field should fail")
		}
	})

	t.Run("trailing garbage", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}{"name":"b"}`))
		var p payload
		if err := decodeJSON(httptest.NewRecorder(), req, &p); err == nil {
			t.Error("trailing data should fail")
		}
	})

	t.Run("oversized body", func(t *testing.T) {
		big := `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
		var p payload
		if err := decodeJSON(httptest.NewRecorder(), req, &p); err == nil {
			t.Error("oversized body should fail")
		}
	})
}
