package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adou/portfolio-api/internal/testutil"
)

func TestRecoveryMiddleware(t *testing.T) {
	handler := recoveryMiddleware(testutil.DiscardLogger())(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestRecoveryMiddlewarePassesThrough(t *testing.T) {
	handler := recoveryMiddleware(testutil.DiscardLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var ctxID string
	handler := requestIDMiddleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ctxID, _ = requestIDFromContext(r.Context())
	}))

	t.Run("generates id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		got := rec.Header().Get("X-Request-ID")
		if got == "" {
			t.Fatal("no X-Request-ID header")
		}
		if got != ctxID {
			t.Errorf("header %q != context %q", got, ctxID)
		}
	})

	t.Run("preserves valid incoming id", func(t *testing.T) {
		const incoming = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", incoming)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if got := rec.Header().Get("X-Request-ID"); got != incoming {
			t.Errorf("X-Request-ID = %q, want incoming preserved", got)
		}
	})

	t.Run("replaces garbage incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "../../etc/passwd")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if got := rec.Header().Get("X-Request-ID"); got == "../../etc/passwd" || got == "" {
			t.Errorf("X-Request-ID = %q, want fresh UUID", got)
		}
	})
}

func TestCORSMiddleware(t *testing.T) {
	handler := corsMiddleware([]string{"http://localhost:3000"})(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("Allow-Origin = %q", got)
		}
	})

	t.Run("disallowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://evil.example")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Allow-Origin = %q, want unset", got)
		}
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", rec.Code)
		}
	})
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(0.0001, 2) // effectively no refill during the test

	if !rl.allow("10.0.0.1") {
		t.Error("first request should pass")
	}
	if !rl.allow("10.0.0.1") {
		t.Error("second request should pass (burst 2)")
	}
	if rl.allow("10.0.0.1") {
		t.Error("third request should be limited")
	}

	// Another IP has its own bucket
	if !rl.allow("10.0.0.2") {
		t.Error("different IP should pass")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := newRateLimiter(0.0001, 1)
	handler := rateLimitMiddleware(rl, false, testutil.DiscardLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:12345"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		realIP     string
		forwarded  string
		trustProxy bool
		want       string
	}{
		{
			name:       "remote addr only",
			remoteAddr: "192.0.2.1:5000",
			want:       "192.0.2.1",
		},
		{
			name:       "proxy headers ignored when untrusted",
			remoteAddr: "192.0.2.1:5000",
			realIP:     "203.0.113.9",
			want:       "192.0.2.1",
		},
		{
			name:       "x-real-ip preferred when trusted",
			remoteAddr: "192.0.2.1:5000",
			realIP:     "203.0.113.9",
			forwarded:  "198.51.100.7",
			trustProxy: true,
			want:       "203.0.113.9",
		},
		{
			name:       "x-forwarded-for first hop",
			remoteAddr: "192.0.2.1:5000",
			forwarded:  "198.51.100.7, 10.0.0.1",
			trustProxy: true,
			want:       "198.51.100.7",
		},
		{
			name:       "garbage header rejected",
			remoteAddr: "192.0.2.1:5000",
			realIP:     "not-an-ip",
			trustProxy: true,
			want:       "192.0.2.1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := clientIP(req, tt.trustProxy); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
