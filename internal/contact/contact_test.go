package contact

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSubmissionValidate(t *testing.T) {
	tests := []struct {
		name      string
		sub       Submission
		wantField string // empty = valid
	}{
		{
			name: "valid",
			sub:  Submission{Name: "Ada", Email: "ada@example.com", Message: "Hi there"},
		},
		{
			name: "trims whitespace",
			sub:  Submission{Name: "  Ada  ", Email: " ada@example.com ", Message: " Hi "},
		},
		{
			name:      "missing name",
			sub:       Submission{Email: "ada@example.com", Message: "Hi"},
			wantField: "name",
		},
		{
			name:      "missing email",
			sub:       Submission{Name: "Ada", Message: "Hi"},
			wantField: "email",
		},
		{
			name:      "bad email",
			sub:       Submission{Name: "Ada", Email: "not-an-address", Message: "Hi"},
			wantField: "email",
		},
		{
			name:      "blank message",
			sub:       Submission{Name: "Ada", Email: "ada@example.com", Message: "   "},
			wantField: "message",
		},
		{
			name:      "name too long",
			sub:       Submission{Name: strings.Repeat("a", 101), Email: "a@b.co", Message: "Hi"},
			wantField: "name",
		},
		{
			name:      "message too long",
			sub:       Submission{Name: "Ada", Email: "a@b.co", Message: strings.Repeat("m", 5001)},
			wantField: "message",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sub.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			var fe *FieldError
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !asFieldError(err, &fe) || fe.Field != tt.wantField {
				t.Errorf("Validate() error = %v, want field %q", err, tt.wantField)
			}
		})
	}
}

func asFieldError(err error, target **FieldError) bool {
	fe, ok := err.(*FieldError)
	if ok {
		*target = fe
	}
	return ok
}

func TestResendMailerSend(t *testing.T) {
	var gotAuth string
	var gotReq sendRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/emails" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m, err := NewResendMailer("re_test_key", "site@example.com", "owner@example.com")
	if err != nil {
		t.Fatalf("NewResendMailer() error = %v", err)
	}
	m.baseURL = srv.URL

	sub := Submission{Name: "Ada", Email: "ada@example.com", Message: "Let's work together"}
	if err := m.Send(context.Background(), sub); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if gotAuth != "Bearer re_test_key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.From != "site@example.com" {
		t.Errorf("From = %q", gotReq.From)
	}
	if len(gotReq.To) != 1 || gotReq.To[0] != "owner@example.com" {
		t.Errorf("To = %v", gotReq.To)
	}
	if gotReq.ReplyTo != "ada@example.com" {
		t.Errorf("ReplyTo = %q", gotReq.ReplyTo)
	}
	if !strings.Contains(gotReq.Text, "Let's work together") {
		t.Errorf("Text = %q, missing message body", gotReq.Text)
	}
}

func TestResendMailerSendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid from"}`))
	}))
	defer srv.Close()

	m, err := NewResendMailer("re_test_key", "site@example.com", "owner@example.com")
	if err != nil {
		t.Fatalf("NewResendMailer() error = %v", err)
	}
	m.baseURL = srv.URL

	sub := Submission{Name: "Ada", Email: "ada@example.com", Message: "Hello"}
	err = m.Send(context.Background(), sub)
	if err == nil || !strings.Contains(err.Error(), "status 422") {
		t.Errorf("Send() error = %v, want status 422 error", err)
	}
}

func TestNewResendMailerValidation(t *testing.T) {
	if _, err := NewResendMailer("", "a@b.co", "c@d.co"); err == nil {
		t.Error("empty API key should fail")
	}
	if _, err := NewResendMailer("key", "", "c@d.co"); err == nil {
		t.Error("empty from should fail")
	}
	if _, err := NewResendMailer("key", "a@b.co", ""); err == nil {
		t.Error("empty to should fail")
	}
}
