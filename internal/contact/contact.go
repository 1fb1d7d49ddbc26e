// Package contact delivers contact-form submissions to the site owner's inbox
// through the Resend email API.
package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"strings"
	"time"
)

const (
	// resendAPIBase is the base URL for the Resend API.
	resendAPIBase = "https://api.resend.com"

	// sendTimeout bounds a single delivery attempt.
	sendTimeout = 10 * time.Second

	maxNameLength    = 100
	maxMessageLength = 5000
)

// Submission is one contact-form submission from a visitor.
type Submission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Validate normalizes and checks the submission in place.
func (s *Submission) Validate() error {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.TrimSpace(s.Email)
	s.Message = strings.TrimSpace(s.Message)

	switch {
	case s.Name == "":
		return &FieldError{Field: "name", Reason: "must not be empty"}
	case len(s.Name) > maxNameLength:
		return &FieldError{Field: "name", Reason: "too long"}
	case s.Email == "":
		return &FieldError{Field: "email", Reason: "must not be empty"}
	case s.Message == "":
		return &FieldError{Field: "message", Reason: "must not be empty"}
	case len(s.Message) > maxMessageLength:
		return &FieldError{Field: "message", Reason: "too long"}
	}

	if _, err := mail.ParseAddress(s.Email); err != nil {
		return &FieldError{Field: "email", Reason: "not a valid address"}
	}
	return nil
}

// FieldError reports an invalid submission field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Mailer delivers a validated submission.
type Mailer interface {
	Send(ctx context.Context, sub Submission) error
}

// ResendMailer sends submissions through the Resend REST API.
type ResendMailer struct {
	apiKey     string
	from       string
	to         string
	baseURL    string
	httpClient *http.Client
}

// NewResendMailer creates a mailer posting to api.resend.com.
// from must be a sender verified with Resend; to is the owner's inbox.
func NewResendMailer(apiKey, from, to string) (*ResendMailer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend API key is required")
	}
	if from == "" || to == "" {
		return nil, fmt.Errorf("from and to addresses are required")
	}
	return &ResendMailer{
		apiKey:     apiKey,
		from:       from,
		to:         to,
		baseURL:    resendAPIBase,
		httpClient: &http.Client{Timeout: sendTimeout},
	}, nil
}

// sendRequest is the Resend /emails payload.
type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

// Send delivers the submission as a plain-text email.
// Reply-To is set to the visitor so the owner can answer directly.
func (m *ResendMailer) Send(ctx context.Context, sub Submission) error {
	payload := sendRequest{
		From:    m.from,
		To:      []string{m.to},
		ReplyTo: sub.Email,
		Subject: fmt.Sprintf("Portfolio contact from %s", sub.Name),
		Text:    fmt.Sprintf("Name: %s\nEmail: %s\n\n%s\n", sub.Name, sub.Email, sub.Message),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.baseURL+"/emails", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("resend API error (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}
