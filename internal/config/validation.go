package config

import (
	"fmt"
	"os"
	"strings"
)

// validSSLModes are the sslmode values accepted by libpq/pgx.
var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Validate checks all configuration values and returns the first problem found.
// Sentinel errors are wrapped so callers can match with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if err := c.validateAI(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateServe(); err != nil {
		return err
	}
	return c.validateContact()
}

func (c *Config) validateAI() error {
	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model_name is empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder_model is empty", ErrInvalidEmbedderModel)
	}
	return nil
}

func (c *Config) validateStorage() error {
	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host is empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d (must be 1-65535)", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name is empty", ErrInvalidPostgresDBName)
	}
	if !validSSLModes[c.PostgresSSLMode] {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}
	return nil
}

func (c *Config) validateServe() error {
	if !strings.Contains(c.ListenAddr, ":") {
		return fmt.Errorf("%w: %q (expected host:port or :port)", ErrInvalidListenAddr, c.ListenAddr)
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("%w: rps must be positive, got %v", ErrInvalidRateLimit, c.RateLimitRPS)
	}
	if c.RateLimitBurst < 1 {
		return fmt.Errorf("%w: burst must be at least 1, got %d", ErrInvalidRateLimit, c.RateLimitBurst)
	}
	return nil
}

// validateContact enforces all-or-nothing contact settings: a partially
// configured mailer would fail at request time, which is worse than failing
// at startup.
func (c *Config) validateContact() error {
	set := 0
	for _, v := range []string{c.ResendAPIKey, c.ContactFrom, c.ContactTo} {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != 3 {
		return fmt.Errorf("%w: resend_api_key, contact_from and contact_to must be set together", ErrIncompleteContact)
	}
	return nil
}

// ValidateAPIKey checks that the Gemini API key Genkit reads from the
// environment is present. Called at startup for commands that talk to the
// model provider; config Validate() stays environment-independent.
func ValidateAPIKey() error {
	if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
		return fmt.Errorf("%w: set GEMINI_API_KEY", ErrMissingAPIKey)
	}
	return nil
}
