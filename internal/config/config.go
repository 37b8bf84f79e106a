// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Scorer backends.
const (
	ScorerKeyword = "keyword"
	ScorerGemini  = "gemini"
)

// Mail backends.
const (
	MailBackendLog     = "log"
	MailBackendEmailJS = "emailjs"
)

// DefaultSessionSecret is only acceptable outside production.
const DefaultSessionSecret = "dev-only-session-secret-change-me"

var (
	ErrUnknownScorer      = errors.New("unknown scorer backend")
	ErrMissingGeminiKey   = errors.New("GEMINI_API_KEY is required for the gemini scorer")
	ErrUnknownMailBackend = errors.New("unknown mail backend")
	ErrMissingMailConfig  = errors.New("MAIL_SERVICE_ID, MAIL_MATCH_TEMPLATE_ID, MAIL_LOGIN_TEMPLATE_ID and MAIL_PUBLIC_KEY are required for the emailjs backend")
	ErrWeakSessionSecret  = errors.New("SESSION_SECRET must be set to at least 32 characters in production")
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Public URL used in sign-in links (e.g., https://skillswap.example)
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts. WriteTimeout covers a full match submission,
	// so it must exceed ScorerTimeout plus mail delivery.
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"45s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting (per client IP)
	RateLimitEnabled        bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitMatchPerMinute int  `env:"RATE_LIMIT_MATCH_PER_MINUTE" envDefault:"6"`
	RateLimitMatchBurst     int  `env:"RATE_LIMIT_MATCH_BURST" envDefault:"3"`
	RateLimitLoginPerMinute int  `env:"RATE_LIMIT_LOGIN_PER_MINUTE" envDefault:"3"`
	RateLimitLoginBurst     int  `env:"RATE_LIMIT_LOGIN_BURST" envDefault:"2"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 64KB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"65536"`

	// Matching
	ScorerBackend     string        `env:"SCORER_BACKEND" envDefault:"keyword"`
	ScorerFallback    string        `env:"SCORER_FALLBACK" envDefault:""`
	ScorerTimeout     time.Duration `env:"SCORER_TIMEOUT" envDefault:"20s"`
	MatchMinRelevance float64       `env:"MATCH_MIN_RELEVANCE" envDefault:"0.2"`

	// Gemini (hosted model scorer)
	GeminiAPIKey      string  `env:"GEMINI_API_KEY"`
	GeminiModel       string  `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	GeminiTemperature float32 `env:"GEMINI_TEMPERATURE" envDefault:"0.7"`

	// Mail delivery
	MailBackend         string        `env:"MAIL_BACKEND" envDefault:"log"`
	MailAPIURL          string        `env:"MAIL_API_URL" envDefault:"https://api.emailjs.com/api/v1.0/email/send"`
	MailServiceID       string        `env:"MAIL_SERVICE_ID"`
	MailMatchTemplateID string        `env:"MAIL_MATCH_TEMPLATE_ID"`
	MailLoginTemplateID string        `env:"MAIL_LOGIN_TEMPLATE_ID"`
	MailPublicKey       string        `env:"MAIL_PUBLIC_KEY"`
	MailPrivateKey      string        `env:"MAIL_PRIVATE_KEY"`
	MailSigningSecret   string        `env:"MAIL_SIGNING_SECRET"`
	MailTimeout         time.Duration `env:"MAIL_TIMEOUT" envDefault:"10s"`

	// Authentication
	AuthRequired  bool          `env:"AUTH_REQUIRED" envDefault:"true"`
	SessionSecret string        `env:"SESSION_SECRET" envDefault:"dev-only-session-secret-change-me"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	LoginLinkTTL  time.Duration `env:"LOGIN_LINK_TTL" envDefault:"15m"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// UsesGemini reports whether the hosted model is used as primary or fallback scorer.
func (c *Config) UsesGemini() bool {
	return c.ScorerBackend == ScorerGemini || c.ScorerFallback == ScorerGemini
}

// Validate checks rules that span several variables.
func (c *Config) Validate() error {
	if !isScorer(c.ScorerBackend) {
		return fmt.Errorf("%w: SCORER_BACKEND=%q", ErrUnknownScorer, c.ScorerBackend)
	}
	if c.ScorerFallback != "" && !isScorer(c.ScorerFallback) {
		return fmt.Errorf("%w: SCORER_FALLBACK=%q", ErrUnknownScorer, c.ScorerFallback)
	}
	if c.UsesGemini() && c.GeminiAPIKey == "" {
		return ErrMissingGeminiKey
	}

	switch c.MailBackend {
	case MailBackendLog:
	case MailBackendEmailJS:
		if c.MailServiceID == "" || c.MailMatchTemplateID == "" || c.MailLoginTemplateID == "" || c.MailPublicKey == "" {
			return ErrMissingMailConfig
		}
	default:
		return fmt.Errorf("%w: MAIL_BACKEND=%q", ErrUnknownMailBackend, c.MailBackend)
	}

	if c.IsProduction() && (c.SessionSecret == DefaultSessionSecret || len(c.SessionSecret) < 32) {
		return ErrWeakSessionSecret
	}

	return nil
}

func isScorer(name string) bool {
	return name == ScorerKeyword || name == ScorerGemini
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing or inconsistent.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
