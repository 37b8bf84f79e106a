// Package notify delivers match shortlists and sign-in links by email
// through a hosted email API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/skillswap/internal/metrics"
	"github.com/skillswap/skillswap/internal/model"
)

// ErrDelivery marks a failed send: transport error or non-2xx response.
var ErrDelivery = errors.New("mail delivery failed")

// NoMatchesText is sent in place of the list when the result is empty.
const NoMatchesText = "No matches yet. Your profile stays in the pool, so check back once more people have joined."

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 512

// Mailer sends the two kinds of mail the service produces.
type Mailer interface {
	SendMatches(ctx context.Context, recipient string, result *model.MatchResult) error
	SendLoginLink(ctx context.Context, recipient, link string, ttl time.Duration) error
}

// EmailJSConfig configures EmailJSMailer.
type EmailJSConfig struct {
	Endpoint        string
	ServiceID       string
	MatchTemplateID string
	LoginTemplateID string
	PublicKey       string
	// PrivateKey is sent as accessToken when set (EmailJS strict mode).
	PrivateKey string
	// SigningSecret, when set, adds an HMAC signature header for relays.
	SigningSecret string
}

// EmailJSMailer posts template sends to an EmailJS-compatible API.
// Every send is exactly one HTTP request; there is no retry.
type EmailJSMailer struct {
	cfg     EmailJSConfig
	client  *http.Client
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewEmailJSMailer creates a mailer. A nil client gets NewHTTPClient(0).
func NewEmailJSMailer(cfg EmailJSConfig, client *http.Client, logger *slog.Logger, recorder metrics.Recorder) *EmailJSMailer {
	if client == nil {
		client = NewHTTPClient(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &EmailJSMailer{
		cfg:     cfg,
		client:  client,
		logger:  logger.With("component", "mailer"),
		metrics: recorder,
		now:     time.Now,
	}
}

type sendRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

// SendMatches mails the shortlist to the requester.
func (m *EmailJSMailer) SendMatches(ctx context.Context, recipient string, result *model.MatchResult) error {
	return m.send(ctx, "matches", m.cfg.MatchTemplateID, map[string]string{
		"user_email": recipient,
		"matches":    FormatMatches(result),
	})
}

// SendLoginLink mails a one-time sign-in link.
func (m *EmailJSMailer) SendLoginLink(ctx context.Context, recipient, link string, ttl time.Duration) error {
	return m.send(ctx, "login_link", m.cfg.LoginTemplateID, map[string]string{
		"user_email": recipient,
		"login_link": link,
		"expires_in": FormatTTL(ttl),
	})
}

func (m *EmailJSMailer) send(ctx context.Context, kind, templateID string, params map[string]string) error {
	body, err := json.Marshal(sendRequest{
		ServiceID:      m.cfg.ServiceID,
		TemplateID:     templateID,
		UserID:         m.cfg.PublicKey,
		AccessToken:    m.cfg.PrivateKey,
		TemplateParams: params,
	})
	if err != nil {
		return fmt.Errorf("%w: encode request: %w", ErrDelivery, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %w", ErrDelivery, err)
	}

	messageID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(HeaderMessageID, messageID)
	if m.cfg.SigningSecret != "" {
		ts := m.now().Unix()
		req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
		req.Header.Set(HeaderSignature, GenerateSignature(m.cfg.SigningSecret, ts, body))
	}

	start := time.Now()
	resp, err := m.client.Do(req)
	if err != nil {
		m.fail(kind, messageID, start, 0, err)
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err := fmt.Errorf("%w: status %d: %s", ErrDelivery, resp.StatusCode, strings.TrimSpace(string(snippet)))
		m.fail(kind, messageID, start, resp.StatusCode, err)
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	m.metrics.IncNotification(metrics.NotificationSent)
	m.logger.Info("mail_sent",
		slog.String("kind", kind),
		slog.String("message_id", messageID),
		slog.String("host", ExtractHost(m.cfg.Endpoint)),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (m *EmailJSMailer) fail(kind, messageID string, start time.Time, status int, err error) {
	m.metrics.IncNotification(metrics.NotificationFailed)
	m.logger.Warn("mail_failed",
		slog.String("kind", kind),
		slog.String("message_id", messageID),
		slog.String("host", ExtractHost(m.cfg.Endpoint)),
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
		slog.String("error", err.Error()),
	)
}

// FormatMatches renders a result as the plain-text list used in the mail body.
func FormatMatches(result *model.MatchResult) string {
	if result.Len() == 0 {
		return NoMatchesText
	}
	var b strings.Builder
	for i, match := range result.Matches {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, match.CandidateEmail)
		if match.Rationale != "" {
			b.WriteString(": ")
			b.WriteString(match.Rationale)
		}
	}
	return b.String()
}

// FormatTTL renders a link lifetime for humans ("15 minutes", "1 hour").
func FormatTTL(ttl time.Duration) string {
	switch {
	case ttl >= time.Hour && ttl%time.Hour == 0:
		return plural(int(ttl/time.Hour), "hour")
	case ttl >= time.Minute:
		return plural(int(ttl.Round(time.Minute)/time.Minute), "minute")
	default:
		return plural(int(ttl.Round(time.Second)/time.Second), "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}
