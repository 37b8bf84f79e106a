package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/skillswap/skillswap/internal/auth"
	"github.com/skillswap/skillswap/internal/cache"
	"github.com/skillswap/skillswap/internal/metrics"
	"github.com/skillswap/skillswap/internal/model"
)

// ErrInvalidLoginToken covers malformed, unknown, expired, reused and
// mismatched login tokens alike.
var ErrInvalidLoginToken = errors.New("invalid or expired login token")

// LoginTokenStore keeps hashed login tokens until they are redeemed.
// ConsumeLoginToken returns cache.ErrCacheMiss for unknown ids.
type LoginTokenStore interface {
	StoreLoginToken(ctx context.Context, token *model.LoginToken, ttl time.Duration) error
	ConsumeLoginToken(ctx context.Context, id string) (*model.LoginToken, error)
}

// LoginLinkSender mails sign-in links.
type LoginLinkSender interface {
	SendLoginLink(ctx context.Context, recipient, link string, ttl time.Duration) error
}

// SessionIssuer issues and validates session tokens.
type SessionIssuer interface {
	Issue(email string) (string, *model.Identity, error)
	Validate(token string) (*model.Identity, error)
}

// AuthConfig configures AuthService.
type AuthConfig struct {
	// BaseURL is the public origin the emailed link points at.
	BaseURL string
	LinkTTL time.Duration
}

// AuthService runs passwordless email sign-in.
type AuthService struct {
	tokens   LoginTokenStore
	sender   LoginLinkSender
	sessions SessionIssuer
	baseURL  string
	linkTTL  time.Duration
	logger   *slog.Logger
	metrics  metrics.Recorder
	now      func() time.Time
}

// NewAuthService creates an AuthService.
func NewAuthService(tokens LoginTokenStore, sender LoginLinkSender, sessions SessionIssuer, cfg AuthConfig, logger *slog.Logger, recorder metrics.Recorder) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = 15 * time.Minute
	}
	return &AuthService{
		tokens:   tokens,
		sender:   sender,
		sessions: sessions,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		linkTTL:  cfg.LinkTTL,
		logger:   logger.With("component", "auth"),
		metrics:  recorder,
		now:      time.Now,
	}
}

// RequestLoginLink emails a one-time sign-in link to email.
// Errors wrap ErrValidation, ErrStore or ErrDelivery.
func (s *AuthService) RequestLoginLink(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := model.ValidateEmail(email); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	generated, err := auth.GenerateLoginToken()
	if err != nil {
		return fmt.Errorf("failed to generate login token: %w", err)
	}

	record := &model.LoginToken{
		ID:       generated.ID,
		Hash:     generated.Hash,
		Email:    email,
		IssuedAt: strconv.FormatInt(s.now().Unix(), 10),
	}
	if err := s.tokens.StoreLoginToken(ctx, record, s.linkTTL); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}

	link := s.baseURL + "/auth/callback?token=" + url.QueryEscape(generated.Plaintext)
	if err := s.sender.SendLoginLink(ctx, email, link, s.linkTTL); err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	s.metrics.IncLoginLinkIssued()
	s.logger.Info("login_link_issued",
		slog.String("token_id", generated.ID),
		slog.String("email_fp", auth.Fingerprint(email)),
		slog.Duration("ttl", s.linkTTL),
	)
	return nil
}

// VerifyLoginToken redeems a login token and returns a session token.
// The stored token is deleted before the secret is checked, so every
// redemption attempt uses it up.
func (s *AuthService) VerifyLoginToken(ctx context.Context, token string) (string, *model.Identity, error) {
	id, err := auth.ParseLoginToken(strings.TrimSpace(token))
	if err != nil {
		return s.reject("malformed", "", ErrInvalidLoginToken)
	}

	record, err := s.tokens.ConsumeLoginToken(ctx, id)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return s.reject("unknown_or_used", id, ErrInvalidLoginToken)
		}
		return "", nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	ok, err := auth.VerifySecret(strings.TrimSpace(token), record.Hash)
	if err != nil || !ok {
		return s.reject("hash_mismatch", id, ErrInvalidLoginToken)
	}

	session, identity, err := s.sessions.Issue(record.Email)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue session: %w", err)
	}

	s.metrics.IncSessionIssued()
	s.logger.Info("session_issued",
		slog.String("token_id", id),
		slog.String("session_id", identity.SessionID),
		slog.String("email_fp", auth.Fingerprint(identity.Email)),
	)
	return session, identity, nil
}

// Authenticate resolves a session token into an identity.
func (s *AuthService) Authenticate(token string) (*model.Identity, error) {
	return s.sessions.Validate(token)
}

func (s *AuthService) reject(reason, tokenID string, err error) (string, *model.Identity, error) {
	s.metrics.IncLoginRejected()
	s.logger.Warn("login_rejected",
		slog.String("reason", reason),
		slog.String("token_id", tokenID),
	)
	return "", nil, err
}
