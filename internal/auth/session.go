package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	"github.com/skillswap/skillswap/internal/model"
)

const sessionIssuer = "skillswap"

var (
	// ErrSessionExpired indicates a well-formed session past its expiry.
	ErrSessionExpired = errors.New("session expired")
	// ErrSessionInvalid covers bad signatures, algorithms and claims.
	ErrSessionInvalid = errors.New("session invalid")
)

// SessionClaims are the claims carried by a session token.
type SessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SessionManager issues and validates HS256 session tokens.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	return &SessionManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns the lifetime of issued sessions.
func (m *SessionManager) TTL() time.Duration { return m.ttl }

// Issue signs a session for email.
func (m *SessionManager) Issue(email string) (string, *model.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || len(m.secret) == 0 || m.ttl <= 0 {
		return "", nil, ErrSessionInvalid
	}

	now := m.now().UTC()
	exp := now.Add(m.ttl)
	id := ulid.Make().String()

	claims := SessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   email,
			ID:        id,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}

	return signed, &model.Identity{Email: email, SessionID: id, ExpiresAt: exp.Truncate(time.Second)}, nil
}

// Validate parses a session token and returns its identity.
func (m *SessionManager) Validate(token string) (*model.Identity, error) {
	if token == "" || len(m.secret) == 0 {
		return nil, ErrSessionInvalid
	}

	p := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	var c SessionClaims
	tok, err := p.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, ErrSessionInvalid
	}
	if tok == nil || !tok.Valid || c.Email == "" || c.Subject != c.Email || c.ID == "" {
		return nil, ErrSessionInvalid
	}

	return &model.Identity{
		Email:     c.Email,
		SessionID: c.ID,
		ExpiresAt: c.ExpiresAt.Time.UTC(),
	}, nil
}
