package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/skillswap/skillswap/internal/auth"
	"github.com/skillswap/skillswap/internal/model"
)

// Authenticator resolves a session token into an identity.
// *service.AuthService satisfies it.
type Authenticator interface {
	Authenticate(token string) (*model.Identity, error)
}

// SessionConfig holds configuration for the session middleware.
type SessionConfig struct {
	Logger        *slog.Logger
	Authenticator Authenticator
}

// Session resolves "Authorization: Bearer <token>" into an identity stored
// in the request context. Requests without the header pass through
// anonymously; a present but invalid token is rejected with 401 so clients
// learn that their session ended.
func Session(cfg SessionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, present := bearerToken(r)
			if !present {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := cfg.Authenticator.Authenticate(token)
			if err != nil {
				reason := "invalid"
				if errors.Is(err, auth.ErrSessionExpired) {
					reason = "expired"
				}
				cfg.Logger.Warn("session_rejected",
					slog.String("reason", reason),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusUnauthorized, "INVALID_SESSION", "Session is invalid or expired")
				return
			}

			ctx := auth.ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession answers 401 UNAUTHORIZED unless Session stored an identity.
// With required=false it is a no-op, which lets AUTH_REQUIRED=false open
// the profile and match endpoints to anonymous callers.
func RequireSession(required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !required {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth.IdentityFromContext(r.Context()) == nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Sign in required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token of a Bearer Authorization header.
// present is true whenever the header is set, even if malformed.
func bearerToken(r *http.Request) (token string, present bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", true
	}
	return strings.TrimSpace(token), true
}
