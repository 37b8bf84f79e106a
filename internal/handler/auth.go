package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/skillswap/skillswap/internal/auth"
	"github.com/skillswap/skillswap/internal/handler/dto"
	"github.com/skillswap/skillswap/internal/model"
)

// LoginFlow runs passwordless sign-in.
// *service.AuthService satisfies it.
type LoginFlow interface {
	RequestLoginLink(ctx context.Context, email string) error
	VerifyLoginToken(ctx context.Context, token string) (string, *model.Identity, error)
}

// AuthHandler handles sign-in endpoints.
type AuthHandler struct {
	flow    LoginFlow
	linkTTL time.Duration
	logger  *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. linkTTL is reported to clients
// as expires_in.
func NewAuthHandler(flow LoginFlow, linkTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		flow:    flow,
		linkTTL: linkTTL,
		logger:  logger,
	}
}

// RequestLink handles POST /api/v1/auth/login-link.
func (h *AuthHandler) RequestLink(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginLinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.flow.RequestLoginLink(r.Context(), req.Email); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusAccepted, dto.LoginLinkResponse{
		Status:    "sent",
		ExpiresIn: int(h.linkTTL.Seconds()),
	})
}

// CreateSession handles POST /api/v1/auth/session.
func (h *AuthHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req dto.SessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, identity, err := h.flow.VerifyLoginToken(r.Context(), req.Token)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SessionResponse{
		Token:     token,
		TokenType: "Bearer",
		Email:     identity.Email,
		ExpiresAt: identity.ExpiresAt,
	})
}

// Me handles GET /api/v1/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Sign in required")
		return
	}
	writeJSON(w, http.StatusOK, dto.ToIdentityResponse(identity))
}
