package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/skillswap/skillswap/internal/auth"
	"github.com/skillswap/skillswap/internal/handler/dto"
	"github.com/skillswap/skillswap/internal/model"
	"github.com/skillswap/skillswap/internal/service"
)

// ProfileRegistry registers and lists profiles.
// *service.ProfileService satisfies it.
type ProfileRegistry interface {
	Register(ctx context.Context, in service.RegisterProfileInput) (*model.Profile, error)
	List(ctx context.Context) ([]*model.Profile, error)
}

// ProfileHandler handles HTTP requests for profile operations.
type ProfileHandler struct {
	profiles ProfileRegistry
	logger   *slog.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profiles ProfileRegistry, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		logger:   logger,
	}
}

// Create handles POST /api/v1/profiles. It stores the profile without
// running the match pipeline.
func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	email, err := resolveEmail(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	profile, err := h.profiles.Register(r.Context(), service.RegisterProfileInput{
		Email:      email,
		TeachSkill: req.TeachSkill,
		LearnSkill: req.LearnSkill,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToProfileResponse(profile))
}

// List handles GET /api/v1/profiles.
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToProfileListResponse(profiles))
}

// resolveEmail picks the address a submission is made for. Signed-in users
// may omit it, or must repeat their own; anonymous callers must supply one.
func resolveEmail(ctx context.Context, submitted string) (string, error) {
	submitted = strings.TrimSpace(submitted)
	identity := auth.IdentityFromContext(ctx)
	if identity == nil {
		return submitted, nil
	}
	if submitted == "" {
		return identity.Email, nil
	}
	if !model.SameEmail(submitted, identity.Email) {
		return "", errEmailMismatch
	}
	return submitted, nil
}
