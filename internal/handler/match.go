package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/skillswap/skillswap/internal/handler/dto"
	"github.com/skillswap/skillswap/internal/service"
)

// MatchSubmitter runs the match pipeline.
// *service.MatchService satisfies it.
type MatchSubmitter interface {
	Submit(ctx context.Context, in service.RegisterProfileInput) (*service.SubmitOutput, error)
}

// MatchHandler handles match submissions.
type MatchHandler struct {
	matches MatchSubmitter
	logger  *slog.Logger
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(matches MatchSubmitter, logger *slog.Logger) *MatchHandler {
	return &MatchHandler{
		matches: matches,
		logger:  logger,
	}
}

// Submit handles POST /api/v1/matches: register the profile, rank
// candidates from the whole pool, and email the shortlist.
func (h *MatchHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	email, err := resolveEmail(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	out, err := h.matches.Submit(r.Context(), service.RegisterProfileInput{
		Email:      email,
		TeachSkill: req.TeachSkill,
		LearnSkill: req.LearnSkill,
	})
	if err != nil {
		var partial *dto.MatchResponse
		if out != nil && out.Result != nil {
			partial = dto.ToMatchResponse(out.Profile, out.Result, out.Notified)
		}
		writePipelineError(w, err, partial)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToMatchResponse(out.Profile, out.Result, out.Notified))
}
