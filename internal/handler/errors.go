package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/skillswap/skillswap/internal/handler/dto"
	"github.com/skillswap/skillswap/internal/model"
	"github.com/skillswap/skillswap/internal/service"
)

var errEmailMismatch = errors.New("email does not match the signed-in user")

// errorStatus maps a service error kind to an HTTP status and code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, service.ErrStore):
		return http.StatusServiceUnavailable, "STORE_ERROR"
	case errors.Is(err, service.ErrScoringBackend):
		return http.StatusBadGateway, "SCORING_BACKEND_ERROR"
	case errors.Is(err, service.ErrDelivery):
		return http.StatusBadGateway, "DELIVERY_ERROR"
	case errors.Is(err, service.ErrInvalidLoginToken):
		return http.StatusUnauthorized, "INVALID_LOGIN_TOKEN"
	case errors.Is(err, errEmailMismatch):
		return http.StatusForbidden, "EMAIL_MISMATCH"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// errorMessage is the client-facing text for err. Validation messages are
// safe to echo; everything else gets a fixed sentence so driver and
// upstream errors stay in the logs.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrValidation):
		for _, known := range validationErrors {
			if errors.Is(err, known) {
				return known.Error()
			}
		}
		return "Invalid request"
	case errors.Is(err, service.ErrStore):
		return "Profile store unavailable, please retry"
	case errors.Is(err, service.ErrScoringBackend):
		return "Matching service failed, please retry"
	case errors.Is(err, service.ErrDelivery):
		return "Email delivery failed"
	case errors.Is(err, service.ErrInvalidLoginToken):
		return "Login link is invalid or expired"
	case errors.Is(err, errEmailMismatch):
		return "Email does not match the signed-in user"
	default:
		return "Internal server error"
	}
}

var validationErrors = []error{
	model.ErrEmailRequired,
	model.ErrEmailInvalid,
	model.ErrEmailTooLong,
	model.ErrSkillRequired,
	model.ErrSkillTooLong,
	model.ErrSkillControlChr,
}

// writeServiceError answers a non-pipeline service error.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request_failed", slog.String("code", code), slog.String("error", err.Error()))
	}
	writeError(w, status, code, errorMessage(err))
}

// writePipelineError answers a failed match submission. The body names the
// failed stage and whether a retry may help; a delivery failure also
// carries the computed matches.
func writePipelineError(w http.ResponseWriter, err error, partial *dto.MatchResponse) {
	var se *service.StageError
	if !errors.As(err, &se) {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}

	status, code := errorStatus(se)
	resp := dto.PipelineErrorResponse{
		ErrorResponse: dto.ErrorResponse{Error: errorMessage(se), Code: code},
		Stage:         string(se.Stage),
		Retryable:     se.Retryable(),
	}
	if errors.Is(se, service.ErrDelivery) {
		resp.MatchResponse = partial
	}
	writeJSON(w, status, resp)
}
