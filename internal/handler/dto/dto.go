// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/skillswap/skillswap/internal/model"
)

// RegisterProfileRequest is the body of POST /api/v1/profiles and
// POST /api/v1/matches. Email may be omitted when a session is present.
type RegisterProfileRequest struct {
	Email      string `json:"email,omitempty"`
	TeachSkill string `json:"teach_skill"`
	LearnSkill string `json:"learn_skill"`
}

// ProfileResponse represents a stored profile.
type ProfileResponse struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	TeachSkill string    `json:"teach_skill"`
	LearnSkill string    `json:"learn_skill"`
	CreatedAt  time.Time `json:"created_at"`
}

// ProfileListResponse is the candidate pool in registration order.
type ProfileListResponse struct {
	Data  []ProfileResponse `json:"data"`
	Count int               `json:"count"`
}

// MatchResponse is the outcome of a match submission.
type MatchResponse struct {
	Profile  *ProfileResponse `json:"profile"`
	Matches  []model.Match    `json:"matches"`
	Backend  string           `json:"backend"`
	Notified bool             `json:"notified"`
}

// LoginLinkRequest is the body of POST /api/v1/auth/login-link.
type LoginLinkRequest struct {
	Email string `json:"email"`
}

// LoginLinkResponse acknowledges a sent link.
type LoginLinkResponse struct {
	Status    string `json:"status"`
	ExpiresIn int    `json:"expires_in"` // seconds
}

// SessionRequest is the body of POST /api/v1/auth/session.
type SessionRequest struct {
	Token string `json:"token"`
}

// SessionResponse carries a new session token.
type SessionResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IdentityResponse describes the signed-in user.
type IdentityResponse struct {
	Email     string    `json:"email"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// InfoResponse is served at GET /.
type InfoResponse struct {
	Name    string `json:"name"`
	Tagline string `json:"tagline"`
	Version string `json:"version"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// PipelineErrorResponse reports a failed match pipeline stage. A failed
// delivery still embeds the computed result.
type PipelineErrorResponse struct {
	ErrorResponse
	Stage     string `json:"stage"`
	Retryable bool   `json:"retryable"`
	*MatchResponse
}

// ToProfileResponse converts a Profile model to ProfileResponse DTO.
func ToProfileResponse(p *model.Profile) *ProfileResponse {
	if p == nil {
		return nil
	}
	return &ProfileResponse{
		ID:         p.ID,
		Email:      p.Email,
		TeachSkill: p.TeachSkill,
		LearnSkill: p.LearnSkill,
		CreatedAt:  p.CreatedAt,
	}
}

// ToProfileListResponse converts profiles to ProfileListResponse.
func ToProfileListResponse(profiles []*model.Profile) *ProfileListResponse {
	data := make([]ProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		if p != nil {
			data = append(data, *ToProfileResponse(p))
		}
	}
	return &ProfileListResponse{Data: data, Count: len(data)}
}

// ToMatchResponse builds the response of a match submission. A nil result
// yields an empty match list.
func ToMatchResponse(p *model.Profile, result *model.MatchResult, notified bool) *MatchResponse {
	resp := &MatchResponse{
		Profile:  ToProfileResponse(p),
		Matches:  []model.Match{},
		Notified: notified,
	}
	if result != nil {
		resp.Backend = result.Backend
		if result.Matches != nil {
			resp.Matches = result.Matches
		}
	}
	return resp
}

// ToIdentityResponse converts an Identity to IdentityResponse.
func ToIdentityResponse(id *model.Identity) *IdentityResponse {
	return &IdentityResponse{
		Email:     id.Email,
		SessionID: id.SessionID,
		ExpiresAt: id.ExpiresAt,
	}
}
