// Package service holds the match pipeline and the sign-in flow.
package service

import (
	"context"
	"log/slog"

	"github.com/skillswap/skillswap/internal/auth"
	"github.com/skillswap/skillswap/internal/metrics"
	"github.com/skillswap/skillswap/internal/model"
)

// ProfileStore is the durable profile store.
type ProfileStore interface {
	CreateProfile(ctx context.Context, profile *model.Profile) error
	ListProfiles(ctx context.Context) ([]*model.Profile, error)
}

// RegisterProfileInput is an unvalidated submission.
type RegisterProfileInput struct {
	Email      string
	TeachSkill string
	LearnSkill string
}

func (in RegisterProfileInput) profile() *model.Profile {
	p := &model.Profile{
		Email:      in.Email,
		TeachSkill: in.TeachSkill,
		LearnSkill: in.LearnSkill,
	}
	p.Normalize()
	return p
}

// ProfileService runs Registration Intake and Candidate Pool Fetch.
type ProfileService struct {
	store   ProfileStore
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewProfileService creates a ProfileService.
func NewProfileService(store ProfileStore, logger *slog.Logger, recorder metrics.Recorder) *ProfileService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ProfileService{
		store:   store,
		logger:  logger.With("component", "profiles"),
		metrics: recorder,
	}
}

// Register validates and appends one profile. Duplicate emails are accepted
// and stored as separate rows.
func (s *ProfileService) Register(ctx context.Context, in RegisterProfileInput) (*model.Profile, error) {
	p := in.profile()
	if err := p.Validate(); err != nil {
		return nil, stageError(StageIntake, ErrValidation, err)
	}

	if err := s.store.CreateProfile(ctx, p); err != nil {
		s.logger.Error("profile_store_failed",
			slog.String("stage", string(StageIntake)),
			slog.String("error", err.Error()),
		)
		return nil, stageError(StageIntake, ErrStore, err)
	}

	s.metrics.IncProfileRegistered()
	s.logger.Info("profile_registered",
		slog.String("profile_id", p.ID),
		slog.String("email_fp", auth.Fingerprint(p.Email)),
	)
	return p, nil
}

// List returns every profile in registration order.
func (s *ProfileService) List(ctx context.Context) ([]*model.Profile, error) {
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		s.logger.Error("profile_store_failed",
			slog.String("stage", string(StageFetch)),
			slog.String("error", err.Error()),
		)
		return nil, stageError(StageFetch, ErrStore, err)
	}
	if profiles == nil {
		profiles = []*model.Profile{}
	}
	return profiles, nil
}
