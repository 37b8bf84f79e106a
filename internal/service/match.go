package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/skillswap/skillswap/internal/auth"
	"github.com/skillswap/skillswap/internal/matching"
	"github.com/skillswap/skillswap/internal/metrics"
	"github.com/skillswap/skillswap/internal/model"
)

// MatchProposer ranks candidates for one request.
type MatchProposer interface {
	Propose(ctx context.Context, req model.MatchRequest) (*model.MatchResult, error)
}

// MatchNotifier delivers a result to the requester.
type MatchNotifier interface {
	SendMatches(ctx context.Context, recipient string, result *model.MatchResult) error
}

// SubmitOutput is what a submission produced. Fields are filled as stages
// succeed, so a delivery failure still carries Profile and Result.
type SubmitOutput struct {
	Profile  *model.Profile
	Result   *model.MatchResult
	Notified bool
}

// MatchService runs the whole pipeline for one submission:
// intake, fetch, propose, notify. Stages run once, in order, and the first
// failure stops the rest. Nothing is retried and no result is cached.
type MatchService struct {
	profiles *ProfileService
	proposer MatchProposer
	notifier MatchNotifier
	logger   *slog.Logger
	metrics  metrics.Recorder
}

// NewMatchService wires the pipeline from its collaborators.
func NewMatchService(store ProfileStore, proposer MatchProposer, notifier MatchNotifier, logger *slog.Logger, recorder metrics.Recorder) *MatchService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &MatchService{
		profiles: NewProfileService(store, logger, recorder),
		proposer: proposer,
		notifier: notifier,
		logger:   logger.With("component", "pipeline"),
		metrics:  recorder,
	}
}

// Submit registers the requester and mails them a shortlist.
func (s *MatchService) Submit(ctx context.Context, in RegisterProfileInput) (*SubmitOutput, error) {
	start := time.Now()
	out := &SubmitOutput{}

	profile, err := s.profiles.Register(ctx, in)
	if err != nil {
		return out, s.failed(err)
	}
	out.Profile = profile

	pool, err := s.profiles.List(ctx)
	if err != nil {
		return out, s.failed(err)
	}

	result, err := s.proposer.Propose(ctx, model.MatchRequest{
		RequesterEmail: profile.Email,
		TeachSkill:     profile.TeachSkill,
		LearnSkill:     profile.LearnSkill,
		CandidatePool:  pool,
	})
	if err != nil {
		kind := ErrScoringBackend
		if errors.Is(err, matching.ErrInvalidQuery) {
			kind = ErrValidation
		}
		return out, s.failed(stageError(StagePropose, kind, err))
	}
	out.Result = result

	s.logger.Info("matches_proposed",
		slog.String("profile_id", profile.ID),
		slog.String("backend", result.Backend),
		slog.Int("pool_size", len(pool)),
		slog.Int("matches", result.Len()),
	)

	if err := s.notifier.SendMatches(ctx, profile.Email, result); err != nil {
		return out, s.failed(stageError(StageNotify, ErrDelivery, err))
	}
	out.Notified = true

	s.metrics.IncMatchSubmission(metrics.OutcomeSuccess)
	s.logger.Info("submission_completed",
		slog.String("profile_id", profile.ID),
		slog.String("email_fp", auth.Fingerprint(profile.Email)),
		slog.Duration("duration", time.Since(start)),
	)
	return out, nil
}

func (s *MatchService) failed(err error) error {
	var se *StageError
	if !errors.As(err, &se) {
		return err
	}

	outcome := metrics.OutcomeValidationError
	switch se.Kind {
	case ErrStore:
		outcome = metrics.OutcomeStoreError
	case ErrScoringBackend:
		outcome = metrics.OutcomeScoringError
	case ErrDelivery:
		outcome = metrics.OutcomeDeliveryError
	}
	s.metrics.IncMatchSubmission(outcome)

	level := slog.LevelWarn
	if se.Kind == ErrValidation {
		level = slog.LevelInfo
	}
	s.logger.Log(context.Background(), level, "submission_failed",
		slog.String("stage", string(se.Stage)),
		slog.String("kind", se.Kind.Error()),
		slog.Bool("retryable", se.Retryable()),
		slog.String("error", err.Error()),
	)
	return se
}
