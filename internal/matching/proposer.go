package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/skillswap/skillswap/internal/metrics"
	"github.com/skillswap/skillswap/internal/model"
)

// ProposerConfig holds optional Proposer settings.
type ProposerConfig struct {
	// Timeout bounds each backend call. Zero means no timeout.
	Timeout time.Duration
	// Fallback, when set, is used after the primary backend fails.
	// Leave nil to surface backend failures.
	Fallback Scorer
	Logger   *slog.Logger
	Recorder metrics.Recorder
}

// Proposer turns a MatchRequest into a MatchResult using a Scorer and
// enforces the result contract whatever the backend returns.
type Proposer struct {
	primary  Scorer
	fallback Scorer
	timeout  time.Duration
	logger   *slog.Logger
	metrics  metrics.Recorder
}

// NewProposer creates a Proposer around the primary scorer.
func NewProposer(primary Scorer, cfg ProposerConfig) *Proposer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Proposer{
		primary:  primary,
		fallback: cfg.Fallback,
		timeout:  cfg.Timeout,
		logger:   logger.With("component", "matching"),
		metrics:  recorder,
	}
}

// Propose ranks up to model.MaxMatches candidates for the requester.
//
// An empty pool, or a pool holding only the requester, yields an empty
// result without calling the backend. Backend failures and timeouts are
// returned wrapped in ErrBackend.
func (p *Proposer) Propose(ctx context.Context, req model.MatchRequest) (*model.MatchResult, error) {
	teach := strings.TrimSpace(req.TeachSkill)
	learn := strings.TrimSpace(req.LearnSkill)
	if err := model.ValidateSkill(teach); err != nil {
		return nil, fmt.Errorf("%w: teach skill: %w", ErrInvalidQuery, err)
	}
	if err := model.ValidateSkill(learn); err != nil {
		return nil, fmt.Errorf("%w: learn skill: %w", ErrInvalidQuery, err)
	}

	pool := excludeRequester(req.CandidatePool, req.RequesterEmail)
	result := &model.MatchResult{Matches: []model.Match{}, Backend: p.primary.Name()}
	if len(pool) == 0 {
		p.metrics.ObserveMatchCount(0)
		return result, nil
	}

	q := Query{TeachSkill: teach, LearnSkill: learn, Pool: pool}

	ranked, err := p.rank(ctx, p.primary, q)
	if err != nil {
		if p.fallback == nil {
			return nil, err
		}
		p.logger.Warn("scoring_fallback_used",
			slog.String("primary", p.primary.Name()),
			slog.String("fallback", p.fallback.Name()),
			slog.String("error", err.Error()),
		)
		p.metrics.IncScoringFallback()

		ranked, err = p.rank(ctx, p.fallback, q)
		if err != nil {
			return nil, err
		}
		result.Backend = p.fallback.Name()
	}

	result.Matches = sanitize(ranked, pool, req.RequesterEmail)
	p.logger.Debug("matches_ranked",
		slog.String("backend", result.Backend),
		slog.Int("pool_size", len(pool)),
		slog.Int("ranked", len(ranked)),
		slog.Int("returned", len(result.Matches)),
	)
	p.metrics.ObserveMatchCount(len(result.Matches))

	return result, nil
}

type rankOutcome struct {
	matches []model.Match
	err     error
}

// rank runs one backend call under the configured timeout. The call runs in
// its own goroutine so a backend that ignores ctx still cannot hold the
// request past the deadline.
func (p *Proposer) rank(ctx context.Context, s Scorer, q Query) ([]model.Match, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan rankOutcome, 1)
	go func() {
		matches, err := s.Rank(ctx, q)
		done <- rankOutcome{matches: matches, err: err}
	}()

	var out rankOutcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out = rankOutcome{err: ctx.Err()}
	}
	p.metrics.ObserveScoringDuration(time.Since(start))

	if out.err == nil {
		return out.matches, nil
	}

	p.metrics.IncScoringFailure()
	switch {
	case errors.Is(out.err, context.DeadlineExceeded):
		return nil, fmt.Errorf("%w: %s timed out after %s: %w", ErrBackend, s.Name(), p.timeout, out.err)
	case errors.Is(out.err, ErrBackend):
		return nil, out.err
	default:
		return nil, fmt.Errorf("%w: %s: %w", ErrBackend, s.Name(), out.err)
	}
}

// excludeRequester drops nil entries and every profile sharing the
// requester's email.
func excludeRequester(pool []*model.Profile, requester string) []*model.Profile {
	out := make([]*model.Profile, 0, len(pool))
	for _, p := range pool {
		if p == nil {
			continue
		}
		if requester != "" && model.SameEmail(p.Email, requester) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// sanitize keeps backend order but only for emails present in the pool,
// once per email, never the requester, at most model.MaxMatches entries.
// Emails are rewritten to their stored spelling.
func sanitize(ranked []model.Match, pool []*model.Profile, requester string) []model.Match {
	known := make(map[string]string, len(pool))
	for _, p := range pool {
		key := strings.ToLower(strings.TrimSpace(p.Email))
		if _, ok := known[key]; !ok {
			known[key] = p.Email
		}
	}

	seen := make(map[string]bool, model.MaxMatches)
	out := make([]model.Match, 0, model.MaxMatches)
	for _, m := range ranked {
		key := strings.ToLower(strings.TrimSpace(m.CandidateEmail))
		stored, ok := known[key]
		if !ok || seen[key] || (requester != "" && model.SameEmail(key, requester)) {
			continue
		}
		seen[key] = true
		m.CandidateEmail = stored
		m.Rationale = strings.TrimSpace(m.Rationale)
		out = append(out, m)
		if len(out) == model.MaxMatches {
			break
		}
	}
	return out
}
