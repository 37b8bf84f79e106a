package matching

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillswap/skillswap/internal/metrics"
	"github.com/skillswap/skillswap/internal/model"
	"github.com/skillswap/skillswap/internal/testutil"
)

// stubScorer returns canned matches or an error and counts calls.
type stubScorer struct {
	name    string
	matches []model.Match
	err     error
	delay   time.Duration
	calls   atomic.Int32
	lastQ   Query
}

func (s *stubScorer) Name() string { return s.name }

func (s *stubScorer) Rank(ctx context.Context, q Query) ([]model.Match, error) {
	s.calls.Add(1)
	s.lastQ = q
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.matches, s.err
}

func scenarioRequest(t *testing.T) model.MatchRequest {
	t.Helper()
	return model.MatchRequest{
		RequesterEmail: "c@x.com",
		TeachSkill:     "Spanish",
		LearnSkill:     "Guitar",
		CandidatePool: testutil.NewTestPool(t,
			[2]string{"a@x.com", "Spanish->Guitar"},
			[2]string{"b@x.com", "Guitar->Spanish"},
			[2]string{"c@x.com", "Spanish->Guitar"},
		),
	}
}

func TestProposer_Scenario(t *testing.T) {
	t.Parallel()

	p := NewProposer(NewKeywordScorer(DefaultMinRelevance), ProposerConfig{})
	result, err := p.Propose(context.Background(), scenarioRequest(t))
	require.NoError(t, err)

	assert.Equal(t, "keyword", result.Backend)
	assert.Equal(t, []string{"b@x.com", "a@x.com"}, result.Emails())
}

func TestProposer_EmptyPoolSkipsBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		pool []*model.Profile
	}{
		{"nil pool", nil},
		{"only requester", testutil.NewTestPool(t, [2]string{"C@X.com", "Spanish->Guitar"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer := &stubScorer{name: "stub", err: errors.New("must not be called")}
			p := NewProposer(scorer, ProposerConfig{})

			result, err := p.Propose(context.Background(), model.MatchRequest{
				RequesterEmail: "c@x.com",
				TeachSkill:     "Spanish",
				LearnSkill:     "Guitar",
				CandidatePool:  tt.pool,
			})
			require.NoError(t, err)
			require.NotNil(t, result.Matches)
			assert.Empty(t, result.Matches)
			assert.Zero(t, scorer.calls.Load())
		})
	}
}

func TestProposer_ExcludesRequesterBeforeScoring(t *testing.T) {
	t.Parallel()

	scorer := &stubScorer{name: "stub"}
	p := NewProposer(scorer, ProposerConfig{})

	_, err := p.Propose(context.Background(), scenarioRequest(t))
	require.NoError(t, err)

	require.Len(t, scorer.lastQ.Pool, 2)
	for _, c := range scorer.lastQ.Pool {
		assert.NotEqual(t, "c@x.com", c.Email)
	}
}

func TestProposer_InvalidSkills(t *testing.T) {
	t.Parallel()

	scorer := &stubScorer{name: "stub"}
	p := NewProposer(scorer, ProposerConfig{})

	req := scenarioRequest(t)
	req.LearnSkill = "   "

	_, err := p.Propose(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidQuery)
	assert.ErrorIs(t, err, model.ErrSkillRequired)
	assert.Zero(t, scorer.calls.Load())
}

func TestProposer_SanitizesBackendOutput(t *testing.T) {
	t.Parallel()

	pool := testutil.NewTestPool(t,
		[2]string{"Ana@X.com", "Guitar->Spanish"},
		[2]string{"bo@x.com", "Piano->Spanish"},
		[2]string{"cy@x.com", "Drums->Spanish"},
		[2]string{"di@x.com", "Bass->Spanish"},
	)
	scorer := &stubScorer{name: "stub", matches: []model.Match{
		{CandidateEmail: "ghost@x.com", Rationale: "not in the pool"},
		{CandidateEmail: "me@x.com", Rationale: "the requester"},
		{CandidateEmail: "ana@x.com", Rationale: "  first  "},
		{CandidateEmail: "ANA@x.com", Rationale: "duplicate"},
		{CandidateEmail: "bo@x.com", Rationale: "second"},
		{CandidateEmail: "cy@x.com", Rationale: "third"},
		{CandidateEmail: "di@x.com", Rationale: "fourth"},
	}}
	p := NewProposer(scorer, ProposerConfig{})

	result, err := p.Propose(context.Background(), model.MatchRequest{
		RequesterEmail: "me@x.com",
		TeachSkill:     "Spanish",
		LearnSkill:     "Guitar",
		CandidatePool:  append(pool, testutil.NewTestProfile(t, "me@x.com", "Spanish->Guitar")),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Ana@X.com", "bo@x.com", "cy@x.com"}, result.Emails())
	assert.Equal(t, "first", result.Matches[0].Rationale)
}

func TestProposer_ResultProperties(t *testing.T) {
	t.Parallel()

	pools := map[string][][2]string{
		"small": {
			{"a@x.com", "Guitar->Spanish"},
		},
		"large": {
			{"a@x.com", "Guitar->Spanish"},
			{"b@x.com", "Guitar->French"},
			{"c@x.com", "Piano->Spanish"},
			{"d@x.com", "Guitar lessons->Spanish"},
			{"e@x.com", "Cooking->Guitar"},
			{"req@x.com", "Guitar->Spanish"},
		},
		"disjoint": {
			{"a@x.com", "Pottery->Chess"},
		},
	}

	for name, entries := range pools {
		t.Run(name, func(t *testing.T) {
			pool := testutil.NewTestPool(t, entries...)
			p := NewProposer(NewKeywordScorer(DefaultMinRelevance), ProposerConfig{})

			result, err := p.Propose(context.Background(), model.MatchRequest{
				RequesterEmail: "req@x.com",
				TeachSkill:     "Spanish",
				LearnSkill:     "Guitar",
				CandidatePool:  pool,
			})
			require.NoError(t, err)

			eligible := map[string]bool{}
			for _, c := range pool {
				if !model.SameEmail(c.Email, "req@x.com") {
					eligible[c.Email] = true
				}
			}

			assert.LessOrEqual(t, result.Len(), model.MaxMatches)
			assert.LessOrEqual(t, result.Len(), len(eligible))

			seen := map[string]bool{}
			for _, email := range result.Emails() {
				assert.True(t, eligible[email], "unexpected candidate %s", email)
				assert.False(t, seen[email], "duplicate candidate %s", email)
				seen[email] = true
			}
		})
	}
}

func TestProposer_BackendErrorWrapped(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	recorder := metrics.NewInMemory()
	p := NewProposer(&stubScorer{name: "stub", err: cause}, ProposerConfig{Recorder: recorder})

	_, err := p.Propose(context.Background(), scenarioRequest(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackend)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, uint64(1), recorder.Snapshot().ScoringFailures)
}

func TestProposer_Timeout(t *testing.T) {
	t.Parallel()

	p := NewProposer(&stubScorer{name: "slow", delay: time.Second}, ProposerConfig{
		Timeout: 20 * time.Millisecond,
	})

	start := time.Now()
	_, err := p.Propose(context.Background(), scenarioRequest(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackend)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

// blockingScorer ignores its context entirely.
type blockingScorer struct{ release chan struct{} }

func (b *blockingScorer) Name() string { return "blocking" }

func (b *blockingScorer) Rank(context.Context, Query) ([]model.Match, error) {
	<-b.release
	return nil, nil
}

func TestProposer_TimeoutWithUncooperativeBackend(t *testing.T) {
	t.Parallel()

	scorer := &blockingScorer{release: make(chan struct{})}
	defer close(scorer.release)

	p := NewProposer(scorer, ProposerConfig{Timeout: 20 * time.Millisecond})

	_, err := p.Propose(context.Background(), scenarioRequest(t))
	assert.ErrorIs(t, err, ErrBackend)
}

func TestProposer_Fallback(t *testing.T) {
	t.Parallel()

	recorder := metrics.NewInMemory()
	primary := &stubScorer{name: "gemini", err: errors.New("quota exceeded")}
	p := NewProposer(primary, ProposerConfig{
		Fallback: NewKeywordScorer(DefaultMinRelevance),
		Recorder: recorder,
	})

	result, err := p.Propose(context.Background(), scenarioRequest(t))
	require.NoError(t, err)

	assert.Equal(t, "keyword", result.Backend)
	assert.Equal(t, []string{"b@x.com", "a@x.com"}, result.Emails())
	assert.Equal(t, int32(1), primary.calls.Load())

	snap := recorder.Snapshot()
	assert.Equal(t, uint64(1), snap.ScoringFallbacks)
	assert.Equal(t, uint64(1), snap.ScoringFailures)
}

func TestProposer_FallbackAlsoFails(t *testing.T) {
	t.Parallel()

	p := NewProposer(&stubScorer{name: "gemini", err: errors.New("down")}, ProposerConfig{
		Fallback: &stubScorer{name: "backup", err: errors.New("also down")},
	})

	_, err := p.Propose(context.Background(), scenarioRequest(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackend)
	assert.Contains(t, err.Error(), "backup")
}
