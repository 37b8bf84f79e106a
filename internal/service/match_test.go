package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillswap/skillswap/internal/matching"
	"github.com/skillswap/skillswap/internal/metrics"
	"github.com/skillswap/skillswap/internal/model"
)

func newPipeline(store *memStore, proposer MatchProposer, notifier *fakeNotifier, recorder metrics.Recorder) *MatchService {
	if proposer == nil {
		proposer = matching.NewProposer(matching.NewKeywordScorer(matching.DefaultMinRelevance), matching.ProposerConfig{})
	}
	return NewMatchService(store, proposer, notifier, nil, recorder)
}

func seed(t *testing.T, store *memStore, entries ...RegisterProfileInput) {
	t.Helper()
	svc := NewProfileService(store, nil, nil)
	for _, in := range entries {
		_, err := svc.Register(context.Background(), in)
		require.NoError(t, err)
	}
}

func TestSubmit_Scenario(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	seed(t, store,
		RegisterProfileInput{Email: "a@x.com", TeachSkill: "Spanish", LearnSkill: "Guitar"},
		RegisterProfileInput{Email: "b@x.com", TeachSkill: "Guitar", LearnSkill: "Spanish"},
	)
	notifier := &fakeNotifier{}
	recorder := metrics.NewInMemory()

	out, err := newPipeline(store, nil, notifier, recorder).Submit(context.Background(), RegisterProfileInput{
		Email: "c@x.com", TeachSkill: "Spanish", LearnSkill: "Guitar",
	})
	require.NoError(t, err)

	assert.True(t, out.Notified)
	assert.Equal(t, "c@x.com", out.Profile.Email)
	assert.NotEmpty(t, out.Profile.ID)
	assert.Equal(t, []string{"b@x.com", "a@x.com"}, out.Result.Emails())
	assert.Equal(t, []string{"c@x.com"}, notifier.matches)
	assert.Equal(t, 3, store.count())
	assert.Equal(t, uint64(1), recorder.Snapshot().MatchSubmissions[metrics.OutcomeSuccess])
}

func TestSubmit_FirstUserGetsEmptyResult(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	out, err := newPipeline(&memStore{}, nil, notifier, nil).Submit(context.Background(), RegisterProfileInput{
		Email: "first@x.com", TeachSkill: "Chess", LearnSkill: "Go",
	})
	require.NoError(t, err)

	assert.Empty(t, out.Result.Matches)
	assert.True(t, out.Notified)
	assert.Len(t, notifier.matches, 1)
}

func TestSubmit_ValidationStopsAtIntake(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      RegisterProfileInput
		wantErr error
	}{
		{"missing email", RegisterProfileInput{TeachSkill: "Chess", LearnSkill: "Go"}, model.ErrEmailRequired},
		{"bad email", RegisterProfileInput{Email: "not-an-email", TeachSkill: "Chess", LearnSkill: "Go"}, model.ErrEmailInvalid},
		{"blank teach", RegisterProfileInput{Email: "a@x.com", TeachSkill: "  ", LearnSkill: "Go"}, model.ErrSkillRequired},
		{"missing learn", RegisterProfileInput{Email: "a@x.com", TeachSkill: "Chess"}, model.ErrSkillRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{}
			proposer := &fakeProposer{}
			notifier := &fakeNotifier{}

			_, err := newPipeline(store, proposer, notifier, nil).Submit(context.Background(), tt.in)
			require.Error(t, err)

			var se *StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, StageIntake, se.Stage)
			assert.ErrorIs(t, err, ErrValidation)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, se.Retryable())

			assert.Zero(t, store.count())
			assert.Zero(t, store.listCalls)
			assert.Zero(t, proposer.calls)
			assert.Empty(t, notifier.matches)
		})
	}
}

func TestSubmit_IntakeStoreFailure(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	_, err := newPipeline(&memStore{failCreate: true}, nil, notifier, nil).Submit(context.Background(), RegisterProfileInput{
		Email: "a@x.com", TeachSkill: "Chess", LearnSkill: "Go",
	})

	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, StageIntake, StageOf(err))
	assert.Empty(t, notifier.matches)
}

func TestSubmit_FetchFailureSkipsNotify(t *testing.T) {
	t.Parallel()

	store := &memStore{failList: true}
	proposer := &fakeProposer{}
	notifier := &fakeNotifier{}
	recorder := metrics.NewInMemory()

	out, err := newPipeline(store, proposer, notifier, recorder).Submit(context.Background(), RegisterProfileInput{
		Email: "c@x.com", TeachSkill: "Spanish", LearnSkill: "Guitar",
	})
	require.Error(t, err)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageFetch, se.Stage)
	assert.ErrorIs(t, err, ErrStore)
	assert.True(t, se.Retryable())

	assert.Equal(t, 1, store.count(), "intake row stays persisted")
	assert.NotNil(t, out.Profile)
	assert.Zero(t, proposer.calls)
	assert.Empty(t, notifier.matches)
	assert.Equal(t, uint64(1), recorder.Snapshot().MatchSubmissions[metrics.OutcomeStoreError])
}

func TestSubmit_ScoringFailureSkipsNotify(t *testing.T) {
	t.Parallel()

	cause := errors.New("quota exceeded")
	proposer := &fakeProposer{err: errors.Join(matching.ErrBackend, cause)}
	notifier := &fakeNotifier{}

	_, err := newPipeline(&memStore{}, proposer, notifier, nil).Submit(context.Background(), RegisterProfileInput{
		Email: "c@x.com", TeachSkill: "Spanish", LearnSkill: "Guitar",
	})

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StagePropose, se.Stage)
	assert.ErrorIs(t, err, ErrScoringBackend)
	assert.ErrorIs(t, err, cause)
	assert.True(t, se.Retryable())
	assert.Empty(t, notifier.matches)
}

func TestSubmit_DeliveryFailureKeepsResult(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	seed(t, store, RegisterProfileInput{Email: "b@x.com", TeachSkill: "Guitar", LearnSkill: "Spanish"})
	notifier := &fakeNotifier{err: errors.New("status 400")}

	out, err := newPipeline(store, nil, notifier, nil).Submit(context.Background(), RegisterProfileInput{
		Email: "c@x.com", TeachSkill: "Spanish", LearnSkill: "Guitar",
	})

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageNotify, se.Stage)
	assert.ErrorIs(t, err, ErrDelivery)
	assert.False(t, se.Retryable())

	require.NotNil(t, out.Result)
	assert.Equal(t, []string{"b@x.com"}, out.Result.Emails())
	assert.False(t, out.Notified)
}

func TestSubmit_DuplicateEmailsPersistSeparately(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	svc := newPipeline(store, nil, &fakeNotifier{}, nil)
	in := RegisterProfileInput{Email: "dup@x.com", TeachSkill: "Chess", LearnSkill: "Go"}

	first, err := svc.Submit(context.Background(), in)
	require.NoError(t, err)
	second, err := svc.Submit(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 2, store.count())
	assert.NotEqual(t, first.Profile.ID, second.Profile.ID)
	assert.Empty(t, second.Result.Matches, "own earlier profile is never a candidate")
}

func TestStageError(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := error(stageError(StageFetch, ErrStore, cause))

	assert.Equal(t, "fetch: profile store unavailable: boom", err.Error())
	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrDelivery)
	assert.Equal(t, StageFetch, StageOf(err))
	assert.Equal(t, Stage(""), StageOf(cause))
}
