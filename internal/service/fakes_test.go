package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/skillswap/skillswap/internal/cache"
	"github.com/skillswap/skillswap/internal/model"
)

var errDown = errors.New("connection refused")

// memStore is an in-memory ProfileStore with switchable failures.
type memStore struct {
	mu         sync.Mutex
	profiles   []*model.Profile
	failCreate bool
	failList   bool
	listCalls  int
}

func (s *memStore) CreateProfile(_ context.Context, p *model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate {
		return errDown
	}
	if p.ID == "" {
		p.ID = ulid.Make().String()
	}
	p.CreatedAt = time.Now().UTC()
	stored := *p
	s.profiles = append(s.profiles, &stored)
	return nil
}

func (s *memStore) ListProfiles(context.Context) ([]*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.failList {
		return nil, errDown
	}
	out := make([]*model.Profile, len(s.profiles))
	for i, p := range s.profiles {
		cp := *p
		out[i] = &cp
	}
	return out, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.profiles)
}

// fakeProposer returns a canned result or error.
type fakeProposer struct {
	result *model.MatchResult
	err    error
	calls  int
}

func (p *fakeProposer) Propose(context.Context, model.MatchRequest) (*model.MatchResult, error) {
	p.calls++
	return p.result, p.err
}

// fakeNotifier records sends and can fail.
type fakeNotifier struct {
	err       error
	matches   []string
	links     []string
	recipient string
}

func (n *fakeNotifier) SendMatches(_ context.Context, recipient string, result *model.MatchResult) error {
	n.recipient = recipient
	n.matches = append(n.matches, recipient)
	return n.err
}

func (n *fakeNotifier) SendLoginLink(_ context.Context, recipient, link string, _ time.Duration) error {
	n.recipient = recipient
	n.links = append(n.links, link)
	return n.err
}

// memTokens is an in-memory LoginTokenStore.
type memTokens struct {
	mu        sync.Mutex
	tokens    map[string]model.LoginToken
	failStore bool
}

func newMemTokens() *memTokens {
	return &memTokens{tokens: map[string]model.LoginToken{}}
}

func (m *memTokens) StoreLoginToken(_ context.Context, token *model.LoginToken, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failStore {
		return errDown
	}
	m.tokens[token.ID] = *token
	return nil
}

func (m *memTokens) ConsumeLoginToken(_ context.Context, id string) (*model.LoginToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	delete(m.tokens, id)
	return &t, nil
}
