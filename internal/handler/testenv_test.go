package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/skillswap/skillswap/internal/auth"
	"github.com/skillswap/skillswap/internal/cache"
	"github.com/skillswap/skillswap/internal/matching"
	"github.com/skillswap/skillswap/internal/metrics"
	"github.com/skillswap/skillswap/internal/model"
	"github.com/skillswap/skillswap/internal/service"
)

const testSessionSecret = "handler-test-secret-0123456789abcdef"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an append-only in-memory ProfileStore.
type memStore struct {
	mu         sync.Mutex
	profiles   []*model.Profile
	failCreate error
	failList   error
}

func (s *memStore) CreateProfile(_ context.Context, p *model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return s.failCreate
	}
	p.ID = fmt.Sprintf("01HPROFILE%06d", len(s.profiles)+1)
	p.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).Add(time.Duration(len(s.profiles)) * time.Second)
	stored := *p
	s.profiles = append(s.profiles, &stored)
	return nil
}

func (s *memStore) ListProfiles(context.Context) ([]*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failList != nil {
		return nil, s.failList
	}
	out := make([]*model.Profile, len(s.profiles))
	for i, p := range s.profiles {
		c := *p
		out[i] = &c
	}
	return out, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.profiles)
}

// memTokens is an in-memory LoginTokenStore.
type memTokens struct {
	mu     sync.Mutex
	tokens map[string]model.LoginToken
}

func (m *memTokens) StoreLoginToken(_ context.Context, t *model.LoginToken, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		m.tokens = map[string]model.LoginToken{}
	}
	m.tokens[t.ID] = *t
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
	t.ID = id
	return &t, nil
}

// captureMailer records outgoing mail.
type captureMailer struct {
	mu        sync.Mutex
	matchErr  error
	results   map[string]*model.MatchResult
	lastLink  string
	linkCount int
}

func (c *captureMailer) SendMatches(_ context.Context, recipient string, result *model.MatchResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.matchErr != nil {
		return c.matchErr
	}
	if c.results == nil {
		c.results = map[string]*model.MatchResult{}
	}
	c.results[recipient] = result
	return nil
}

func (c *captureMailer) SendLoginLink(_ context.Context, _ string, link string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastLink = link
	c.linkCount++
	return nil
}

func (c *captureMailer) loginToken(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	u, err := url.Parse(c.lastLink)
	if err != nil {
		t.Fatalf("parse login link %q: %v", c.lastLink, err)
	}
	return u.Query().Get("token")
}

// failingScorer always errors.
type failingScorer struct{}

func (failingScorer) Name() string { return "failing" }

func (failingScorer) Rank(context.Context, matching.Query) ([]model.Match, error) {
	return nil, fmt.Errorf("%w: quota exceeded", matching.ErrBackend)
}

type envOptions struct {
	authRequired bool
	scorer       matching.Scorer
}

type testEnv struct {
	router   http.Handler
	store    *memStore
	mailer   *captureMailer
	sessions *auth.SessionManager
	recorder *metrics.InMemoryRecorder
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()

	logger := discardLogger()
	recorder := metrics.NewInMemory()
	store := &memStore{}
	mailer := &captureMailer{}
	sessions := auth.NewSessionManager(testSessionSecret, time.Hour)

	scorer := opts.scorer
	if scorer == nil {
		scorer = matching.NewKeywordScorer(matching.DefaultMinRelevance)
	}
	proposer := matching.NewProposer(scorer, matching.ProposerConfig{
		Timeout:  time.Second,
		Logger:   logger,
		Recorder: recorder,
	})

	authSvc := service.NewAuthService(&memTokens{}, mailer, sessions, service.AuthConfig{
		BaseURL: "https://skillswap.example",
		LinkTTL: 15 * time.Minute,
	}, logger, recorder)

	router := NewRouter(RouterConfig{
		Logger:         logger,
		Version:        "test",
		Profiles:       service.NewProfileService(store, logger, recorder),
		Matches:        service.NewMatchService(store, proposer, mailer, logger, recorder),
		Login:          authSvc,
		Sessions:       authSvc,
		LinkTTL:        15 * time.Minute,
		Metrics:        recorder,
		AuthRequired:   opts.authRequired,
		IsDevelopment:  true,
		AllowedOrigins: []string{"https://skillswap.example"},
	})

	return &testEnv{
		router:   router,
		store:    store,
		mailer:   mailer,
		sessions: sessions,
		recorder: recorder,
	}
}

func (e *testEnv) session(t *testing.T, email string) string {
	t.Helper()
	token, _, err := e.sessions.Issue(email)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	return token
}

// do sends body (marshaled unless already a string) with an optional bearer token.
func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := newRequest(t, method, path, body, token)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func newRequest(t *testing.T, method, path string, body any, token string) *http.Request {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return v
}

func newProfile(email, teach, learn string) *model.Profile {
	return &model.Profile{Email: email, TeachSkill: teach, LearnSkill: learn}
}

func profileBody(email, teach, learn string) map[string]string {
	body := map[string]string{"teach_skill": teach, "learn_skill": learn}
	if email != "" {
		body["email"] = email
	}
	return body
}
