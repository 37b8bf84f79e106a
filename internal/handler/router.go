package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/skillswap/skillswap/internal/metrics"
	"github.com/skillswap/skillswap/internal/middleware"
)

// Rate limit scopes.
const (
	scopeMatches = "matches"
	scopeLogin   = "login"
)

// RouterConfig carries everything the HTTP surface needs.
type RouterConfig struct {
	Logger  *slog.Logger
	Version string

	Profiles ProfileRegistry
	Matches  MatchSubmitter
	Login    LoginFlow
	Sessions middleware.Authenticator
	LinkTTL  time.Duration

	// Readiness dependencies; nil means not configured.
	DB    HealthChecker
	Cache HealthChecker

	Metrics metrics.Snapshotter

	RateLimiter      middleware.IPRateLimiter
	RateLimitEnabled bool
	MatchPerMinute   int
	MatchBurst       int
	LoginPerMinute   int
	LoginBurst       int

	// AuthRequired demands a session for profile and match submissions.
	AuthRequired bool

	IsDevelopment  bool
	AllowedOrigins []string
	MaxBodySize    int64
}

// NewRouter builds the chi router with the middleware chain and all routes.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := cfg.MaxBodySize
	if maxBody <= 0 {
		maxBody = 64 << 10
	}

	base := New(cfg.Version)
	health := NewHealthHandler(cfg.DB, cfg.Cache, logger)
	metricsHandler := NewMetricsHandler(cfg.Metrics)
	profiles := NewProfileHandler(cfg.Profiles, logger)
	matches := NewMatchHandler(cfg.Matches, logger)
	authHandler := NewAuthHandler(cfg.Login, cfg.LinkTTL, logger)

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.AllowedOrigins

	rateLimit := middleware.RateLimitConfig{
		Logger:  logger,
		Limiter: cfg.RateLimiter,
		Enabled: cfg.RateLimitEnabled,
	}

	r := chi.NewRouter()

	// RealIP must run before anything that reads RemoteAddr.
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment}))
	r.Use(middleware.CORS(corsConfig))
	r.Use(middleware.MaxBodySize(maxBody))

	r.Get("/", base.Info)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(middleware.SessionConfig{
			Logger:        logger,
			Authenticator: cfg.Sessions,
		}))

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.RateLimitIP(rateLimit, scopeLogin, cfg.LoginPerMinute, cfg.LoginBurst)).
				Post("/login-link", authHandler.RequestLink)
			r.Post("/session", authHandler.CreateSession)
			r.With(middleware.RequireSession(true)).Get("/me", authHandler.Me)
		})

		// The pool exposes every member's email, so listing always needs a session.
		r.With(middleware.RequireSession(true)).Get("/profiles", profiles.List)
		r.With(middleware.RequireSession(cfg.AuthRequired)).Post("/profiles", profiles.Create)

		r.With(
			middleware.RateLimitIP(rateLimit, scopeMatches, cfg.MatchPerMinute, cfg.MatchBurst),
			middleware.RequireSession(cfg.AuthRequired),
		).Post("/matches", matches.Submit)
	})

	r.NotFound(base.NotFound)
	r.MethodNotAllowed(base.MethodNotAllowed)

	return r
}
