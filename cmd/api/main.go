// Package main is the entrypoint for the SkillSwap API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/skillswap/skillswap/internal/auth"
	"github.com/skillswap/skillswap/internal/cache"
	"github.com/skillswap/skillswap/internal/config"
	"github.com/skillswap/skillswap/internal/handler"
	"github.com/skillswap/skillswap/internal/matching"
	"github.com/skillswap/skillswap/internal/metrics"
	"github.com/skillswap/skillswap/internal/notify"
	"github.com/skillswap/skillswap/internal/repository"
	"github.com/skillswap/skillswap/internal/server"
	"github.com/skillswap/skillswap/internal/service"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return errors.New("database unavailable")
	}
	if n, err := repo.CountProfiles(ctx); err == nil {
		logger.Info("connected to database", slog.Int64("profiles", n))
	} else {
		logger.Warn("connected to database, profiles table not readable; run cmd/seed -migrate",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)))
	}

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		repo.Close()
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		return errors.New("redis unavailable")
	}
	logger.Info("connected to Redis")

	recorder := metrics.NewInMemory()

	proposer, err := buildProposer(ctx, cfg, logger, recorder)
	if err != nil {
		repo.Close()
		_ = cacheClient.Close()
		return err
	}

	mailer, err := buildMailer(cfg, logger, recorder)
	if err != nil {
		repo.Close()
		_ = cacheClient.Close()
		return err
	}

	sessions := auth.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL)
	authService := service.NewAuthService(cacheClient, mailer, sessions, service.AuthConfig{
		BaseURL: cfg.BaseURL,
		LinkTTL: cfg.LoginLinkTTL,
	}, logger, recorder)

	router := handler.NewRouter(handler.RouterConfig{
		Logger:           logger,
		Version:          version,
		Profiles:         service.NewProfileService(repo, logger, recorder),
		Matches:          service.NewMatchService(repo, proposer, mailer, logger, recorder),
		Login:            authService,
		Sessions:         authService,
		LinkTTL:          cfg.LoginLinkTTL,
		DB:               repo,
		Cache:            cacheClient,
		Metrics:          recorder,
		RateLimiter:      cacheClient,
		RateLimitEnabled: cfg.RateLimitEnabled,
		MatchPerMinute:   cfg.RateLimitMatchPerMinute,
		MatchBurst:       cfg.RateLimitMatchBurst,
		LoginPerMinute:   cfg.RateLimitLoginPerMinute,
		LoginBurst:       cfg.RateLimitLoginBurst,
		AuthRequired:     cfg.AuthRequired,
		IsDevelopment:    cfg.IsDevelopment(),
		AllowedOrigins:   cfg.GetCORSAllowedOrigins(),
		MaxBodySize:      cfg.MaxRequestBodySize,
	})

	srv := server.New(router, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          logger,
	})
	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(context.Context) error {
		return cacheClient.Close()
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
		"version", version,
		"scorer", cfg.ScorerBackend,
		"scorer_fallback", cfg.ScorerFallback,
		"mail_backend", cfg.MailBackend,
		"auth_required", cfg.AuthRequired,
	)

	return srv.Run(ctx)
}

// buildProposer assembles the primary scorer and the optional fallback.
func buildProposer(ctx context.Context, cfg *config.Config, logger *slog.Logger, recorder metrics.Recorder) (*matching.Proposer, error) {
	keyword := matching.NewKeywordScorer(cfg.MatchMinRelevance)

	var gemini matching.Scorer
	if cfg.UsesGemini() {
		client, err := matching.NewGeminiClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		gemini = matching.NewGeminiScorer(client.Models, cfg.GeminiModel, cfg.GeminiTemperature)
	}

	pick := func(name string) matching.Scorer {
		switch name {
		case config.ScorerGemini:
			return gemini
		case config.ScorerKeyword:
			return keyword
		default:
			return nil
		}
	}

	primary := pick(cfg.ScorerBackend)
	if primary == nil {
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownScorer, cfg.ScorerBackend)
	}

	return matching.NewProposer(primary, matching.ProposerConfig{
		Timeout:  cfg.ScorerTimeout,
		Fallback: pick(cfg.ScorerFallback),
		Logger:   logger,
		Recorder: recorder,
	}), nil
}

// buildMailer picks the mail backend. Production refuses a mail API URL
// that is not public HTTPS.
func buildMailer(cfg *config.Config, logger *slog.Logger, recorder metrics.Recorder) (notify.Mailer, error) {
	if cfg.MailBackend == config.MailBackendLog {
		logger.Warn("mail backend is log; matches and sign-in links are written to the log only")
		return notify.NewLogMailer(logger, recorder), nil
	}

	if cfg.IsProduction() {
		if err := notify.ValidateEndpoint(cfg.MailAPIURL); err != nil {
			return nil, fmt.Errorf("invalid MAIL_API_URL %q: %w", notify.ExtractHost(cfg.MailAPIURL), err)
		}
	}

	return notify.NewEmailJSMailer(notify.EmailJSConfig{
		Endpoint:        cfg.MailAPIURL,
		ServiceID:       cfg.MailServiceID,
		MatchTemplateID: cfg.MailMatchTemplateID,
		LoginTemplateID: cfg.MailLoginTemplateID,
		PublicKey:       cfg.MailPublicKey,
		PrivateKey:      cfg.MailPrivateKey,
		SigningSecret:   cfg.MailSigningSecret,
	}, notify.NewHTTPClient(cfg.MailTimeout), logger, recorder), nil
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
