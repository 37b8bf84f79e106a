package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/skillswap/skillswap/internal/metrics"
	"github.com/skillswap/skillswap/internal/model"
)

// LogMailer writes mail to the log instead of sending it. It is the
// development default so the service runs without mail credentials.
type LogMailer struct {
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger, recorder metrics.Recorder) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &LogMailer{logger: logger.With("component", "mailer"), metrics: recorder}
}

// SendMatches implements Mailer.
func (m *LogMailer) SendMatches(ctx context.Context, recipient string, result *model.MatchResult) error {
	m.logger.InfoContext(ctx, "mail_logged",
		slog.String("kind", "matches"),
		slog.String("to", recipient),
		slog.String("matches", FormatMatches(result)),
	)
	m.metrics.IncNotification(metrics.NotificationSent)
	return nil
}

// SendLoginLink implements Mailer.
func (m *LogMailer) SendLoginLink(ctx context.Context, recipient, link string, ttl time.Duration) error {
	m.logger.InfoContext(ctx, "mail_logged",
		slog.String("kind", "login_link"),
		slog.String("to", recipient),
		slog.String("login_link", link),
		slog.String("expires_in", FormatTTL(ttl)),
	)
	m.metrics.IncNotification(metrics.NotificationSent)
	return nil
}
