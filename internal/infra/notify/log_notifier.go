package notify

import (
	"context"

	"github.com/rs/zerolog"

	"course-ambassador-platform/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*LogNotifier)(nil)

// LogNotifier writes notifications to the log. Stands in for the real
// message-delivery collaborator; callers treat every implementation as
// fire-and-forget.
type LogNotifier struct {
	log *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	l := logger.With().Str("component", "Notifier").Logger()
	return &LogNotifier{log: &l}
}

func (n *LogNotifier) Notify(ctx context.Context, userID, message string) error {
	n.log.Info().Str("user_id", userID).Str("message", message).Msg("notify")
	return nil
}

var _ adapter.Notifier = (*NoopNotifier)(nil)

// NoopNotifier discards notifications; used in tests.
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, string, string) error { return nil }
