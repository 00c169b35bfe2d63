// File: internal/infra/sched/notification_worker.go
package sched

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"course-ambassador-platform/internal/domain/ports/adapter"
	"course-ambassador-platform/internal/domain/ports/repository"
)

// quotaReminderDays is how far ahead of quota expiry the reminder fires.
const quotaReminderDays = 7

// NotificationWorker reminds ambassadors about gift quotas nearing expiry.
type NotificationWorker struct {
	interval time.Duration
	quotas   repository.QuotaGrantRepository
	notifier adapter.Notifier
	log      *zerolog.Logger

	// reminded dedupes within process lifetime; a restart re-reminding is
	// acceptable for a weekly-horizon notice.
	reminded map[string]struct{}
}

func NewNotificationWorker(interval time.Duration, quotas repository.QuotaGrantRepository, notifier adapter.Notifier, logger *zerolog.Logger) *NotificationWorker {
	l := logger.With().Str("component", "NotificationWorker").Logger()
	return &NotificationWorker{
		interval: interval,
		quotas:   quotas,
		notifier: notifier,
		log:      &l,
		reminded: map[string]struct{}{},
	}
}

func (w *NotificationWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting notification worker")
	// Run once on startup, then on every tick.
	w.runCheck(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping notification worker")
			return ctx.Err()
		case <-ticker.C:
			w.runCheck(ctx)
		}
	}
}

func (w *NotificationWorker) runCheck(ctx context.Context) {
	grants, err := w.quotas.ListExpiring(ctx, nil, quotaReminderDays)
	if err != nil {
		w.log.Error().Err(err).Msg("quota expiry scan failed")
		return
	}
	for _, g := range grants {
		if g.Remaining <= 0 {
			continue
		}
		if _, ok := w.reminded[g.ID]; ok {
			continue
		}
		msg := fmt.Sprintf("You have %d unused %s gift slots expiring on %s.",
			g.Remaining, g.Category, g.ExpiresAt.Format("2006-01-02"))
		if err := w.notifier.Notify(ctx, g.UserID, msg); err != nil {
			w.log.Warn().Err(err).Str("user_id", g.UserID).Msg("quota reminder failed")
			continue
		}
		w.reminded[g.ID] = struct{}{}
	}
}
