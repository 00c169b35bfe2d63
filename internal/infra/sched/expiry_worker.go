// File: internal/infra/sched/expiry_worker.go
package sched

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"course-ambassador-platform/internal/usecase"
)

// sweepBatchLimit caps how many rows one sweep cancels; anything left is
// picked up on the next tick.
const sweepBatchLimit = 500

// ExpiryWorker cancels pending orders past their deadline on a cron schedule.
// The lazy per-order check covers reads between ticks; this keeps the table
// from accumulating stale pending rows nobody reads.
type ExpiryWorker struct {
	spec    string
	orderUC usecase.OrderUseCase
	cron    *cron.Cron
	log     *zerolog.Logger
}

func NewExpiryWorker(spec string, orderUC usecase.OrderUseCase, logger *zerolog.Logger) *ExpiryWorker {
	l := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{spec: spec, orderUC: orderUC, cron: cron.New(), log: &l}
}

// Start schedules the sweep and runs until ctx is cancelled.
func (w *ExpiryWorker) Start(ctx context.Context) error {
	_, err := w.cron.AddFunc(w.spec, func() {
		n, err := w.orderUC.SweepExpired(ctx, sweepBatchLimit)
		if err != nil {
			w.log.Error().Err(err).Msg("expiry sweep failed")
			return
		}
		if n > 0 {
			w.log.Info().Int64("count", n).Msg("expiry sweep cancelled orders")
		}
	})
	if err != nil {
		return err
	}
	w.log.Info().Str("spec", w.spec).Msg("Starting expiry worker")
	w.cron.Start()

	<-ctx.Done()
	w.log.Info().Msg("Stopping expiry worker")
	stopCtx := w.cron.Stop()
	<-stopCtx.Done()
	return ctx.Err()
}
