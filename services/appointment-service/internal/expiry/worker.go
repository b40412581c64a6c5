// Package expiry refuses reschedule proposals that were never answered.
package expiry

import (
	"context"
	"log/slog"
	"time"

	"github.com/mimb-immigration/platform/services/appointment-service/internal/model"
	"github.com/mimb-immigration/platform/services/appointment-service/internal/notify"
)

type Store interface {
	ExpireProposals(ctx context.Context, cutoff time.Time, limit int) ([]model.Appointment, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, kind notify.Kind, appt model.Appointment) error
}

type Worker struct {
	store    Store
	notifier Notifier
	logger   *slog.Logger
	ttl      time.Duration
	interval time.Duration
	batch    int
	now      func() time.Time
}

// NewWorker builds the sweeper. A non-positive ttl disables it.
func NewWorker(store Store, notifier Notifier, logger *slog.Logger, ttl, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Worker{
		store:    store,
		notifier: notifier,
		logger:   logger,
		ttl:      ttl,
		interval: interval,
		batch:    100,
		now:      time.Now,
	}
}

func (w *Worker) Run(ctx context.Context) {
	if w.ttl <= 0 {
		w.logger.Info("proposal expiry disabled")
		return
	}

	// Sweep once at startup so proposals that expired while the service
	// was down are not left waiting a full interval.
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	cutoff := w.now().Add(-w.ttl)
	expired, err := w.store.ExpireProposals(ctx, cutoff, w.batch)
	if err != nil {
		w.logger.Error("proposal expiry sweep failed", "err", err)
		return
	}
	if len(expired) == 0 {
		return
	}
	w.logger.Info("expired unanswered proposals", "count", len(expired))
	for _, appt := range expired {
		if err := w.notifier.Dispatch(ctx, notify.KindRefused, appt); err != nil {
			w.logger.Error("expiry notification failed", "appointment_id", appt.ID, "err", err)
		}
	}
}
