package metrics

import (
	"context"
	"time"

	"github.com/mimb-immigration/platform/libs/db"
)

// Delivery is one recorded email send attempt.
type Delivery struct {
	AppointmentID string
	EmailType     string
	Provider      string
	Status        string
	ErrorReason   string
	OccurredAt    time.Time
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// RecordDelivery appends the attempt and bumps the per-day counters
// for its email type.
func (r *Repository) RecordDelivery(ctx context.Context, d Delivery) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO notification_metrics (appointment_id, email_type, provider, status, error_reason, occurred_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
	`, d.AppointmentID, d.EmailType, d.Provider, d.Status, d.ErrorReason, d.OccurredAt.UTC())
	if err != nil {
		return err
	}

	sentInc := 0
	failedInc := 0
	if d.Status == "sent" {
		sentInc = 1
	} else {
		failedInc = 1
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO daily_notification_metrics (day, email_type, sent_count, failed_count)
		VALUES ($1::date, $2, $3, $4)
		ON CONFLICT (day, email_type)
		DO UPDATE SET sent_count = daily_notification_metrics.sent_count + EXCLUDED.sent_count,
		              failed_count = daily_notification_metrics.failed_count + EXCLUDED.failed_count,
		              updated_at = now()
	`, d.OccurredAt.UTC(), d.EmailType, sentInc, failedInc)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// RecordStatusChange bumps the per-day counter for one appointment
// lifecycle event type.
func (r *Repository) RecordStatusChange(ctx context.Context, eventType string, occurredAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO daily_appointment_metrics (day, event_type, event_count)
		VALUES ($1::date, $2, 1)
		ON CONFLICT (day, event_type)
		DO UPDATE SET event_count = daily_appointment_metrics.event_count + 1,
		              updated_at = now()
	`, occurredAt.UTC(), eventType)
	return err
}
