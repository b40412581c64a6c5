package storage

import (
	"context"
	"encoding/json"

	"github.com/mimb-immigration/platform/libs/db"
	"github.com/mimb-immigration/platform/libs/outbox"
)

type Delivery struct {
	AppointmentID string
	EmailType     string
	Recipients    []string
	Cc            []string
	Subject       string
	Provider      string
	Status        string
	ErrorDetail   string
}

// Repository logs every send attempt and mirrors it as a notification
// event in the outbox.
type Repository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewRepository(pool *db.Pool, ob *outbox.Repository) *Repository {
	return &Repository{pool: pool, outbox: ob}
}

func (r *Repository) Insert(ctx context.Context, d Delivery) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO email_deliveries (appointment_id, email_type, recipients, cc, subject, provider, status, error_detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, d.AppointmentID, d.EmailType, d.Recipients, d.Cc, d.Subject, d.Provider, d.Status, d.ErrorDetail)
	if err != nil {
		return err
	}

	eventType := "notification.sent.v1"
	if d.Status != "sent" {
		eventType = "notification.failed.v1"
	}
	payload, err := json.Marshal(map[string]any{
		"appointment_id": d.AppointmentID,
		"email_type":     d.EmailType,
		"provider":       d.Provider,
		"status":         d.Status,
		"error":          d.ErrorDetail,
	})
	if err != nil {
		return err
	}
	if err := r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "notification",
		AggregateID:   d.AppointmentID,
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
