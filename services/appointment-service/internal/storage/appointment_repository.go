package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mimb-immigration/platform/libs/db"
	"github.com/mimb-immigration/platform/libs/outbox"
	"github.com/mimb-immigration/platform/services/appointment-service/internal/model"
)

// Repository persists appointments and writes the matching domain event
// to the outbox in the same transaction.
type Repository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewRepository(pool *db.Pool, ob *outbox.Repository) *Repository {
	return &Repository{pool: pool, outbox: ob}
}

const appointmentColumns = `
	id, name, email,
	COALESCE(phone, ''), COALESCE(country_code, ''), COALESCE(phone_local, ''),
	service_type, preferred_date, preferred_time, COALESCE(message, ''),
	status_enum, status,
	COALESCE(proposed_date, ''), COALESCE(proposed_time, ''), COALESCE(proposal_token, ''),
	created_at, updated_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(
		&a.ID, &a.Name, &a.Email,
		&a.Phone, &a.CountryCode, &a.PhoneLocal,
		&a.ServiceType, &a.PreferredDate, &a.PreferredTime, &a.Message,
		&a.StatusEnum, &a.Status,
		&a.ProposedDate, &a.ProposedTime, &a.ProposalToken,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, model.ErrNotFound
	}
	return a, err
}

func (r *Repository) Create(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created, err := scanAppointment(tx.QueryRow(ctx, `
		INSERT INTO appointments (
			name, email, phone, country_code, phone_local,
			service_type, preferred_date, preferred_time, message,
			status_enum, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING`+appointmentColumns,
		a.Name, a.Email, a.Phone, a.CountryCode, a.PhoneLocal,
		a.ServiceType, a.PreferredDate, a.PreferredTime, a.Message,
		model.StatusPending, model.StatusPending.LegacyLabel(),
	))
	if err != nil {
		return model.Appointment{}, err
	}

	if err := r.insertEvent(ctx, tx, created, "appointment.requested.v1"); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (model.Appointment, error) {
	return scanAppointment(r.pool.QueryRow(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id))
}

func (r *Repository) List(ctx context.Context, status model.Status, limit, offset int) ([]model.Appointment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var (
		rows pgx.Rows
		err  error
	)
	if status == "" {
		rows, err = r.pool.Query(ctx, `
			SELECT`+appointmentColumns+`
			FROM appointments
			ORDER BY created_at DESC
			LIMIT $1 OFFSET $2
		`, limit, offset)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT`+appointmentColumns+`
			FROM appointments
			WHERE status_enum = $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3
		`, status, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Transition moves an appointment from one of the allowed states to the
// target state. When the row is already in the target state the call is a
// no-op: the current record is returned with applied=false and no event is
// written. Any other state returns ErrConflict.
func (r *Repository) Transition(ctx context.Context, id string, allowed []model.Status, to model.Status, eventType string) (model.Appointment, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	from := make([]string, 0, len(allowed))
	for _, s := range allowed {
		from = append(from, string(s))
	}

	updated, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET status_enum = $2,
		    status = $3,
		    updated_at = now()
		WHERE id = $1 AND status_enum = ANY($4)
		RETURNING`+appointmentColumns,
		id, to, to.LegacyLabel(), from,
	))
	if errors.Is(err, model.ErrNotFound) {
		current, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return model.Appointment{}, false, getErr
		}
		if current.StatusEnum == to {
			return current, false, nil
		}
		return model.Appointment{}, false, model.ErrConflict
	}
	if err != nil {
		return model.Appointment{}, false, err
	}

	if err := r.insertEvent(ctx, tx, updated, eventType); err != nil {
		return model.Appointment{}, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, false, err
	}
	return updated, true, nil
}

// Propose records an alternative date and time and moves the appointment to
// PROPOSITION_ENVOYEE. Re-proposing over an unanswered proposal is allowed
// and rotates the token.
func (r *Repository) Propose(ctx context.Context, id, date, slot, token string) (model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	updated, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET status_enum = $2,
		    status = $3,
		    proposed_date = $4,
		    proposed_time = $5,
		    proposal_token = $6,
		    updated_at = now()
		WHERE id = $1 AND status_enum = ANY($7)
		RETURNING`+appointmentColumns,
		id, model.StatusProposalSent, model.StatusProposalSent.LegacyLabel(),
		date, slot, token,
		[]string{string(model.StatusPending), string(model.StatusProposalSent)},
	))
	if errors.Is(err, model.ErrNotFound) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return model.Appointment{}, getErr
		}
		return model.Appointment{}, model.ErrConflict
	}
	if err != nil {
		return model.Appointment{}, err
	}

	if err := r.insertEvent(ctx, tx, updated, "appointment.proposal_sent.v1"); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return updated, nil
}

// ResolveProposal settles an outstanding proposal by its single-use token.
// Accepting promotes the proposed date and time to the preferred ones.
// Either way the token is cleared so the link cannot be replayed.
func (r *Repository) ResolveProposal(ctx context.Context, token string, accept bool) (model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		updated   model.Appointment
		eventType string
	)
	if accept {
		eventType = "appointment.proposal_accepted.v1"
		updated, err = scanAppointment(tx.QueryRow(ctx, `
			UPDATE appointments
			SET status_enum = $2,
			    status = $3,
			    preferred_date = proposed_date,
			    preferred_time = proposed_time,
			    proposal_token = NULL,
			    updated_at = now()
			WHERE proposal_token = $1 AND status_enum = $4
			RETURNING`+appointmentColumns,
			token, model.StatusProposalAccepted, model.StatusProposalAccepted.LegacyLabel(),
			model.StatusProposalSent,
		))
	} else {
		eventType = "appointment.refused.v1"
		updated, err = scanAppointment(tx.QueryRow(ctx, `
			UPDATE appointments
			SET status_enum = $2,
			    status = $3,
			    proposed_date = NULL,
			    proposed_time = NULL,
			    proposal_token = NULL,
			    updated_at = now()
			WHERE proposal_token = $1 AND status_enum = $4
			RETURNING`+appointmentColumns,
			token, model.StatusRefused, model.StatusRefused.LegacyLabel(),
			model.StatusProposalSent,
		))
	}
	if err != nil {
		return model.Appointment{}, err
	}

	if err := r.insertEvent(ctx, tx, updated, eventType); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return updated, nil
}

// ExpireProposals refuses proposals that have gone unanswered since before
// the cutoff. Returns the affected appointments so callers can notify.
func (r *Repository) ExpireProposals(ctx context.Context, cutoff time.Time, limit int) ([]model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		UPDATE appointments
		SET status_enum = $1,
		    status = $2,
		    proposed_date = NULL,
		    proposed_time = NULL,
		    proposal_token = NULL,
		    updated_at = now()
		WHERE id IN (
			SELECT id FROM appointments
			WHERE status_enum = $3 AND updated_at < $4
			ORDER BY updated_at
			LIMIT $5
			FOR UPDATE SKIP LOCKED
		)
		RETURNING`+appointmentColumns,
		model.StatusRefused, model.StatusRefused.LegacyLabel(),
		model.StatusProposalSent, cutoff, limit,
	)
	if err != nil {
		return nil, err
	}

	var expired []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		expired = append(expired, a)
	}
	rows.Close()
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	for _, a := range expired {
		if err := r.insertEvent(ctx, tx, a, "appointment.proposal_expired.v1"); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return expired, nil
}

func (r *Repository) insertEvent(ctx context.Context, tx pgx.Tx, a model.Appointment, eventType string) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   a.ID,
		EventType:     eventType,
		Payload:       payload,
	})
}
