// Package lifecycle implements the appointment state machine and the
// notification side effects attached to each transition.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mimb-immigration/platform/services/appointment-service/internal/model"
	"github.com/mimb-immigration/platform/services/appointment-service/internal/notify"
	"github.com/mimb-immigration/platform/services/appointment-service/internal/schedule"
)

type Store interface {
	Create(ctx context.Context, a model.Appointment) (model.Appointment, error)
	GetByID(ctx context.Context, id string) (model.Appointment, error)
	List(ctx context.Context, status model.Status, limit, offset int) ([]model.Appointment, error)
	Transition(ctx context.Context, id string, allowed []model.Status, to model.Status, eventType string) (model.Appointment, bool, error)
	Propose(ctx context.Context, id, date, slot, token string) (model.Appointment, error)
	ResolveProposal(ctx context.Context, token string, accept bool) (model.Appointment, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, kind notify.Kind, appt model.Appointment) error
}

type Service struct {
	store    Store
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(store Store, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{store: store, notifier: notifier, logger: logger, now: time.Now}
}

type CreateInput struct {
	Name          string
	Email         string
	CountryCode   string
	PhoneLocal    string
	ServiceType   string
	PreferredDate string
	PreferredTime string
	Message       string
}

func (in CreateInput) validate(now time.Time) error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", model.ErrInvalidInput)
	}
	if !strings.Contains(in.Email, "@") {
		return fmt.Errorf("%w: a valid email is required", model.ErrInvalidInput)
	}
	if !schedule.ValidService(in.ServiceType) {
		return fmt.Errorf("%w: unknown service %q", model.ErrInvalidInput, in.ServiceType)
	}
	if !schedule.ValidDate(in.PreferredDate, now) {
		return fmt.Errorf("%w: preferred date must be an upcoming ISO date", model.ErrInvalidInput)
	}
	if !schedule.ValidSlot(in.PreferredTime) {
		return fmt.Errorf("%w: unknown time slot %q", model.ErrInvalidInput, in.PreferredTime)
	}
	return nil
}

// Create stores a new pending appointment, then emails the client a
// submission receipt and the admin a new-request alert. Both emails are
// best effort and sent concurrently; a delivery failure never fails the
// booking.
func (s *Service) Create(ctx context.Context, in CreateInput) (model.Appointment, error) {
	if err := in.validate(s.now()); err != nil {
		return model.Appointment{}, err
	}

	countryCode := strings.TrimSpace(in.CountryCode)
	phoneLocal := strings.TrimSpace(in.PhoneLocal)
	created, err := s.store.Create(ctx, model.Appointment{
		Name:          strings.TrimSpace(in.Name),
		Email:         strings.TrimSpace(in.Email),
		Phone:         model.ComposePhone(countryCode, phoneLocal),
		CountryCode:   countryCode,
		PhoneLocal:    phoneLocal,
		ServiceType:   in.ServiceType,
		PreferredDate: in.PreferredDate,
		PreferredTime: in.PreferredTime,
		Message:       strings.TrimSpace(in.Message),
	})
	if err != nil {
		return model.Appointment{}, err
	}

	var wg sync.WaitGroup
	for _, kind := range []notify.Kind{notify.KindSubmission, notify.KindAdminNew} {
		wg.Add(1)
		go func(k notify.Kind) {
			defer wg.Done()
			s.dispatch(ctx, k, created)
		}(kind)
	}
	wg.Wait()

	return created, nil
}

func (s *Service) Get(ctx context.Context, id string) (model.Appointment, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]model.Appointment, error) {
	st := model.Status(status)
	if status != "" && !st.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", model.ErrInvalidInput, status)
	}
	return s.store.List(ctx, st, limit, offset)
}

// Validate confirms a pending appointment. Validating an already validated
// appointment is a no-op and does not re-send the confirmation email.
func (s *Service) Validate(ctx context.Context, id string) (model.Appointment, error) {
	appt, applied, err := s.store.Transition(ctx, id,
		[]model.Status{model.StatusPending},
		model.StatusValidated, "appointment.validated.v1")
	if err != nil {
		return model.Appointment{}, err
	}
	if applied {
		s.dispatch(ctx, notify.KindValidated, appt)
	}
	return appt, nil
}

// Refuse declines a pending appointment or an outstanding proposal.
func (s *Service) Refuse(ctx context.Context, id string) (model.Appointment, error) {
	appt, applied, err := s.store.Transition(ctx, id,
		[]model.Status{model.StatusPending, model.StatusProposalSent},
		model.StatusRefused, "appointment.refused.v1")
	if err != nil {
		return model.Appointment{}, err
	}
	if applied {
		s.dispatch(ctx, notify.KindRefused, appt)
	}
	return appt, nil
}

// Propose offers the client an alternative date and time. A fresh
// single-use token is minted each time, so re-proposing invalidates any
// earlier link.
func (s *Service) Propose(ctx context.Context, id, date, slot string) (model.Appointment, error) {
	if !schedule.ValidDate(date, s.now()) {
		return model.Appointment{}, fmt.Errorf("%w: proposed date must be an upcoming ISO date", model.ErrInvalidInput)
	}
	if !schedule.ValidSlot(slot) {
		return model.Appointment{}, fmt.Errorf("%w: unknown time slot %q", model.ErrInvalidInput, slot)
	}

	appt, err := s.store.Propose(ctx, id, date, slot, uuid.NewString())
	if err != nil {
		return model.Appointment{}, err
	}
	s.dispatch(ctx, notify.KindProposal, appt)
	return appt, nil
}

// RespondToProposal settles a proposal from the emailed link. No email is
// sent on either outcome.
func (s *Service) RespondToProposal(ctx context.Context, token string, accept bool) (model.Appointment, error) {
	if strings.TrimSpace(token) == "" {
		return model.Appointment{}, fmt.Errorf("%w: token is required", model.ErrInvalidInput)
	}
	return s.store.ResolveProposal(ctx, token, accept)
}

func (s *Service) dispatch(ctx context.Context, kind notify.Kind, appt model.Appointment) {
	if err := s.notifier.Dispatch(ctx, kind, appt); err != nil {
		s.logger.Error("notification dispatch failed",
			"kind", string(kind),
			"appointment_id", appt.ID,
			"err", err,
		)
	}
}
