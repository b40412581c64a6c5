package model

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("appointment not found")
	ErrConflict     = errors.New("appointment state conflict")
	ErrInvalidInput = errors.New("invalid input")
)

// Status is the canonical lifecycle state, stored in status_enum.
type Status string

const (
	StatusPending          Status = "EN_ATTENTE"
	StatusValidated        Status = "VALIDE"
	StatusRefused          Status = "REFUSE"
	StatusProposalSent     Status = "PROPOSITION_ENVOYEE"
	StatusProposalAccepted Status = "PROPOSITION_ACCEPTEE"
)

// LegacyLabel returns the value kept in the legacy status text column,
// which older admin tooling still reads.
func (s Status) LegacyLabel() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusValidated:
		return "confirmed"
	case StatusRefused:
		return "refused"
	case StatusProposalSent:
		return "proposal_sent"
	case StatusProposalAccepted:
		return "proposal_accepted"
	default:
		return string(s)
	}
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusValidated, StatusRefused, StatusProposalSent, StatusProposalAccepted:
		return true
	}
	return false
}

// Appointment is the persisted record. The proposal token is excluded
// from JSON so it never leaks through API responses; it travels only in
// the emailed response link.
type Appointment struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	CountryCode   string    `json:"country_code"`
	PhoneLocal    string    `json:"phone_local"`
	ServiceType   string    `json:"service_type"`
	PreferredDate string    `json:"preferred_date"`
	PreferredTime string    `json:"preferred_time"`
	Message       string    `json:"message,omitempty"`
	StatusEnum    Status    `json:"status_enum"`
	Status        string    `json:"status"`
	ProposedDate  string    `json:"proposed_date,omitempty"`
	ProposedTime  string    `json:"proposed_time,omitempty"`
	ProposalToken string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ComposePhone joins a country code and local number into the dial-ready
// form stored in the phone column.
func ComposePhone(countryCode, local string) string {
	if countryCode == "" {
		return local
	}
	if local == "" {
		return countryCode
	}
	return countryCode + " " + local
}
