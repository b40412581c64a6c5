// Package notify calls the notification service to send appointment emails.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mimb-immigration/platform/services/appointment-service/internal/model"
)

// Kind selects which of the fixed email templates to send.
type Kind string

const (
	KindSubmission Kind = "submission"
	KindValidated  Kind = "validated"
	KindRefused    Kind = "refused"
	KindProposal   Kind = "proposal"
	KindAdminNew   Kind = "admin_new"
)

type Client struct {
	baseURL    string
	siteURL    string
	httpClient *http.Client
}

func NewClient(baseURL, siteURL string) *Client {
	return &Client{
		baseURL: baseURL,
		siteURL: siteURL,
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type dispatchRequest struct {
	Type        Kind            `json:"type"`
	Appointment wireAppointment `json:"appointment"`
	SiteURL     string          `json:"site_url"`
}

// wireAppointment is the dispatch payload. It is a separate type from
// model.Appointment because the proposal token must cross this boundary:
// the model hides it from API responses, but the proposal email cannot
// build its response link without it.
type wireAppointment struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	CountryCode   string `json:"country_code"`
	PhoneLocal    string `json:"phone_local"`
	ServiceType   string `json:"service_type"`
	PreferredDate string `json:"preferred_date"`
	PreferredTime string `json:"preferred_time"`
	Message       string `json:"message"`
	ProposedDate  string `json:"proposed_date"`
	ProposedTime  string `json:"proposed_time"`
	ProposalToken string `json:"proposal_token"`
}

func toWire(a model.Appointment) wireAppointment {
	return wireAppointment{
		ID:            a.ID,
		Name:          a.Name,
		Email:         a.Email,
		CountryCode:   a.CountryCode,
		PhoneLocal:    a.PhoneLocal,
		ServiceType:   a.ServiceType,
		PreferredDate: a.PreferredDate,
		PreferredTime: a.PreferredTime,
		Message:       a.Message,
		ProposedDate:  a.ProposedDate,
		ProposedTime:  a.ProposedTime,
		ProposalToken: a.ProposalToken,
	}
}

// SendError reports a non-2xx response from the notification service.
type SendError struct {
	StatusCode int
	Body       string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("notification dispatch failed with status %d: %s", e.StatusCode, e.Body)
}

func (c *Client) Dispatch(ctx context.Context, kind Kind, appt model.Appointment) error {
	body, err := json.Marshal(dispatchRequest{Type: kind, Appointment: toWire(appt), SiteURL: c.siteURL})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/notifications/appointment", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &SendError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return nil
}
