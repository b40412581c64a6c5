package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mimb-immigration/platform/services/appointment-service/internal/model"
)

func TestDispatchSendsKindAndSiteURL(t *testing.T) {
	var got dispatchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.URL.Path != "/api/v1/notifications/appointment" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "https://mimbimmigration.com")
	appt := model.Appointment{ID: "a-1", Email: "client@example.com", Name: "Ama Diop"}
	if err := c.Dispatch(context.Background(), KindValidated, appt); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if got.Type != KindValidated {
		t.Errorf("type = %q, want %q", got.Type, KindValidated)
	}
	if got.SiteURL != "https://mimbimmigration.com" {
		t.Errorf("site_url = %q", got.SiteURL)
	}
	if got.Appointment.ID != "a-1" {
		t.Errorf("appointment id = %q", got.Appointment.ID)
	}
}

// The model hides the proposal token from API responses, so the dispatch
// payload must carry it explicitly: without it the proposal email cannot
// render its response link. Decode the raw body rather than a typed
// struct so a dropped field cannot hide behind matching types.
func TestDispatchCarriesProposalTokenOnTheWire(t *testing.T) {
	var rawBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "https://mimbimmigration.com")
	appt := model.Appointment{
		ID:            "a-7",
		Name:          "Ama Diop",
		Email:         "client@example.com",
		ProposedDate:  "2026-03-20",
		ProposedTime:  "14:00 - 15:00",
		ProposalToken: "tok-123",
	}
	if err := c.Dispatch(context.Background(), KindProposal, appt); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	var payload struct {
		Appointment map[string]any `json:"appointment"`
	}
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	token, ok := payload.Appointment["proposal_token"]
	if !ok {
		t.Fatalf("proposal_token missing from wire payload: %s", rawBody)
	}
	if token != "tok-123" {
		t.Errorf("proposal_token = %v, want tok-123", token)
	}
	if payload.Appointment["proposed_date"] != "2026-03-20" {
		t.Errorf("proposed_date = %v", payload.Appointment["proposed_date"])
	}
}

func TestDispatchReturnsSendErrorOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "smtp down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "https://mimbimmigration.com")
	err := c.Dispatch(context.Background(), KindRefused, model.Appointment{ID: "a-2"})
	var sendErr *SendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("expected SendError, got %v", err)
	}
	if sendErr.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d", sendErr.StatusCode)
	}
}
