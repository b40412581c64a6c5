package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/mimb-immigration/platform/services/appointment-service/internal/lifecycle"
	"github.com/mimb-immigration/platform/services/appointment-service/internal/model"
)

type AppointmentHandler struct {
	svc    *lifecycle.Service
	logger *slog.Logger
}

func NewAppointmentHandler(svc *lifecycle.Service, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{svc: svc, logger: logger}
}

type createAppointmentRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	CountryCode   string `json:"country_code"`
	PhoneLocal    string `json:"phone_local"`
	ServiceType   string `json:"service_type"`
	PreferredDate string `json:"preferred_date"`
	PreferredTime string `json:"preferred_time"`
	Message       string `json:"message"`
}

type transitionRequest struct {
	AppointmentID string `json:"appointment_id"`
}

type proposeRequest struct {
	AppointmentID string `json:"appointment_id"`
	ProposedDate  string `json:"proposed_date"`
	ProposedTime  string `json:"proposed_time"`
}

type respondRequest struct {
	Token  string `json:"token"`
	Action string `json:"action"`
}

// Create handles the public booking form submission.
func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	appt, err := h.svc.Create(r.Context(), lifecycle.CreateInput{
		Name:          req.Name,
		Email:         req.Email,
		CountryCode:   req.CountryCode,
		PhoneLocal:    req.PhoneLocal,
		ServiceType:   req.ServiceType,
		PreferredDate: req.PreferredDate,
		PreferredTime: req.PreferredTime,
		Message:       req.Message,
	})
	if err != nil {
		h.writeServiceError(w, err, "create appointment")
		return
	}
	writeData(w, http.StatusCreated, appt)
}

// List returns appointments for the admin dashboard, optionally filtered
// by status_enum.
func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}

	appts, err := h.svc.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("status")), limit, offset)
	if err != nil {
		h.writeServiceError(w, err, "list appointments")
		return
	}
	if appts == nil {
		appts = []model.Appointment{}
	}
	writeData(w, http.StatusOK, appts)
}

func (h *AppointmentHandler) Validate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Validate, "validate appointment")
}

func (h *AppointmentHandler) Refuse(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Refuse, "refuse appointment")
}

func (h *AppointmentHandler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string) (model.Appointment, error), action string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.AppointmentID) == "" {
		writeError(w, http.StatusBadRequest, "appointment_id required")
		return
	}

	appt, err := op(r.Context(), req.AppointmentID)
	if err != nil {
		h.writeServiceError(w, err, action)
		return
	}
	writeData(w, http.StatusOK, appt)
}

// Propose handles the admin counter-offer of an alternative slot.
func (h *AppointmentHandler) Propose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req proposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.AppointmentID) == "" {
		writeError(w, http.StatusBadRequest, "appointment_id required")
		return
	}

	appt, err := h.svc.Propose(r.Context(), req.AppointmentID, req.ProposedDate, req.ProposedTime)
	if err != nil {
		h.writeServiceError(w, err, "propose alternative")
		return
	}
	writeData(w, http.StatusOK, appt)
}

// Respond settles a proposal from the link emailed to the client.
func (h *AppointmentHandler) Respond(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	var accept bool
	switch req.Action {
	case "accept":
		accept = true
	case "decline":
		accept = false
	default:
		writeError(w, http.StatusBadRequest, "action must be accept or decline")
		return
	}

	appt, err := h.svc.RespondToProposal(r.Context(), req.Token, accept)
	if err != nil {
		h.writeServiceError(w, err, "respond to proposal")
		return
	}
	writeData(w, http.StatusOK, appt)
}

func (h *AppointmentHandler) writeServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "appointment not found")
	case errors.Is(err, model.ErrConflict):
		writeError(w, http.StatusConflict, "appointment is not in a state that allows this action")
	default:
		h.logger.Error(action+" failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}
