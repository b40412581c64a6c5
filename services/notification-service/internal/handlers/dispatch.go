package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mimb-immigration/platform/services/notification-service/internal/email"
	"github.com/mimb-immigration/platform/services/notification-service/internal/storage"
	"github.com/mimb-immigration/platform/services/notification-service/internal/template"
)

// DeliveryLog records send attempts. Logging failures never fail a send.
type DeliveryLog interface {
	Insert(ctx context.Context, d storage.Delivery) error
}

type DispatchHandler struct {
	sender     email.Sender
	deliveries DeliveryLog
	logger     *slog.Logger
	adminEmail string
	ccEmail    string
}

func NewDispatchHandler(sender email.Sender, deliveries DeliveryLog, logger *slog.Logger, adminEmail, ccEmail string) *DispatchHandler {
	return &DispatchHandler{
		sender:     sender,
		deliveries: deliveries,
		logger:     logger,
		adminEmail: strings.TrimSpace(adminEmail),
		ccEmail:    strings.TrimSpace(ccEmail),
	}
}

type dispatchRequest struct {
	Type        template.Kind        `json:"type"`
	Appointment template.Appointment `json:"appointment"`
	SiteURL     string               `json:"site_url"`
}

// Dispatch renders the requested email and sends it. Admin alerts go to
// the office inbox; everything else goes to the client, with the standing
// CC address copied on all mail.
func (h *DispatchHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if !req.Type.Valid() {
		writeError(w, http.StatusBadRequest, "unknown email type")
		return
	}

	var to []string
	if req.Type.AdminRecipient() {
		if h.adminEmail == "" {
			writeError(w, http.StatusInternalServerError, "admin email not configured")
			return
		}
		to = []string{h.adminEmail}
	} else {
		if strings.TrimSpace(req.Appointment.Email) == "" {
			writeError(w, http.StatusBadRequest, "appointment email required")
			return
		}
		to = []string{req.Appointment.Email}
	}
	var cc []string
	if h.ccEmail != "" {
		cc = []string{h.ccEmail}
	}

	rendered, err := template.Render(req.Type, req.Appointment, req.SiteURL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sendErr := h.sender.Send(r.Context(), to, cc, rendered.Subject, rendered.HTML)
	h.logDelivery(r.Context(), req, to, cc, rendered.Subject, sendErr)
	if sendErr != nil {
		h.logger.Error("email send failed",
			"type", string(req.Type),
			"appointment_id", req.Appointment.ID,
			"provider", h.sender.ProviderID(),
			"err", sendErr,
		)
		writeError(w, http.StatusBadGateway, "email delivery failed")
		return
	}

	h.logger.Info("email sent",
		"type", string(req.Type),
		"appointment_id", req.Appointment.ID,
		"provider", h.sender.ProviderID(),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
}

func (h *DispatchHandler) logDelivery(ctx context.Context, req dispatchRequest, to, cc []string, subject string, sendErr error) {
	if h.deliveries == nil {
		return
	}
	d := storage.Delivery{
		AppointmentID: req.Appointment.ID,
		EmailType:     string(req.Type),
		Recipients:    to,
		Cc:            cc,
		Subject:       subject,
		Provider:      h.sender.ProviderID(),
		Status:        "sent",
	}
	if sendErr != nil {
		d.Status = "failed"
		d.ErrorDetail = sendErr.Error()
	}
	if err := h.deliveries.Insert(ctx, d); err != nil {
		h.logger.Error("delivery log insert failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}
