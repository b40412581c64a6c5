package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mimb-immigration/platform/services/chat-service/internal/relay"
)

type ChatHandler struct {
	client *relay.Client
	logger *slog.Logger
}

func NewChatHandler(client *relay.Client, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{client: client, logger: logger}
}

type chatRequest struct {
	Messages []relay.Message `json:"messages"`
}

// Chat relays the visitor conversation to the AI gateway. Upstream errors
// surface as French messages matching the site's chatbot widget.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json body"})
		return
	}
	if len(req.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "messages required"})
		return
	}

	reply, err := h.client.Complete(r.Context(), req.Messages)
	if err != nil {
		switch {
		case errors.Is(err, relay.ErrRateLimited):
			writeJSON(w, http.StatusTooManyRequests, map[string]any{"error": "Trop de requêtes. Veuillez réessayer dans quelques instants."})
		case errors.Is(err, relay.ErrQuotaExhausted):
			writeJSON(w, http.StatusPaymentRequired, map[string]any{"error": "Service temporairement indisponible."})
		default:
			h.logger.Error("chat completion failed", "err", err)
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Erreur du service IA"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": reply})
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
