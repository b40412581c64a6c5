package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mimb-immigration/platform/services/chat-service/internal/relay"
)

func newChatTest(t *testing.T, upstream http.HandlerFunc) *ChatHandler {
	t.Helper()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)
	client := relay.NewClient(srv.URL, "test-key", "", 0)
	return NewChatHandler(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func post(h *ChatHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	h.Chat(rec, req)
	return rec
}

const userBody = `{"messages":[{"role":"user","content":"Quels sont vos services ?"}]}`

func TestChatReturnsAssistantMessage(t *testing.T) {
	h := newChatTest(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "Nous offrons cinq services."}},
			},
		})
	})
	rec := post(h, userBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp["message"] != "Nous offrons cinq services." {
		t.Errorf("message = %q", resp["message"])
	}
}

func TestChatMapsRateLimitTo429(t *testing.T) {
	h := newChatTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	rec := post(h, userBody)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp["error"] != "Trop de requêtes. Veuillez réessayer dans quelques instants." {
		t.Errorf("error = %q", resp["error"])
	}
}

func TestChatMapsQuotaTo402(t *testing.T) {
	h := newChatTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	})
	rec := post(h, userBody)
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp["error"] != "Service temporairement indisponible." {
		t.Errorf("error = %q", resp["error"])
	}
}

func TestChatMapsOtherUpstreamErrorsTo500(t *testing.T) {
	h := newChatTest(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	rec := post(h, userBody)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp["error"] != "Erreur du service IA" {
		t.Errorf("error = %q", resp["error"])
	}
}

func TestChatRejectsEmptyConversation(t *testing.T) {
	h := newChatTest(t, func(w http.ResponseWriter, r *http.Request) {})
	rec := post(h, `{"messages":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}
