package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mimb-immigration/platform/services/appointment-service/internal/lifecycle"
	"github.com/mimb-immigration/platform/services/appointment-service/internal/model"
	"github.com/mimb-immigration/platform/services/appointment-service/internal/notify"
)

type memStore struct {
	mu    sync.Mutex
	seq   int
	items map[string]model.Appointment
}

func newMemStore() *memStore {
	return &memStore{items: map[string]model.Appointment{}}
}

func (m *memStore) Create(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	a.ID = "appt-" + string(rune('0'+m.seq))
	a.StatusEnum = model.StatusPending
	a.Status = model.StatusPending.LegacyLabel()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.items[a.ID] = a
	return a, nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return model.Appointment{}, model.ErrNotFound
	}
	return a, nil
}

func (m *memStore) List(ctx context.Context, status model.Status, limit, offset int) ([]model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Appointment
	for _, a := range m.items {
		if status == "" || a.StatusEnum == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) Transition(ctx context.Context, id string, allowed []model.Status, to model.Status, eventType string) (model.Appointment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return model.Appointment{}, false, model.ErrNotFound
	}
	if a.StatusEnum == to {
		return a, false, nil
	}
	for _, s := range allowed {
		if a.StatusEnum == s {
			a.StatusEnum = to
			a.Status = to.LegacyLabel()
			m.items[id] = a
			return a, true, nil
		}
	}
	return model.Appointment{}, false, model.ErrConflict
}

func (m *memStore) Propose(ctx context.Context, id, date, slot, token string) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return model.Appointment{}, model.ErrNotFound
	}
	a.StatusEnum = model.StatusProposalSent
	a.Status = model.StatusProposalSent.LegacyLabel()
	a.ProposedDate = date
	a.ProposedTime = slot
	a.ProposalToken = token
	m.items[id] = a
	return a, nil
}

func (m *memStore) ResolveProposal(ctx context.Context, token string, accept bool) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.items {
		if a.ProposalToken == token {
			if accept {
				a.StatusEnum = model.StatusProposalAccepted
			} else {
				a.StatusEnum = model.StatusRefused
			}
			a.Status = a.StatusEnum.LegacyLabel()
			a.ProposalToken = ""
			m.items[id] = a
			return a, nil
		}
	}
	return model.Appointment{}, model.ErrNotFound
}

type noopNotifier struct{}

func (noopNotifier) Dispatch(ctx context.Context, kind notify.Kind, appt model.Appointment) error {
	return nil
}

func newTestHandler() (*AppointmentHandler, *memStore) {
	store := newMemStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := lifecycle.NewService(store, noopNotifier{}, logger)
	return NewAppointmentHandler(svc, logger), store
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	handler(rec, req)
	var env envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rec, env
}

const createBody = `{
	"name": "Ama Diop",
	"email": "ama@example.com",
	"country_code": "+1",
	"phone_local": "514 555 0101",
	"service_type": "Permis d'études",
	"preferred_date": "2099-03-15",
	"preferred_time": "10:00 - 11:00"
}`

func TestCreateReturns201WithPendingStatus(t *testing.T) {
	h, _ := newTestHandler()
	rec, env := doJSON(t, h.Create, http.MethodPost, "/api/v1/appointments", createBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !env.Success {
		t.Fatalf("success = false: %s", env.Error)
	}
	var appt model.Appointment
	if err := json.Unmarshal(env.Data, &appt); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if appt.StatusEnum != model.StatusPending || appt.Status != "pending" {
		t.Errorf("status = %s/%s", appt.StatusEnum, appt.Status)
	}
}

func TestCreateRejectsBadPayloads(t *testing.T) {
	h, _ := newTestHandler()

	cases := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"past date", strings.Replace(createBody, "2099-03-15", "2020-01-01", 1)},
		{"lunch slot", strings.Replace(createBody, "10:00 - 11:00", "12:00 - 13:00", 1)},
		{"unknown service", strings.Replace(createBody, "Permis d'études", "Téléportation", 1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := doJSON(t, h.Create, http.MethodPost, "/api/v1/appointments", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
			if env.Success {
				t.Fatal("expected success=false")
			}
		})
	}
}

func TestValidateTransitionsAndConflicts(t *testing.T) {
	h, _ := newTestHandler()
	_, env := doJSON(t, h.Create, http.MethodPost, "/api/v1/appointments", createBody)
	var appt model.Appointment
	_ = json.Unmarshal(env.Data, &appt)

	body := `{"appointment_id": "` + appt.ID + `"}`
	rec, _ := doJSON(t, h.Validate, http.MethodPost, "/api/v1/admin/appointments/validate", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("validate status = %d", rec.Code)
	}

	// Duplicate validate is a no-op, still 200.
	rec, _ = doJSON(t, h.Validate, http.MethodPost, "/api/v1/admin/appointments/validate", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("duplicate validate status = %d", rec.Code)
	}

	// Refusing a validated appointment conflicts.
	rec, env = doJSON(t, h.Refuse, http.MethodPost, "/api/v1/admin/appointments/refuse", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("refuse status = %d", rec.Code)
	}
	if env.Success {
		t.Fatal("expected success=false")
	}
}

func TestValidateUnknownIDReturns404(t *testing.T) {
	h, _ := newTestHandler()
	rec, _ := doJSON(t, h.Validate, http.MethodPost, "/api/v1/admin/appointments/validate", `{"appointment_id":"missing"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestProposeThenRespondAccept(t *testing.T) {
	h, store := newTestHandler()
	_, env := doJSON(t, h.Create, http.MethodPost, "/api/v1/appointments", createBody)
	var appt model.Appointment
	_ = json.Unmarshal(env.Data, &appt)

	body := `{"appointment_id": "` + appt.ID + `", "proposed_date": "2099-03-20", "proposed_time": "14:00 - 15:00"}`
	rec, _ := doJSON(t, h.Propose, http.MethodPost, "/api/v1/admin/appointments/propose", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("propose status = %d", rec.Code)
	}

	stored, _ := store.GetByID(context.Background(), appt.ID)
	if stored.ProposalToken == "" {
		t.Fatal("expected stored proposal token")
	}
	// The single-use token travels by email only, never through the API.
	if strings.Contains(rec.Body.String(), stored.ProposalToken) {
		t.Error("proposal token must not appear in the API response")
	}

	respond := `{"token": "` + stored.ProposalToken + `", "action": "accept"}`
	rec, env = doJSON(t, h.Respond, http.MethodPost, "/api/v1/appointments/respond", respond)
	if rec.Code != http.StatusOK {
		t.Fatalf("respond status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resolved model.Appointment
	_ = json.Unmarshal(env.Data, &resolved)
	if resolved.StatusEnum != model.StatusProposalAccepted {
		t.Errorf("status = %s", resolved.StatusEnum)
	}

	// Replay of the same token fails.
	rec, _ = doJSON(t, h.Respond, http.MethodPost, "/api/v1/appointments/respond", respond)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("replay status = %d", rec.Code)
	}
}

func TestRespondRejectsUnknownAction(t *testing.T) {
	h, _ := newTestHandler()
	rec, _ := doJSON(t, h.Respond, http.MethodPost, "/api/v1/appointments/respond", `{"token":"t","action":"maybe"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestListReturnsEmptyArray(t *testing.T) {
	h, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/appointments", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("expected empty data array, got %s", rec.Body.String())
	}
}
