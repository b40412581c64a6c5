package expiry

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mimb-immigration/platform/services/appointment-service/internal/model"
	"github.com/mimb-immigration/platform/services/appointment-service/internal/notify"
)

type stubStore struct {
	gotCutoff time.Time
	expired   []model.Appointment
}

func (s *stubStore) ExpireProposals(ctx context.Context, cutoff time.Time, limit int) ([]model.Appointment, error) {
	s.gotCutoff = cutoff
	return s.expired, nil
}

type stubNotifier struct {
	sent []notify.Kind
}

func (n *stubNotifier) Dispatch(ctx context.Context, kind notify.Kind, appt model.Appointment) error {
	n.sent = append(n.sent, kind)
	return nil
}

func TestSweepNotifiesExpiredWithRefusedEmail(t *testing.T) {
	store := &stubStore{expired: []model.Appointment{
		{ID: "a-1", StatusEnum: model.StatusRefused},
		{ID: "a-2", StatusEnum: model.StatusRefused},
	}}
	notifier := &stubNotifier{}
	w := NewWorker(store, notifier, slog.New(slog.NewTextHandler(io.Discard, nil)), 14*24*time.Hour, time.Hour)
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	w.sweep(context.Background())

	wantCutoff := now.Add(-14 * 24 * time.Hour)
	if !store.gotCutoff.Equal(wantCutoff) {
		t.Errorf("cutoff = %v, want %v", store.gotCutoff, wantCutoff)
	}
	if len(notifier.sent) != 2 {
		t.Fatalf("expected 2 refused emails, got %d", len(notifier.sent))
	}
	for _, k := range notifier.sent {
		if k != notify.KindRefused {
			t.Errorf("kind = %s, want %s", k, notify.KindRefused)
		}
	}
}

type signalStore struct {
	swept chan struct{}
}

func (s *signalStore) ExpireProposals(ctx context.Context, cutoff time.Time, limit int) ([]model.Appointment, error) {
	select {
	case s.swept <- struct{}{}:
	default:
	}
	return nil, nil
}

func TestRunSweepsBeforeFirstTick(t *testing.T) {
	store := &signalStore{swept: make(chan struct{}, 1)}
	w := NewWorker(store, &stubNotifier{}, slog.New(slog.NewTextHandler(io.Discard, nil)), 14*24*time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	select {
	case <-store.swept:
	case <-time.After(time.Second):
		t.Fatal("expected an immediate sweep, not one interval later")
	}
}

func TestRunReturnsWhenDisabled(t *testing.T) {
	w := NewWorker(&stubStore{}, &stubNotifier{}, slog.New(slog.NewTextHandler(io.Discard, nil)), 0, time.Minute)
	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run should return immediately when ttl is zero")
	}
}
