package schedule

import (
	"testing"
	"time"
)

func TestSlotsExcludeLunchBreak(t *testing.T) {
	if len(Slots) != 7 {
		t.Fatalf("expected 7 slots, got %d", len(Slots))
	}
	for _, s := range Slots {
		if s == "12:00 - 13:00" {
			t.Fatal("lunch break slot must not be bookable")
		}
	}
	if !ValidSlot("09:00 - 10:00") {
		t.Fatal("expected first slot to be valid")
	}
	if ValidSlot("12:00 - 13:00") {
		t.Fatal("expected lunch slot to be invalid")
	}
	if ValidSlot("9:00 - 10:00") {
		t.Fatal("expected unpadded slot to be invalid")
	}
}

func TestValidServiceAcceptsBothLanguages(t *testing.T) {
	for _, svc := range []string{"Résidence permanente", "Permanent residence", "Demande d'asile", "Asylum application"} {
		if !ValidService(svc) {
			t.Fatalf("expected %q to be a valid service", svc)
		}
	}
	if ValidService("Citizenship") {
		t.Fatal("expected unknown service to be invalid")
	}
}

func TestValidDate(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	cases := []struct {
		date string
		want bool
	}{
		{"2026-03-10", true},
		{"2026-03-11", true},
		{"2026-03-09", false},
		{"2026-3-11", false},
		{"11/03/2026", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidDate(tc.date, now); got != tc.want {
			t.Errorf("ValidDate(%q) = %v, want %v", tc.date, got, tc.want)
		}
	}
}
