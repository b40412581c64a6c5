// Package schedule holds the bookable consultation catalogue: the fixed
// daily time slots and the service offerings in both languages.
package schedule

import "time"

// Slots are the bookable windows. The midday window is the office lunch
// break and is never offered.
var Slots = []string{
	"09:00 - 10:00",
	"10:00 - 11:00",
	"11:00 - 12:00",
	"13:00 - 14:00",
	"14:00 - 15:00",
	"15:00 - 16:00",
	"16:00 - 17:00",
}

// Services lists the consultation offerings. Both the French and English
// labels are accepted on submission since the site form is bilingual.
var Services = []string{
	"Résidence permanente",
	"Permis de travail",
	"Permis d'études",
	"Visa visiteur",
	"Demande d'asile",
	"Permanent residence",
	"Work permit",
	"Study permit",
	"Visitor visa",
	"Asylum application",
}

func ValidSlot(slot string) bool {
	for _, s := range Slots {
		if s == slot {
			return true
		}
	}
	return false
}

func ValidService(service string) bool {
	for _, s := range Services {
		if s == service {
			return true
		}
	}
	return false
}

// ValidDate accepts ISO dates (YYYY-MM-DD) that are today or later.
func ValidDate(date string, now time.Time) bool {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return !d.Before(today)
}
