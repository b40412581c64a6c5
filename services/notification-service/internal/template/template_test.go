package template

import (
	"strings"
	"testing"
)

func sampleAppointment() Appointment {
	return Appointment{
		ID:            "appt-1",
		Name:          "Ama Diop",
		Email:         "ama@example.com",
		CountryCode:   "+1",
		PhoneLocal:    "514 555 0101",
		ServiceType:   "Permis d'études",
		PreferredDate: "2026-03-15",
		PreferredTime: "10:00 - 11:00",
		Message:       "Première consultation",
		ProposedDate:  "2026-03-20",
		ProposedTime:  "14:00 - 15:00",
		ProposalToken: "tok-123",
	}
}

func TestRenderSubmission(t *testing.T) {
	email, err := Render(KindSubmission, sampleAppointment(), "https://mimbimmigration.com")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if email.Subject != "Votre demande de rendez-vous a été reçue - MIMB Immigration" {
		t.Errorf("subject = %q", email.Subject)
	}
	for _, want := range []string{"Ama Diop", "en attente de validation", "Permis d&#39;études", "2026-03-15", "10:00 - 11:00", "Première consultation"} {
		if !strings.Contains(email.HTML, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestRenderSubmissionOmitsEmptyMessage(t *testing.T) {
	appt := sampleAppointment()
	appt.Message = ""
	email, err := Render(KindSubmission, appt, "")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if strings.Contains(email.HTML, "Message:") {
		t.Error("empty message should not render a Message row")
	}
}

func TestRenderProposalIncludesResponseLink(t *testing.T) {
	email, err := Render(KindProposal, sampleAppointment(), "https://mimbimmigration.com")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	for _, want := range []string{
		"2026-03-15 à 10:00 - 11:00",
		"2026-03-20 à 14:00 - 15:00",
		"https://mimbimmigration.com?token=tok-123&amp;action=respond",
	} {
		if !strings.Contains(email.HTML, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestRenderProposalWithoutSiteURLFallsBackToReplyCopy(t *testing.T) {
	email, err := Render(KindProposal, sampleAppointment(), "")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if strings.Contains(email.HTML, "action=respond") {
		t.Error("no response link expected without a site url")
	}
	if !strings.Contains(email.HTML, "veuillez répondre à cet email") {
		t.Error("expected reply-by-email fallback copy")
	}
}

func TestRenderAdminNewSubjectCarriesClientName(t *testing.T) {
	email, err := Render(KindAdminNew, sampleAppointment(), "https://mimbimmigration.com")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if email.Subject != "🆕 Nouveau RDV à valider - Ama Diop" {
		t.Errorf("subject = %q", email.Subject)
	}
	for _, want := range []string{"+1 514 555 0101", "ama@example.com", "https://mimbimmigration.com/admin"} {
		if !strings.Contains(email.HTML, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestRenderEscapesHTMLInClientFields(t *testing.T) {
	appt := sampleAppointment()
	appt.Message = `<script>alert("x")</script>`
	email, err := Render(KindSubmission, appt, "")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if strings.Contains(email.HTML, "<script>") {
		t.Error("client message must be escaped")
	}
}

func TestRenderUnknownKind(t *testing.T) {
	if _, err := Render(Kind("newsletter"), sampleAppointment(), ""); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestKindValid(t *testing.T) {
	for _, k := range []Kind{KindSubmission, KindValidated, KindRefused, KindProposal, KindAdminNew} {
		if !k.Valid() {
			t.Errorf("%s should be valid", k)
		}
	}
	if Kind("other").Valid() {
		t.Error("unknown kind should be invalid")
	}
	if !KindAdminNew.AdminRecipient() {
		t.Error("admin_new goes to the admin inbox")
	}
	if KindValidated.AdminRecipient() {
		t.Error("validated goes to the client")
	}
}
