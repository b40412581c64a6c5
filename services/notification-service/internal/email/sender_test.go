package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBuildMessageIncludesHeadersAndHTMLBody(t *testing.T) {
	msg := buildMessage(
		"MIMB Immigration <support@mimbimmigration.com>",
		[]string{"client@example.com"},
		[]string{"tiako1998@gmail.com"},
		"Votre rendez-vous est confirmé",
		"<p>Bonjour</p>",
	)
	for _, want := range []string{
		"From: MIMB Immigration <support@mimbimmigration.com>\r\n",
		"To: client@example.com\r\n",
		"Cc: tiako1998@gmail.com\r\n",
		"Subject: Votre rendez-vous est confirmé\r\n",
		"Content-Type: text/html; charset=utf-8\r\n",
		"<p>Bonjour</p>",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestBuildMessageOmitsEmptyCc(t *testing.T) {
	msg := buildMessage("a@b.c", []string{"d@e.f"}, nil, "s", "b")
	if strings.Contains(msg, "Cc:") {
		t.Error("no Cc header expected")
	}
}

func TestEnvelopeAddress(t *testing.T) {
	cases := map[string]string{
		"MIMB Immigration <support@mimbimmigration.com>": "support@mimbimmigration.com",
		"support@mimbimmigration.com":                    "support@mimbimmigration.com",
	}
	for in, want := range cases {
		if got := envelopeAddress(in); got != want {
			t.Errorf("envelopeAddress(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAPISenderPostsResendPayload(t *testing.T) {
	var got map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewAPISender(srv.URL, "re_test_key", "MIMB Immigration <support@mimbimmigration.com>")
	err := s.Send(context.Background(), []string{"client@example.com"}, []string{"tiako1998@gmail.com"}, "Sujet", "<p>corps</p>")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if auth != "Bearer re_test_key" {
		t.Errorf("auth = %q", auth)
	}
	if got["from"] != "MIMB Immigration <support@mimbimmigration.com>" {
		t.Errorf("from = %v", got["from"])
	}
	if got["subject"] != "Sujet" || got["html"] != "<p>corps</p>" {
		t.Errorf("payload = %v", got)
	}
}

func TestAPISenderFailsOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	s := NewAPISender(srv.URL, "", "")
	if err := s.Send(context.Background(), []string{"x@y.z"}, nil, "s", "b"); err == nil {
		t.Fatal("expected error on 422")
	}
}

func TestAPISenderRequiresURL(t *testing.T) {
	s := NewAPISender("", "", "")
	if err := s.Send(context.Background(), []string{"x@y.z"}, nil, "s", "b"); err == nil {
		t.Fatal("expected error without url")
	}
}
