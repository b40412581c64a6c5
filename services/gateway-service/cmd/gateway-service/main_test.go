package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mimb-immigration/platform/libs/auth"
)

func TestRequireRole(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	protected := requireRole(inner, "admin")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/appointments", nil)
	req.Header.Set("X-Role", "user")
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("role user: status = %d, want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/appointments", nil)
	req.Header.Set("X-Role", "admin")
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("role admin: status = %d, want 200", rec.Code)
	}
}

func TestRequireAuthHS256(t *testing.T) {
	const secret = "test-secret"

	var gotUserID, gotRole string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = r.Header.Get("X-User-Id")
		gotRole = r.Header.Get("X-Role")
		w.WriteHeader(http.StatusOK)
	})
	protected := requireAuth(inner, secret)

	// No header.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/appointments", nil)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing header: status = %d, want 401", rec.Code)
	}

	// Garbage token.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/appointments", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d, want 401", rec.Code)
	}

	// Valid token; identity headers must come from the claims, and any
	// client-supplied values must be discarded.
	now := time.Now()
	token, err := auth.SignHS256(auth.Claims{
		Sub:   "u-42",
		Email: "fmimb@yahoo.fr",
		Role:  "admin",
		Iat:   now.Unix(),
		Exp:   now.Add(time.Hour).Unix(),
	}, secret)
	if err != nil {
		t.Fatal(err)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-User-Id", "spoofed")
	req.Header.Set("X-Role", "spoofed")
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d, want 200", rec.Code)
	}
	if gotUserID != "u-42" || gotRole != "admin" {
		t.Errorf("forwarded identity = (%q, %q), want (u-42, admin)", gotUserID, gotRole)
	}

	// Expired token.
	expired, err := auth.SignHS256(auth.Claims{
		Sub:  "u-42",
		Role: "admin",
		Iat:  now.Add(-2 * time.Hour).Unix(),
		Exp:  now.Add(-time.Hour).Unix(),
	}, secret)
	if err != nil {
		t.Fatal(err)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expired token: status = %d, want 401", rec.Code)
	}
}
