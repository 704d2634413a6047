package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testIdentity() Identity {
	return Identity{
		UserID:   "user-1",
		TenantID: "tenant-1",
		Email:    "admin@acme.test",
		Role:     RoleAdmin,
	}
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	iss, err := NewIssuer("test-secret")
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	pair, err := iss.Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if pair.ExpiresIn != 3600 {
		t.Fatalf("expected expires_in 3600, got %d", pair.ExpiresIn)
	}

	access, err := iss.Verify(pair.AccessToken)
	if err != nil {
		t.Fatalf("Verify access: %v", err)
	}
	if access.UserID != "user-1" || access.TenantID != "tenant-1" {
		t.Fatalf("unexpected identity claims: %+v", access)
	}
	if access.Kind != KindAccess {
		t.Fatalf("expected kind access, got %q", access.Kind)
	}

	refresh, err := iss.Verify(pair.RefreshToken)
	if err != nil {
		t.Fatalf("Verify refresh: %v", err)
	}
	if refresh.Kind != KindRefresh {
		t.Fatalf("expected kind refresh, got %q", refresh.Kind)
	}
	if refresh.Email != access.Email || refresh.Role != access.Role {
		t.Fatal("access and refresh must share identity claims")
	}
}

func TestVerifyExpired(t *testing.T) {
	current := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }
	iss, err := NewIssuer("test-secret", WithClock(clock))
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	pair, err := iss.Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	current = current.Add(2 * time.Hour)
	if _, err := iss.Verify(pair.AccessToken); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	// The refresh token lives 30 days and is still valid.
	if _, err := iss.Verify(pair.RefreshToken); err != nil {
		t.Fatalf("refresh token should still verify: %v", err)
	}

	current = current.Add(31 * 24 * time.Hour)
	if _, err := iss.Verify(pair.RefreshToken); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired for refresh, got %v", err)
	}
}

func TestVerifyTamperedSignature(t *testing.T) {
	iss, err := NewIssuer("test-secret")
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	pair, err := iss.Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	parts := strings.Split(pair.AccessToken, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", pair.AccessToken)
	}
	tampered := parts[0] + "." + parts[1] + "." + "AAAA" + parts[2][4:]
	if _, err := iss.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	issA, _ := NewIssuer("secret-a")
	issB, _ := NewIssuer("secret-b")
	pair, err := issA.Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := issB.Verify(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken across secrets, got %v", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	iss, _ := NewIssuer("test-secret")
	for _, token := range []string{"", "abc", "a.b.c"} {
		if _, err := iss.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestIssueDeterministicWithFixedClock(t *testing.T) {
	at := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	clock := func() time.Time { return at }
	issA, _ := NewIssuer("test-secret", WithClock(clock))
	issB, _ := NewIssuer("test-secret", WithClock(clock))

	pairA, err := issA.Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	pairB, err := issB.Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if pairA.AccessToken != pairB.AccessToken || pairA.RefreshToken != pairB.RefreshToken {
		t.Fatal("fixed secret, claims and clock must produce identical tokens")
	}
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	if _, err := NewIssuer("  "); err == nil {
		t.Fatal("expected error for blank secret")
	}
}
