package utils

import (
	"testing"
	"time"

	"roadassist/internal/models"
)

func TestNewManagerRequiresKey(t *testing.T) {
	if _, err := NewManager("", time.Hour); err == nil {
		t.Fatal("expected error for empty signing key")
	}
}

func TestJWTRoundTrip(t *testing.T) {
	m, err := NewManager("test-signing-key", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	token, err := m.NewJWT(42, models.RoleProvider)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != 42 {
		t.Fatalf("expected user ID 42, got %d", claims.UserID)
	}
	if claims.Role != models.RoleProvider {
		t.Fatalf("expected role %q, got %q", models.RoleProvider, claims.Role)
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	m1, _ := NewManager("key-one", time.Hour)
	m2, _ := NewManager("key-two", time.Hour)

	token, err := m1.NewJWT(7, models.RoleCustomer)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m2.Parse(token); err == nil {
		t.Fatal("expected error parsing token signed with another key")
	}
}

func TestNewRefreshToken(t *testing.T) {
	m, _ := NewManager("test-signing-key", time.Hour)

	a, err := m.NewRefreshToken()
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.NewRefreshToken()
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if a == b {
		t.Fatal("expected distinct refresh tokens")
	}
}
