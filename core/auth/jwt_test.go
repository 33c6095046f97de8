package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Generate(42, "user@example.com", "admin")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("UserID = %d, want 42", claims.UserID)
	}
	if claims.Email != "user@example.com" {
		t.Errorf("Email = %q", claims.Email)
	}
	if claims.Role != "admin" {
		t.Errorf("Role = %q, want admin", claims.Role)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("secret-a", time.Hour)
	other := NewTokenIssuer("secret-b", time.Hour)

	token, err := issuer.Generate(1, "a@b.com", "user")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := other.Parse(token); err == nil {
		t.Fatal("token signed with a different secret should not parse")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute)

	token, err := issuer.Generate(1, "a@b.com", "user")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := issuer.Parse(token); err == nil {
		t.Fatal("expired token should not parse")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	if _, err := issuer.Parse("not-a-token"); err == nil {
		t.Fatal("garbage should not parse")
	}
}
