package auth

import (
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue("TCH-0001", "classtrack", "test-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := Parse(pair.AccessToken, "test-key", "classtrack")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "TCH-0001" {
		t.Fatalf("subject = %q, want TCH-0001", claims.Subject)
	}
	if claims.Role != "teacher" {
		t.Fatalf("role = %q, want teacher", claims.Role)
	}
	if claims.ID == "" {
		t.Fatal("expected a token ID")
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	pair, err := Issue("TCH-0001", "classtrack", "test-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "other-key", "classtrack"); err == nil {
		t.Fatal("expected error for wrong signing key")
	}
}

func TestParseRejectsIssuerMismatch(t *testing.T) {
	pair, err := Issue("TCH-0001", "someone-else", "test-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "test-key", "classtrack"); err == nil {
		t.Fatal("expected error for issuer mismatch")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	pair, err := Issue("TCH-0001", "classtrack", "test-key", -time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "test-key", "classtrack"); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter2long")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "hunter2long" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !CheckPassword(hash, "hunter2long") {
		t.Fatal("expected matching password to verify")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatal("expected mismatched password to fail")
	}
}
