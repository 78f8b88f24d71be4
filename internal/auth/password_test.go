package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHashAndVerify(t *testing.T) {
	h := NewBcrypt(bcrypt.MinCost)
	hash, err := h.Hash("admin123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "admin123" || !IsHashed(hash) {
		t.Fatalf("expected bcrypt hash, got %q", hash)
	}
	if !h.Verify(hash, "admin123") {
		t.Fatalf("expected matching password to verify")
	}
	if h.Verify(hash, "Admin123") {
		t.Fatalf("verification must be case-sensitive")
	}
	other, err := h.Hash("admin123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if other == hash {
		t.Fatalf("hashes must be salted")
	}
}

func TestBcryptLegacyPlaintext(t *testing.T) {
	h := NewBcrypt(bcrypt.MinCost)
	if !h.Verify("staff", "staff") {
		t.Fatalf("legacy plaintext should verify on exact match")
	}
	if h.Verify("staff", "STAFF") || h.Verify("staff", "staff ") {
		t.Fatalf("legacy plaintext must be exact")
	}
	if h.Verify("", "") {
		t.Fatalf("empty credentials must never verify")
	}
}

func TestBcryptRejectsEmptyPassword(t *testing.T) {
	if _, err := NewBcrypt(0).Hash(""); err == nil || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("expected empty password error, got %v", err)
	}
}

func TestNewBcryptClampsCost(t *testing.T) {
	if got := NewBcrypt(99).Cost; got != bcrypt.DefaultCost {
		t.Fatalf("expected default cost, got %d", got)
	}
	if got := NewBcrypt(bcrypt.MinCost).Cost; got != bcrypt.MinCost {
		t.Fatalf("expected min cost, got %d", got)
	}
}
