package utils

import (
	"testing"

	"github.com/sventech/prodline/internal/models"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("line-operator-1")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if hash == "line-operator-1" {
		t.Error("hash must not equal the plaintext password")
	}

	if !CheckPasswordHash("line-operator-1", hash) {
		t.Error("correct password rejected")
	}
	if CheckPasswordHash("wrong-password", hash) {
		t.Error("wrong password accepted")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	const secret = "test-secret"
	user := &models.UserAuth{
		ID:       "9f0c2c1e-0000-4000-8000-000000000001",
		Username: "station7",
		Email:    "station7@factory.local",
		Role:     "operator",
	}

	access, refresh, err := GenerateTokens(user, secret)
	if err != nil {
		t.Fatalf("GenerateTokens failed: %v", err)
	}
	if access == "" || refresh == "" {
		t.Fatal("expected non-empty tokens")
	}

	claims, err := ValidateToken(access, secret)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims["id"] != user.ID {
		t.Errorf("id claim mismatch: got %v, want %s", claims["id"], user.ID)
	}
	if claims["role"] != "operator" {
		t.Errorf("role claim mismatch: got %v", claims["role"])
	}

	if _, err := ValidateToken(access, "other-secret"); err == nil {
		t.Error("token validated with the wrong secret")
	}
}
