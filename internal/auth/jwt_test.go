package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestJWTFlow(t *testing.T) {
	tokens := NewTokenManager("test-secret-key-12345", time.Hour)

	userID := uuid.New().String()
	email := "test@example.com"

	token, err := tokens.GenerateToken(userID, email, RoleAdmin)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	claims, err := tokens.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}

	if claims.UserID != userID {
		t.Fatalf("Expected userID %s, got %s", userID, claims.UserID)
	}
	if claims.Email != email {
		t.Fatalf("Expected email %s, got %s", email, claims.Email)
	}
	if claims.Role != RoleAdmin {
		t.Fatalf("Expected role %s, got %s", RoleAdmin, claims.Role)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-one-xxxx", time.Hour).GenerateToken("u1", "a@b.c", RoleUser)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := NewTokenManager("secret-two-xxxx", time.Hour).ValidateToken(token); err == nil {
		t.Fatal("expected validation to fail with a different secret")
	}
}

func TestValidateToken_Expired(t *testing.T) {
	tokens := NewTokenManager("test-secret-key-12345", -time.Minute)
	token, err := tokens.GenerateToken("u1", "a@b.c", RoleUser)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := tokens.ValidateToken(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}
