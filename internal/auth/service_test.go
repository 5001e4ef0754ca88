package auth

import (
	"context"
	"errors"
	"testing"

	"hotelpricing/internal/apierror"
)

func TestPasswordIsHashedBeforeSaving(t *testing.T) {
	repo := NewInMemoryUserRepository()
	service := NewService(repo)

	password := "Password@123"

	_, err := service.Register(context.Background(), "Test User", "test@example.com", password)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user := repo.users["test@example.com"]
	if user == nil {
		t.Fatalf("user not found")
	}

	if user.Password == password {
		t.Fatalf("password was stored in plain text")
	}
	if user.Role != RoleUser {
		t.Fatalf("expected role %s, got %s", RoleUser, user.Role)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	service := NewService(NewInMemoryUserRepository())
	ctx := context.Background()

	if _, err := service.Register(ctx, "A", "dup@example.com", "Password@123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := service.Register(ctx, "B", "DUP@example.com ", "Password@123")
	if !errors.Is(err, apierror.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	service := NewService(NewInMemoryUserRepository())
	ctx := context.Background()

	if _, err := service.Register(ctx, "A", "a@example.com", "Password@123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := service.Login(ctx, "a@example.com", "Password@123"); err != nil {
		t.Fatalf("expected login to succeed, got %v", err)
	}
	if _, err := service.Login(ctx, "a@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := service.Login(ctx, "nobody@example.com", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown user, got %v", err)
	}
}
