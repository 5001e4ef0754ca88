package auth

import (
	"context"
	"strings"

	"hotelpricing/internal/apierror"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = apierror.New(apierror.ErrUnauthorized, "invalid email or password")
	ErrUserNotFound       = apierror.New(apierror.ErrNotFound, "user not found")
	ErrEmailTaken         = apierror.New(apierror.ErrConflict, "email already exists")
	ErrMissingFields      = apierror.New(apierror.ErrInvalidInput, "missing required fields")
)

type Service struct {
	repo UserRepository
}

func NewService(repo UserRepository) *Service {
	return &Service{repo: repo}
}

// REGISTER
func (s *Service) Register(ctx context.Context, name, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}

	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword(
		[]byte(password),
		bcrypt.DefaultCost,
	)
	if err != nil {
		return nil, err
	}

	user := &User{
		Name:     name,
		Email:    email,
		Password: string(hashedPassword),
		Role:     RoleUser,
	}

	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// LOGIN
func (s *Service) Login(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	err = bcrypt.CompareHashAndPassword(
		[]byte(user.Password),
		[]byte(password),
	)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *Service) CurrentUser(ctx context.Context, userID string) (*User, error) {
	return s.repo.FindByID(ctx, userID)
}
