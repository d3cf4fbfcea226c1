package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/go-review-ledger/internal/domain"
	pkgtoken "github.com/go-review-ledger/internal/pkg/token"
	"github.com/go-review-ledger/internal/pkg/validate"
)

const msgCredentialsRequired = "Email and password are required"

// Service issues and validates opaque bearer tokens. Each user holds at most
// one valid token; logging in replaces it.
type Service interface {
	Login(ctx context.Context, req domain.LoginRequest) (*domain.User, error)
	Validate(ctx context.Context, token string) (*domain.User, error)
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByToken(ctx context.Context, token string) (*domain.User, error)
	RotateToken(ctx context.Context, userID, token string) error
}

type service struct {
	users userStore
}

type ServiceDeps struct {
	Users userStore
}

func NewService(deps ServiceDeps) Service {
	return &service{users: deps.Users}
}

// Login returns the user with a freshly rotated SessionToken. Unknown email
// and wrong password fail with the same error.
func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(req); err != nil {
		return nil, &domain.ValidationError{Message: msgCredentialsRequired}
	}

	u, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	tok, err := pkgtoken.NewSessionToken()
	if err != nil {
		return nil, err
	}
	if err := s.users.RotateToken(ctx, u.ID, tok); err != nil {
		return nil, fmt.Errorf("rotate session token: %w", err)
	}
	u.SessionToken = tok
	return u, nil
}

func (s *service) Validate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	u, err := s.users.GetByToken(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("unknown session token: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
