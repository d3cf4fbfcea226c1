package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/go-review-ledger/internal/domain"
	"github.com/go-review-ledger/internal/pkg/id"
	pkgtoken "github.com/go-review-ledger/internal/pkg/token"
	"github.com/go-review-ledger/internal/pkg/validate"
)

// Client-facing validation messages.
const (
	msgCredentialsRequired = "Email and password are required"
	msgPasswordTooShort    = "Password must be at least 4 characters"
	msgPasswordTooLong     = "Password must be at most 72 characters"
)

type Service interface {
	// Register creates a user bound to the next free account slot and issues
	// its first session token.
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error)
	LookupByEmail(ctx context.Context, email string) (*domain.User, error)
	LookupByToken(ctx context.Context, token string) (*domain.User, error)
	// Size returns how many account slots have been handed out.
	Size(ctx context.Context) (int, error)
}

// registryStore persists the account registry. Allocate must check email
// uniqueness and assign the slot in a single atomic step.
type registryStore interface {
	Allocate(ctx context.Context, u *domain.User) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByToken(ctx context.Context, token string) (*domain.User, error)
	Size(ctx context.Context) (int, error)
}

type service struct {
	registry registryStore
}

type ServiceDeps struct {
	Registry registryStore
}

func NewService(deps ServiceDeps) Service {
	return &service{registry: deps.Registry}
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := checkRegisterRequest(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, &domain.ValidationError{Message: msgPasswordTooLong}
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	tok, err := pkgtoken.NewSessionToken()
	if err != nil {
		return nil, err
	}

	u, err := s.registry.Allocate(ctx, &domain.User{
		ID:           id.New(),
		Email:        req.Email,
		PasswordHash: string(hash),
		SessionToken: tok,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) LookupByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.registry.GetByEmail(ctx, strings.TrimSpace(email))
}

func (s *service) LookupByToken(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrNotFound
	}
	return s.registry.GetByToken(ctx, token)
}

func (s *service) Size(ctx context.Context) (int, error) {
	return s.registry.Size(ctx)
}

func checkRegisterRequest(req domain.RegisterRequest) error {
	err := validate.Struct(req)
	switch {
	case err == nil:
		return nil
	case validate.Failed(err, "Email", "required"), validate.Failed(err, "Password", "required"):
		return &domain.ValidationError{Message: msgCredentialsRequired}
	case validate.Failed(err, "Password", "min"):
		return &domain.ValidationError{Message: msgPasswordTooShort}
	case validate.Failed(err, "Password", "max"):
		return &domain.ValidationError{Message: msgPasswordTooLong}
	}
	return &domain.ValidationError{Message: err.Error()}
}
