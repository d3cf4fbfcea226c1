package http

import (
	"context"

	"github.com/go-review-ledger/internal/domain"
)

// RegistryStore is the minimal interface the router requires from an account registry.
// Both the bbolt and DynamoDB stores satisfy it.
type RegistryStore interface {
	Allocate(ctx context.Context, u *domain.User) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByToken(ctx context.Context, token string) (*domain.User, error)
	RotateToken(ctx context.Context, userID, token string) error
	Size(ctx context.Context) (int, error)
}

// ModerationGate is the minimal interface the router requires from the classifier client.
type ModerationGate interface {
	Evaluate(ctx context.Context, text string) domain.ModerationVerdict
}

// LedgerGateway is the minimal interface the router requires from the ledger binding.
type LedgerGateway interface {
	Submit(ctx context.Context, message string, slot int) (*domain.SubmissionReceipt, error)
	Reviews(ctx context.Context) ([]domain.Review, error)
	ReviewCount(ctx context.Context) (uint64, error)
	Ready() bool
	Identities() int
}
