package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")

	ErrDuplicateEmail     = fmt.Errorf("email already registered: %w", ErrConflict)
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	ErrEmptyMessage       = fmt.Errorf("review message is required: %w", ErrBadRequest)
	ErrContentRejected    = errors.New("content rejected by moderation")

	// ErrLedgerUnavailable means the gateway never finished its bootstrap.
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	// ErrLedgerRejected means the ledger refused or reverted the write.
	ErrLedgerRejected = errors.New("ledger rejected transaction")
)

// ValidationError carries a client-facing message for malformed input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrBadRequest }

// ContentRejectedError is returned when the classifier flags a review.
// Label and Score are the classifier's own output.
type ContentRejectedError struct {
	Label string
	Score float64
}

func (e *ContentRejectedError) Error() string {
	return fmt.Sprintf("content rejected (label=%q score=%.4f)", e.Label, e.Score)
}

func (e *ContentRejectedError) Unwrap() error { return ErrContentRejected }
