package handler

import (
	"errors"
	"net/http"

	"github.com/go-review-ledger/internal/domain"
)

const (
	msgInvalidBody        = "Invalid request body"
	msgDuplicateEmail     = "Email already registered"
	msgInvalidCredentials = "Invalid credentials"
	msgEmptyReview        = "Review message is required"
	msgContentRejected    = "Your feedback contains inappropriate language. Please revise and try again."
	msgLedgerUnavailable  = "Ledger is not available"
	msgInternal           = "Internal server error"
)

// writeDomainError maps service errors to a status code and envelope.
func writeDomainError(w http.ResponseWriter, err error, failureMsg string) {
	var ve *domain.ValidationError
	var rejected *domain.ContentRejectedError
	switch {
	case errors.As(err, &rejected):
		writeJSON(w, http.StatusBadRequest, RejectionEnvelope{
			Message:        msgContentRejected,
			ProfanityCheck: ProfanityCheck{Detected: true, Label: rejected.Label, Score: rejected.Score},
		})
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, domain.ErrDuplicateEmail):
		writeError(w, http.StatusBadRequest, msgDuplicateEmail)
	case errors.Is(err, domain.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, msgEmptyReview)
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, msgInvalidCredentials)
	case errors.Is(err, domain.ErrLedgerUnavailable):
		writeError(w, http.StatusServiceUnavailable, msgLedgerUnavailable)
	case errors.Is(err, domain.ErrLedgerRejected):
		writeJSON(w, http.StatusInternalServerError, MessageEnvelope{Message: failureMsg, Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, MessageEnvelope{Message: failureMsg, Error: msgInternal})
	}
}
