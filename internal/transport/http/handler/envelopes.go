package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-review-ledger/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SafeUser is the public projection of domain.User.
type SafeUser struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	AccountSlot int    `json:"accountSlot"`
}

// AuthEnvelope wraps register/login responses.
type AuthEnvelope struct {
	Success bool      `json:"success"`
	Message string    `json:"message,omitempty"`
	Token   string    `json:"token,omitempty"`
	User    *SafeUser `json:"user,omitempty"`
}

// ProfanityCheck reports the classifier verdict that blocked a review.
type ProfanityCheck struct {
	Detected bool    `json:"detected"`
	Label    string  `json:"label"`
	Score    float64 `json:"score"`
}

// RejectionEnvelope is returned when moderation blocks a review.
type RejectionEnvelope struct {
	Success        bool           `json:"success"`
	Message        string         `json:"message"`
	ProfanityCheck ProfanityCheck `json:"profanityCheck"`
}

// ReceiptEnvelope wraps a confirmed submission.
type ReceiptEnvelope struct {
	Success bool                      `json:"success"`
	Data    *domain.SubmissionReceipt `json:"data"`
}

// ReviewsEnvelope wraps the review list.
type ReviewsEnvelope struct {
	Success bool            `json:"success"`
	Count   int             `json:"count"`
	Data    []domain.Review `json:"data"`
}

// CountEnvelope wraps the review count.
type CountEnvelope struct {
	Success bool   `json:"success"`
	Count   uint64 `json:"count"`
}

func toSafeUser(u *domain.User) *SafeUser {
	if u == nil {
		return nil
	}
	return &SafeUser{ID: u.ID, Email: u.Email, AccountSlot: u.AccountSlot}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Message: msg})
}
