package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-review-ledger/internal/domain"
)

type contextKey string

const callerKey contextKey = "caller"

const (
	msgNoToken      = "No token provided. Please login."
	msgInvalidToken = "Invalid or expired token. Please login again."
	msgAuthFailed   = "Authentication failed"
)

// TokenValidator resolves a bearer token to its owner.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*domain.User, error)
}

// Auth returns middleware that resolves the Bearer token and injects the
// calling user into the request context.
func Auth(sessions TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, msgNoToken)
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, msgNoToken)
				return
			}
			u, err := sessions.Validate(r.Context(), token)
			if errors.Is(err, domain.ErrUnauthorized) {
				writeJSONError(w, http.StatusUnauthorized, msgInvalidToken)
				return
			}
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, msgAuthFailed)
				return
			}
			caller := &domain.User{ID: u.ID, Email: u.Email, AccountSlot: u.AccountSlot}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

// WithCaller stores the authenticated user in ctx.
func WithCaller(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, callerKey, u)
}

// CallerFromContext returns the user attached by Auth. Only id, email and
// account slot are populated.
func CallerFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(callerKey).(*domain.User)
	return u, ok && u != nil
}
