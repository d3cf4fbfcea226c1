package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-review-ledger/internal/domain"
)

type stubValidator map[string]*domain.User

func (s stubValidator) Validate(_ context.Context, token string) (*domain.User, error) {
	if token == "explode" {
		return nil, errors.New("registry offline")
	}
	if u, ok := s[token]; ok {
		return u, nil
	}
	return nil, domain.ErrUnauthorized
}

var sessions = stubValidator{
	"good": {ID: "u1", Email: "a@b.c", PasswordHash: "secret-hash", SessionToken: "good", AccountSlot: 4},
}

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func serve(t *testing.T, header string, next http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	Auth(sessions)(next).ServeHTTP(rr, req)
	return rr
}

func messageOf(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.False(t, body.Success)
	return body.Message
}

func TestAuth_MissingHeader(t *testing.T) {
	rr := serve(t, "", okHandler)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "No token provided. Please login.", messageOf(t, rr))
}

func TestAuth_NonBearerScheme(t *testing.T) {
	rr := serve(t, "Basic dXNlcjpwYXNz", okHandler)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "No token provided. Please login.", messageOf(t, rr))
}

func TestAuth_UnknownToken(t *testing.T) {
	rr := serve(t, "Bearer stale", okHandler)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid or expired token. Please login again.", messageOf(t, rr))
}

func TestAuth_ValidatorFailure(t *testing.T) {
	rr := serve(t, "Bearer explode", okHandler)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Authentication failed", messageOf(t, rr))
}

func TestAuth_ValidTokenAttachesCaller(t *testing.T) {
	var caller *domain.User
	rr := serve(t, "Bearer good", func(w http.ResponseWriter, r *http.Request) {
		var ok bool
		caller, ok = CallerFromContext(r.Context())
		require.True(t, ok)
		w.WriteHeader(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, caller)
	assert.Equal(t, "u1", caller.ID)
	assert.Equal(t, 4, caller.AccountSlot)
	assert.Empty(t, caller.PasswordHash)
	assert.Empty(t, caller.SessionToken)
}

func TestCallerFromContext_Missing(t *testing.T) {
	_, ok := CallerFromContext(context.Background())
	assert.False(t, ok)
}
