package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-review-ledger/internal/application/account"
	"github.com/go-review-ledger/internal/application/session"
	"github.com/go-review-ledger/internal/domain"
	"github.com/go-review-ledger/internal/transport/http/middleware"
)

// maxCredentialsBody caps the register and login payloads.
const maxCredentialsBody = 4 << 10

// AuthHandler handles registration, login and the current-user endpoint.
type AuthHandler struct {
	accounts account.Service
	sessions session.Service
}

func NewAuthHandler(accounts account.Service, sessions session.Service) *AuthHandler {
	return &AuthHandler{accounts: accounts, sessions: sessions}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCredentialsBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	u, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "Registration failed")
		return
	}
	writeJSON(w, http.StatusCreated, AuthEnvelope{
		Success: true,
		Message: "User registered successfully",
		Token:   u.SessionToken,
		User:    toSafeUser(u),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCredentialsBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	u, err := h.sessions.Login(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "Login failed")
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{
		Success: true,
		Message: "Login successful",
		Token:   u.SessionToken,
		User:    toSafeUser(u),
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{Success: true, User: toSafeUser(caller)})
}
