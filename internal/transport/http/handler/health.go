package handler

import (
	"context"
	"net/http"
)

type ledgerStatus interface {
	Ready() bool
	Identities() int
}

type registrySize interface {
	Size(ctx context.Context) (int, error)
}

// HealthEnvelope reports process and ledger readiness.
type HealthEnvelope struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Ledger     bool   `json:"ledgerReady"`
	Identities int    `json:"identities"`
	Accounts   int    `json:"accounts"`
}

// HealthHandler handles the health endpoint.
type HealthHandler struct {
	ledger   ledgerStatus
	accounts registrySize
}

func NewHealthHandler(ledger ledgerStatus, accounts registrySize) *HealthHandler {
	return &HealthHandler{ledger: ledger, accounts: accounts}
}

// Check always answers 200 while the process serves; ledgerReady carries readiness.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	env := HealthEnvelope{Success: true, Message: "ok"}
	if h.ledger != nil {
		env.Ledger = h.ledger.Ready()
		env.Identities = h.ledger.Identities()
	}
	if h.accounts != nil {
		if n, err := h.accounts.Size(r.Context()); err == nil {
			env.Accounts = n
		}
	}
	writeJSON(w, http.StatusOK, env)
}
