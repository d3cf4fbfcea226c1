package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-review-ledger/internal/application/review"
	"github.com/go-review-ledger/internal/domain"
	"github.com/go-review-ledger/internal/transport/http/middleware"
)

// maxReviewBody caps the submit payload.
const maxReviewBody = 64 << 10

// ReviewHandler handles review submission and the public read endpoints.
type ReviewHandler struct {
	svc review.Service
}

func NewReviewHandler(svc review.Service) *ReviewHandler { return &ReviewHandler{svc: svc} }

func (h *ReviewHandler) Submit(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.SubmitReviewRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReviewBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	receipt, err := h.svc.SubmitReview(r.Context(), caller, req.Message)
	if err != nil {
		writeDomainError(w, err, "Error submitting review")
		return
	}
	writeJSON(w, http.StatusCreated, ReceiptEnvelope{Success: true, Data: receipt})
}

func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.svc.ListReviews(r.Context())
	if err != nil {
		writeDomainError(w, err, "Error fetching reviews")
		return
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	writeJSON(w, http.StatusOK, ReviewsEnvelope{Success: true, Count: len(reviews), Data: reviews})
}

func (h *ReviewHandler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.ReviewCount(r.Context())
	if err != nil {
		writeDomainError(w, err, "Error fetching review count")
		return
	}
	writeJSON(w, http.StatusOK, CountEnvelope{Success: true, Count: n})
}
