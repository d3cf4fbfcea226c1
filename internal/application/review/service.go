package review

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/go-review-ledger/internal/domain"
	"github.com/go-review-ledger/internal/pkg/metrics"
)

type Service interface {
	// SubmitReview moderates text and, when admitted, writes it to the ledger
	// from the caller's account slot. Rejected content never reaches the ledger.
	SubmitReview(ctx context.Context, caller *domain.User, text string) (*domain.SubmissionReceipt, error)
	ListReviews(ctx context.Context) ([]domain.Review, error)
	ReviewCount(ctx context.Context) (uint64, error)
}

type moderationGate interface {
	Evaluate(ctx context.Context, text string) domain.ModerationVerdict
}

type ledgerGateway interface {
	Submit(ctx context.Context, message string, slot int) (*domain.SubmissionReceipt, error)
	Reviews(ctx context.Context) ([]domain.Review, error)
	ReviewCount(ctx context.Context) (uint64, error)
}

type service struct {
	gate   moderationGate
	ledger ledgerGateway
	logger *zap.Logger
}

type ServiceDeps struct {
	Gate   moderationGate
	Ledger ledgerGateway
	Logger *zap.Logger
}

func NewService(deps ServiceDeps) Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{gate: deps.Gate, ledger: deps.Ledger, logger: logger}
}

func (s *service) SubmitReview(ctx context.Context, caller *domain.User, text string) (*domain.SubmissionReceipt, error) {
	log := s.logger.With(zap.String("user_id", caller.ID), zap.Int("slot", caller.AccountSlot))
	log.Debug("Review received", zap.Int("length", len(text)))

	if strings.TrimSpace(text) == "" {
		metrics.ReviewSubmissions.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, domain.ErrEmptyMessage
	}

	// A caller that goes away mid-check must still get a real verdict, otherwise
	// the gate would admit the text as if the classifier were down. The gate's
	// own timeout bounds the call.
	detached := context.WithoutCancel(ctx)

	log.Debug("Review moderating")
	verdict := s.gate.Evaluate(detached, text)
	if verdict.IsRejected {
		metrics.ReviewSubmissions.WithLabelValues(metrics.OutcomeRejected).Inc()
		log.Info("Review rejected", zap.String("label", verdict.Label), zap.Float64("score", verdict.Score))
		return nil, &domain.ContentRejectedError{Label: verdict.Label, Score: verdict.Score}
	}
	log.Debug("Review admitted", zap.Bool("moderation_unavailable", verdict.ServiceUnavailable))

	// The write outlives a disconnected caller; the gateway bounds it with its own timeout.
	log.Debug("Review submitting")
	receipt, err := s.ledger.Submit(detached, text, caller.AccountSlot)
	if err != nil {
		metrics.ReviewSubmissions.WithLabelValues(metrics.OutcomeFailed).Inc()
		log.Error("Review failed", zap.Error(err))
		return nil, err
	}

	metrics.ReviewSubmissions.WithLabelValues(metrics.OutcomeConfirmed).Inc()
	log.Info("Review confirmed",
		zap.String("tx_ref", receipt.TxRef),
		zap.Uint64("block", receipt.BlockNumber),
		zap.String("from", receipt.FromIdentity))
	return receipt, nil
}

func (s *service) ListReviews(ctx context.Context) ([]domain.Review, error) {
	reviews, err := s.ledger.Reviews(ctx)
	if err != nil {
		s.logReadError("list reviews", err)
		return nil, err
	}
	return reviews, nil
}

func (s *service) ReviewCount(ctx context.Context) (uint64, error) {
	n, err := s.ledger.ReviewCount(ctx)
	if err != nil {
		s.logReadError("count reviews", err)
		return 0, err
	}
	return n, nil
}

func (s *service) logReadError(op string, err error) {
	if errors.Is(err, domain.ErrLedgerUnavailable) {
		return
	}
	s.logger.Error("Ledger read failed", zap.String("op", op), zap.Error(err))
}
