// Package metrics holds the Prometheus collectors shared by the gateway.
// They register on the default registry, exposed by promhttp on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for ReviewSubmissions.
const (
	OutcomeRejected  = "rejected"
	OutcomeConfirmed = "confirmed"
	OutcomeFailed    = "failed"
	OutcomeInvalid   = "invalid"
)

var (
	// ModerationUnavailable counts classifier calls that ended in fail-open admission.
	ModerationUnavailable = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moderation_unavailable_total",
			Help: "Classifier calls that failed and were admitted under the fail-open policy",
		},
	)

	ModerationVerdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_verdicts_total",
			Help: "Classifier verdicts by result",
		},
		[]string{"result"},
	)

	// LedgerIdentityFallback counts submissions whose slot had no provisioned
	// ledger identity and were sent from identity 0 instead.
	LedgerIdentityFallback = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_identity_fallback_total",
			Help: "Submissions routed to ledger identity 0 because the account slot exceeds the identity pool",
		},
	)

	LedgerWriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ledger_write_duration_seconds",
			Help:    "Time from sending a review transaction to its receipt",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
		},
	)

	ReviewSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_submissions_total",
			Help: "Review submissions by terminal outcome",
		},
		[]string{"outcome"},
	)
)
