package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VerificationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eff_membership",
		Subsystem: "bulk_upload",
		Name:      "verification_requests_total",
		Help:      "IEC verification calls by outcome (verified, not_registered, error).",
	}, []string{"outcome"})

	VerificationRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eff_membership",
		Subsystem: "bulk_upload",
		Name:      "verification_rate_limited_total",
		Help:      "Verification calls skipped because the rate limiter tripped.",
	})

	PersistedOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eff_membership",
		Subsystem: "bulk_upload",
		Name:      "persisted_operations_total",
		Help:      "Persistence engine outcomes (insert, update, skip, failure).",
	}, []string{"operation"})

	RunsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eff_membership",
		Subsystem: "bulk_upload",
		Name:      "runs_total",
		Help:      "Pipeline runs by terminal status (completed, rejected).",
	}, []string{"status"})
)
