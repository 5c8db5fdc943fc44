package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics tracks checkout attempts by outcome.
type CheckoutMetrics struct {
	attempts *prometheus.CounterVec
	duration prometheus.Histogram
}

// Checkout outcome labels.
const (
	OutcomeCompleted  = "completed"
	OutcomeOutOfStock = "out_of_stock"
	OutcomeRejected   = "rejected"
	OutcomeFailed     = "failed"
)

// NewCheckoutMetrics registers checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout attempts partitioned by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "End-to-end checkout duration in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(attempts, duration)
	return &CheckoutMetrics{
		attempts: attempts,
		duration: duration,
	}
}

// IncAttempt counts one checkout attempt with the given outcome.
func (c *CheckoutMetrics) IncAttempt(outcome string) {
	if c == nil || c.attempts == nil {
		return
	}
	if outcome == "" {
		outcome = OutcomeFailed
	}
	c.attempts.WithLabelValues(outcome).Inc()
}

// ObserveDuration records how long a checkout attempt took.
func (c *CheckoutMetrics) ObserveDuration(duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.Observe(duration.Seconds())
}
