package metrics

import "github.com/prometheus/client_golang/prometheus"

// PaymentMetrics records payment handoff attempts and their outcomes.
type PaymentMetrics struct {
	attempts *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_attempts",
		Help: "Order placement attempts by outcome.",
	}, []string{"method", "outcome"})
	reg.MustRegister(attempts)
	return &PaymentMetrics{attempts: attempts}
}

// IncAttempt counts one placement attempt.
func (p *PaymentMetrics) IncAttempt(method, outcome string) {
	if p == nil || p.attempts == nil {
		return
	}
	p.attempts.WithLabelValues(normalizeLabel(method), normalizeLabel(outcome)).Inc()
}
