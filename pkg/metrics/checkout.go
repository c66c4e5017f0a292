package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics covers the checkout pipeline: request outcomes, order
// write state transitions and gateway latency.
type CheckoutMetrics struct {
	outcomes    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	gateway     *prometheus.HistogramVec
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "requests_total",
		Help:      "Checkout requests by error code (ok on success).",
	}, []string{"code"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "write_transitions_total",
		Help:      "Order write state transitions.",
	}, []string{"from", "to"})
	gateway := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "call_duration_seconds",
		Help:      "Payment gateway call latency by outcome.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30},
	}, []string{"provider", "operation", "outcome"})
	reg.MustRegister(outcomes, transitions, gateway)
	return &CheckoutMetrics{
		outcomes:    outcomes,
		transitions: transitions,
		gateway:     gateway,
	}
}

// ObserveCheckout counts one finished checkout; code is empty on success.
func (m *CheckoutMetrics) ObserveCheckout(code string) {
	if m == nil || m.outcomes == nil {
		return
	}
	if code == "" {
		code = "ok"
	}
	m.outcomes.WithLabelValues(code).Inc()
}

// ObserveTransition records an order write state change.
func (m *CheckoutMetrics) ObserveTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (m *CheckoutMetrics) ObserveGatewayCall(provider, operation, outcome string, elapsed time.Duration) {
	if m == nil || m.gateway == nil {
		return
	}
	m.gateway.WithLabelValues(normalizeLabel(provider), normalizeLabel(operation), normalizeLabel(outcome)).Observe(elapsed.Seconds())
}
