package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorefrontMetrics records checkout and payment outcomes.
type StorefrontMetrics struct {
	checkoutDuration *prometheus.HistogramVec
	checkoutOutcome  *prometheus.CounterVec
	paymentOutcome   *prometheus.CounterVec
	orderTotalCents  prometheus.Histogram
}

// NewStorefrontMetrics registers the storefront metrics on the provided registerer.
func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	checkoutDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	checkoutOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})
	paymentOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_total",
		Help: "Payment attempts by outcome and provider.",
	}, []string{"outcome", "provider"})
	orderTotalCents := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_total_cents",
		Help:    "Distribution of order totals in cents.",
		Buckets: prometheus.ExponentialBuckets(100, 4, 8),
	})
	reg.MustRegister(checkoutDuration, checkoutOutcome, paymentOutcome, orderTotalCents)
	return &StorefrontMetrics{
		checkoutDuration: checkoutDuration,
		checkoutOutcome:  checkoutOutcome,
		paymentOutcome:   paymentOutcome,
		orderTotalCents:  orderTotalCents,
	}
}

// ObserveCheckout records one checkout attempt.
func (m *StorefrontMetrics) ObserveCheckout(outcome string, duration time.Duration, totalCents int) {
	if m == nil || m.checkoutOutcome == nil {
		return
	}
	label := normalizeLabel(outcome)
	m.checkoutOutcome.WithLabelValues(label).Inc()
	m.checkoutDuration.WithLabelValues(label).Observe(duration.Seconds())
	if totalCents > 0 {
		m.orderTotalCents.Observe(float64(totalCents))
	}
}

// IncPayment records one payment attempt against a provider.
func (m *StorefrontMetrics) IncPayment(outcome, provider string) {
	if m == nil || m.paymentOutcome == nil {
		return
	}
	m.paymentOutcome.WithLabelValues(normalizeLabel(outcome), normalizeLabel(provider)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
