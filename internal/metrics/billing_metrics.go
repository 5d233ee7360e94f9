package metrics

import (
	"github.com/fitclub/billing/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

const namespace = "fitclub"

// BillingMetrics records payment, sweep and notification outcomes
type BillingMetrics interface {
	IncPaymentCreated(paymentType types.PaymentType, currency string)
	IncPaymentTransition(status types.PaymentStatus, currency string)
	ObservePaymentAmount(amount decimal.Decimal, currency string, status types.PaymentStatus)
	IncCheckoutReused()
	IncWebhookEvent(eventType string, result string)
	ObserveSweep(sweep string, scanned, processed, skipped int)
	IncNotification(channel string, ok bool)
}

type billingMetrics struct {
	paymentsCreated *prometheus.CounterVec
	paymentsStatus  *prometheus.CounterVec
	paymentsAmount  *prometheus.HistogramVec
	checkoutReused  prometheus.Counter
	webhookEvents   *prometheus.CounterVec
	sweepRecords    *prometheus.CounterVec
	sweepRuns       *prometheus.CounterVec
	notifications   *prometheus.CounterVec
}

func NewBillingMetrics(registry *prometheus.Registry) BillingMetrics {
	factory := promauto.With(registry)

	return &billingMetrics{
		paymentsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payments_created_total",
				Help:      "The total number of created payments",
			},
			[]string{"type", "currency"},
		),
		paymentsStatus: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payments_status_total",
				Help:      "The total number of payment status transitions",
			},
			[]string{"status", "currency"},
		),
		paymentsAmount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "payments_amount",
				Help:      "Payment amounts distribution",
				Buckets:   prometheus.ExponentialBuckets(10, 10, 5),
			},
			[]string{"currency", "status"},
		),
		checkoutReused: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checkout_sessions_reused_total",
				Help:      "Checkout requests answered with a session from the dedup window",
			},
		),
		webhookEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_events_total",
				Help:      "Provider webhook events by type and handling result",
			},
			[]string{"event_type", "result"},
		),
		sweepRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sweep_records_total",
				Help:      "Records seen by the scheduled sweeps",
			},
			[]string{"sweep", "outcome"},
		),
		sweepRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sweep_runs_total",
				Help:      "Completed sweep runs",
			},
			[]string{"sweep"},
		),
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Notification deliveries by channel and result",
			},
			[]string{"channel", "result"},
		),
	}
}

func (m *billingMetrics) IncPaymentCreated(paymentType types.PaymentType, currency string) {
	m.paymentsCreated.WithLabelValues(string(paymentType), currency).Inc()
}

func (m *billingMetrics) IncPaymentTransition(status types.PaymentStatus, currency string) {
	m.paymentsStatus.WithLabelValues(string(status), currency).Inc()
}

func (m *billingMetrics) ObservePaymentAmount(amount decimal.Decimal, currency string, status types.PaymentStatus) {
	m.paymentsAmount.WithLabelValues(currency, string(status)).Observe(amount.InexactFloat64())
}

func (m *billingMetrics) IncCheckoutReused() {
	m.checkoutReused.Inc()
}

func (m *billingMetrics) IncWebhookEvent(eventType string, result string) {
	m.webhookEvents.WithLabelValues(eventType, result).Inc()
}

func (m *billingMetrics) ObserveSweep(sweep string, scanned, processed, skipped int) {
	m.sweepRuns.WithLabelValues(sweep).Inc()
	m.sweepRecords.WithLabelValues(sweep, "scanned").Add(float64(scanned))
	m.sweepRecords.WithLabelValues(sweep, "processed").Add(float64(processed))
	m.sweepRecords.WithLabelValues(sweep, "skipped").Add(float64(skipped))
}

func (m *billingMetrics) IncNotification(channel string, ok bool) {
	result := "sent"
	if !ok {
		result = "failed"
	}
	m.notifications.WithLabelValues(channel, result).Inc()
}
