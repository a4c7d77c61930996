package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics tracks settlement runs, individual transfers and webhook
// reconciliation.
type SettlementMetrics struct {
	runs             *prometheus.CounterVec
	transfers        *prometheus.CounterVec
	transferDuration prometheus.Histogram
	webhookEvents    *prometheus.CounterVec
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_runs_total",
		Help: "Settlement attempts by final state.",
	}, []string{"outcome"})
	transfers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_transfers_total",
		Help: "Seller transfers by resulting status.",
	}, []string{"status"})
	transferDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "settlement_transfer_duration_seconds",
		Help:    "Latency of gateway transfer calls.",
		Buckets: prometheus.DefBuckets,
	})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_webhook_events_total",
		Help: "Gateway webhook events by type and handling outcome.",
	}, []string{"type", "outcome"})
	reg.MustRegister(runs, transfers, transferDuration, webhookEvents)
	return &SettlementMetrics{
		runs:             runs,
		transfers:        transfers,
		transferDuration: transferDuration,
		webhookEvents:    webhookEvents,
	}
}

// IncRun counts a settlement attempt ending in outcome.
func (m *SettlementMetrics) IncRun(outcome string) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveTransfer records one transfer call and its resulting status.
func (m *SettlementMetrics) ObserveTransfer(status string, duration time.Duration) {
	if m == nil || m.transfers == nil {
		return
	}
	m.transfers.WithLabelValues(normalizeLabel(status)).Inc()
	m.transferDuration.Observe(duration.Seconds())
}

// IncWebhook counts a webhook event.
func (m *SettlementMetrics) IncWebhook(eventType, outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}
