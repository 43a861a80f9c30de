package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Outbound Graph API operations by operation and result.
	GraphRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whatsapp_graph_requests_total",
			Help: "Total number of Graph API operations (by operation and result).",
		},
		[]string{"op", "result"},
	)

	GraphRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "whatsapp_graph_request_duration_seconds",
			Help:    "Duration of Graph API operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms → ~10s
		},
		[]string{"op"},
	)

	// Products whose price or image needed a lossy default.
	NormalizationDegraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whatsapp_normalization_degraded_total",
			Help: "Products normalized with a default price or placeholder image.",
		},
		[]string{"field", "rule"},
	)

	SyncProductsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whatsapp_catalog_sync_products_total",
			Help: "Products processed by catalog sync (by outcome).",
		},
		[]string{"outcome"}, // created | updated | failed
	)

	WebhookVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whatsapp_webhook_verifications_total",
			Help: "Webhook subscription handshakes (by result).",
		},
		[]string{"result"},
	)

	WebhookDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whatsapp_webhook_deliveries_total",
			Help: "Webhook deliveries received (by result).",
		},
		[]string{"result"},
	)

	WebhookDeliveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "whatsapp_webhook_delivery_duration_seconds",
			Help:    "Time taken to parse and route one webhook delivery.",
			Buckets: prometheus.DefBuckets,
		},
	)

	InboundMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whatsapp_inbound_messages_total",
			Help: "Inbound messages routed (by type and outcome).",
		},
		[]string{"type", "outcome"},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whatsapp_events_published_total",
			Help: "Canonical events published to the event sink.",
		},
		[]string{"event_type", "result"},
	)

	// Tracks total errors (aggregated).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adapter_errors_total",
			Help: "Count of adapter-level errors by component.",
		},
		[]string{"component", "reason"},
	)
)

func IncGraphRequest(op, result string) {
	GraphRequestsTotal.WithLabelValues(op, result).Inc()
}

func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
