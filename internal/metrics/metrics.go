package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	stockAdjustmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_adjustments_total",
			Help: "Applied stock counter changes",
		},
		[]string{"bucket", "reason"},
	)

	stockRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_rejections_total",
			Help: "Stock changes refused because a counter would go negative",
		},
		[]string{"bucket", "reason"},
	)

	orderTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Committed order status changes",
		},
		[]string{"from", "to"},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Admin notifications written, by event type",
		},
		[]string{"event_type"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(stockAdjustmentsTotal)
	prometheus.MustRegister(stockRejectionsTotal)
	prometheus.MustRegister(orderTransitionsTotal)
	prometheus.MustRegister(notificationsTotal)
}

func RecordStockAdjustment(bucket, reason string) {
	stockAdjustmentsTotal.WithLabelValues(bucket, reason).Inc()
}

func RecordStockRejection(bucket, reason string) {
	stockRejectionsTotal.WithLabelValues(bucket, reason).Inc()
}

func RecordOrderTransition(from, to string) {
	if from == "" {
		from = "NEW"
	}
	if to == "" {
		to = "DELETED"
	}
	orderTransitionsTotal.WithLabelValues(from, to).Inc()
}

func RecordNotification(eventType string) {
	notificationsTotal.WithLabelValues(eventType).Inc()
}
