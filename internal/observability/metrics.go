package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tables_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tables_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	ReservationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tables_reservations_created_total",
			Help: "Total reservations committed",
		},
	)

	ReservationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tables_reservation_failures_total",
			Help: "Rejected reservation attempts by reason",
		},
		[]string{"reason"},
	)

	CartPreviews = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tables_cart_previews_total",
			Help: "Total cost previews stored in carts",
		},
	)

	OutboxPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tables_outbox_pending",
			Help: "Events waiting in the outbox",
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tables_outbox_lag_seconds",
			Help: "Age of the oldest unpublished outbox event",
		},
	)

	RabbitPublishRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tables_rabbit_publish_retries_total",
			Help: "Total rabbit publish retries",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tables_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)
