package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "detailing"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint and status code.",
		},
		[]string{"endpoint", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency by endpoint.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"endpoint"},
	)

	rateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Count of requests rejected by the per-client rate limit.",
		},
		[]string{"endpoint"},
	)

	bookingOutcome = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_requests_total",
			Help:      "Count of booking submissions by terminal stage.",
		},
		[]string{"stage"},
	)

	contactSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contact_submissions_total",
			Help:      "Count of contact form submissions by result.",
		},
		[]string{"result"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Count of notification deliveries by notifier and result.",
		},
		[]string{"notifier", "result"},
	)

	notificationRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_retries_total",
			Help:      "Count of notification retry attempts.",
		},
		[]string{"notifier"},
	)

	backups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backups_total",
			Help:      "Count of database backups by result.",
		},
		[]string{"result"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			rateLimited,
			bookingOutcome,
			contactSubmitted,
			notifications,
			notificationRetries,
			backups,
		)
	})
}

func ObserveHTTP(endpoint, code string, d time.Duration) {
	httpRequests.WithLabelValues(endpoint, code).Inc()
	httpDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func IncRateLimited(endpoint string) {
	rateLimited.WithLabelValues(endpoint).Inc()
}

// IncBookingOutcome records the stage a booking request finished in.
func IncBookingOutcome(stage string) {
	bookingOutcome.WithLabelValues(stage).Inc()
}

func IncContact(result string) {
	contactSubmitted.WithLabelValues(result).Inc()
}

func IncNotification(notifier, result string) {
	notifications.WithLabelValues(notifier, result).Inc()
}

func IncNotificationRetry(notifier string) {
	notificationRetries.WithLabelValues(notifier).Inc()
}

func IncBackup(result string) {
	backups.WithLabelValues(result).Inc()
}
