package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// NotificationsPublishedTotal tracks opportunities appended to a stream.
	NotificationsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsarb_notifications_published_total",
			Help: "Total number of opportunities published to notification streams",
		},
		[]string{"sport"},
	)

	// NotificationErrorsTotal tracks failed stream appends.
	NotificationErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sportsarb_notification_errors_total",
			Help: "Total number of failed notification publishes",
		},
	)
)
