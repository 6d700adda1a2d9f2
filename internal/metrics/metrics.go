// Package metrics exposes Prometheus counters for the social store.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	interactionToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tastelog_interaction_toggles_total",
		Help: "Like and save toggles by kind and resulting state",
	}, []string{"kind", "state"})

	persistenceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tastelog_persistence_failures_total",
		Help: "Failed collection reads and writes by collection and operation",
	}, []string{"collection", "operation"})

	notificationsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tastelog_notifications_generated_total",
		Help: "Notifications persisted by the generator, by type",
	}, []string{"type"})

	notificationsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tastelog_notifications_suppressed_total",
		Help: "Notification events that produced nothing, by reason",
	}, []string{"reason"})

	notificationQueueDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tastelog_notification_queue_dropped_total",
		Help: "Notification events dropped by the dispatcher, by reason (queue_full, stopped)",
	}, []string{"reason"})
)

// ObserveToggle counts a like/save toggle. kind is "like" or "save".
func ObserveToggle(kind string, active bool) {
	state := "off"
	if active {
		state = "on"
	}
	interactionToggles.WithLabelValues(kind, state).Inc()
}

// ObservePersistenceFailure counts a failed read or write of a collection.
func ObservePersistenceFailure(collection, operation string) {
	persistenceFailures.WithLabelValues(collection, operation).Inc()
}

// ObserveNotificationGenerated counts a persisted notification.
func ObserveNotificationGenerated(notificationType string) {
	notificationsGenerated.WithLabelValues(notificationType).Inc()
}

// ObserveNotificationSuppressed counts an event that was intentionally not turned into a notification.
func ObserveNotificationSuppressed(reason string) {
	notificationsSuppressed.WithLabelValues(reason).Inc()
}

// Reasons for ObserveNotificationDropped.
const (
	DropReasonQueueFull = "queue_full"
	DropReasonStopped   = "stopped"
)

// ObserveNotificationDropped counts an event the dispatcher refused.
func ObserveNotificationDropped(reason string) {
	notificationQueueDropped.WithLabelValues(reason).Inc()
}
