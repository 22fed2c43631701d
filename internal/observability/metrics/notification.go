// Package metrics provides custom Prometheus metrics for notification operations.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// NotificationMetrics contains Prometheus metrics for alert delivery.
type NotificationMetrics struct {
	ProviderDeliveriesTotal  *prometheus.CounterVec   // by provider, type, status
	ProviderDeliveryDuration *prometheus.HistogramVec // by provider and type
	ProviderDeliveryErrors   *prometheus.CounterVec   // by provider, type, error category
	SuppressedTotal          *prometheus.CounterVec   // duplicates suppressed, by type

	registry *prometheus.Registry
}

// NewNotificationMetrics creates a new instance of NotificationMetrics.
func NewNotificationMetrics(registry *prometheus.Registry) (*NotificationMetrics, error) {
	m := &NotificationMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register notification metrics: %w", err)
	}
	return m, nil
}

func (m *NotificationMetrics) initMetrics() {
	m.ProviderDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_provider_deliveries_total",
			Help: "Total number of notification delivery attempts by provider, notification type, and status",
		},
		[]string{"provider", "notification_type", "status"},
	)

	m.ProviderDeliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_provider_delivery_duration_seconds",
			Help:    "Time taken for notification delivery by provider and notification type",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		},
		[]string{"provider", "notification_type"},
	)

	m.ProviderDeliveryErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_provider_delivery_errors_total",
			Help: "Total number of notification delivery errors by provider, type, and error category",
		},
		[]string{"provider", "notification_type", "error_category"},
	)

	m.SuppressedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_suppressed_total",
			Help: "Alerts suppressed as duplicates",
		},
		[]string{"notification_type"},
	)
}

// RecordDelivery records a delivery attempt.
func (m *NotificationMetrics) RecordDelivery(provider, notificationType, status string, duration time.Duration) {
	m.ProviderDeliveriesTotal.WithLabelValues(provider, notificationType, status).Inc()
	m.ProviderDeliveryDuration.WithLabelValues(provider, notificationType).Observe(duration.Seconds())
}

// RecordDeliveryError records a failed delivery.
func (m *NotificationMetrics) RecordDeliveryError(provider, notificationType, errorCategory string) {
	m.ProviderDeliveryErrors.WithLabelValues(provider, notificationType, errorCategory).Inc()
}

// RecordSuppressed records a duplicate alert that was not sent.
func (m *NotificationMetrics) RecordSuppressed(notificationType string) {
	m.SuppressedTotal.WithLabelValues(notificationType).Inc()
}

// Describe implements the Collector interface
func (m *NotificationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.ProviderDeliveriesTotal.Describe(ch)
	m.ProviderDeliveryDuration.Describe(ch)
	m.ProviderDeliveryErrors.Describe(ch)
	m.SuppressedTotal.Describe(ch)
}

// Collect implements the Collector interface
func (m *NotificationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.ProviderDeliveriesTotal.Collect(ch)
	m.ProviderDeliveryDuration.Collect(ch)
	m.ProviderDeliveryErrors.Collect(ch)
	m.SuppressedTotal.Collect(ch)
}
