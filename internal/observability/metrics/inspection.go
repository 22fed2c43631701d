package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/safetrack/safetrack/internal/inspection"
)

// InspectionMetrics tracks checklist activity. It is fed by the event bus.
type InspectionMetrics struct {
	registry *prometheus.Registry

	responsesTotal     *prometheus.CounterVec
	transitionsTotal   *prometheus.CounterVec
	itemsMarkedNATotal prometheus.Counter
	completionProgress prometheus.Histogram
	nokAtClose         prometheus.Histogram

	collectors []prometheus.Collector
}

// NewInspectionMetrics creates and registers inspection metrics.
func NewInspectionMetrics(registry *prometheus.Registry) (*InspectionMetrics, error) {
	m := &InspectionMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *InspectionMetrics) initMetrics() {
	m.responsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_responses_recorded_total",
			Help: "Item responses written, by state",
		},
		[]string{"state"},
	)

	m.transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_transitions_total",
			Help: "Lifecycle transitions, by source and target status",
		},
		[]string{"from", "to"},
	)

	m.itemsMarkedNATotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inspection_items_marked_na_total",
		Help: "Unanswered items bulk-marked as not applicable",
	})

	m.completionProgress = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "inspection_percent_complete_at_close",
		Help:    "Percent of items answered when an inspection reached a terminal status",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	})

	m.nokAtClose = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "inspection_nok_items_at_close",
		Help:    "NOK items present when an inspection reached a terminal status",
		Buckets: []float64{0, 1, 2, 5, 10, 20},
	})

	m.collectors = []prometheus.Collector{
		m.responsesTotal,
		m.transitionsTotal,
		m.itemsMarkedNATotal,
		m.completionProgress,
		m.nokAtClose,
	}
}

// Describe implements the Collector interface
func (m *InspectionMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *InspectionMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}

// Name identifies the metrics consumer on the event bus.
func (m *InspectionMetrics) Name() string { return "metrics" }

// ProcessEvent updates counters from an engine event.
func (m *InspectionMetrics) ProcessEvent(event inspection.Event) error {
	switch event.Type {
	case inspection.EventResponseRecorded:
		m.responsesTotal.WithLabelValues(string(event.State)).Inc()
	case inspection.EventItemsMarkedNA:
		m.itemsMarkedNATotal.Add(float64(event.Count))
		m.responsesTotal.WithLabelValues(string(inspection.StateNA)).Add(float64(event.Count))
	case inspection.EventInspectionTransitioned:
		m.transitionsTotal.WithLabelValues(string(event.PreviousStatus), string(event.Status)).Inc()
		if event.Status.IsTerminal() {
			m.completionProgress.Observe(event.Progress.PercentComplete)
			m.nokAtClose.Observe(float64(event.Progress.NOK))
		}
	}
	return nil
}
