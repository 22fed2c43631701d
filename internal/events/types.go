// Package events provides an asynchronous event bus that fans committed
// inspection changes out to consumers (audit log, alerts, metrics) without
// blocking the engine.
package events

import (
	"github.com/safetrack/safetrack/internal/inspection"
)

// EventConsumer processes inspection events delivered by the bus.
type EventConsumer interface {
	// Name returns the consumer name for identification
	Name() string

	// ProcessEvent processes a single event. Errors are counted and logged.
	ProcessEvent(event inspection.Event) error
}

// ConsumerFunc adapts a function to EventConsumer.
type ConsumerFunc struct {
	ConsumerName string
	Fn           func(inspection.Event) error
}

// Name returns the consumer name.
func (c ConsumerFunc) Name() string { return c.ConsumerName }

// ProcessEvent calls Fn.
func (c ConsumerFunc) ProcessEvent(event inspection.Event) error { return c.Fn(event) }

// EventBusStats contains runtime statistics for monitoring
type EventBusStats struct {
	EventsReceived  uint64
	EventsProcessed uint64
	EventsDropped   uint64
	ConsumerErrors  uint64
	FastPathHits    uint64 // events skipped because no consumer was registered
}
