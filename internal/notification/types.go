// Package notification sends alerts for inspection outcomes that need
// someone's attention: NOK findings and inspections closed short of completion.
package notification

import (
	"context"
	"time"
)

// Type represents the category of an alert.
type Type string

const (
	// TypeNOKResponse is raised when an item is answered NOK with its comment.
	TypeNOKResponse Type = "nok_response"
	// TypeForcedClose is raised when an inspection is force-closed.
	TypeForcedClose Type = "forced_close"
	// TypeIncomplete is raised when an inspection is closed as incomplete.
	TypeIncomplete Type = "incomplete"
)

// Priority represents the urgency level of an alert.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

// Alert is one outbound message.
type Alert struct {
	Type         Type
	Priority     Priority
	Title        string
	Message      string
	InspectionID string
	ActorID      string
	Timestamp    time.Time
}

// Sender delivers alerts to one external service.
type Sender interface {
	Name() string
	Send(ctx context.Context, alert *Alert) error
}
