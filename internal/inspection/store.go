package inspection

import (
	"context"
	"time"
)

// Store is the persistence collaborator. Missing records are reported with
// errors wrapping ErrNotFound; any other error is surfaced as a store failure.
type Store interface {
	GetInspection(ctx context.Context, inspectionID string) (*Inspection, error)
	// GetItems returns items ordered by OrderIndex ascending.
	GetItems(ctx context.Context, inspectionID string) ([]InspectionItem, error)
	// GetResponses returns every response of the inspection in no particular order.
	GetResponses(ctx context.Context, inspectionID string) ([]ItemResponse, error)
	// UpsertResponse creates or fully replaces the response keyed by
	// (InspectionID, InspectionItemID) and returns the stored row.
	UpsertResponse(ctx context.Context, response *ItemResponse) (*ItemResponse, error)
	// UpdateInspection writes every set field of update atomically.
	UpdateInspection(ctx context.Context, inspectionID string, update InspectionUpdate) error
}

// ProgressRecorder is implemented by stores that cache percent_complete on
// the inspection row.
type ProgressRecorder interface {
	SetPercentComplete(ctx context.Context, inspectionID string, percent float64) error
}

// RoleChecker answers whether the acting user holds any of the given roles.
type RoleChecker interface {
	HasAnyRole(ctx context.Context, roles ...Role) (bool, error)
}

// RoleCheckerFunc adapts a function to RoleChecker.
type RoleCheckerFunc func(ctx context.Context, roles ...Role) (bool, error)

// HasAnyRole calls f.
func (f RoleCheckerFunc) HasAnyRole(ctx context.Context, roles ...Role) (bool, error) {
	return f(ctx, roles...)
}

// Actor is the user on whose behalf a session acts.
type Actor struct {
	UserID string
	Roles  RoleChecker
}

// EventType identifies a change published to observers.
type EventType string

const (
	EventResponseRecorded       EventType = "response_recorded"
	EventInspectionTransitioned EventType = "inspection_transitioned"
	EventItemsMarkedNA          EventType = "items_marked_na"
)

// Event describes a committed change. Fields irrelevant to Type are zero.
type Event struct {
	Type           EventType
	InspectionID   string
	ActorID        string
	ItemID         string        // EventResponseRecorded
	State          ResponseState // EventResponseRecorded
	Comment        string        // EventResponseRecorded
	PreviousStatus Status        // EventInspectionTransitioned
	Status         Status        // EventInspectionTransitioned and current status otherwise
	Reason         string        // transitions and NA marking
	Count          int           // EventItemsMarkedNA
	Progress       Progress
	At             time.Time
}

// Observer receives committed changes. Notify must not block.
type Observer interface {
	Notify(event Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Notify calls f.
func (f ObserverFunc) Notify(event Event) { f(event) }

type noopObserver struct{}

func (noopObserver) Notify(Event) {}
