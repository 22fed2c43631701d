// Package inspection implements the inspection lifecycle engine: the checklist
// state model, response upsert rules and the completion, force-close and
// reopen state machine. Persistence and role resolution are supplied by the
// caller through the Store and RoleChecker interfaces.
package inspection

import (
	"slices"
	"time"
)

// Status is the lifecycle status of an inspection.
type Status string

const (
	StatusPending      Status = "pending"
	StatusInProgress   Status = "in_progress"
	StatusCompleted    Status = "completed"
	StatusIncomplete   Status = "incomplete"
	StatusForcedClosed Status = "forced_closed"
)

// IsTerminal reports whether the checklist is read-only in this status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusIncomplete, StatusForcedClosed:
		return true
	default:
		return false
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusIncomplete, StatusForcedClosed:
		return true
	default:
		return false
	}
}

// ResponseState is the answer recorded for one checklist item.
type ResponseState string

const (
	StateOK      ResponseState = "OK"
	StateNOK     ResponseState = "NOK"
	StateNA      ResponseState = "NA"
	StatePending ResponseState = "PENDING"
)

// Valid reports whether s is one of the enumerated response states.
func (s ResponseState) Valid() bool {
	switch s {
	case StateOK, StateNOK, StateNA, StatePending:
		return true
	default:
		return false
	}
}

// Role is an application role as resolved by the caller's identity system.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleOperario   Role = "operario"
	RoleAuditor    Role = "auditor"
)

// DefaultElevatedRoles may run lifecycle transitions.
var DefaultElevatedRoles = []Role{RoleAdmin, RoleSupervisor}

// InspectionItem is one checklist question. Items never change during an
// inspection's active life.
type InspectionItem struct {
	ID           string
	InspectionID string
	Label        string
	Description  *string
	OrderIndex   int
	Required     bool
}

// ItemResponse is the current answer to an item. There is at most one per
// (InspectionID, InspectionItemID).
type ItemResponse struct {
	ID               string
	InspectionItemID string
	InspectionID     string
	UserID           string // last writer
	State            ResponseState
	Comment          *string
	Photos           []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Clone returns a deep copy.
func (r ItemResponse) Clone() ItemResponse {
	r.Photos = slices.Clone(r.Photos)
	if r.Comment != nil {
		c := *r.Comment
		r.Comment = &c
	}
	return r
}

// CommentText returns the comment or an empty string.
func (r *ItemResponse) CommentText() string {
	if r == nil || r.Comment == nil {
		return ""
	}
	return *r.Comment
}

// Inspection is the aggregate root.
type Inspection struct {
	ID               string
	AreaID           string
	Status           Status
	PercentComplete  float64
	StartedAt        *time.Time
	FinishedAt       *time.Time
	ForceCloseReason *string
	Notes            *string
}

// Clone returns a deep copy.
func (i Inspection) Clone() Inspection {
	i.StartedAt = clonePtr(i.StartedAt)
	i.FinishedAt = clonePtr(i.FinishedAt)
	i.ForceCloseReason = clonePtr(i.ForceCloseReason)
	i.Notes = clonePtr(i.Notes)
	return i
}

// Change is a tri-state field of a partial update: untouched, set to a value,
// or cleared to NULL.
type Change[T any] struct {
	set   bool
	value *T
}

// SetTo returns a change assigning v.
func SetTo[T any](v T) Change[T] {
	return Change[T]{set: true, value: &v}
}

// Clear returns a change assigning NULL.
func Clear[T any]() Change[T] {
	return Change[T]{set: true}
}

// IsSet reports whether the field is part of the update.
func (c Change[T]) IsSet() bool { return c.set }

// Value returns the new value; nil means cleared. Only meaningful when IsSet.
func (c Change[T]) Value() *T { return c.value }

// Apply writes the change into dst when set.
func (c Change[T]) Apply(dst **T) {
	if !c.set {
		return
	}
	if c.value == nil {
		*dst = nil
		return
	}
	v := *c.value
	*dst = &v
}

// InspectionUpdate is the restricted set of inspection fields the engine may
// write. All set fields are persisted together or not at all.
type InspectionUpdate struct {
	Status           Change[Status]
	StartedAt        Change[time.Time]
	FinishedAt       Change[time.Time]
	ForceCloseReason Change[string]
	Notes            Change[string]
}

// Empty reports whether the update carries no field.
func (u InspectionUpdate) Empty() bool {
	return !u.Status.IsSet() && !u.StartedAt.IsSet() && !u.FinishedAt.IsSet() &&
		!u.ForceCloseReason.IsSet() && !u.Notes.IsSet()
}

// ApplyTo writes the update into an in-memory inspection.
func (u InspectionUpdate) ApplyTo(insp *Inspection) {
	if v := u.Status.Value(); u.Status.IsSet() && v != nil {
		insp.Status = *v
	}
	u.StartedAt.Apply(&insp.StartedAt)
	u.FinishedAt.Apply(&insp.FinishedAt)
	u.ForceCloseReason.Apply(&insp.ForceCloseReason)
	u.Notes.Apply(&insp.Notes)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
