package inspection

import (
	"strings"
	"time"
)

// Transition is a planned status change with the fields written alongside it.
type Transition struct {
	From   Status
	To     Status
	Reason string // trimmed justification, empty for a clean completion
	Update InspectionUpdate
}

// PlanCompletion decides the outcome of a completion request. Rules in order:
// a forced request needs a reason; a clean checklist completes; NOK items
// force-close with a mandatory reason; unanswered items alone need explicit
// confirmation (force) and a reason.
func PlanCompletion(current Status, progress Progress, force bool, reason string, now time.Time) (Transition, error) {
	reason = strings.TrimSpace(reason)

	if force && reason == "" {
		return Transition{}, newError(ErrReasonRequired, "complete", "forced completion needs a justification").Build()
	}
	if current.IsTerminal() {
		return Transition{}, newError(ErrLocked, "complete", "inspection is already %s", current).
			Context("status", string(current)).
			Build()
	}

	switch {
	case !progress.HasIncompleteItems && !progress.HasNOKItems:
		return Transition{
			From: current,
			To:   StatusCompleted,
			Update: InspectionUpdate{
				Status:     SetTo(StatusCompleted),
				FinishedAt: SetTo(now),
			},
		}, nil

	case progress.HasNOKItems:
		if reason == "" {
			return Transition{}, newError(ErrReasonRequired, "complete", "%d NOK items need a force-close justification", progress.NOK).
				Context("nok_items", progress.NOK).
				Build()
		}
		return forceClose(current, reason, now), nil

	default:
		if !force {
			return Transition{}, newError(ErrConfirmationRequired, "complete", "%d items are unanswered; confirm to force-close", progress.Pending).
				Context("pending_items", progress.Pending).
				Build()
		}
		return forceClose(current, reason, now), nil
	}
}

func forceClose(current Status, reason string, now time.Time) Transition {
	return Transition{
		From:   current,
		To:     StatusForcedClosed,
		Reason: reason,
		Update: InspectionUpdate{
			Status:           SetTo(StatusForcedClosed),
			FinishedAt:       SetTo(now),
			ForceCloseReason: SetTo(reason),
		},
	}
}

// PlanMarkIncomplete closes an inspection with unanswered items as incomplete.
func PlanMarkIncomplete(current Status, progress Progress, reason string, now time.Time) (Transition, error) {
	reason = strings.TrimSpace(reason)

	if current.IsTerminal() {
		return Transition{}, newError(ErrLocked, "mark_incomplete", "inspection is already %s", current).
			Context("status", string(current)).
			Build()
	}
	if reason == "" {
		return Transition{}, newError(ErrReasonRequired, "mark_incomplete", "closing as incomplete needs a justification").Build()
	}
	if !progress.HasIncompleteItems {
		return Transition{}, newError(ErrInvalidTransition, "mark_incomplete", "every item is answered; complete the inspection instead").Build()
	}

	return Transition{
		From:   current,
		To:     StatusIncomplete,
		Reason: reason,
		Update: InspectionUpdate{
			Status:           SetTo(StatusIncomplete),
			FinishedAt:       SetTo(now),
			ForceCloseReason: SetTo(reason),
		},
	}, nil
}

// PlanReopen returns a terminal inspection to in_progress, clearing its close data.
func PlanReopen(current Status) (Transition, error) {
	if !current.IsTerminal() {
		return Transition{}, newError(ErrInvalidTransition, "reopen", "cannot reopen an inspection that is %s", current).
			Context("status", string(current)).
			Build()
	}

	return Transition{
		From: current,
		To:   StatusInProgress,
		Update: InspectionUpdate{
			Status:           SetTo(StatusInProgress),
			FinishedAt:       Clear[time.Time](),
			ForceCloseReason: Clear[string](),
		},
	}, nil
}

// validateMarkNA checks a mark-as-NA request before any write happens.
func validateMarkNA(current Status, reason string) (string, error) {
	if current.IsTerminal() {
		return "", newError(ErrLocked, "mark_incomplete_na", "inspection is already %s", current).
			Context("status", string(current)).
			Build()
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", newError(ErrReasonRequired, "mark_incomplete_na", "marking items as NA needs a justification").Build()
	}
	return reason, nil
}
