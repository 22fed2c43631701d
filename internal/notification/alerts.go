package notification

import (
	"fmt"
	"strings"

	"github.com/safetrack/safetrack/internal/inspection"
)

// Triggers selects which events raise alerts.
type Triggers struct {
	OnNOK        bool
	OnForceClose bool // also covers inspections closed as incomplete
}

// BuildAlert converts ev into an alert, or returns nil when ev does not
// warrant one. NOK responses alert once their comment is present so the
// alert carries the finding.
func BuildAlert(ev inspection.Event, triggers Triggers, instance string) *Alert {
	var a *Alert
	switch ev.Type {
	case inspection.EventResponseRecorded:
		if !triggers.OnNOK || ev.State != inspection.StateNOK || strings.TrimSpace(ev.Comment) == "" {
			return nil
		}
		a = &Alert{
			Type:     TypeNOKResponse,
			Priority: PriorityHigh,
			Title:    "Corrective action required",
			Message: fmt.Sprintf("Inspection %s: item %s was marked NOK by %s: %s",
				ev.InspectionID, ev.ItemID, actorName(ev.ActorID), ev.Comment),
		}

	case inspection.EventInspectionTransitioned:
		if !triggers.OnForceClose {
			return nil
		}
		switch ev.Status {
		case inspection.StatusForcedClosed:
			a = &Alert{
				Type:     TypeForcedClose,
				Priority: PriorityHigh,
				Title:    "Inspection force-closed",
				Message: fmt.Sprintf("Inspection %s was force-closed by %s at %.1f%% complete with %d NOK items. Reason: %s",
					ev.InspectionID, actorName(ev.ActorID), ev.Progress.PercentComplete, ev.Progress.NOK, ev.Reason),
			}
		case inspection.StatusIncomplete:
			a = &Alert{
				Type:     TypeIncomplete,
				Priority: PriorityMedium,
				Title:    "Inspection closed as incomplete",
				Message: fmt.Sprintf("Inspection %s was closed as incomplete by %s with %d of %d items unanswered. Reason: %s",
					ev.InspectionID, actorName(ev.ActorID), ev.Progress.Pending, ev.Progress.Total, ev.Reason),
			}
		default:
			return nil
		}

	default:
		return nil
	}

	if instance != "" {
		a.Title = fmt.Sprintf("[%s] %s", instance, a.Title)
	}
	a.InspectionID = ev.InspectionID
	a.ActorID = ev.ActorID
	a.Timestamp = ev.At
	return a
}

func actorName(id string) string {
	if id == "" {
		return "unknown user"
	}
	return id
}
