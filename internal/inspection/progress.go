package inspection

import (
	"math"
	"strings"
)

// Progress is the derived tally of a checklist.
type Progress struct {
	Total           int
	Responded       int // items answered OK, NOK or NA
	OK              int
	NOK             int
	NA              int
	Pending         int // items without an answer, including stored PENDING rows
	UnresolvedNOK   int // NOK responses still missing a comment
	PercentComplete float64

	HasIncompleteItems bool
	HasNOKItems        bool
}

// Aggregate computes progress for items given the persisted responses.
// Responses for items outside the list are ignored. A stored PENDING row is
// the display default written back, so it leaves the item unanswered.
func Aggregate(items []InspectionItem, responses []ItemResponse) Progress {
	byItem := make(map[string]ItemResponse, len(responses))
	for _, r := range responses {
		byItem[r.InspectionItemID] = r
	}
	return aggregate(items, byItem)
}

func aggregate(items []InspectionItem, byItem map[string]ItemResponse) Progress {
	p := Progress{Total: len(items)}

	for _, item := range items {
		r, ok := byItem[item.ID]
		if !ok || r.State == StatePending {
			p.Pending++
			continue
		}
		p.Responded++
		switch r.State {
		case StateOK:
			p.OK++
		case StateNOK:
			p.NOK++
			if needsAnnotation(r) {
				p.UnresolvedNOK++
			}
		case StateNA:
			p.NA++
		}
	}

	p.PercentComplete = percent(p.Responded, p.Total)
	p.HasIncompleteItems = p.Responded < p.Total
	p.HasNOKItems = p.NOK > 0
	return p
}

// percent is 100 for an empty checklist, which has nothing left to answer.
func percent(responded, total int) float64 {
	if total == 0 {
		return 100
	}
	pct := float64(responded) / float64(total) * 100
	return math.Max(0, math.Min(100, pct))
}

// needsAnnotation reports whether a NOK response still lacks its comment.
func needsAnnotation(r ItemResponse) bool {
	return r.State == StateNOK && strings.TrimSpace(r.CommentText()) == ""
}
