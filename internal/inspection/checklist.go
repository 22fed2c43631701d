package inspection

import (
	"cmp"
	"slices"
)

// ItemView is an item as presented to the caller.
type ItemView struct {
	Item     InspectionItem
	Response *ItemResponse // nil when unanswered
	// State is the response state, PENDING when unanswered.
	State ResponseState
	// NeedsAnnotation is set on NOK responses that still lack a comment.
	NeedsAnnotation bool
	// ReadOnly mirrors the inspection being in a terminal status.
	ReadOnly bool
}

// Checklist holds the ordered items of one inspection and its current responses.
type Checklist struct {
	items     []InspectionItem
	index     map[string]int
	responses map[string]ItemResponse
}

// NewChecklist orders items by OrderIndex and indexes responses by item.
func NewChecklist(items []InspectionItem, responses []ItemResponse) *Checklist {
	ordered := slices.Clone(items)
	slices.SortStableFunc(ordered, func(a, b InspectionItem) int {
		return cmp.Compare(a.OrderIndex, b.OrderIndex)
	})

	c := &Checklist{
		items:     ordered,
		index:     make(map[string]int, len(ordered)),
		responses: make(map[string]ItemResponse, len(responses)),
	}
	for i, item := range ordered {
		c.index[item.ID] = i
	}
	for _, r := range responses {
		c.responses[r.InspectionItemID] = r.Clone()
	}
	return c
}

// Item returns the item with id.
func (c *Checklist) Item(id string) (InspectionItem, bool) {
	i, ok := c.index[id]
	if !ok {
		return InspectionItem{}, false
	}
	return c.items[i], true
}

// Response returns the stored response for an item.
func (c *Checklist) Response(itemID string) (ItemResponse, bool) {
	r, ok := c.responses[itemID]
	if !ok {
		return ItemResponse{}, false
	}
	return r.Clone(), true
}

// Unanswered returns items without an OK, NOK or NA response, in checklist order.
func (c *Checklist) Unanswered() []InspectionItem {
	var pending []InspectionItem
	for _, item := range c.items {
		if r, ok := c.responses[item.ID]; !ok || r.State == StatePending {
			pending = append(pending, item)
		}
	}
	return pending
}

// Progress aggregates the current state.
func (c *Checklist) Progress() Progress {
	return aggregate(c.items, c.responses)
}

// Views returns the display state of every item in order.
func (c *Checklist) Views(readOnly bool) []ItemView {
	views := make([]ItemView, 0, len(c.items))
	for _, item := range c.items {
		v := ItemView{Item: item, State: StatePending, ReadOnly: readOnly}
		if r, ok := c.responses[item.ID]; ok {
			rc := r.Clone()
			v.Response = &rc
			v.State = r.State
			v.NeedsAnnotation = needsAnnotation(r)
		}
		views = append(views, v)
	}
	return views
}

// Len returns the number of items.
func (c *Checklist) Len() int { return len(c.items) }

func (c *Checklist) put(r ItemResponse) {
	c.responses[r.InspectionItemID] = r.Clone()
}
