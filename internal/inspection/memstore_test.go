package inspection

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/safetrack/safetrack/internal/errors"
)

// memStore is an in-memory Store keyed like the real tables.
type memStore struct {
	mu          sync.Mutex
	inspections map[string]Inspection
	items       map[string][]InspectionItem
	responses   map[string]map[string]ItemResponse // inspection -> item -> response
	updates     []InspectionUpdate
	upserts     int
	percents    []float64

	failUpsertAfter int // fail the upsert after this many successes, -1 disables
	failUpdate      error
	failPercent     error
	now             func() time.Time
}

func newMemStore() *memStore {
	return &memStore{
		inspections:     make(map[string]Inspection),
		items:           make(map[string][]InspectionItem),
		responses:       make(map[string]map[string]ItemResponse),
		failUpsertAfter: -1,
		now:             func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) },
	}
}

// seed adds an inspection with n items (order_index reversed to exercise sorting).
func (m *memStore) seed(id string, status Status, n int) []InspectionItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.inspections[id] = Inspection{ID: id, AreaID: "area-1", Status: status}
	items := make([]InspectionItem, 0, n)
	for i := n - 1; i >= 0; i-- {
		items = append(items, InspectionItem{
			ID:           fmt.Sprintf("%s-item-%d", id, i+1),
			InspectionID: id,
			Label:        fmt.Sprintf("Check %d", i+1),
			OrderIndex:   i,
			Required:     true,
		})
	}
	m.items[id] = items
	m.responses[id] = make(map[string]ItemResponse)
	return items
}

func (m *memStore) GetInspection(_ context.Context, id string) (*Inspection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	insp, ok := m.inspections[id]
	if !ok {
		return nil, fmt.Errorf("inspection %s: %w", id, ErrNotFound)
	}
	c := insp.Clone()
	return &c, nil
}

func (m *memStore) GetItems(_ context.Context, id string) ([]InspectionItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := slices.Clone(m.items[id])
	slices.SortFunc(items, func(a, b InspectionItem) int { return a.OrderIndex - b.OrderIndex })
	return items, nil
}

func (m *memStore) GetResponses(_ context.Context, id string) ([]ItemResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ItemResponse, 0, len(m.responses[id]))
	for _, r := range m.responses[id] {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (m *memStore) UpsertResponse(_ context.Context, r *ItemResponse) (*ItemResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failUpsertAfter >= 0 && m.upserts >= m.failUpsertAfter {
		return nil, errors.NewStd("connection reset")
	}
	m.upserts++

	byItem := m.responses[r.InspectionID]
	stored := r.Clone()
	if prev, ok := byItem[r.InspectionItemID]; ok {
		stored.ID = prev.ID
		stored.CreatedAt = prev.CreatedAt
	} else {
		stored.CreatedAt = m.now()
	}
	stored.UpdatedAt = m.now()
	byItem[r.InspectionItemID] = stored

	out := stored.Clone()
	return &out, nil
}

func (m *memStore) UpdateInspection(_ context.Context, id string, u InspectionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdate != nil {
		return m.failUpdate
	}
	insp, ok := m.inspections[id]
	if !ok {
		return fmt.Errorf("inspection %s: %w", id, ErrNotFound)
	}
	u.ApplyTo(&insp)
	m.inspections[id] = insp
	m.updates = append(m.updates, u)
	return nil
}

func (m *memStore) SetPercentComplete(_ context.Context, id string, pct float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPercent != nil {
		return m.failPercent
	}
	insp := m.inspections[id]
	insp.PercentComplete = pct
	m.inspections[id] = insp
	m.percents = append(m.percents, pct)
	return nil
}

func (m *memStore) stored(id string) Inspection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inspections[id].Clone()
}

func (m *memStore) responseCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.responses[id])
}

func (m *memStore) response(id, itemID string) (ItemResponse, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.responses[id][itemID]
	return r.Clone(), ok
}

// recorder collects observer events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) ofType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func roles(granted ...Role) RoleChecker {
	return RoleCheckerFunc(func(_ context.Context, wanted ...Role) (bool, error) {
		for _, g := range granted {
			if slices.Contains(wanted, g) {
				return true, nil
			}
		}
		return false, nil
	})
}

func strPtr(s string) *string { return &s }
