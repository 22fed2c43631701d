package inspection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func items(n int) []InspectionItem {
	out := make([]InspectionItem, n)
	for i := range out {
		out[i] = InspectionItem{ID: string(rune('a' + i)), OrderIndex: i}
	}
	return out
}

func response(itemID string, state ResponseState, comment string) ItemResponse {
	r := ItemResponse{InspectionItemID: itemID, State: state}
	if comment != "" {
		r.Comment = &comment
	}
	return r
}

func TestAggregate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		items     []InspectionItem
		responses []ItemResponse
		want      Progress
	}{
		{
			name:  "no items is complete",
			items: nil,
			want:  Progress{PercentComplete: 100},
		},
		{
			name:  "nothing answered",
			items: items(4),
			want:  Progress{Total: 4, Pending: 4, HasIncompleteItems: true},
		},
		{
			name:  "two OK one unanswered",
			items: items(3),
			responses: []ItemResponse{
				response("a", StateOK, ""),
				response("b", StateOK, ""),
			},
			want: Progress{
				Total: 3, Responded: 2, OK: 2, Pending: 1,
				PercentComplete: 200.0 / 3, HasIncompleteItems: true,
			},
		},
		{
			name:  "every state counted",
			items: items(4),
			responses: []ItemResponse{
				response("a", StateOK, ""),
				response("b", StateNOK, "cracked guard"),
				response("c", StateNA, ""),
				response("d", StatePending, ""),
			},
			want: Progress{
				Total: 4, Responded: 3, OK: 1, NOK: 1, NA: 1, Pending: 1,
				PercentComplete: 75, HasIncompleteItems: true, HasNOKItems: true,
			},
		},
		{
			name:  "NOK without comment is unresolved",
			items: items(2),
			responses: []ItemResponse{
				response("a", StateNOK, ""),
				response("b", StateNOK, "   "),
			},
			want: Progress{
				Total: 2, Responded: 2, NOK: 2, UnresolvedNOK: 2,
				PercentComplete: 100, HasNOKItems: true,
			},
		},
		{
			name:  "responses to unknown items ignored",
			items: items(1),
			responses: []ItemResponse{
				response("zz", StateOK, ""),
			},
			want: Progress{Total: 1, Pending: 1, HasIncompleteItems: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Aggregate(tt.items, tt.responses)
			assert.InDelta(t, tt.want.PercentComplete, got.PercentComplete, 0.001)
			got.PercentComplete = tt.want.PercentComplete
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAggregatePercentBounds(t *testing.T) {
	t.Parallel()

	for n := 1; n <= 12; n++ {
		all := items(n)
		for answered := 0; answered <= n; answered++ {
			var responses []ItemResponse
			for _, item := range all[:answered] {
				responses = append(responses, response(item.ID, StateOK, ""))
			}
			p := Aggregate(all, responses)
			require.GreaterOrEqual(t, p.PercentComplete, 0.0)
			require.LessOrEqual(t, p.PercentComplete, 100.0)
			require.Equal(t, answered < n, p.HasIncompleteItems)
			require.Equal(t, n, p.Responded+p.Pending)
			require.Equal(t, !p.HasIncompleteItems, p.PercentComplete == 100)
		}
	}

	empty := Aggregate(nil, nil)
	assert.False(t, empty.HasIncompleteItems)
	assert.InDelta(t, 100, empty.PercentComplete, 0)
}

func TestChecklistOrdersAndViews(t *testing.T) {
	t.Parallel()

	c := NewChecklist(
		[]InspectionItem{
			{ID: "third", OrderIndex: 3},
			{ID: "first", OrderIndex: 1},
			{ID: "second", OrderIndex: 2},
		},
		[]ItemResponse{
			response("second", StateNOK, ""),
			response("first", StateOK, ""),
		},
	)

	require.Equal(t, 3, c.Len())
	views := c.Views(false)
	require.Len(t, views, 3)
	assert.Equal(t, "first", views[0].Item.ID)
	assert.Equal(t, "second", views[1].Item.ID)
	assert.Equal(t, "third", views[2].Item.ID)

	assert.Equal(t, StateOK, views[0].State)
	assert.False(t, views[0].NeedsAnnotation)
	assert.Equal(t, StateNOK, views[1].State)
	assert.True(t, views[1].NeedsAnnotation)
	assert.Equal(t, StatePending, views[2].State)
	assert.Nil(t, views[2].Response)

	unanswered := c.Unanswered()
	require.Len(t, unanswered, 1)
	assert.Equal(t, "third", unanswered[0].ID)

	c.put(response("third", StatePending, ""))
	require.Len(t, c.Unanswered(), 1, "a stored PENDING row is still unanswered")
	c.put(response("first", StatePending, ""))
	unanswered = c.Unanswered()
	require.Len(t, unanswered, 2)
	assert.Equal(t, "first", unanswered[0].ID)

	for _, v := range c.Views(true) {
		assert.True(t, v.ReadOnly)
	}
}

func TestChecklistResponseIsCopy(t *testing.T) {
	t.Parallel()

	r := response("a", StateNOK, "loose bolt")
	r.Photos = []string{"p1"}
	c := NewChecklist(items(1), []ItemResponse{r})

	got, ok := c.Response("a")
	require.True(t, ok)
	got.Photos[0] = "changed"
	*got.Comment = "changed"

	again, _ := c.Response("a")
	assert.Equal(t, "p1", again.Photos[0])
	assert.Equal(t, "loose bolt", again.CommentText())

	_, ok = c.Response("missing")
	assert.False(t, ok)
}
