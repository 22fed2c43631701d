package inspection

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safetrack/safetrack/internal/errors"
	"github.com/safetrack/safetrack/internal/logger"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store  *memStore
	engine *Engine
	events *recorder
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	var seq atomic.Int64
	f := &fixture{store: newMemStore(), events: &recorder{}}
	base := []Option{
		WithObserver(f.events),
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(func() string { return fmt.Sprintf("resp-%d", seq.Add(1)) }),
		WithLogger(logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)),
	}
	engine, err := NewEngine(f.store, append(base, opts...)...)
	require.NoError(t, err)
	f.engine = engine
	return f
}

func (f *fixture) open(t *testing.T, id string, granted ...Role) *Session {
	t.Helper()
	s, err := f.engine.Open(t.Context(), id, Actor{UserID: "u-1", Roles: roles(granted...)})
	require.NoError(t, err)
	return s
}

func record(t *testing.T, s *Session, itemID string, state ResponseState) *ResponseResult {
	t.Helper()
	res, err := s.RecordResponse(t.Context(), ResponseInput{ItemID: itemID, State: state})
	require.NoError(t, err)
	return res
}

func TestNewEngineRequiresStore(t *testing.T) {
	t.Parallel()

	_, err := NewEngine(nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestOpen(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.seed("insp-1", StatusInProgress, 3)
	ctx := t.Context()

	_, err := f.engine.Open(ctx, "", Actor{UserID: "u-1"})
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = f.engine.Open(ctx, "missing", Actor{UserID: "u-1"})
	assert.Equal(t, KindNotFound, KindOf(err))

	s, err := f.engine.Open(ctx, "insp-1", Actor{UserID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, "insp-1", s.ID())
	assert.Equal(t, "u-1", s.Actor().UserID)

	views := s.Items()
	require.Len(t, views, 3)
	for i, v := range views {
		assert.Equal(t, i, v.Item.OrderIndex)
		assert.Equal(t, StatePending, v.State)
		assert.False(t, v.ReadOnly)
	}
}

// Three items, two answered OK: 66.7% done, and a plain completion request
// is routed to the force-close path.
func TestThreeItemChecklistForceClose(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	items := f.store.seed("insp-1", StatusInProgress, 3)
	s := f.open(t, "insp-1", RoleSupervisor)
	ctx := t.Context()

	record(t, s, items[2].ID, StateOK)
	res := record(t, s, items[1].ID, StateOK)
	assert.InDelta(t, 66.7, res.Progress.PercentComplete, 0.05)
	assert.True(t, res.Progress.HasIncompleteItems)
	assert.InDelta(t, 66.7, f.store.stored("insp-1").PercentComplete, 0.05)

	_, err := s.Complete(ctx, false, "")
	assert.Equal(t, KindConfirmationRequired, KindOf(err))

	_, err = s.Complete(ctx, true, "   ")
	assert.Equal(t, KindReasonRequired, KindOf(err))
	assert.Empty(t, f.store.updates)

	insp, err := s.Complete(ctx, true, "operator called away")
	require.NoError(t, err)
	assert.Equal(t, StatusForcedClosed, insp.Status)
	require.NotNil(t, insp.ForceCloseReason)
	assert.Equal(t, "operator called away", *insp.ForceCloseReason)
	assert.Equal(t, testNow, *insp.FinishedAt)

	stored := f.store.stored("insp-1")
	assert.Equal(t, StatusForcedClosed, stored.Status)
	assert.Equal(t, "operator called away", *stored.ForceCloseReason)
	require.Len(t, f.store.updates, 1)

	for _, v := range s.Items() {
		assert.True(t, v.ReadOnly)
	}

	transitions := f.events.ofType(EventInspectionTransitioned)
	require.Len(t, transitions, 1)
	assert.Equal(t, StatusInProgress, transitions[0].PreviousStatus)
	assert.Equal(t, StatusForcedClosed, transitions[0].Status)
	assert.Equal(t, "operator called away", transitions[0].Reason)
}

func TestCleanCompletion(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	items := f.store.seed("insp-1", StatusInProgress, 2)
	s := f.open(t, "insp-1", RoleAdmin)

	record(t, s, items[0].ID, StateOK)
	record(t, s, items[1].ID, StateNA)

	insp, err := s.Complete(t.Context(), false, "")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, insp.Status)
	assert.Nil(t, insp.ForceCloseReason)
	assert.Equal(t, float64(100), insp.PercentComplete)
}

func TestCompleteWithNOKNeedsReason(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	items := f.store.seed("insp-1", StatusInProgress, 2)
	s := f.open(t, "insp-1", RoleAdmin)
	ctx := t.Context()

	record(t, s, items[0].ID, StateOK)
	_, err := s.RecordResponse(ctx, ResponseInput{ItemID: items[1].ID, State: StateNOK, Comment: strPtr("guard missing")})
	require.NoError(t, err)

	_, err = s.Complete(ctx, false, "")
	assert.Equal(t, KindReasonRequired, KindOf(err))

	insp, err := s.Complete(ctx, false, "guard ordered")
	require.NoError(t, err)
	assert.Equal(t, StatusForcedClosed, insp.Status)
}

func TestCompleteEmptyChecklist(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.seed("insp-1", StatusPending, 0)
	s := f.open(t, "insp-1", RoleAdmin)

	p := s.Progress()
	assert.False(t, p.HasIncompleteItems)
	assert.InDelta(t, 100, p.PercentComplete, 0)
	insp, err := s.Complete(t.Context(), false, "")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, insp.Status)
}

func TestPendingResponseLeavesItemUnanswered(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	items := f.store.seed("insp-1", StatusInProgress, 2)
	s := f.open(t, "insp-1", RoleSupervisor)
	ctx := t.Context()

	record(t, s, items[0].ID, StateOK)
	res := record(t, s, items[1].ID, StatePending)
	assert.Equal(t, StatePending, res.Response.State)
	assert.True(t, res.Progress.HasIncompleteItems)
	assert.Equal(t, 1, res.Progress.Responded)
	assert.Equal(t, 1, res.Progress.Pending)
	assert.InDelta(t, 50, res.Progress.PercentComplete, 0.001)

	_, err := s.Complete(ctx, false, "")
	assert.Equal(t, KindConfirmationRequired, KindOf(err))
	assert.Equal(t, StatusInProgress, s.Inspection().Status)

	written, err := s.MarkIncompleteAsNA(ctx, "not installed")
	require.NoError(t, err)
	assert.Equal(t, 1, written)
	assert.False(t, s.Progress().HasIncompleteItems)

	r, ok := f.store.response("insp-1", items[1].ID)
	require.True(t, ok)
	assert.Equal(t, StateNA, r.State)

	insp, err := s.Complete(ctx, false, "")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, insp.Status)
}

func TestRecordResponseReplacesPrevious(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	items := f.store.seed("insp-1", StatusInProgress, 2)
	s := f.open(t, "insp-1")
	ctx := t.Context()
	itemID := items[0].ID

	first, err := s.RecordResponse(ctx, ResponseInput{ItemID: itemID, State: StateOK, Photos: []string{"a.jpg"}})
	require.NoError(t, err)
	createdAt := first.Response.CreatedAt

	f.store.now = func() time.Time { return createdAt.Add(time.Hour) }
	second, err := s.RecordResponse(ctx, ResponseInput{ItemID: itemID, State: StateNOK, Comment: strPtr("frayed cable")})
	require.NoError(t, err)

	assert.Equal(t, 1, f.store.responseCount("insp-1"))
	assert.Equal(t, first.Response.ID, second.Response.ID)
	assert.Equal(t, createdAt, second.Response.CreatedAt)
	assert.True(t, second.Response.UpdatedAt.After(createdAt))

	stored, ok := f.store.response("insp-1", itemID)
	require.True(t, ok)
	assert.Equal(t, StateNOK, stored.State)
	assert.Equal(t, "frayed cable", stored.CommentText())
	assert.Empty(t, stored.Photos)

	assert.Equal(t, 1, second.Progress.Responded)
	assert.Equal(t, 1, second.Progress.NOK)
	assert.Zero(t, second.Progress.OK)
}

func TestRecordResponseBlankCommentStoredAsNull(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	items := f.store.seed("insp-1", StatusInProgress, 1)
	s := f.open(t, "insp-1")

	res, err := s.RecordResponse(t.Context(), ResponseInput{ItemID: items[0].ID, State: StateNOK, Comment: strPtr("  ")})
	require.NoError(t, err)
	assert.Nil(t, res.Response.Comment)
	assert.Equal(t, 1, res.Progress.UnresolvedNOK)
	assert.True(t, s.Items()[0].NeedsAnnotation)
}

func TestRecordResponseValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	items := f.store.seed("insp-1", StatusInProgress, 1)
	f.store.seed("done", StatusCompleted, 1)
	ctx := t.Context()

	s := f.open(t, "insp-1")
	_, err := s.RecordResponse(ctx, ResponseInput{ItemID: items[0].ID, State: "MAYBE"})
	assert.Equal(t, KindInvalidState, KindOf(err))

	_, err = s.RecordResponse(ctx, ResponseInput{ItemID: "other-item", State: StateOK})
	assert.Equal(t, KindNotFound, KindOf(err))

	// A locked inspection reports Locked before item or state problems.
	done := f.open(t, "done")
	_, err = done.RecordResponse(ctx, ResponseInput{ItemID: "nope", State: "MAYBE"})
	assert.Equal(t, KindLocked, KindOf(err))

	assert.Zero(t, f.store.upserts)
	assert.Empty(t, f.events.ofType(EventResponseRecorded))
}

func TestRecordResponseSeesConcurrentClose(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	items := f.store.seed("insp-1", StatusInProgress, 2)
	operator := f.open(t, "insp-1", RoleOperario)
	supervisor := f.open(t, "insp-1", RoleSupervisor)
	ctx := t.Context()

	_, err := supervisor.Complete(ctx, true, "evacuation drill")
	require.NoError(t, err)

	// operator still holds the in_progress snapshot
	assert.Equal(t, StatusInProgress, operator.Inspection().Status)
	_, err = operator.RecordResponse(ctx, ResponseInput{ItemID: items[0].ID, State: StateOK})
	assert.Equal(t, KindLocked, KindOf(err))
	assert.Equal(t, StatusForcedClosed, operator.Inspection().Status)
}

func TestRecordResponseAttachments(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	items := f.store.seed("insp-1", StatusInProgress, 1)
	s := f.open(t, "insp-1")

	res, err := s.RecordResponse(t.Context(), ResponseInput{
		ItemID: items[0].ID,
		State:  StateNOK,
		Photos: []string{"s3://b/existing.jpg"},
		Attachments: []Attachment{
			{Name: "new.png", ContentType: "image/png", Size: 1024, Ref: "s3://b/new.png"},
			{Name: "video.mp4", ContentType: "video/mp4", Size: 1024, Ref: "s3://b/video.mp4"},
			{Name: "huge.jpg", ContentType: "image/jpeg", Size: DefaultMaxAttachmentBytes * 2, Ref: "s3://b/huge.jpg"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"s3://b/existing.jpg", "s3://b/new.png"}, res.Response.Photos)
	require.Len(t, res.Rejected, 2)
	assert.Equal(t, "video.mp4", res.Rejected[0].Name)
	assert.Equal(t, "huge.jpg", res.Rejected[1].Name)
}

func TestAttachmentPolicyHotSwap(t *testing.T) {
	t.Parallel()

	f := newFixture(t, WithAttachmentPolicy(AttachmentPolicy{MaxBytes: 10, AllowedTypes: []string{"image/png"}}))
	items := f.store.seed("insp-1", StatusInProgress, 1)
	s := f.open(t, "insp-1")
	ctx := t.Context()
	file := Attachment{Name: "a.png", ContentType: "image/png", Size: 20, Ref: "a"}

	res, err := s.RecordResponse(ctx, ResponseInput{ItemID: items[0].ID, State: StateOK, Attachments: []Attachment{file}})
	require.NoError(t, err)
	assert.Len(t, res.Rejected, 1)

	f.engine.SetAttachmentPolicy(AttachmentPolicy{MaxBytes: 100, AllowedTypes: []string{"image/png"}})
	assert.Equal(t, int64(100), f.engine.AttachmentPolicy().MaxBytes)

	res, err = s.RecordResponse(ctx, ResponseInput{ItemID: items[0].ID, State: StateOK, Attachments: []Attachment{file}})
	require.NoError(t, err)
	assert.Empty(t, res.Rejected)
	assert.Equal(t, []string{"a"}, res.Response.Photos)
}

func TestRecordResponseProgressCacheFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	items := f.store.seed("insp-1", StatusInProgress, 2)
	f.store.failPercent = errors.NewStd("disk full")
	s := f.open(t, "insp-1")

	res, err := s.RecordResponse(t.Context(), ResponseInput{ItemID: items[0].ID, State: StateOK})
	assert.Equal(t, KindStoreFailure, KindOf(err))
	require.NotNil(t, res)
	assert.Equal(t, StateOK, res.Response.State)
	assert.Equal(t, 1, f.store.responseCount("insp-1"))
}

func TestRecordResponseStoreFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	items := f.store.seed("insp-1", StatusInProgress, 1)
	f.store.failUpsertAfter = 0
	s := f.open(t, "insp-1")

	res, err := s.RecordResponse(t.Context(), ResponseInput{ItemID: items[0].ID, State: StateOK})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrStoreFailure)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, StatePending, s.Items()[0].State)
}

func TestResponseRecordedEvent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	items := f.store.seed("insp-1", StatusInProgress, 2)
	s := f.open(t, "insp-1")

	_, err := s.RecordResponse(t.Context(), ResponseInput{ItemID: items[0].ID, State: StateNOK, Comment: strPtr("oil leak")})
	require.NoError(t, err)

	evs := f.events.ofType(EventResponseRecorded)
	require.Len(t, evs, 1)
	ev := evs[0]
	assert.Equal(t, "insp-1", ev.InspectionID)
	assert.Equal(t, "u-1", ev.ActorID)
	assert.Equal(t, items[0].ID, ev.ItemID)
	assert.Equal(t, StateNOK, ev.State)
	assert.Equal(t, "oil leak", ev.Comment)
	assert.Equal(t, StatusInProgress, ev.Status)
	assert.Equal(t, testNow, ev.At)
	assert.InDelta(t, 50, ev.Progress.PercentComplete, 0.001)
}

func TestLifecycleRequiresElevatedRole(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	items := f.store.seed("insp-1", StatusInProgress, 2)
	f.store.seed("closed", StatusForcedClosed, 1)
	ctx := t.Context()

	operator := f.open(t, "insp-1", RoleOperario, RoleAuditor)
	record(t, operator, items[0].ID, StateOK)

	_, err := operator.Complete(ctx, true, "leaving")
	assert.Equal(t, KindForbidden, KindOf(err))
	_, err = operator.MarkIncompleteAsNA(ctx, "n/a")
	assert.Equal(t, KindForbidden, KindOf(err))
	_, err = operator.MarkIncomplete(ctx, "n/a")
	assert.Equal(t, KindForbidden, KindOf(err))

	// Forbidden wins over Locked.
	closed := f.open(t, "closed", RoleOperario)
	_, err = closed.Reopen(ctx)
	assert.Equal(t, KindForbidden, KindOf(err))

	noRoles, err := f.engine.Open(ctx, "insp-1", Actor{UserID: "ghost"})
	require.NoError(t, err)
	_, err = noRoles.Complete(ctx, false, "")
	assert.Equal(t, KindForbidden, KindOf(err))

	assert.Empty(t, f.store.updates)
	assert.Equal(t, 1, f.store.responseCount("insp-1"))
}

func TestRoleCheckErrorIsStoreFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.seed("insp-1", StatusInProgress, 1)
	broken := RoleCheckerFunc(func(context.Context, ...Role) (bool, error) {
		return false, errors.NewStd("role table unavailable")
	})
	s, err := f.engine.Open(t.Context(), "insp-1", Actor{UserID: "u-1", Roles: broken})
	require.NoError(t, err)

	_, err = s.Complete(t.Context(), false, "")
	assert.Equal(t, KindStoreFailure, KindOf(err))
}

func TestCustomElevatedRoles(t *testing.T) {
	t.Parallel()

	f := newFixture(t, WithElevatedRoles(RoleAuditor))
	f.store.seed("insp-1", StatusInProgress, 0)
	assert.Equal(t, []Role{RoleAuditor}, f.engine.ElevatedRoles())

	_, err := f.open(t, "insp-1", RoleAdmin).Complete(t.Context(), false, "")
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = f.open(t, "insp-1", RoleAuditor).Complete(t.Context(), false, "")
	assert.NoError(t, err)
}

func TestMarkIncompleteAsNA(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	items := f.store.seed("insp-1", StatusInProgress, 5)
	s := f.open(t, "insp-1", RoleSupervisor)
	ctx := t.Context()

	record(t, s, items[0].ID, StateOK)
	record(t, s, items[1].ID, StateOK)

	_, err := s.MarkIncompleteAsNA(ctx, "  ")
	assert.Equal(t, KindReasonRequired, KindOf(err))
	assert.Equal(t, 2, f.store.responseCount("insp-1"))

	written, err := s.MarkIncompleteAsNA(ctx, " not installed on this line ")
	require.NoError(t, err)
	assert.Equal(t, 3, written)
	assert.Equal(t, 5, f.store.responseCount("insp-1"))

	for _, item := range items[2:] {
		r, ok := f.store.response("insp-1", item.ID)
		require.True(t, ok)
		assert.Equal(t, StateNA, r.State)
		assert.Equal(t, "not installed on this line", r.CommentText())
		assert.Equal(t, "u-1", r.UserID)
	}

	p := s.Progress()
	assert.False(t, p.HasIncompleteItems)
	assert.Equal(t, float64(100), p.PercentComplete)
	assert.Equal(t, StatusInProgress, s.Inspection().Status)

	evs := f.events.ofType(EventItemsMarkedNA)
	require.Len(t, evs, 1)
	assert.Equal(t, 3, evs[0].Count)

	// Nothing left to mark.
	written, err = s.MarkIncompleteAsNA(ctx, "again")
	require.NoError(t, err)
	assert.Zero(t, written)
	assert.Len(t, f.events.ofType(EventItemsMarkedNA), 1)

	insp, err := s.Complete(ctx, false, "")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, insp.Status)
}

func TestMarkIncompleteAsNAPartialFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	items := f.store.seed("insp-1", StatusInProgress, 4)
	s := f.open(t, "insp-1", RoleAdmin)
	ctx := t.Context()

	f.store.failUpsertAfter = 1
	written, err := s.MarkIncompleteAsNA(ctx, "sensor offline")
	assert.Equal(t, 1, written)
	assert.Equal(t, KindStoreFailure, KindOf(err))

	var ee *errors.EnhancedError
	require.ErrorAs(t, err, &ee)
	// checklist order: item-1 was written, item-2 failed
	assert.Equal(t, "insp-1-item-2", ee.GetContext()["item_id"])
	assert.Len(t, items, 4)
	assert.Equal(t, 1, f.store.responseCount("insp-1"))
	assert.Equal(t, 1, s.Progress().Responded)

	f.store.failUpsertAfter = -1
	written, err = s.MarkIncompleteAsNA(ctx, "sensor offline")
	require.NoError(t, err)
	assert.Equal(t, 3, written)
	assert.Equal(t, 4, f.store.responseCount("insp-1"))
}

func TestResolveAndCompleteStopsOnWriteFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.seed("insp-1", StatusInProgress, 3)
	s := f.open(t, "insp-1", RoleAdmin)

	f.store.failUpsertAfter = 2
	insp, written, err := s.ResolveAndComplete(t.Context(), "sensor offline")
	assert.Nil(t, insp)
	assert.Equal(t, 2, written)
	assert.Equal(t, KindStoreFailure, KindOf(err))
	assert.Equal(t, StatusInProgress, s.Inspection().Status)
	assert.Empty(t, f.events.ofType(EventInspectionTransitioned))
}

func TestResolveAndCompleteSurvivesProgressCacheFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.seed("insp-1", StatusInProgress, 3)
	s := f.open(t, "insp-1", RoleAdmin)

	f.store.failPercent = errors.NewStd("disk full")
	insp, written, err := s.ResolveAndComplete(t.Context(), "sensor offline")
	require.NotNil(t, insp)
	assert.Equal(t, StatusCompleted, insp.Status)
	assert.Equal(t, 3, written)
	assert.Equal(t, KindStoreFailure, KindOf(err))
	assert.Equal(t, 3, f.store.responseCount("insp-1"))
	assert.Len(t, f.events.ofType(EventInspectionTransitioned), 1)
}

func TestMarkIncompleteAsNAFirstWriteFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.seed("insp-1", StatusInProgress, 2)
	f.store.failUpsertAfter = 0
	s := f.open(t, "insp-1", RoleAdmin)

	written, err := s.MarkIncompleteAsNA(t.Context(), "offline")
	assert.Zero(t, written)
	assert.ErrorIs(t, err, ErrStoreFailure)
	assert.Empty(t, f.events.ofType(EventItemsMarkedNA))
}

func TestMarkIncompleteAsNALocked(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.seed("insp-1", StatusIncomplete, 2)
	s := f.open(t, "insp-1", RoleAdmin)

	_, err := s.MarkIncompleteAsNA(t.Context(), "late")
	assert.Equal(t, KindLocked, KindOf(err))
	assert.Zero(t, f.store.upserts)
}

func TestResolveAndComplete(t *testing.T) {
	t.Parallel()

	t.Run("clean after NA", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		items := f.store.seed("insp-1", StatusInProgress, 3)
		s := f.open(t, "insp-1", RoleAdmin)
		record(t, s, items[0].ID, StateOK)

		insp, written, err := s.ResolveAndComplete(t.Context(), "not applicable")
		require.NoError(t, err)
		assert.Equal(t, 2, written)
		assert.Equal(t, StatusCompleted, insp.Status)
	})

	t.Run("NOK still force closes", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		items := f.store.seed("insp-1", StatusInProgress, 3)
		s := f.open(t, "insp-1", RoleAdmin)
		record(t, s, items[0].ID, StateNOK)

		insp, written, err := s.ResolveAndComplete(t.Context(), "follow-up ticket raised")
		require.NoError(t, err)
		assert.Equal(t, 2, written)
		assert.Equal(t, StatusForcedClosed, insp.Status)
		assert.Equal(t, "follow-up ticket raised", *insp.ForceCloseReason)
	})
}

func TestMarkIncomplete(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	items := f.store.seed("insp-1", StatusInProgress, 2)
	s := f.open(t, "insp-1", RoleSupervisor)
	ctx := t.Context()

	record(t, s, items[0].ID, StateOK)
	insp, err := s.MarkIncomplete(ctx, "power outage")
	require.NoError(t, err)
	assert.Equal(t, StatusIncomplete, insp.Status)
	assert.Equal(t, "power outage", *insp.ForceCloseReason)

	_, err = s.RecordResponse(ctx, ResponseInput{ItemID: items[1].ID, State: StateOK})
	assert.Equal(t, KindLocked, KindOf(err))
}

func TestReopen(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	items := f.store.seed("insp-1", StatusInProgress, 2)
	s := f.open(t, "insp-1", RoleAdmin)
	ctx := t.Context()

	_, err := s.Reopen(ctx)
	assert.Equal(t, KindInvalidTransition, KindOf(err))

	record(t, s, items[0].ID, StateNOK)
	_, err = s.Complete(ctx, true, "parts on order")
	require.NoError(t, err)

	insp, err := s.Reopen(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, insp.Status)
	assert.Nil(t, insp.FinishedAt)
	assert.Nil(t, insp.ForceCloseReason)

	stored := f.store.stored("insp-1")
	assert.Nil(t, stored.FinishedAt)
	assert.Nil(t, stored.ForceCloseReason)

	// responses survive and the checklist is editable again
	res := record(t, s, items[0].ID, StateOK)
	assert.Equal(t, 1, res.Progress.Responded)
}

func TestTransitionUpdateFailureLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	items := f.store.seed("insp-1", StatusInProgress, 1)
	s := f.open(t, "insp-1", RoleAdmin)
	record(t, s, items[0].ID, StateOK)

	f.store.failUpdate = errors.NewStd("deadlock")
	_, err := s.Complete(t.Context(), false, "")
	assert.Equal(t, KindStoreFailure, KindOf(err))
	assert.Equal(t, StatusInProgress, s.Inspection().Status)
	assert.Equal(t, StatusInProgress, f.store.stored("insp-1").Status)
	assert.Empty(t, f.events.ofType(EventInspectionTransitioned))
}

func TestConcurrentResponses(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	items := f.store.seed("insp-1", StatusInProgress, 20)
	ctx := t.Context()

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Go(func() {
			s, err := f.engine.Open(ctx, "insp-1", Actor{UserID: fmt.Sprintf("u-%d", i)})
			if !assert.NoError(t, err) {
				return
			}
			_, err = s.RecordResponse(ctx, ResponseInput{ItemID: item.ID, State: StateOK})
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	assert.Equal(t, 20, f.store.responseCount("insp-1"))
	assert.Len(t, f.events.ofType(EventResponseRecorded), 20)
}
