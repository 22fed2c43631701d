package inspection

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/safetrack/safetrack/internal/errors"
	"github.com/safetrack/safetrack/internal/logger"
)

// ResponseInput is one response submission.
type ResponseInput struct {
	ItemID  string
	State   ResponseState
	Comment *string
	// Photos are references already stored on the response; kept verbatim.
	Photos []string
	// Attachments are new uploads; their refs are appended after validation.
	Attachments []Attachment
}

// ResponseResult is the outcome of RecordResponse.
type ResponseResult struct {
	Response ItemResponse
	Rejected []AttachmentRejection
	Progress Progress
}

// Session binds the engine to one inspection and one acting user.
// Every mutation re-reads the inspection and its responses from the store
// before deciding, so guards never run on stale data.
type Session struct {
	engine       *Engine
	inspectionID string
	actor        Actor
	log          logger.Logger

	mu         sync.RWMutex
	inspection Inspection
	checklist  *Checklist
}

// ID returns the inspection ID.
func (s *Session) ID() string { return s.inspectionID }

// Actor returns the acting user.
func (s *Session) Actor() Actor { return s.actor }

// Inspection returns a copy of the last known inspection.
func (s *Session) Inspection() Inspection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inspection.Clone()
}

// Items returns the checklist with per-item display state.
func (s *Session) Items() []ItemView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checklist.Views(s.inspection.Status.IsTerminal())
}

// Progress returns the derived tallies of the last known state.
func (s *Session) Progress() Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checklist.Progress()
}

// Refresh reloads the inspection, its items and its responses.
func (s *Session) Refresh(ctx context.Context) error {
	store := s.engine.store

	insp, err := store.GetInspection(ctx, s.inspectionID)
	if err != nil {
		return storeFailure(err, "get_inspection", s.inspectionID)
	}
	items, err := store.GetItems(ctx, s.inspectionID)
	if err != nil {
		return storeFailure(err, "get_items", s.inspectionID)
	}
	responses, err := store.GetResponses(ctx, s.inspectionID)
	if err != nil {
		return storeFailure(err, "get_responses", s.inspectionID)
	}

	s.mu.Lock()
	s.inspection = insp.Clone()
	s.checklist = NewChecklist(items, responses)
	s.mu.Unlock()
	return nil
}

// reloadState re-reads the mutable parts: the inspection row and responses.
func (s *Session) reloadState(ctx context.Context) error {
	store := s.engine.store

	insp, err := store.GetInspection(ctx, s.inspectionID)
	if err != nil {
		return storeFailure(err, "get_inspection", s.inspectionID)
	}
	responses, err := store.GetResponses(ctx, s.inspectionID)
	if err != nil {
		return storeFailure(err, "get_responses", s.inspectionID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inspection = insp.Clone()
	s.checklist = NewChecklist(s.checklist.items, responses)
	return nil
}

// RecordResponse validates and upserts the response to one item. The stored
// response replaces any previous one for the item. Rejected attachments are
// reported per file and do not prevent the write. When the response was
// stored but caching progress failed, the result is returned together with a
// store failure.
func (s *Session) RecordResponse(ctx context.Context, in ResponseInput) (*ResponseResult, error) {
	if err := s.reloadState(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	status := s.inspection.Status
	item, itemFound := s.checklist.Item(in.ItemID)
	existing, hasExisting := s.checklist.Response(in.ItemID)
	s.mu.RUnlock()

	if status.IsTerminal() {
		return nil, newError(ErrLocked, "record_response", "inspection %s is %s", s.inspectionID, status).
			Context("inspection_id", s.inspectionID).
			Context("item_id", in.ItemID).
			Context("status", string(status)).
			Build()
	}
	if !itemFound {
		return nil, newError(ErrNotFound, "record_response", "item %s is not part of inspection %s", in.ItemID, s.inspectionID).
			Context("inspection_id", s.inspectionID).
			Context("item_id", in.ItemID).
			Build()
	}
	if !in.State.Valid() {
		return nil, newError(ErrInvalidState, "record_response", "state %q is not one of OK, NOK, NA, PENDING", in.State).
			Context("inspection_id", s.inspectionID).
			Context("item_id", in.ItemID).
			Build()
	}

	accepted, rejected := s.engine.AttachmentPolicy().Validate(in.Attachments)
	if len(rejected) > 0 {
		s.log.Warn("attachments rejected",
			logger.String("item_id", item.ID),
			logger.Int("rejected", len(rejected)),
			logger.Error(attachmentErrors(rejected)))
	}

	photos := slices.Concat(in.Photos, accepted)
	if photos == nil {
		photos = []string{}
	}

	resp := &ItemResponse{
		ID:               s.engine.newID(),
		InspectionItemID: item.ID,
		InspectionID:     s.inspectionID,
		UserID:           s.actor.UserID,
		State:            in.State,
		Comment:          normalizeComment(in.Comment),
		Photos:           photos,
	}
	if hasExisting {
		resp.ID = existing.ID
		resp.CreatedAt = existing.CreatedAt
	}

	stored, err := s.engine.store.UpsertResponse(ctx, resp)
	if err != nil {
		return nil, storeFailure(err, "upsert_response", s.inspectionID)
	}

	progress, status := s.commitResponse(*stored)
	result := &ResponseResult{Response: stored.Clone(), Rejected: rejected, Progress: progress}

	s.log.Debug("response recorded",
		logger.String("item_id", item.ID),
		logger.String("state", string(stored.State)),
		logger.Float64("percent_complete", progress.PercentComplete))

	s.notify(Event{
		Type:     EventResponseRecorded,
		ItemID:   item.ID,
		State:    stored.State,
		Comment:  stored.CommentText(),
		Status:   status,
		Progress: progress,
	})

	if err := s.recordProgress(ctx, progress); err != nil {
		return result, err
	}
	return result, nil
}

func (s *Session) commitResponse(r ItemResponse) (Progress, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checklist.put(r)
	progress := s.checklist.Progress()
	s.inspection.PercentComplete = progress.PercentComplete
	return progress, s.inspection.Status
}

// Complete requests the completion transition. See PlanCompletion for the rules.
func (s *Session) Complete(ctx context.Context, force bool, reason string) (*Inspection, error) {
	if err := s.authorize(ctx, "complete"); err != nil {
		return nil, err
	}
	if err := s.reloadState(ctx); err != nil {
		return nil, err
	}

	status, progress := s.snapshot()
	t, err := PlanCompletion(status, progress, force, reason, s.engine.now())
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, t, progress)
}

// MarkIncompleteAsNA writes an NA response carrying reason as comment for every
// unanswered item, one write at a time in checklist order. The first failure
// stops the loop; items already written stay written and a retry only touches
// the remaining ones. It returns the number of responses written.
func (s *Session) MarkIncompleteAsNA(ctx context.Context, reason string) (int, error) {
	written, writeErr, cacheErr := s.markNA(ctx, reason)
	return written, errors.Join(writeErr, cacheErr)
}

// markNA keeps a failed NA write apart from a failed progress cache write.
func (s *Session) markNA(ctx context.Context, reason string) (written int, writeErr, cacheErr error) {
	if err := s.authorize(ctx, "mark_incomplete_na"); err != nil {
		return 0, err, nil
	}
	if err := s.reloadState(ctx); err != nil {
		return 0, err, nil
	}

	s.mu.RLock()
	status := s.inspection.Status
	pending := s.checklist.Unanswered()
	s.mu.RUnlock()

	reason, err := validateMarkNA(status, reason)
	if err != nil {
		return 0, err, nil
	}

	var loopErr error
	for _, item := range pending {
		comment := reason
		stored, err := s.engine.store.UpsertResponse(ctx, &ItemResponse{
			ID:               s.engine.newID(),
			InspectionItemID: item.ID,
			InspectionID:     s.inspectionID,
			UserID:           s.actor.UserID,
			State:            StateNA,
			Comment:          &comment,
			Photos:           []string{},
		})
		if err != nil {
			loopErr = errors.Newf("%w: marking item %s as NA: %w", ErrStoreFailure, item.ID, err).
				Component(component).
				Category(errors.CategoryStore).
				Context("operation", "mark_incomplete_na").
				Context("inspection_id", s.inspectionID).
				Context("item_id", item.ID).
				Context("written", written).
				Context("remaining", len(pending)-written).
				Build()
			break
		}
		s.commitResponse(*stored)
		written++
	}

	if written == 0 {
		return 0, loopErr, nil
	}

	progress, status := s.snapshot()
	s.log.Info("unanswered items marked NA",
		logger.Int("written", written),
		logger.Int("pending_before", len(pending)),
		logger.Bool("partial", loopErr != nil))

	s.notify(Event{
		Type:     EventItemsMarkedNA,
		Status:   status,
		Reason:   reason,
		Count:    written,
		Progress: progress,
	})

	return written, loopErr, s.recordProgress(ctx, progress)
}

// ResolveAndComplete marks unanswered items as NA and then requests a regular
// completion with the same reason. NOK items still lead to a force-close.
// Completion is skipped only when an NA write failed; when just the progress
// cache write failed the inspection is returned together with that error.
func (s *Session) ResolveAndComplete(ctx context.Context, reason string) (*Inspection, int, error) {
	written, writeErr, cacheErr := s.markNA(ctx, reason)
	if writeErr != nil {
		return nil, written, errors.Join(writeErr, cacheErr)
	}
	insp, err := s.Complete(ctx, false, reason)
	if err != nil {
		return nil, written, err
	}
	return insp, written, cacheErr
}

// MarkIncomplete closes an inspection that still has unanswered items as incomplete.
func (s *Session) MarkIncomplete(ctx context.Context, reason string) (*Inspection, error) {
	if err := s.authorize(ctx, "mark_incomplete"); err != nil {
		return nil, err
	}
	if err := s.reloadState(ctx); err != nil {
		return nil, err
	}

	status, progress := s.snapshot()
	t, err := PlanMarkIncomplete(status, progress, reason, s.engine.now())
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, t, progress)
}

// Reopen returns a terminal inspection to in_progress.
func (s *Session) Reopen(ctx context.Context) (*Inspection, error) {
	if err := s.authorize(ctx, "reopen"); err != nil {
		return nil, err
	}
	if err := s.reloadState(ctx); err != nil {
		return nil, err
	}

	status, progress := s.snapshot()
	t, err := PlanReopen(status)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, t, progress)
}

func (s *Session) snapshot() (Status, Progress) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inspection.Status, s.checklist.Progress()
}

// apply persists a transition in a single update and publishes it.
func (s *Session) apply(ctx context.Context, t Transition, progress Progress) (*Inspection, error) {
	if err := s.engine.store.UpdateInspection(ctx, s.inspectionID, t.Update); err != nil {
		return nil, storeFailure(err, "update_inspection", s.inspectionID)
	}

	s.mu.Lock()
	t.Update.ApplyTo(&s.inspection)
	insp := s.inspection.Clone()
	s.mu.Unlock()

	s.log.Info("inspection transitioned",
		logger.String("from", string(t.From)),
		logger.String("to", string(t.To)),
		logger.Bool("with_reason", t.Reason != ""))

	s.notify(Event{
		Type:           EventInspectionTransitioned,
		PreviousStatus: t.From,
		Status:         t.To,
		Reason:         t.Reason,
		Progress:       progress,
	})
	return &insp, nil
}

// authorize runs before any lifecycle rule is evaluated.
func (s *Session) authorize(ctx context.Context, operation string) error {
	if s.actor.Roles == nil {
		return newError(ErrForbidden, operation, "no role information for user %q", s.actor.UserID).
			Context("inspection_id", s.inspectionID).
			Build()
	}

	ok, err := s.actor.Roles.HasAnyRole(ctx, s.engine.elevated...)
	if err != nil {
		return errors.Newf("%w: role check: %w", ErrStoreFailure, err).
			Component(component).
			Category(errors.CategoryStore).
			Context("operation", operation).
			Context("inspection_id", s.inspectionID).
			Build()
	}
	if !ok {
		s.log.Debug("lifecycle operation denied", logger.String("operation", operation))
		return newError(ErrForbidden, operation, "user %q lacks an elevated role", s.actor.UserID).
			Context("inspection_id", s.inspectionID).
			Build()
	}
	return nil
}

func (s *Session) recordProgress(ctx context.Context, progress Progress) error {
	recorder, ok := s.engine.store.(ProgressRecorder)
	if !ok {
		return nil
	}
	if err := recorder.SetPercentComplete(ctx, s.inspectionID, progress.PercentComplete); err != nil {
		s.log.Warn("failed to cache percent complete", logger.Error(err))
		return storeFailure(err, "set_percent_complete", s.inspectionID)
	}
	return nil
}

func (s *Session) notify(ev Event) {
	ev.InspectionID = s.inspectionID
	ev.ActorID = s.actor.UserID
	ev.At = s.engine.now()
	s.engine.observer.Notify(ev)
}

func normalizeComment(c *string) *string {
	if c == nil || strings.TrimSpace(*c) == "" {
		return nil
	}
	v := *c
	return &v
}
