package inspection

import (
	"context"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/safetrack/safetrack/internal/errors"
	"github.com/safetrack/safetrack/internal/logger"
)

// Engine opens sessions against a Store. It is safe for concurrent use.
type Engine struct {
	store    Store
	observer Observer
	policy   atomic.Pointer[AttachmentPolicy]
	elevated []Role
	now      func() time.Time
	newID    func() string
	log      logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver registers the observer notified after every committed change.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithAttachmentPolicy replaces the default attachment policy.
func WithAttachmentPolicy(p AttachmentPolicy) Option {
	return func(e *Engine) { e.policy.Store(&p) }
}

// WithElevatedRoles sets the roles allowed to run lifecycle transitions.
func WithElevatedRoles(roles ...Role) Option {
	return func(e *Engine) {
		if len(roles) > 0 {
			e.elevated = slices.Clone(roles)
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator overrides the generator for new response IDs.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		if newID != nil {
			e.newID = newID
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine creates an engine over store.
func NewEngine(store Store, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.Newf("inspection store is required").
			Component(component).
			Category(errors.CategoryConfiguration).
			Build()
	}

	e := &Engine{
		store:    store,
		observer: noopObserver{},
		elevated: slices.Clone(DefaultElevatedRoles),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	defaultPolicy := DefaultAttachmentPolicy()
	e.policy.Store(&defaultPolicy)

	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Global().Module(component)
	}
	return e, nil
}

// SetAttachmentPolicy swaps the policy used by subsequent writes.
func (e *Engine) SetAttachmentPolicy(p AttachmentPolicy) {
	e.policy.Store(&p)
	e.log.Info("attachment policy updated",
		logger.Int64("max_bytes", p.MaxBytes),
		logger.String("allowed_types", strings.Join(p.AllowedTypes, ",")))
}

// AttachmentPolicy returns the active policy.
func (e *Engine) AttachmentPolicy() AttachmentPolicy {
	return *e.policy.Load()
}

// ElevatedRoles returns the roles allowed to run lifecycle transitions.
func (e *Engine) ElevatedRoles() []Role {
	return slices.Clone(e.elevated)
}

// Open loads an inspection and binds it to actor.
func (e *Engine) Open(ctx context.Context, inspectionID string, actor Actor) (*Session, error) {
	if strings.TrimSpace(inspectionID) == "" {
		return nil, newError(ErrNotFound, "open", "inspection id is empty").Build()
	}

	s := &Session{
		engine:       e,
		inspectionID: inspectionID,
		actor:        actor,
		log: e.log.With(
			logger.String("inspection_id", inspectionID),
			logger.String("user_id", actor.UserID)),
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s, nil
}
