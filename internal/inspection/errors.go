package inspection

import (
	"github.com/safetrack/safetrack/internal/errors"
)

const component = "inspection"

// Kind classifies engine failures for callers that map them to user messages
// or transport status codes.
type Kind string

const (
	KindNone                 Kind = ""
	KindNotFound             Kind = "not_found"
	KindInvalidState         Kind = "invalid_state"
	KindLocked               Kind = "locked"
	KindReasonRequired       Kind = "reason_required"
	KindConfirmationRequired Kind = "confirmation_required"
	KindForbidden            Kind = "forbidden"
	KindInvalidTransition    Kind = "invalid_transition"
	KindAttachmentRejected   Kind = "attachment_rejected"
	KindStoreFailure         Kind = "store_failure"
	KindUnknown              Kind = "unknown"
)

// Sentinel errors. Engine errors wrap exactly one of these; test with errors.Is.
var (
	ErrNotFound             = errors.NewStd("not found")
	ErrInvalidState         = errors.NewStd("invalid response state")
	ErrLocked               = errors.NewStd("inspection is locked")
	ErrReasonRequired       = errors.NewStd("reason required")
	ErrConfirmationRequired = errors.NewStd("confirmation required")
	ErrForbidden            = errors.NewStd("forbidden")
	ErrInvalidTransition    = errors.NewStd("invalid transition")
	ErrAttachmentRejected   = errors.NewStd("attachment rejected")
	ErrStoreFailure         = errors.NewStd("store failure")
)

var kinds = []struct {
	kind     Kind
	sentinel error
	category errors.ErrorCategory
}{
	{KindNotFound, ErrNotFound, errors.CategoryNotFound},
	{KindInvalidState, ErrInvalidState, errors.CategoryInvalidState},
	{KindLocked, ErrLocked, errors.CategoryLocked},
	{KindReasonRequired, ErrReasonRequired, errors.CategoryReasonRequired},
	{KindConfirmationRequired, ErrConfirmationRequired, errors.CategoryConflict},
	{KindForbidden, ErrForbidden, errors.CategoryForbidden},
	{KindInvalidTransition, ErrInvalidTransition, errors.CategoryInvalidTransition},
	{KindAttachmentRejected, ErrAttachmentRejected, errors.CategoryAttachment},
	{KindStoreFailure, ErrStoreFailure, errors.CategoryStore},
}

// KindOf returns the kind of an engine error, KindNone for nil and
// KindUnknown for errors the engine did not produce.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.kind
		}
	}
	return KindUnknown
}

func categoryFor(sentinel error) errors.ErrorCategory {
	for _, k := range kinds {
		if k.sentinel == sentinel {
			return k.category
		}
	}
	return errors.CategoryGeneric
}

// newError builds an enhanced error wrapping sentinel.
func newError(sentinel error, operation, format string, args ...any) *errors.ErrorBuilder {
	return errors.Newf("%w: "+format, append([]any{sentinel}, args...)...).
		Component(component).
		Category(categoryFor(sentinel)).
		Context("operation", operation)
}

// storeFailure wraps a store error. Store-reported missing records become NotFound.
func storeFailure(err error, operation, inspectionID string) error {
	if errors.Is(err, ErrNotFound) {
		return errors.New(err).
			Component(component).
			Category(errors.CategoryNotFound).
			Context("operation", operation).
			Context("inspection_id", inspectionID).
			Build()
	}
	return errors.Newf("%w: %w", ErrStoreFailure, err).
		Component(component).
		Category(errors.CategoryStore).
		Context("operation", operation).
		Context("inspection_id", inspectionID).
		Build()
}
