package datastore

import (
	"github.com/safetrack/safetrack/internal/errors"
	"github.com/safetrack/safetrack/internal/inspection"
	"gorm.io/gorm"
)

const component = "datastore"

// Repository errors.
var (
	ErrUnknownRole     = errors.NewStd("unknown role")
	ErrUnsupportedType = errors.NewStd("unsupported database type")
)

// dbError creates a properly categorized database error with context.
func dbError(err error, operation, priority string, context ...any) error {
	builder := errors.New(err).
		Component(component).
		Category(errors.CategoryDatabase).
		Context("operation", operation)

	if priority != "" {
		builder = builder.Priority(priority)
	}

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// notFound reports a missing record in terms the inspection engine understands.
func notFound(entity, id string) error {
	return errors.Newf("%w: %s %s", inspection.ErrNotFound, entity, id).
		Component(component).
		Category(errors.CategoryNotFound).
		Context("entity", entity).
		Context("id", id).
		Build()
}

// lookupError maps gorm's missing-record error to notFound.
func lookupError(err error, operation, entity, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(entity, id)
	}
	return dbError(err, operation, errors.PriorityMedium, entity+"_id", id)
}

// validationError creates a validation error.
func validationError(sentinel error, field string, value any) error {
	return errors.Newf("%w: %v", sentinel, value).
		Component(component).
		Category(errors.CategoryValidation).
		Context("field", field).
		Build()
}
