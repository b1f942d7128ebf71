package orm

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// DatabaseError wraps a failed GORM operation on the plugin database
type DatabaseError struct {
	Inner error
}

func (e *DatabaseError) Error() string {
	return "plugin database: " + e.Inner.Error()
}

func (e *DatabaseError) Unwrap() error {
	return e.Inner
}

// NotFoundError is returned when no plugin row matches
type NotFoundError struct {
	Search string
}

func (e *NotFoundError) Error() string {
	return "no plugin found for " + e.Search
}

// ConflictError is returned when a row violates a unique constraint
type ConflictError struct {
	Conflict string
}

func (e *ConflictError) Error() string {
	return "conflicting plugin record: " + e.Conflict
}

// BadInputError covers plugins that cannot be stored or rows that cannot be
// turned back into plugins.
type BadInputError struct {
	Reason string
}

func (e *BadInputError) Error() string {
	return "bad plugin input: " + e.Reason
}

// wrapErrorWithDetails maps GORM errors to the typed errors above
func wrapErrorWithDetails(err error, operation, details string) error {
	if err == nil {
		return nil
	}

	where := fmt.Sprintf("%s (%s)", operation, details)

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &NotFoundError{Search: where}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &ConflictError{Conflict: where}
	default:
		return &DatabaseError{Inner: fmt.Errorf("%s: %w", operation, err)}
	}
}
