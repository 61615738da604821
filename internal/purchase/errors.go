package purchase

import (
	"errors"
	"fmt"
)

// Error classes shared by every component. Match them with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrIO         = errors.New("storage i/o failure")
	ErrRender     = errors.New("render failure")
)

// ValidationError describes a rejected field of a record.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is reports ErrValidation as a match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NotFound wraps ErrNotFound with the kind and id of the missing entity.
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
}

// IOError wraps a storage failure so callers can classify it with ErrIO.
func IOError(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrIO, err))
}
