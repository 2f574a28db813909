package service

import (
	"errors"
	"fmt"
)

// Error taxonomy. Conflicts are expected under normal operation (a timeout
// auto-submit racing a manual lock-in); the losing caller should refetch and
// treat the loss as benign.
var (
	ErrValidation   = errors.New("validation")
	ErrConflict     = errors.New("conflict")
	ErrPrecondition = errors.New("precondition")
	ErrModeration   = errors.New("moderation")
	ErrNotFound     = errors.New("not found")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func preconditionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}

func moderationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrModeration, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
