// Package apperr defines the error kinds surfaced by the core services.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
)

// Hierarchy conflicts. Both match ErrConflict under errors.Is.
var (
	ErrCycle     = fmt.Errorf("%w: cycle", ErrConflict)
	ErrHasParent = fmt.Errorf("%w: child already has a parent", ErrConflict)
)

// Error is a typed error carrying a human readable message and the kind it unwraps to.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// New builds an *Error of the given kind.
func New(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return New(ErrNotFound, format, args...)
}

func Conflict(format string, args ...any) error {
	return New(ErrConflict, format, args...)
}

func Validation(format string, args ...any) error {
	return New(ErrValidation, format, args...)
}
