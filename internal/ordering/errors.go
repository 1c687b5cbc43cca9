// Package ordering holds the pure order rules shared by the service and the
// allocator: totals and line derivations, status derivation, tender parsing
// and settlement, the table policy and the local business calendar.
package ordering

import (
	"errors"
	"fmt"
)

// Error kinds. Concrete errors match their kind with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrState      = errors.New("invalid state")
	ErrAllocation = errors.New("order number allocation failed")
)

type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string        { return e.msg }
func (e *kindError) Is(target error) bool { return target == e.kind }

// Validation returns an error of kind ErrValidation.
func Validation(format string, args ...any) error {
	return &kindError{msg: fmt.Sprintf(format, args...), kind: ErrValidation}
}

// NotFound returns an error of kind ErrNotFound.
func NotFound(format string, args ...any) error {
	return &kindError{msg: fmt.Sprintf(format, args...), kind: ErrNotFound}
}

// State returns an error of kind ErrState.
func State(format string, args ...any) error {
	return &kindError{msg: fmt.Sprintf(format, args...), kind: ErrState}
}
