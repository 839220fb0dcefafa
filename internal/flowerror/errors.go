// Package flowerror defines the error taxonomy of the transaction-entry flow.
package flowerror

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned by normalizers when there is nothing to parse.
var ErrEmptyInput = errors.New("empty input")

// ErrOutOfRange is returned when a parsed value violates a local constraint.
var ErrOutOfRange = errors.New("value out of range")

// InputError represents a value that failed a local constraint. The flow
// answers it by re-prompting in place.
type InputError struct {
	Field string
	Value string
	Err   error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s='%s': %v", e.Field, e.Value, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// NewInputError builds an InputError for field.
func NewInputError(field, value string, err error) *InputError {
	return &InputError{Field: field, Value: value, Err: err}
}

// MissingPrerequisiteError represents a flow that cannot continue until the
// user sets something up outside the conversation (e.g. registers a card).
type MissingPrerequisiteError struct {
	What     string
	Guidance string
}

func (e *MissingPrerequisiteError) Error() string {
	return fmt.Sprintf("missing prerequisite: %s", e.What)
}

// CollaboratorError represents a failure of an external collaborator.
type CollaboratorError struct {
	Collaborator string
	Operation    string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s.%s failed: %v", e.Collaborator, e.Operation, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// Collaborator wraps err as a CollaboratorError. It returns nil for a nil err.
func Collaborator(collaborator, operation string, err error) error {
	if err == nil {
		return nil
	}
	return &CollaboratorError{Collaborator: collaborator, Operation: operation, Err: err}
}

// IsInput reports whether err is, or wraps, an InputError.
func IsInput(err error) bool {
	var inputErr *InputError
	return errors.As(err, &inputErr)
}
