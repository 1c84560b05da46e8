package domain

import (
	"errors"
	"fmt"
)

// ErrUnresolvedReference is returned when a variable-indirected field does not
// resolve to a member of its permitted choice set.
var ErrUnresolvedReference = errors.New("unresolved reference")

// ErrSurfaceUnresolved is returned when a controller field is still the
// "self" placeholder because no originating surface was supplied.
var ErrSurfaceUnresolved = errors.New("surface not resolved")

// ErrHistoryNotFound is returned when a surface has no navigation history yet.
var ErrHistoryNotFound = errors.New("history not found")

// ErrUnknownCommand is returned when a command kind has no handler.
var ErrUnknownCommand = errors.New("unknown command")

// ErrUnknownFeedback is returned when a feedback type has no evaluator.
var ErrUnknownFeedback = errors.New("unknown feedback")

// ErrMissingOption is returned when a command lacks an option it requires.
var ErrMissingOption = errors.New("missing option")

// ErrUnsupported is returned when the host cannot carry out a command,
// such as exec without an executor.
var ErrUnsupported = errors.New("unsupported")

// UnresolvedReferenceError describes a field whose variable value was empty
// or outside the choice set for its kind.
type UnresolvedReferenceError struct {
	Kind  FieldKind
	Value string
}

func (e *UnresolvedReferenceError) Error() string {
	value := e.Value
	if value == "" {
		value = "undefined"
	}
	return fmt.Sprintf("%s is not a valid %s", value, e.Kind)
}

// Unwrap allows errors.Is(err, ErrUnresolvedReference).
func (e *UnresolvedReferenceError) Unwrap() error {
	return ErrUnresolvedReference
}
