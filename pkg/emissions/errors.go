// Package emissions converts route, vehicle and environmental inputs into
// emissions breakdowns, relatable equivalents and optimization savings.
//
// Every function in this package is pure: no I/O, no logging, no shared state.
package emissions

import "fmt"

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// ErrInvalidInput matches every *InvalidInputError through errors.Is.
const ErrInvalidInput = constError("invalid input")

// InvalidInputError reports an out-of-range value or an unknown key.
type InvalidInputError struct {
	Field  string
	Value  any
	Reason string
}

// Error implements the error interface.
func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

// Is reports whether target is ErrInvalidInput.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewInvalidInputError builds an InvalidInputError for packages layered on
// top of this one.
func NewInvalidInputError(field string, value any, reason string) *InvalidInputError {
	return &InvalidInputError{Field: field, Value: value, Reason: reason}
}

func invalidInput(field string, value any, format string, args ...any) *InvalidInputError {
	return &InvalidInputError{
		Field:  field,
		Value:  value,
		Reason: fmt.Sprintf(format, args...),
	}
}

// inRange reports whether v lies in [lo, hi]. NaN is never in range.
func inRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}
