// Package errors provides standardized error types for Frame operations.
// Every failure surfaced by the engine is a *Error carrying a Kind tag, the
// operation that failed, and the offending column or operator name, so callers
// can react precisely without string matching.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies an engine error.
type Kind int

const (
	// KindUnknown is the zero value and never produced by the engine.
	KindUnknown Kind = iota
	// KindUnknownColumn indicates a key or target column absent from the input Frame.
	KindUnknownColumn
	// KindUnknownOperator indicates an aggregation operator name outside the supported set.
	KindUnknownOperator
	// KindTypeMismatch indicates an operator applied to an incompatible column type.
	KindTypeMismatch
	// KindEmptyInput indicates a configuration error such as zero key columns.
	KindEmptyInput
	// KindInternal indicates an unexpected internal failure.
	KindInternal
)

// String returns the canonical name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUnknownColumn:
		return "unknown_column"
	case KindUnknownOperator:
		return "unknown_operator"
	case KindTypeMismatch:
		return "type_mismatch"
	case KindEmptyInput:
		return "empty_input"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error represents a standardized error across all Frame operations.
type Error struct {
	Kind    Kind   // Error classification
	Op      string // Operation name (e.g. "GroupBy", "Agg", "SortBy")
	Column  string // Column name if applicable
	Message string // Human-readable error description
	Cause   error  // Underlying error cause
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s operation failed on column '%s': %s", e.Op, e.Column, e.Message)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Op, e.Message)
}

// Unwrap returns the underlying cause for error wrapping support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is().
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind && e.Op == t.Op && e.Column == t.Column && e.Message == t.Message
	}
	return false
}

// NewUnknownColumnError creates an error for operations referencing non-existent columns.
func NewUnknownColumnError(op, column string) *Error {
	return &Error{
		Kind:    KindUnknownColumn,
		Op:      op,
		Column:  column,
		Message: "column does not exist",
	}
}

// NewUnknownOperatorError creates an error for unrecognized aggregation operator names.
func NewUnknownOperatorError(op, name string) *Error {
	return &Error{
		Kind:    KindUnknownOperator,
		Op:      op,
		Message: fmt.Sprintf("unknown aggregation operator: %s", name),
	}
}

// NewTypeMismatchError creates an error for operators applied to incompatible column types.
func NewTypeMismatchError(op, column, message string) *Error {
	return &Error{
		Kind:    KindTypeMismatch,
		Op:      op,
		Column:  column,
		Message: message,
	}
}

// NewEmptyInputError creates an error for invalid empty configuration inputs.
func NewEmptyInputError(op, message string) *Error {
	return &Error{
		Kind:    KindEmptyInput,
		Op:      op,
		Message: message,
	}
}

// NewInternalError creates an error for internal operation failures.
func NewInternalError(op string, cause error) *Error {
	return &Error{
		Kind:    KindInternal,
		Op:      op,
		Message: "internal error occurred",
		Cause:   cause,
	}
}

// KindOf extracts the Kind from an error chain, or KindUnknown if the chain
// contains no *Error.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether the error chain contains a *Error of the given kind.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}
