// Package types holds the error kinds shared by the evaluator and its API surfaces.
package types

import (
	"errors"
	"fmt"
)

// Kind tags an evaluation failure.
type Kind string

// Error kinds. Every kind is terminal for the evaluation that produced it.
const (
	KindInvalidArgument       Kind = "InvalidArgument"
	KindMalformedInput        Kind = "MalformedInput"
	KindMismatchedParentheses Kind = "MismatchedParentheses"
	KindInsufficientOperands  Kind = "InsufficientOperands"
	KindNoResult              Kind = "NoResult"
	KindExtraOperands         Kind = "ExtraOperands"
)

// Sentinels for errors.Is. An *EvalError matches the sentinel of its kind.
var (
	ErrInvalidArgument       = &EvalError{Kind: KindInvalidArgument, Pos: -1}
	ErrMalformedInput        = &EvalError{Kind: KindMalformedInput, Pos: -1}
	ErrMismatchedParentheses = &EvalError{Kind: KindMismatchedParentheses, Pos: -1}
	ErrInsufficientOperands  = &EvalError{Kind: KindInsufficientOperands, Pos: -1}
	ErrNoResult              = &EvalError{Kind: KindNoResult, Pos: -1}
	ErrExtraOperands         = &EvalError{Kind: KindExtraOperands, Pos: -1}
)

// EvalError is a failure while tokenizing, converting or evaluating an expression.
type EvalError struct {
	Kind    Kind
	Message string
	Pos     int // byte offset in the input, -1 when not tied to a position
}

// Error implements the error interface.
func (e *EvalError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("%s at position %d (%s)", e.Message, e.Pos, e.Kind)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Kind)
}

// Is reports whether target is an *EvalError of the same kind.
func (e *EvalError) Is(target error) bool {
	t, ok := target.(*EvalError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// ToMap converts the error to the JSON shape used by the REST API.
func (e *EvalError) ToMap() map[string]any {
	m := map[string]any{
		"kind":    string(e.Kind),
		"message": e.Message,
	}
	if e.Pos >= 0 {
		m["position"] = e.Pos
	}
	return m
}

// KindOf returns the kind of err, or "" if err is not an *EvalError.
func KindOf(err error) Kind {
	var ee *EvalError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ""
}

// Common error constructors.

// NewInvalidArgumentError creates an InvalidArgument error.
func NewInvalidArgumentError(msg string) *EvalError {
	return &EvalError{Kind: KindInvalidArgument, Message: msg, Pos: -1}
}

// NewMalformedInputError creates a MalformedInput error at the given position.
func NewMalformedInputError(msg string, pos int) *EvalError {
	return &EvalError{Kind: KindMalformedInput, Message: msg, Pos: pos}
}

// NewMismatchedParenthesesError creates a MismatchedParentheses error.
func NewMismatchedParenthesesError(pos int) *EvalError {
	return &EvalError{Kind: KindMismatchedParentheses, Message: "mismatched parentheses", Pos: pos}
}

// NewInsufficientOperandsError creates an InsufficientOperands error for an operator
// that needed want operands but found got.
func NewInsufficientOperandsError(op string, want, got int) *EvalError {
	return &EvalError{
		Kind:    KindInsufficientOperands,
		Message: fmt.Sprintf("operator %s needs %d operand(s) but got %d", op, want, got),
		Pos:     -1,
	}
}

// NewNoResultError creates a NoResult error.
func NewNoResultError() *EvalError {
	return &EvalError{Kind: KindNoResult, Message: "no result on the stack", Pos: -1}
}

// NewExtraOperandsError creates an ExtraOperands error for n values left on the stack.
func NewExtraOperandsError(n int) *EvalError {
	return &EvalError{
		Kind:    KindExtraOperands,
		Message: fmt.Sprintf("%d values left on the stack, expected 1", n),
		Pos:     -1,
	}
}
