// ABOUTME: Typed error taxonomy for metadata parsing, validation and comparison
// ABOUTME: Structured errors carry a code and match sentinels via errors.Is

// Package didlerr defines the error types surfaced by the metadata engine.
//
// Every failure falls into one of three classes:
//   - ParseError: malformed boolean, numeric, enum, date, URI, protocol-info
//     or sort-flag input.
//   - ValidationError: structurally parsable input that violates a
//     constraint (empty entity id, empty update token, missing value).
//   - TypeMismatchError: a comparison or cast received an incompatible
//     value and string coercion did not help.
//
// Callers branch with errors.Is against the sentinels or errors.As into
// *Error for the details.
package didlerr

import (
	"errors"
	"fmt"
	"strings"
)

// Code classifies an Error.
type Code string

const (
	// CodeParse indicates malformed input text
	CodeParse Code = "PARSE_ERROR"

	// CodeValidation indicates input that violates a constraint
	CodeValidation Code = "VALIDATION_ERROR"

	// CodeTypeMismatch indicates an incompatible operand type
	CodeTypeMismatch Code = "TYPE_MISMATCH"
)

var (
	// ErrParse matches any Error with CodeParse
	ErrParse = errors.New("didl: parse error")

	// ErrValidation matches any Error with CodeValidation
	ErrValidation = errors.New("didl: validation error")

	// ErrTypeMismatch matches any Error with CodeTypeMismatch
	ErrTypeMismatch = errors.New("didl: type mismatch")
)

// Error is the structured error returned by the engine.
type Error struct {
	// Code is the error class
	Code Code

	// Op is the operation that failed (e.g. "parse bool", "merge")
	Op string

	// Input is the offending input, if any
	Input string

	// Message is a human-readable description
	Message string

	// Cause is the underlying error, if any
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("didl")
	if e.Op != "" {
		b.WriteString(" ")
		b.WriteString(e.Op)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Input != "" {
		fmt.Fprintf(&b, " (input %q)", e.Input)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel for the error's code.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrParse:
		return e.Code == CodeParse
	case ErrValidation:
		return e.Code == CodeValidation
	case ErrTypeMismatch:
		return e.Code == CodeTypeMismatch
	}
	return false
}

// Parse creates a ParseError.
func Parse(op, input, message string) *Error {
	return &Error{Code: CodeParse, Op: op, Input: input, Message: message}
}

// ParseWrap creates a ParseError wrapping cause.
func ParseWrap(op, input string, cause error) *Error {
	return &Error{Code: CodeParse, Op: op, Input: input, Message: "malformed input", Cause: cause}
}

// Validation creates a ValidationError.
func Validation(op, input, message string) *Error {
	return &Error{Code: CodeValidation, Op: op, Input: input, Message: message}
}

// TypeMismatch creates a TypeMismatchError describing the expected and actual types.
func TypeMismatch(op string, want string, got any) *Error {
	return &Error{
		Code:    CodeTypeMismatch,
		Op:      op,
		Message: fmt.Sprintf("expected %s, got %T", want, got),
	}
}

// CodeOf returns the code of err if it is (or wraps) an *Error.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}
