// Package status defines the error taxonomy shared by every layer of the
// virtual-table adapter.
package status

import (
	"errors"
	"fmt"
	"strings"
)

// Code categorizes adapter errors.
type Code string

const (
	// NotFound indicates a table name or handle is not registered.
	NotFound Code = "NOT_FOUND"

	// AlreadyExists indicates a table name is already registered.
	AlreadyExists Code = "ALREADY_EXISTS"

	// SchemaMismatch indicates declared arguments or columns disagree with
	// the backing source.
	SchemaMismatch Code = "SCHEMA_MISMATCH"

	// OutOfRange indicates a column index, row position or value outside
	// the representable range.
	OutOfRange Code = "OUT_OF_RANGE"

	// ProtocolViolation indicates the engine called the adapter out of
	// order. It is a programming error and is never recovered from.
	ProtocolViolation Code = "PROTOCOL_VIOLATION"

	// UpstreamFailure indicates a table-valued function failed to compute.
	UpstreamFailure Code = "UPSTREAM_FAILURE"
)

// Error is the structured error returned across the adapter boundary.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Table names the affected table, if known.
	Table string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Table != "" {
		msg = fmt.Sprintf("%s (table=%s)", msg, e.Table)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithTable returns a copy of e naming the affected table.
func (e *Error) WithTable(table string) *Error {
	cp := *e
	cp.Table = table
	return &cp
}

// Errorf creates an Error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error with the given cause.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// NewNotFound creates a NotFound error for the named table.
func NewNotFound(table string) *Error {
	return &Error{Code: NotFound, Message: "table is not registered", Table: table}
}

// NewAlreadyExists creates an AlreadyExists error for the named table.
func NewAlreadyExists(table string) *Error {
	return &Error{Code: AlreadyExists, Message: "table is already registered", Table: table}
}

// NewSchemaMismatch creates a SchemaMismatch error.
func NewSchemaMismatch(table, format string, args ...any) *Error {
	return &Error{Code: SchemaMismatch, Message: fmt.Sprintf(format, args...), Table: table}
}

// NewOutOfRange creates an OutOfRange error.
func NewOutOfRange(format string, args ...any) *Error {
	return &Error{Code: OutOfRange, Message: fmt.Sprintf(format, args...)}
}

// NewProtocolViolation creates a ProtocolViolation error.
func NewProtocolViolation(format string, args ...any) *Error {
	return &Error{Code: ProtocolViolation, Message: fmt.Sprintf(format, args...)}
}

// NewUpstreamFailure wraps a table-valued function failure. The cause's
// message is carried unchanged so the engine can surface it.
func NewUpstreamFailure(table string, err error) *Error {
	return &Error{Code: UpstreamFailure, Message: "table function failed", Table: table, Err: err}
}

// CodeOf returns the Code of the first *Error in err's chain, or the empty
// Code if there is none.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// Is reports whether err carries the given code.
// Uses errors.As to handle wrapped errors.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// IsFatal reports whether err signals a programming error that callers
// must not recover from.
func IsFatal(err error) bool {
	return Is(err, ProtocolViolation)
}

// Codes lists every error code.
var Codes = []Code{NotFound, AlreadyExists, SchemaMismatch, OutOfRange, ProtocolViolation, UpstreamFailure}

// CodeInMessage returns the code an error message carries once an Error
// has been flattened to text, as SQL engines do with virtual-table
// errors. It returns the empty Code if the message names none.
func CodeInMessage(msg string) Code {
	for _, c := range Codes {
		if strings.Contains(msg, string(c)+": ") {
			return c
		}
	}
	return ""
}
