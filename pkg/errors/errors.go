// Package errors provides the closed error taxonomy OmniFS surfaces over the
// wire, wrapped in a structured error type carrying operation context.
package errors

import (
	"encoding/json"
	"fmt"
	"time"
)

// Code is one of the closed set of error codes OmniFS can return. The
// numeric value is the exact wire error_code and must never be renumbered:
// clients persist it.
type Code int

const (
	Success Code = iota
	InvalidConfig
	IOError
	NotFound
	FileExists
	PermissionDenied
	InvalidOperation
	DirectoryNotEmpty
	NoSpace
	InvalidSession
	NotImplemented
)

var names = map[Code]string{
	Success:           "SUCCESS",
	InvalidConfig:     "INVALID_CONFIG",
	IOError:           "IO_ERROR",
	NotFound:          "NOT_FOUND",
	FileExists:        "FILE_EXISTS",
	PermissionDenied:  "PERMISSION_DENIED",
	InvalidOperation:  "INVALID_OPERATION",
	DirectoryNotEmpty: "DIRECTORY_NOT_EMPTY",
	NoSpace:           "NO_SPACE",
	InvalidSession:    "INVALID_SESSION",
	NotImplemented:    "NOT_IMPLEMENTED",
}

var messages = map[Code]string{
	Success:           "success",
	InvalidConfig:     "configuration could not be parsed or validated",
	IOError:           "container open, read, or write failed",
	NotFound:          "path, user, or session target does not exist",
	FileExists:        "a file, directory, or user with that name already exists",
	PermissionDenied:  "authentication credentials did not match",
	InvalidOperation:  "operation is not valid for the target's type",
	DirectoryNotEmpty: "directory has children and cannot be removed",
	NoSpace:           "no contiguous run of free blocks satisfies the request",
	InvalidSession:    "session id is unknown or has been invalidated",
	NotImplemented:    "operation (or this parameterization of it) is not implemented",
}

// String returns the wire-facing name of the code, e.g. "NOT_FOUND".
func (c Code) String() string {
	if s, ok := names[c]; ok {
		return s
	}
	return "UNKNOWN_ERROR"
}

// Message returns the human-readable description of the code. This backs
// the get_error_message wire operation.
func (c Code) Message() string {
	if m, ok := messages[c]; ok {
		return m
	}
	return "unknown error"
}

// OmniError is the structured error every engine operation returns. A nil
// *OmniError means success; callers should compare against nil, not Code().
type OmniError struct {
	code      Code
	Component string    `json:"component,omitempty"`
	Operation string    `json:"operation,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Cause     error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// New creates an OmniError for the given code. A Success code should not be
// wrapped; engine operations return nil instead.
func New(code Code, detail string) *OmniError {
	return &OmniError{code: code, Detail: detail, Timestamp: time.Now()}
}

// Code returns the closed error code carried by this error.
func (e *OmniError) Code() Code {
	if e == nil {
		return Success
	}
	return e.code
}

// Error implements the error interface.
func (e *OmniError) Error() string {
	if e == nil {
		return "success"
	}
	base := fmt.Sprintf("%s: %s", e.code, e.Detail)
	if e.Component != "" {
		if e.Operation != "" {
			return fmt.Sprintf("[%s:%s] %s", e.Component, e.Operation, base)
		}
		return fmt.Sprintf("[%s] %s", e.Component, base)
	}
	return base
}

// Unwrap exposes the underlying cause, if any, for errors.Is/As.
func (e *OmniError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// WithComponent sets the component that raised the error and returns it for chaining.
func (e *OmniError) WithComponent(component string) *OmniError {
	e.Component = component
	return e
}

// WithOperation sets the operation that raised the error and returns it for chaining.
func (e *OmniError) WithOperation(operation string) *OmniError {
	e.Operation = operation
	return e
}

// WithCause attaches an underlying cause (e.g. an *os.PathError) and returns it for chaining.
func (e *OmniError) WithCause(cause error) *OmniError {
	e.Cause = cause
	return e
}

// JSON renders the error as a JSON object, used for structured log lines.
func (e *OmniError) JSON() string {
	if e == nil {
		return `{"code":"SUCCESS"}`
	}
	type wire struct {
		Code      string    `json:"code"`
		Component string    `json:"component,omitempty"`
		Operation string    `json:"operation,omitempty"`
		Detail    string    `json:"detail,omitempty"`
		Timestamp time.Time `json:"timestamp"`
	}
	data, err := json.Marshal(wire{
		Code:      e.code.String(),
		Component: e.Component,
		Operation: e.Operation,
		Detail:    e.Detail,
		Timestamp: e.Timestamp,
	})
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal error: %s"}`, err.Error())
	}
	return string(data)
}

// IsRetryable reports whether an error of this code is worth retrying. Only
// IOError is ever transient for a local container file; every other code is
// a logical/contract violation that retrying cannot fix.
func (c Code) IsRetryable() bool {
	return c == IOError
}
