// SPDX-License-Identifier: Apache-2.0
// Package errors provides typed error handling with rich context for Maestro.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies Maestro errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the input was invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeNotFound indicates a tool, prompt, or resource matched nothing.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeDenied indicates the confirmation checkpoint refused an execution.
	CodeDenied ErrorCode = "EXECUTION_DENIED"

	// CodeNameConflict indicates two server names sanitize to the same string.
	CodeNameConflict ErrorCode = "NAME_CONFLICT"

	// CodeConnectFailure indicates one or more required servers failed to connect.
	CodeConnectFailure ErrorCode = "CONNECT_FAILURE"

	// CodeToolFailure indicates a tool invocation failed on the remote server.
	CodeToolFailure ErrorCode = "TOOL_FAILURE"

	// CodeNotSupported indicates the server does not implement a capability.
	CodeNotSupported ErrorCode = "NOT_SUPPORTED"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"
)

// MaestroError is a typed error with rich context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type MaestroError struct {
	Code       ErrorCode
	Message    string
	Err        error
	Context    map[string]interface{}
	Attributes map[string]string
	StatusCode int
}

// Error implements the error interface.
func (e *MaestroError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *MaestroError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *MaestroError) MarshalJSON() ([]byte, error) {
	type Alias MaestroError
	return json.Marshal(&struct {
		Message string `json:"message"`
		Code    string `json:"code"`
		Err     string `json:"error,omitempty"`
		*Alias
	}{
		Message: e.Error(),
		Code:    string(e.Code),
		Err:     fmt.Sprintf("%v", e.Err),
		Alias:   (*Alias)(e),
	})
}

// New creates a new MaestroError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *MaestroError {
	return &MaestroError{
		Code:       code,
		Message:    msg,
		Err:        cause,
		Context:    make(map[string]interface{}),
		Attributes: make(map[string]string),
		StatusCode: codeToStatusCode(code),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *MaestroError) WithContext(key string, value interface{}) *MaestroError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithAttribute adds a string attribute for OTEL traces.
// Returns the error for method chaining.
func (e *MaestroError) WithAttribute(key, value string) *MaestroError {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	e.Attributes[key] = value
	return e
}

// AsMaestroError attempts to convert an error to a MaestroError.
// Returns the error as MaestroError if it is one, or wraps it otherwise.
func AsMaestroError(err error) *MaestroError {
	if err == nil {
		return nil
	}
	if me, ok := err.(*MaestroError); ok {
		return me
	}
	return New(CodeInternal, "wrapped error", err)
}

// HasCode reports whether err carries a MaestroError with the given code
// anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	var me *MaestroError
	if stderrors.As(err, &me) {
		return me.Code == code
	}
	return false
}

// codeToStatusCode maps error codes to HTTP-ish status codes.
func codeToStatusCode(code ErrorCode) int {
	switch code {
	case CodeNotFound:
		return 404
	case CodeDenied:
		return 403
	case CodeInvalidInput, CodeNameConflict:
		return 400
	case CodeTimeout:
		return 408
	case CodeNotSupported:
		return 501
	default:
		return 500
	}
}
