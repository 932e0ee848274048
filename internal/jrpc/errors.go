package jrpc

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes locally raised client errors.
type ErrorKind string

const (
	// KindInvalidParameter: a required argument is missing or the operation
	// is disabled for this client. Raised before any transport call.
	KindInvalidParameter ErrorKind = "INVALID_PARAMETER"

	// KindSchemaViolation: params failed structural validation. Raised before send.
	KindSchemaViolation ErrorKind = "SCHEMA_VIOLATION"

	// KindTransportFailure: the transport could not deliver the request or
	// returned an envelope that cannot be correlated. Terminates any poll.
	KindTransportFailure ErrorKind = "TRANSPORT_FAILURE"
)

// Error is a client error raised locally or at the transport boundary.
// Protocol errors returned by the server are never wrapped in Error; they
// stay in Response.Error.
type Error struct {
	Kind    ErrorKind
	Method  Method
	ID      string
	Message string

	// Details carries structured context, e.g. schema violations.
	Details any

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Method != "" {
		msg = fmt.Sprintf("%s (method=%s", msg, e.Method)
		if e.ID != "" {
			msg += ", id=" + e.ID
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// InvalidParameter builds a KindInvalidParameter error.
func InvalidParameter(method Method, id, message string) *Error {
	return &Error{Kind: KindInvalidParameter, Method: method, ID: id, Message: message}
}

// SchemaViolation builds a KindSchemaViolation error.
func SchemaViolation(method Method, id, message string, details any) *Error {
	return &Error{Kind: KindSchemaViolation, Method: method, ID: id, Message: message, Details: details}
}

// TransportFailure builds a KindTransportFailure error wrapping err.
func TransportFailure(method Method, id, message string, err error) *Error {
	return &Error{Kind: KindTransportFailure, Method: method, ID: id, Message: message, Err: err}
}

// IsInvalidParameter reports whether err is an invalid-parameter error.
// Uses errors.As to handle wrapped errors.
func IsInvalidParameter(err error) bool {
	return kindOf(err) == KindInvalidParameter
}

// IsSchemaViolation reports whether err is a schema violation.
func IsSchemaViolation(err error) bool {
	return kindOf(err) == KindSchemaViolation
}

// IsTransportFailure reports whether err is a transport failure.
func IsTransportFailure(err error) bool {
	return kindOf(err) == KindTransportFailure
}

func kindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
