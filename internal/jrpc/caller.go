package jrpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Transport delivers a request envelope and returns the parsed response.
//
// Implementations return a non-nil error only when no well-formed envelope
// could be obtained (connection, timeout, decode). Thread-safety is part of
// each implementation's contract.
type Transport interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req Request) (*Response, error)

// Send calls f(ctx, req).
func (f TransportFunc) Send(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// Validator checks outbound params for method against the protocol schema.
// A nil return means the params may be sent.
type Validator interface {
	Validate(id string, method Method, params any) error
}

// Caller performs single round trips on behalf of the protocol clients.
//
// Thread-safety: Caller holds no mutable state besides its IDGenerator and
// is safe for concurrent use when the Transport is.
type Caller struct {
	transport Transport
	validator Validator
	ids       IDGenerator
	requireID bool
	logger    *slog.Logger
}

// CallerOption configures a Caller.
type CallerOption func(*Caller)

// WithValidator sets the schema validator consulted before every send.
func WithValidator(v Validator) CallerOption {
	return func(c *Caller) {
		c.validator = v
	}
}

// WithIDGenerator replaces the default UUIDv7 correlation id generator.
func WithIDGenerator(g IDGenerator) CallerOption {
	return func(c *Caller) {
		c.ids = g
	}
}

// WithRequiredIDs makes a missing caller-supplied id an InvalidParameter
// error instead of generating one.
func WithRequiredIDs(required bool) CallerOption {
	return func(c *Caller) {
		c.requireID = required
	}
}

// WithLogger sets the logger used for per-request debug output.
func WithLogger(l *slog.Logger) CallerOption {
	return func(c *Caller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCaller creates a Caller over t.
func NewCaller(t Transport, opts ...CallerOption) *Caller {
	c := &Caller{
		transport: t,
		ids:       UUIDv7Generator{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Logger returns the caller's logger.
func (c *Caller) Logger() *slog.Logger {
	return c.logger
}

// ResolveID returns id, or a generated id when id is empty.
// In required-id mode an empty id is an InvalidParameter error.
func (c *Caller) ResolveID(method Method, id string) (string, error) {
	if id != "" {
		return id, nil
	}
	if c.requireID || c.ids == nil {
		return "", InvalidParameter(method, "", "correlation id is required")
	}
	return c.ids.Generate(), nil
}

// Call validates params, sends the request and checks the response envelope.
//
// A protocol error in the response is returned as data with a nil error.
func (c *Caller) Call(ctx context.Context, method Method, id string, params Params) (*Response, error) {
	id, err := c.ResolveID(method, id)
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = Params{}
	}

	if c.validator != nil {
		if err := c.validator.Validate(id, method, map[string]any(params)); err != nil {
			var e *Error
			if errors.As(err, &e) {
				return nil, err
			}
			return nil, SchemaViolation(method, id, err.Error(), nil)
		}
	}

	req := NewRequest(method, id, params)
	c.logger.Debug("rpc request", "method", method, "id", id, "params", params.Keys())

	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			return nil, err
		}
		return nil, TransportFailure(method, id, "send failed", err)
	}
	if resp == nil {
		return nil, TransportFailure(method, id, "transport returned no response", nil)
	}
	if string(resp.ID) != id {
		return nil, TransportFailure(method, id,
			fmt.Sprintf("response id %q does not match request id", resp.ID), nil)
	}
	if err := resp.checkShape(); err != nil {
		return nil, TransportFailure(method, id, "malformed response envelope", err)
	}

	if resp.Error != nil {
		c.logger.Debug("rpc response", "method", method, "id", id, "error_code", resp.Error.Code)
	} else {
		c.logger.Debug("rpc response", "method", method, "id", id, "result_bytes", len(resp.Result))
	}
	return resp, nil
}
