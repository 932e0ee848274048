// Package workorder is the client for work order submission, result
// retrieval and worker encryption keys.
//
// Work order state lives on the server. Every call is a fresh snapshot
// query; the client caches nothing between calls.
package workorder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/tcf/internal/jrpc"
)

// DefaultPollInterval is the wait between result queries while a work order
// is pending.
const DefaultPollInterval = 2 * time.Second

// ErrPollExhausted is returned by GetResult when the attempt limit is reached
// while the work order is still pending.
var ErrPollExhausted = errors.New("work order still pending")

// Capability is an optional protocol operation a client may enable.
type Capability uint

const (
	// CapEncryptionKeySet enables EncryptionKeySet.
	CapEncryptionKeySet Capability = 1 << iota
)

// Capabilities is a set of enabled capabilities.
type Capabilities uint

// Has reports whether c is enabled.
func (cs Capabilities) Has(c Capability) bool {
	return uint(cs)&uint(c) != 0
}

// With returns cs with c enabled.
func (cs Capabilities) With(c Capability) Capabilities {
	return Capabilities(uint(cs) | uint(c))
}

// Sleeper waits between poll attempts.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// TimerSleeper sleeps on a real timer and wakes early when ctx is done.
type TimerSleeper struct{}

// Sleep waits for d or until ctx is done.
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Client issues work order requests through a jrpc.Caller.
//
// Thread-safety: Client is immutable after New and safe for concurrent use.
type Client struct {
	caller   *jrpc.Caller
	caps     Capabilities
	sleeper  Sleeper
	interval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithCapabilities enables optional operations.
func WithCapabilities(caps ...Capability) Option {
	return func(c *Client) {
		for _, cp := range caps {
			c.caps = c.caps.With(cp)
		}
	}
}

// WithSleeper replaces the timer-based sleeper used between polls.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		if s != nil {
			c.sleeper = s
		}
	}
}

// WithPollInterval sets the default wait between polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.interval = d
		}
	}
}

// New creates a Client. Without WithCapabilities it is the direct variant,
// in which EncryptionKeySet is unsupported.
func New(caller *jrpc.Caller, opts ...Option) *Client {
	c := &Client{
		caller:   caller,
		sleeper:  TimerSleeper{},
		interval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Capabilities returns the enabled capability set.
func (c *Client) Capabilities() Capabilities {
	return c.caps
}

// Submit sends a caller-prepared work order body as the params of
// WorkOrderSubmit. The body must be a JSON object and is sent unchanged.
// Submission is not idempotent.
func (c *Client) Submit(ctx context.Context, body []byte, id string) (*jrpc.Response, error) {
	params, err := decodeObject(body)
	if err != nil {
		return nil, jrpc.InvalidParameter(jrpc.MethodWorkOrderSubmit, id, err.Error())
	}
	return c.caller.Call(ctx, jrpc.MethodWorkOrderSubmit, id, params)
}

// GetResultNonBlocking performs one result query. A PENDING response is
// returned as-is.
func (c *Client) GetResultNonBlocking(ctx context.Context, workOrderID, id string) (*jrpc.Response, error) {
	if workOrderID == "" {
		return nil, jrpc.InvalidParameter(jrpc.MethodWorkOrderGetResult, id, "workOrderId is required")
	}
	params := jrpc.Params{}.Set("workOrderId", workOrderID)
	return c.caller.Call(ctx, jrpc.MethodWorkOrderGetResult, id, params)
}

// GetResult polls until the work order leaves PENDING.
//
// Between queries it sleeps the poll interval. Without options it polls
// until ctx is done. When ctx ends while pending, the last PENDING response
// is returned with ctx.Err(). When the attempt limit is reached it is
// returned with ErrPollExhausted. Transport failures end the poll.
func (c *Client) GetResult(ctx context.Context, workOrderID, id string, opts ...PollOption) (*jrpc.Response, error) {
	cfg := pollConfig{interval: c.interval}
	for _, opt := range opts {
		opt(&cfg)
	}

	// All queries of one poll share a correlation id.
	id, err := c.caller.ResolveID(jrpc.MethodWorkOrderGetResult, id)
	if err != nil {
		return nil, err
	}

	resp, err := c.GetResultNonBlocking(ctx, workOrderID, id)
	attempts := 1
	for err == nil && resp.IsPending() {
		if cfg.maxAttempts > 0 && attempts >= cfg.maxAttempts {
			return resp, fmt.Errorf("%w after %d attempts", ErrPollExhausted, attempts)
		}
		if serr := c.sleeper.Sleep(ctx, cfg.interval); serr != nil {
			return resp, serr
		}
		c.caller.Logger().Debug("work order pending, polling again",
			"work_order_id", workOrderID,
			"attempt", attempts+1,
		)

		last := resp
		resp, err = c.GetResultNonBlocking(ctx, workOrderID, id)
		attempts++
		if err != nil && ctx.Err() != nil {
			return last, ctx.Err()
		}
	}
	return resp, err
}

// KeyRequest identifies the worker encryption key to fetch.
type KeyRequest struct {
	WorkerID         string
	RequesterID      string
	LastUsedKeyNonce string
	Tag              string
	SignatureNonce   string
	Signature        string
}

// EncryptionKeyGet fetches a worker's encryption key. Empty optional fields
// are omitted from the request.
func (c *Client) EncryptionKeyGet(ctx context.Context, req KeyRequest, id string) (*jrpc.Response, error) {
	switch {
	case req.WorkerID == "":
		return nil, jrpc.InvalidParameter(jrpc.MethodEncryptionKeyGet, id, "workerId is required")
	case req.RequesterID == "":
		return nil, jrpc.InvalidParameter(jrpc.MethodEncryptionKeyGet, id, "requesterId is required")
	}
	params := jrpc.Params{}.
		Set("workerId", req.WorkerID).
		Set("requesterId", req.RequesterID).
		SetString("lastUsedKeyNonce", req.LastUsedKeyNonce).
		SetString("tag", req.Tag).
		SetString("signatureNonce", req.SignatureNonce).
		SetString("signature", req.Signature)
	return c.caller.Call(ctx, jrpc.MethodEncryptionKeyGet, id, params)
}

// KeySetRequest carries a new worker encryption key.
type KeySetRequest struct {
	WorkerID           string
	EncryptionKey      string
	EncryptionKeyNonce string
	Tag                string
	SignatureNonce     string
	Signature          string
}

// EncryptionKeySet installs a worker encryption key. It requires
// CapEncryptionKeySet; otherwise it fails with InvalidParameter and sends
// nothing.
func (c *Client) EncryptionKeySet(ctx context.Context, req KeySetRequest, id string) (*jrpc.Response, error) {
	if !c.caps.Has(CapEncryptionKeySet) {
		return nil, jrpc.InvalidParameter(jrpc.MethodEncryptionKeySet, id, "operation is not supported")
	}
	switch {
	case req.WorkerID == "":
		return nil, jrpc.InvalidParameter(jrpc.MethodEncryptionKeySet, id, "workerId is required")
	case req.EncryptionKey == "":
		return nil, jrpc.InvalidParameter(jrpc.MethodEncryptionKeySet, id, "encryptionKey is required")
	}
	params := jrpc.Params{}.
		Set("workerId", req.WorkerID).
		Set("encryptionKey", req.EncryptionKey).
		Set("encryptionKeyNonce", req.EncryptionKeyNonce).
		Set("tag", req.Tag).
		Set("signatureNonce", req.SignatureNonce).
		Set("signature", req.Signature)
	return c.caller.Call(ctx, jrpc.MethodEncryptionKeySet, id, params)
}

func decodeObject(body []byte) (jrpc.Params, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("work order body is not valid JSON: %v", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("work order body has trailing data")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("work order body must be a JSON object")
	}
	return jrpc.Params(obj), nil
}
