// Package registry is the client for the worker registry.
package registry

import (
	"context"

	"github.com/roach88/tcf/internal/jrpc"
)

// Client issues worker registry requests through a jrpc.Caller.
type Client struct {
	caller *jrpc.Caller
}

// New creates a Client.
func New(caller *jrpc.Caller) *Client {
	return &Client{caller: caller}
}

// RegisterRequest describes a new worker.
// Details is a string or a JSON object; nil is sent as "".
type RegisterRequest struct {
	WorkerID           string
	Type               WorkerType
	OrganizationID     string
	ApplicationTypeIDs []string
	Details            any
}

// Filter selects workers. Type is required; the rest are omitted when empty.
type Filter struct {
	Type               WorkerType
	OrganizationID     string
	ApplicationTypeIDs []string
}

// Params returns the wire form of the filter.
func (f Filter) Params() jrpc.Params {
	return jrpc.Params{}.
		Set("workerType", int(f.Type)).
		SetString("organizationId", f.OrganizationID).
		SetStrings("applicationTypeId", f.ApplicationTypeIDs)
}

// Register adds a worker to the registry.
func (c *Client) Register(ctx context.Context, req RegisterRequest, id string) (*jrpc.Response, error) {
	if req.WorkerID == "" {
		return nil, missing(jrpc.MethodWorkerRegister, id, "workerId")
	}
	params := jrpc.Params{}.
		Set("workerId", req.WorkerID).
		Set("workerType", int(req.Type)).
		SetString("organizationId", req.OrganizationID).
		SetStrings("applicationTypeId", req.ApplicationTypeIDs).
		Set("details", orEmpty(req.Details))
	return c.caller.Call(ctx, jrpc.MethodWorkerRegister, id, params)
}

// Update replaces a worker's details.
func (c *Client) Update(ctx context.Context, workerID string, details any, id string) (*jrpc.Response, error) {
	if workerID == "" {
		return nil, missing(jrpc.MethodWorkerUpdate, id, "workerId")
	}
	params := jrpc.Params{}.
		Set("workerId", workerID).
		Set("details", orEmpty(details))
	return c.caller.Call(ctx, jrpc.MethodWorkerUpdate, id, params)
}

// SetStatus changes a worker's status.
func (c *Client) SetStatus(ctx context.Context, workerID string, status WorkerStatus, id string) (*jrpc.Response, error) {
	if workerID == "" {
		return nil, missing(jrpc.MethodWorkerSetStatus, id, "workerId")
	}
	params := jrpc.Params{}.
		Set("workerId", workerID).
		Set("status", int(status))
	return c.caller.Call(ctx, jrpc.MethodWorkerSetStatus, id, params)
}

// Retrieve fetches a worker.
func (c *Client) Retrieve(ctx context.Context, workerID, id string) (*jrpc.Response, error) {
	if workerID == "" {
		return nil, missing(jrpc.MethodWorkerRetrieve, id, "workerId")
	}
	return c.caller.Call(ctx, jrpc.MethodWorkerRetrieve, id, jrpc.Params{}.Set("workerId", workerID))
}

// Lookup returns the first page of workers matching f.
func (c *Client) Lookup(ctx context.Context, f Filter, id string) (*jrpc.Response, error) {
	if f.Type == 0 {
		return nil, missing(jrpc.MethodWorkerLookUp, id, "workerType")
	}
	return c.caller.Call(ctx, jrpc.MethodWorkerLookUp, id, f.Params())
}

// LookupNext continues a worker lookup from lookupTag.
func (c *Client) LookupNext(ctx context.Context, lookupTag string, f Filter, id string) (*jrpc.Response, error) {
	switch {
	case lookupTag == "":
		return nil, missing(jrpc.MethodWorkerLookUpNext, id, "lookUpTag")
	case f.Type == 0:
		return nil, missing(jrpc.MethodWorkerLookUpNext, id, "workerType")
	}
	return c.caller.Call(ctx, jrpc.MethodWorkerLookUpNext, id, f.Params().Set("lookUpTag", lookupTag))
}

func missing(method jrpc.Method, id, field string) *jrpc.Error {
	return jrpc.InvalidParameter(method, id, field+" is required")
}

func orEmpty(v any) any {
	if v == nil {
		return ""
	}
	return v
}
