// Package receipt is the client for work order receipts: creation, ordered
// updates, retrieval and cursor-paginated lookup.
package receipt

import (
	"context"

	"github.com/roach88/tcf/internal/jrpc"
)

// Client issues receipt requests through a jrpc.Caller.
//
// Thread-safety: Client is stateless and safe for concurrent use.
type Client struct {
	caller *jrpc.Caller
}

// New creates a Client.
func New(caller *jrpc.Caller) *Client {
	return &Client{caller: caller}
}

// CreateRequest carries the fields of a new receipt. All of them are sent.
type CreateRequest struct {
	WorkOrderID             string
	WorkerServiceID         string
	WorkerID                string
	RequesterID             string
	Status                  Status
	WorkOrderRequestHash    string
	RequesterGeneratedNonce string
	RequesterSignature      string
	SignatureRules          string
	ReceiptVerificationKey  string
}

// UpdateRequest carries one receipt update.
// UpdateData is a string or a JSON object; nil is sent as "".
type UpdateRequest struct {
	WorkOrderID     string
	UpdaterID       string
	UpdateType      int
	UpdateData      any
	UpdateSignature string
	SignatureRules  string
}

// Create records a receipt for a work order.
func (c *Client) Create(ctx context.Context, req CreateRequest, id string) (*jrpc.Response, error) {
	if req.WorkOrderID == "" {
		return nil, missing(jrpc.MethodReceiptCreate, id, "workOrderId")
	}
	params := jrpc.Params{}.
		Set("workOrderId", req.WorkOrderID).
		Set("workerServiceId", req.WorkerServiceID).
		Set("workerId", req.WorkerID).
		Set("requesterId", req.RequesterID).
		Set("receiptCreateStatus", int(req.Status)).
		Set("workOrderRequestHash", req.WorkOrderRequestHash).
		Set("requesterGeneratedNonce", req.RequesterGeneratedNonce).
		Set("requesterSignature", req.RequesterSignature).
		Set("signatureRules", req.SignatureRules).
		Set("receiptVerificationKey", req.ReceiptVerificationKey)
	return c.caller.Call(ctx, jrpc.MethodReceiptCreate, id, params)
}

// Update appends an update to a receipt. The server assigns its index.
func (c *Client) Update(ctx context.Context, req UpdateRequest, id string) (*jrpc.Response, error) {
	switch {
	case req.WorkOrderID == "":
		return nil, missing(jrpc.MethodReceiptUpdate, id, "workOrderId")
	case req.UpdaterID == "":
		return nil, missing(jrpc.MethodReceiptUpdate, id, "updaterId")
	}
	data := req.UpdateData
	if data == nil {
		data = ""
	}
	params := jrpc.Params{}.
		Set("workOrderId", req.WorkOrderID).
		Set("updaterId", req.UpdaterID).
		Set("updateType", req.UpdateType).
		Set("updateData", data).
		Set("updateSignature", req.UpdateSignature).
		Set("signatureRules", req.SignatureRules)
	return c.caller.Call(ctx, jrpc.MethodReceiptUpdate, id, params)
}

// Retrieve fetches the receipt of a work order.
func (c *Client) Retrieve(ctx context.Context, workOrderID, id string) (*jrpc.Response, error) {
	if workOrderID == "" {
		return nil, missing(jrpc.MethodReceiptRetrieve, id, "workOrderId")
	}
	params := jrpc.Params{}.Set("workOrderId", workOrderID)
	return c.caller.Call(ctx, jrpc.MethodReceiptRetrieve, id, params)
}

// UpdateRetrieve fetches the update at index made by updaterID.
// Pass LatestUpdateIndex for the most recent one. The index is not checked
// against the number of updates.
func (c *Client) UpdateRetrieve(ctx context.Context, workOrderID, updaterID string, index uint32, id string) (*jrpc.Response, error) {
	switch {
	case workOrderID == "":
		return nil, missing(jrpc.MethodReceiptUpdateRetrieve, id, "workOrderId")
	case updaterID == "":
		return nil, missing(jrpc.MethodReceiptUpdateRetrieve, id, "updaterId")
	}
	params := jrpc.Params{}.
		Set("workOrderId", workOrderID).
		Set("updaterId", updaterID).
		Set("updateIndex", index)
	return c.caller.Call(ctx, jrpc.MethodReceiptUpdateRetrieve, id, params)
}

// Lookup returns the first page of receipts matching every set filter field.
func (c *Client) Lookup(ctx context.Context, f Filter, id string) (*jrpc.Response, error) {
	return c.caller.Call(ctx, jrpc.MethodReceiptLookUp, id, f.Params())
}

// LookupNext continues a lookup from lastLookupTag. The filter is sent as
// given; it is not checked against the one that produced the tag.
func (c *Client) LookupNext(ctx context.Context, lastLookupTag string, f Filter, id string) (*jrpc.Response, error) {
	if lastLookupTag == "" {
		return nil, missing(jrpc.MethodReceiptLookUpNext, id, "lastLookUpTag")
	}
	params := f.Params().Set("lastLookUpTag", lastLookupTag)
	return c.caller.Call(ctx, jrpc.MethodReceiptLookUpNext, id, params)
}

func missing(method jrpc.Method, id, field string) *jrpc.Error {
	return jrpc.InvalidParameter(method, id, field+" is required")
}
