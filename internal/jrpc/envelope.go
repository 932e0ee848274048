package jrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Version is the protocol version carried by every envelope.
const Version = "2.0"

// Method names a wire operation.
type Method string

// Work order methods.
const (
	MethodWorkOrderSubmit    Method = "WorkOrderSubmit"
	MethodWorkOrderGetResult Method = "WorkOrderGetResult"
	MethodEncryptionKeyGet   Method = "EncryptionKeyGet"
	MethodEncryptionKeySet   Method = "EncryptionKeySet"
)

// Receipt methods.
const (
	MethodReceiptCreate         Method = "WorkOrderReceiptCreate"
	MethodReceiptUpdate         Method = "WorkOrderReceiptUpdate"
	MethodReceiptRetrieve       Method = "WorkOrderReceiptRetrieve"
	MethodReceiptUpdateRetrieve Method = "WorkOrderReceiptUpdateRetrieve"
	MethodReceiptLookUp         Method = "WorkOrderReceiptLookUp"
	MethodReceiptLookUpNext     Method = "WorkOrderReceiptLookUpNext"
)

// Worker registry methods.
const (
	MethodWorkerRegister   Method = "WorkerRegister"
	MethodWorkerUpdate     Method = "WorkerUpdate"
	MethodWorkerSetStatus  Method = "WorkerSetStatus"
	MethodWorkerRetrieve   Method = "WorkerRetrieve"
	MethodWorkerLookUp     Method = "WorkerLookUp"
	MethodWorkerLookUpNext Method = "WorkerLookUpNext"
)

// Methods lists every known wire method in declaration order.
var Methods = []Method{
	MethodWorkOrderSubmit,
	MethodWorkOrderGetResult,
	MethodEncryptionKeyGet,
	MethodEncryptionKeySet,
	MethodReceiptCreate,
	MethodReceiptUpdate,
	MethodReceiptRetrieve,
	MethodReceiptUpdateRetrieve,
	MethodReceiptLookUp,
	MethodReceiptLookUpNext,
	MethodWorkerRegister,
	MethodWorkerUpdate,
	MethodWorkerSetStatus,
	MethodWorkerRetrieve,
	MethodWorkerLookUp,
	MethodWorkerLookUpNext,
}

// ParseMethod returns the Method named s.
func ParseMethod(s string) (Method, error) {
	for _, m := range Methods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown method %q", s)
}

// Request is an outbound JSON-RPC envelope.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  Method `json:"method"`
	ID      ID     `json:"id"`
	Params  Params `json:"params"`
}

// NewRequest builds a request envelope with the fixed protocol version.
// A nil params is sent as an empty object.
func NewRequest(method Method, id string, params Params) Request {
	if params == nil {
		params = Params{}
	}
	return Request{
		JSONRPC: Version,
		Method:  method,
		ID:      ID(id),
		Params:  params,
	}
}

// Response is an inbound JSON-RPC envelope.
// Exactly one of Result or Error is set on a well-formed response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      ID              `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the error member of a response envelope.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) String() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// IsPending reports whether the response carries the PENDING status.
func (r *Response) IsPending() bool {
	return r != nil && r.Error != nil && r.Error.Code == int(StatusPending)
}

// IsTerminal reports whether the response settles the logical operation.
// Everything except PENDING is terminal.
func (r *Response) IsTerminal() bool {
	return !r.IsPending()
}

// HasResult reports whether the response carries a result member.
func (r *Response) HasResult() bool {
	return r != nil && len(r.Result) > 0 && !bytes.Equal(r.Result, []byte("null"))
}

// DecodeResult unmarshals the result member into v.
// It fails if the response carries an error instead.
func (r *Response) DecodeResult(v any) error {
	if r.Error != nil {
		return fmt.Errorf("response carries error %s", r.Error)
	}
	if !r.HasResult() {
		return fmt.Errorf("response has no result")
	}
	if err := json.Unmarshal(r.Result, v); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

// checkShape verifies exactly one of result/error is present.
func (r *Response) checkShape() error {
	switch {
	case r.Error != nil && r.HasResult():
		return fmt.Errorf("response carries both result and error")
	case r.Error == nil && !r.HasResult():
		return fmt.Errorf("response carries neither result nor error")
	}
	return nil
}

// ID is a correlation token. It is sent as a JSON string; numeric ids echoed
// by a server are accepted and kept in their decimal text form.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}
