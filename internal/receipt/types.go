package receipt

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/tcf/internal/jrpc"
)

// LatestUpdateIndex asks UpdateRetrieve for the most recent update.
const LatestUpdateIndex uint32 = 0xFFFFFFFF

// Status is the lifecycle state recorded on a receipt.
type Status int

const (
	StatusPending Status = iota
	StatusCompleted
	StatusProcessed
	StatusFailed
	StatusRejected
)

var statusNames = map[Status]string{
	StatusPending:   "PENDING",
	StatusCompleted: "COMPLETED",
	StatusProcessed: "PROCESSED",
	StatusFailed:    "FAILED",
	StatusRejected:  "REJECTED",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ParseStatus accepts a status name (case-sensitive) or its number.
func ParseStatus(s string) (Status, error) {
	for st, name := range statusNames {
		if name == s {
			return st, nil
		}
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err == nil {
		if _, ok := statusNames[Status(n)]; ok {
			return Status(n), nil
		}
	}
	return 0, fmt.Errorf("unknown receipt status %q", s)
}

// Receipt is the stored audit record of a work order.
type Receipt struct {
	WorkOrderID             string `json:"workOrderId"`
	WorkerServiceID         string `json:"workerServiceId"`
	WorkerID                string `json:"workerId"`
	RequesterID             string `json:"requesterId"`
	ReceiptCreateStatus     Status `json:"receiptCreateStatus"`
	WorkOrderRequestHash    string `json:"workOrderRequestHash"`
	RequesterGeneratedNonce string `json:"requesterGeneratedNonce"`
	RequesterSignature      string `json:"requesterSignature"`
	SignatureRules          string `json:"signatureRules"`
	ReceiptVerificationKey  string `json:"receiptVerificationKey"`
}

// Update is one appended receipt update.
type Update struct {
	WorkOrderID     string          `json:"workOrderId"`
	UpdaterID       string          `json:"updaterId"`
	UpdateIndex     uint32          `json:"updateIndex"`
	UpdateType      int             `json:"updateType"`
	UpdateData      json.RawMessage `json:"updateData"`
	UpdateSignature string          `json:"updateSignature"`
	SignatureRules  string          `json:"signatureRules"`
}

// LookupResult is one page of a receipt lookup.
type LookupResult struct {
	TotalCount int      `json:"totalCount"`
	LookupTag  string   `json:"lookupTag"`
	IDs        []string `json:"ids"`
}

// DecodeReceipt decodes the result of a retrieve or create call.
func DecodeReceipt(resp *jrpc.Response) (*Receipt, error) {
	var r Receipt
	if err := resp.DecodeResult(&r); err != nil {
		return nil, fmt.Errorf("receipt: %w", err)
	}
	return &r, nil
}

// DecodeUpdate decodes the result of an update-retrieve call.
func DecodeUpdate(resp *jrpc.Response) (*Update, error) {
	var u Update
	if err := resp.DecodeResult(&u); err != nil {
		return nil, fmt.Errorf("receipt update: %w", err)
	}
	return &u, nil
}

// DecodeLookup decodes one lookup page.
func DecodeLookup(resp *jrpc.Response) (*LookupResult, error) {
	var l LookupResult
	if err := resp.DecodeResult(&l); err != nil {
		return nil, fmt.Errorf("receipt lookup: %w", err)
	}
	return &l, nil
}
