package emulator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/tcf/internal/jrpc"
	"github.com/roach88/tcf/internal/store"
)

type submitParams struct {
	WorkOrderID string          `json:"workOrderId"`
	WorkerID    string          `json:"workerId"`
	WorkloadID  string          `json:"workloadId"`
	RequesterID string          `json:"requesterId"`
	OutData     json.RawMessage `json:"outData"`
}

// submit stores the body and answers PENDING, as an asynchronous listener
// does.
func (s *Service) submit(ctx context.Context, raw json.RawMessage) (any, *jrpc.RPCError) {
	var p submitParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	err := s.store.PutWorkOrder(ctx, store.WorkOrder{
		ID:          p.WorkOrderID,
		WorkerID:    p.WorkerID,
		RequesterID: p.RequesterID,
		Body:        string(raw),
	})
	if err != nil {
		return nil, storeError(err)
	}
	return nil, &jrpc.RPCError{
		Code:    int(jrpc.StatusPending),
		Message: "work order is scheduled",
	}
}

type workOrderIDParams struct {
	WorkOrderID string `json:"workOrderId"`
}

func (s *Service) getResult(ctx context.Context, raw json.RawMessage) (any, *jrpc.RPCError) {
	var p workOrderIDParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	wo, err := s.store.RecordPoll(ctx, p.WorkOrderID)
	if err != nil {
		return nil, storeError(err)
	}

	if wo.Status == store.PendingStatus {
		if wo.Polls <= s.pendingPolls {
			return nil, &jrpc.RPCError{Code: int(jrpc.StatusPending), Message: "work order is computing"}
		}
		result, err := synthesizeResult(wo)
		if err != nil {
			return nil, &jrpc.RPCError{Code: jrpc.CodeInternalError, Message: err.Error()}
		}
		if err := s.store.CompleteWorkOrder(ctx, wo.ID, int(jrpc.StatusSuccess), string(result)); err != nil {
			return nil, storeError(err)
		}
		wo.Status, wo.Result = int(jrpc.StatusSuccess), string(result)
	}

	if wo.Status != int(jrpc.StatusSuccess) {
		return nil, &jrpc.RPCError{
			Code:    wo.Status,
			Message: fmt.Sprintf("work order %s", jrpc.Status(wo.Status)),
			Data:    optionalRaw(wo.Result),
		}
	}
	return json.RawMessage(wo.Result), nil
}

// synthesizeResult builds the result of a work order that completes on its
// own: its identifiers plus the outData it was submitted with.
func synthesizeResult(wo store.WorkOrder) ([]byte, error) {
	var p submitParams
	if err := json.Unmarshal([]byte(wo.Body), &p); err != nil {
		return nil, fmt.Errorf("decode stored body: %w", err)
	}
	outData := p.OutData
	if len(outData) == 0 {
		outData = json.RawMessage("[]")
	}
	return json.Marshal(map[string]any{
		"workOrderId": p.WorkOrderID,
		"workloadId":  p.WorkloadID,
		"workerId":    p.WorkerID,
		"requesterId": p.RequesterID,
		"outData":     outData,
	})
}

// Complete settles a work order with status. A successful work order
// returns result from later queries; any other status is returned as the
// error code with result as its data.
func (s *Service) Complete(ctx context.Context, workOrderID string, status jrpc.Status, result any) error {
	if status == jrpc.StatusPending {
		return errors.New("complete: status must be terminal")
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("complete: encode result: %w", err)
	}
	return s.store.CompleteWorkOrder(ctx, workOrderID, int(status), string(data))
}

type keyGetParams struct {
	WorkerID string `json:"workerId"`
}

func (s *Service) keyGet(ctx context.Context, raw json.RawMessage) (any, *jrpc.RPCError) {
	var p keyGetParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	k, err := s.store.GetKey(ctx, p.WorkerID)
	if err != nil {
		return nil, storeError(err)
	}
	return map[string]any{
		"workerId":           k.WorkerID,
		"encryptionKey":      k.EncryptionKey,
		"encryptionKeyNonce": k.EncryptionKeyNonce,
		"tag":                k.Tag,
		"signature":          k.Signature,
	}, nil
}

type keySetParams struct {
	WorkerID           string `json:"workerId"`
	EncryptionKey      string `json:"encryptionKey"`
	EncryptionKeyNonce string `json:"encryptionKeyNonce"`
	Tag                string `json:"tag"`
	SignatureNonce     string `json:"signatureNonce"`
	Signature          string `json:"signature"`
}

func (s *Service) keySet(ctx context.Context, raw json.RawMessage) (any, *jrpc.RPCError) {
	var p keySetParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	err := s.store.PutKey(ctx, store.Key{
		WorkerID:           p.WorkerID,
		EncryptionKey:      p.EncryptionKey,
		EncryptionKeyNonce: p.EncryptionKeyNonce,
		Tag:                p.Tag,
		SignatureNonce:     p.SignatureNonce,
		Signature:          p.Signature,
	})
	if err != nil {
		return nil, storeError(err)
	}
	return map[string]any{"workerId": p.WorkerID}, nil
}

func optionalRaw(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	return json.RawMessage(s)
}
