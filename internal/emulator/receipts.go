package emulator

import (
	"context"
	"encoding/json"

	"github.com/roach88/tcf/internal/jrpc"
	"github.com/roach88/tcf/internal/store"
)

type receiptJSON struct {
	WorkOrderID             string `json:"workOrderId"`
	WorkerServiceID         string `json:"workerServiceId"`
	WorkerID                string `json:"workerId"`
	RequesterID             string `json:"requesterId"`
	ReceiptCreateStatus     int    `json:"receiptCreateStatus"`
	WorkOrderRequestHash    string `json:"workOrderRequestHash"`
	RequesterGeneratedNonce string `json:"requesterGeneratedNonce"`
	RequesterSignature      string `json:"requesterSignature"`
	SignatureRules          string `json:"signatureRules"`
	ReceiptVerificationKey  string `json:"receiptVerificationKey"`
}

type updateJSON struct {
	WorkOrderID     string          `json:"workOrderId"`
	UpdaterID       string          `json:"updaterId"`
	UpdateIndex     int64           `json:"updateIndex"`
	UpdateType      int             `json:"updateType"`
	UpdateData      json.RawMessage `json:"updateData"`
	UpdateSignature string          `json:"updateSignature"`
	SignatureRules  string          `json:"signatureRules"`
}

func (s *Service) receiptCreate(ctx context.Context, raw json.RawMessage) (any, *jrpc.RPCError) {
	var p receiptJSON
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	r := store.Receipt{
		WorkOrderID:             p.WorkOrderID,
		WorkerServiceID:         p.WorkerServiceID,
		WorkerID:                p.WorkerID,
		RequesterID:             p.RequesterID,
		CreateStatus:            p.ReceiptCreateStatus,
		WorkOrderRequestHash:    p.WorkOrderRequestHash,
		RequesterGeneratedNonce: p.RequesterGeneratedNonce,
		RequesterSignature:      p.RequesterSignature,
		SignatureRules:          p.SignatureRules,
		ReceiptVerificationKey:  p.ReceiptVerificationKey,
	}
	if err := s.store.PutReceipt(ctx, r); err != nil {
		return nil, storeError(err)
	}
	return p, nil
}

func (s *Service) receiptUpdate(ctx context.Context, raw json.RawMessage) (any, *jrpc.RPCError) {
	var p updateJSON
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	index, err := s.store.AppendUpdate(ctx, store.Update{
		WorkOrderID:     p.WorkOrderID,
		UpdaterID:       p.UpdaterID,
		Type:            p.UpdateType,
		Data:            string(p.UpdateData),
		UpdateSignature: p.UpdateSignature,
		SignatureRules:  p.SignatureRules,
	})
	if err != nil {
		return nil, storeError(err)
	}
	return map[string]any{
		"workOrderId": p.WorkOrderID,
		"updaterId":   p.UpdaterID,
		"updateIndex": index,
	}, nil
}

func (s *Service) receiptRetrieve(ctx context.Context, raw json.RawMessage) (any, *jrpc.RPCError) {
	var p workOrderIDParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	r, err := s.store.GetReceipt(ctx, p.WorkOrderID)
	if err != nil {
		return nil, storeError(err)
	}
	return receiptJSON{
		WorkOrderID:             r.WorkOrderID,
		WorkerServiceID:         r.WorkerServiceID,
		WorkerID:                r.WorkerID,
		RequesterID:             r.RequesterID,
		ReceiptCreateStatus:     r.CreateStatus,
		WorkOrderRequestHash:    r.WorkOrderRequestHash,
		RequesterGeneratedNonce: r.RequesterGeneratedNonce,
		RequesterSignature:      r.RequesterSignature,
		SignatureRules:          r.SignatureRules,
		ReceiptVerificationKey:  r.ReceiptVerificationKey,
	}, nil
}

type updateRetrieveParams struct {
	WorkOrderID string `json:"workOrderId"`
	UpdaterID   string `json:"updaterId"`
	UpdateIndex int64  `json:"updateIndex"`
}

func (s *Service) receiptUpdateRetrieve(ctx context.Context, raw json.RawMessage) (any, *jrpc.RPCError) {
	var p updateRetrieveParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	u, err := s.store.GetUpdate(ctx, p.WorkOrderID, p.UpdaterID, p.UpdateIndex)
	if err != nil {
		return nil, storeError(err)
	}
	return updateJSON{
		WorkOrderID:     u.WorkOrderID,
		UpdaterID:       u.UpdaterID,
		UpdateIndex:     u.Index,
		UpdateType:      u.Type,
		UpdateData:      json.RawMessage(u.Data),
		UpdateSignature: u.UpdateSignature,
		SignatureRules:  u.SignatureRules,
	}, nil
}

type receiptFilterJSON struct {
	WorkerServiceID     string `json:"workerServiceId,omitempty"`
	WorkerID            string `json:"workerId,omitempty"`
	RequesterID         string `json:"requesterId,omitempty"`
	RequestCreateStatus *int   `json:"requestCreateStatus,omitempty"`
}

func (f receiptFilterJSON) toStore() store.ReceiptFilter {
	return store.ReceiptFilter{
		WorkerServiceID: f.WorkerServiceID,
		WorkerID:        f.WorkerID,
		RequesterID:     f.RequesterID,
		Status:          f.RequestCreateStatus,
	}
}

func (s *Service) receiptLookUp(ctx context.Context, raw json.RawMessage) (any, *jrpc.RPCError) {
	var f receiptFilterJSON
	if err := decodeParams(raw, &f); err != nil {
		return nil, err
	}
	return s.lookupPage(ctx, kindReceipt, f, 0)
}

func (s *Service) receiptLookUpNext(ctx context.Context, raw json.RawMessage) (any, *jrpc.RPCError) {
	var p struct {
		LastLookUpTag string `json:"lastLookUpTag"`
	}
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return s.resumeLookup(ctx, kindReceipt, p.LastLookUpTag)
}
