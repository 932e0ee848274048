package emulator

import (
	"context"
	"encoding/json"

	"github.com/roach88/tcf/internal/jrpc"
	"github.com/roach88/tcf/internal/store"
)

// Registered workers start ACTIVE.
const workerStatusActive = 1

type workerJSON struct {
	WorkerID           string          `json:"workerId"`
	WorkerType         int             `json:"workerType"`
	OrganizationID     string          `json:"organizationId"`
	ApplicationTypeIDs []string        `json:"applicationTypeId"`
	Details            json.RawMessage `json:"details"`
	Status             int             `json:"status"`
}

type workerFilterJSON struct {
	WorkerType         int      `json:"workerType"`
	OrganizationID     string   `json:"organizationId,omitempty"`
	ApplicationTypeIDs []string `json:"applicationTypeId,omitempty"`
}

func (f workerFilterJSON) toStore() store.WorkerFilter {
	return store.WorkerFilter{
		Type:               f.WorkerType,
		OrganizationID:     f.OrganizationID,
		ApplicationTypeIDs: f.ApplicationTypeIDs,
	}
}

func (s *Service) workerRegister(ctx context.Context, raw json.RawMessage) (any, *jrpc.RPCError) {
	var p workerJSON
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	err := s.store.PutWorker(ctx, store.Worker{
		ID:                 p.WorkerID,
		Type:               p.WorkerType,
		OrganizationID:     p.OrganizationID,
		ApplicationTypeIDs: p.ApplicationTypeIDs,
		Details:            string(p.Details),
		Status:             workerStatusActive,
	})
	if err != nil {
		return nil, storeError(err)
	}
	return map[string]any{"workerId": p.WorkerID}, nil
}

func (s *Service) workerUpdate(ctx context.Context, raw json.RawMessage) (any, *jrpc.RPCError) {
	var p workerJSON
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if err := s.store.UpdateWorkerDetails(ctx, p.WorkerID, string(p.Details)); err != nil {
		return nil, storeError(err)
	}
	return map[string]any{"workerId": p.WorkerID}, nil
}

func (s *Service) workerSetStatus(ctx context.Context, raw json.RawMessage) (any, *jrpc.RPCError) {
	var p workerJSON
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if err := s.store.SetWorkerStatus(ctx, p.WorkerID, p.Status); err != nil {
		return nil, storeError(err)
	}
	return map[string]any{"workerId": p.WorkerID, "status": p.Status}, nil
}

func (s *Service) workerRetrieve(ctx context.Context, raw json.RawMessage) (any, *jrpc.RPCError) {
	var p workerJSON
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	w, err := s.store.GetWorker(ctx, p.WorkerID)
	if err != nil {
		return nil, storeError(err)
	}
	return workerJSON{
		WorkerID:           w.ID,
		WorkerType:         w.Type,
		OrganizationID:     w.OrganizationID,
		ApplicationTypeIDs: w.ApplicationTypeIDs,
		Details:            json.RawMessage(w.Details),
		Status:             w.Status,
	}, nil
}

func (s *Service) workerLookUp(ctx context.Context, raw json.RawMessage) (any, *jrpc.RPCError) {
	var f workerFilterJSON
	if err := decodeParams(raw, &f); err != nil {
		return nil, err
	}
	return s.lookupPage(ctx, kindWorker, f, 0)
}

func (s *Service) workerLookUpNext(ctx context.Context, raw json.RawMessage) (any, *jrpc.RPCError) {
	var p struct {
		LookUpTag string `json:"lookUpTag"`
	}
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return s.resumeLookup(ctx, kindWorker, p.LookUpTag)
}
