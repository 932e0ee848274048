package registry

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/tcf/internal/jrpc"
)

// WorkerType is the kind of trusted execution a worker offers.
type WorkerType int

const (
	TypeTEESGX WorkerType = 1 + iota
	TypeMPC
	TypeZK
)

// WorkerStatus is a worker's registry status.
type WorkerStatus int

const (
	StatusActive WorkerStatus = 1 + iota
	StatusOffline
	StatusDecommissioned
	StatusCompromised
)

var typeNames = []string{"TEE_SGX", "MPC", "ZK"}

var statusNames = []string{"ACTIVE", "OFF_LINE", "DECOMMISSIONED", "COMPROMISED"}

func (t WorkerType) String() string {
	if t >= TypeTEESGX && t <= TypeZK {
		return typeNames[t-1]
	}
	return fmt.Sprintf("WorkerType(%d)", int(t))
}

func (s WorkerStatus) String() string {
	if s >= StatusActive && s <= StatusCompromised {
		return statusNames[s-1]
	}
	return fmt.Sprintf("WorkerStatus(%d)", int(s))
}

// ParseWorkerType accepts a type name, case-insensitively.
func ParseWorkerType(s string) (WorkerType, error) {
	for i, name := range typeNames {
		if strings.EqualFold(name, s) {
			return WorkerType(i + 1), nil
		}
	}
	return 0, fmt.Errorf("unknown worker type %q", s)
}

// ParseWorkerStatus accepts a status name, case-insensitively.
func ParseWorkerStatus(s string) (WorkerStatus, error) {
	for i, name := range statusNames {
		if strings.EqualFold(name, s) {
			return WorkerStatus(i + 1), nil
		}
	}
	return 0, fmt.Errorf("unknown worker status %q", s)
}

// Worker is a registry entry.
type Worker struct {
	WorkerID           string          `json:"workerId"`
	WorkerType         WorkerType      `json:"workerType"`
	OrganizationID     string          `json:"organizationId"`
	ApplicationTypeIDs []string        `json:"applicationTypeId"`
	Details            json.RawMessage `json:"details"`
	Status             WorkerStatus    `json:"status"`
}

// LookupResult is one page of a worker lookup.
type LookupResult struct {
	TotalCount int      `json:"totalCount"`
	LookupTag  string   `json:"lookupTag"`
	IDs        []string `json:"ids"`
}

// DecodeWorker decodes the result of a retrieve call.
func DecodeWorker(resp *jrpc.Response) (*Worker, error) {
	var w Worker
	if err := resp.DecodeResult(&w); err != nil {
		return nil, fmt.Errorf("worker: %w", err)
	}
	return &w, nil
}

// DecodeLookup decodes one lookup page.
func DecodeLookup(resp *jrpc.Response) (*LookupResult, error) {
	var l LookupResult
	if err := resp.DecodeResult(&l); err != nil {
		return nil, fmt.Errorf("worker lookup: %w", err)
	}
	return &l, nil
}
