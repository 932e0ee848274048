package receipt

import "github.com/roach88/tcf/internal/jrpc"

// Filter selects receipts. Set fields are ANDed; unset fields match
// everything and are omitted from the request.
type Filter struct {
	WorkerServiceID string
	WorkerID        string
	RequesterID     string
	Status          *Status
}

// WithStatus returns a copy of f that also matches on s.
func (f Filter) WithStatus(s Status) Filter {
	f.Status = &s
	return f
}

// Params returns the wire form of the filter.
func (f Filter) Params() jrpc.Params {
	p := jrpc.Params{}.
		SetString("workerServiceId", f.WorkerServiceID).
		SetString("workerId", f.WorkerID).
		SetString("requesterId", f.RequesterID)
	if f.Status != nil {
		p.Set("requestCreateStatus", int(*f.Status))
	}
	return p
}
