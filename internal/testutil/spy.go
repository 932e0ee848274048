package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/roach88/tcf/internal/jrpc"
)

// Reply produces the transport outcome for one request.
type Reply func(req jrpc.Request) (*jrpc.Response, error)

// SpyTransport records every request and answers from a script.
//
// Replies are consumed in order; once exhausted the last reply repeats.
// With no replies at all every request gets an empty result object.
//
// Thread-safety: SpyTransport is safe for concurrent use via internal mutex.
type SpyTransport struct {
	mu       sync.Mutex
	requests []jrpc.Request
	replies  []Reply

	// Log, when set, receives "send:<method>" per request.
	Log *EventLog
}

// NewSpyTransport creates a spy answering with replies.
func NewSpyTransport(replies ...Reply) *SpyTransport {
	return &SpyTransport{replies: replies}
}

// Send implements jrpc.Transport.
func (s *SpyTransport) Send(ctx context.Context, req jrpc.Request) (*jrpc.Response, error) {
	s.mu.Lock()
	n := len(s.requests)
	s.requests = append(s.requests, req)
	var reply Reply
	switch {
	case len(s.replies) == 0:
		reply = Result(map[string]any{})
	case n < len(s.replies):
		reply = s.replies[n]
	default:
		reply = s.replies[len(s.replies)-1]
	}
	s.mu.Unlock()

	s.Log.Add("send:" + string(req.Method))
	return reply(req)
}

// Calls returns the number of requests seen.
func (s *SpyTransport) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Requests returns a copy of the recorded requests.
func (s *SpyTransport) Requests() []jrpc.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]jrpc.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Last returns the most recent request. Panics if there is none.
func (s *SpyTransport) Last() jrpc.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

// Result replies with v marshaled as the result member.
func Result(v any) Reply {
	return func(req jrpc.Request) (*jrpc.Response, error) {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return &jrpc.Response{JSONRPC: jrpc.Version, ID: req.ID, Result: raw}, nil
	}
}

// RPCFailure replies with an error envelope.
func RPCFailure(code int, message string) Reply {
	return func(req jrpc.Request) (*jrpc.Response, error) {
		return &jrpc.Response{
			JSONRPC: jrpc.Version,
			ID:      req.ID,
			Error:   &jrpc.RPCError{Code: code, Message: message},
		}, nil
	}
}

// Pending replies with the PENDING status.
func Pending() Reply {
	return RPCFailure(int(jrpc.StatusPending), "work order is pending")
}

// Broken fails at the transport level with err.
func Broken(err error) Reply {
	return func(req jrpc.Request) (*jrpc.Response, error) {
		return nil, err
	}
}

// Repeat returns n copies of r, for building scripts.
func Repeat(n int, r Reply) []Reply {
	out := make([]Reply, n)
	for i := range out {
		out[i] = r
	}
	return out
}
