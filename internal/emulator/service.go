// Package emulator is a local JSON-RPC listener for work orders, receipts
// and the worker registry, backed by internal/store.
//
// It is used by tests and for development against a stateful server.
// Work orders stay PENDING for a configurable number of result queries;
// lookups paginate through server-side cursors.
package emulator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/tcf/internal/jrpc"
	"github.com/roach88/tcf/internal/schema"
	"github.com/roach88/tcf/internal/store"
)

const (
	// DefaultPageSize is the number of ids returned per lookup page.
	DefaultPageSize = 10

	// DefaultPendingPolls is how many result queries report PENDING before a
	// work order completes on its own.
	DefaultPendingPolls = 1

	maxRequestBytes = 16 << 20
)

type handlerFunc func(ctx context.Context, params json.RawMessage) (any, *jrpc.RPCError)

// Service answers JSON-RPC requests from a store.
//
// Thread-safety: Service is safe for concurrent use; the store serializes
// writes.
type Service struct {
	store        *store.Store
	validator    *schema.Validator
	pageSize     int
	pendingPolls int
	logger       *slog.Logger
	requests     *prometheus.CounterVec
	handlers     map[jrpc.Method]handlerFunc
}

// Option configures a Service.
type Option func(*Service)

// WithPageSize sets the lookup page size.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithPendingPolls sets how many result queries report PENDING before a
// work order completes. Zero completes on the first query.
func WithPendingPolls(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.pendingPolls = n
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRegisterer registers the service metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Service) {
		if reg != nil {
			reg.MustRegister(s.requests)
		}
	}
}

// New creates a Service over st.
func New(st *store.Store, opts ...Option) *Service {
	s := &Service{
		store:        st,
		validator:    schema.MustNew(),
		pageSize:     DefaultPageSize,
		pendingPolls: DefaultPendingPolls,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tcf",
				Subsystem: "emulator",
				Name:      "requests_total",
				Help:      "JSON-RPC requests handled, by method and outcome.",
			},
			[]string{"method", "outcome"},
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handlers = map[jrpc.Method]handlerFunc{
		jrpc.MethodWorkOrderSubmit:       s.submit,
		jrpc.MethodWorkOrderGetResult:    s.getResult,
		jrpc.MethodEncryptionKeyGet:      s.keyGet,
		jrpc.MethodEncryptionKeySet:      s.keySet,
		jrpc.MethodReceiptCreate:         s.receiptCreate,
		jrpc.MethodReceiptUpdate:         s.receiptUpdate,
		jrpc.MethodReceiptRetrieve:       s.receiptRetrieve,
		jrpc.MethodReceiptUpdateRetrieve: s.receiptUpdateRetrieve,
		jrpc.MethodReceiptLookUp:         s.receiptLookUp,
		jrpc.MethodReceiptLookUpNext:     s.receiptLookUpNext,
		jrpc.MethodWorkerRegister:        s.workerRegister,
		jrpc.MethodWorkerUpdate:          s.workerUpdate,
		jrpc.MethodWorkerSetStatus:       s.workerSetStatus,
		jrpc.MethodWorkerRetrieve:        s.workerRetrieve,
		jrpc.MethodWorkerLookUp:          s.workerLookUp,
		jrpc.MethodWorkerLookUpNext:      s.workerLookUpNext,
	}
	return s
}

// Requests exposes the request counter for inspection.
func (s *Service) Requests() *prometheus.CounterVec {
	return s.requests
}

// Handle answers one request. It never fails; errors become error envelopes.
func (s *Service) Handle(ctx context.Context, req jrpc.Request) jrpc.Response {
	resp := jrpc.Response{JSONRPC: jrpc.Version, ID: req.ID}

	result, rpcErr := s.dispatch(ctx, req)
	if rpcErr == nil {
		raw, err := json.Marshal(result)
		if err != nil {
			rpcErr = &jrpc.RPCError{Code: jrpc.CodeInternalError, Message: fmt.Sprintf("encode result: %v", err)}
		} else {
			resp.Result = raw
		}
	}
	resp.Error = rpcErr

	outcome := "result"
	switch {
	case resp.IsPending():
		outcome = "pending"
	case rpcErr != nil:
		outcome = "error"
	}
	s.requests.WithLabelValues(string(req.Method), outcome).Inc()
	s.logger.Debug("handled request", "method", req.Method, "id", req.ID, "outcome", outcome)
	return resp
}

func (s *Service) dispatch(ctx context.Context, req jrpc.Request) (any, *jrpc.RPCError) {
	if req.JSONRPC != jrpc.Version {
		return nil, &jrpc.RPCError{Code: jrpc.CodeInvalidRequest, Message: "jsonrpc must be \"2.0\""}
	}
	h, ok := s.handlers[req.Method]
	if !ok {
		return nil, &jrpc.RPCError{Code: jrpc.CodeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)}
	}

	params := req.Params
	if params == nil {
		params = jrpc.Params{}
	}
	if errs := s.validator.Check(req.Method, map[string]any(params)); len(errs) > 0 {
		data, _ := json.Marshal(errs)
		return nil, &jrpc.RPCError{Code: jrpc.CodeInvalidParameter, Message: errs[0].Error(), Data: data}
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, &jrpc.RPCError{Code: jrpc.CodeInvalidParameter, Message: err.Error()}
	}
	return h(ctx, raw)
}

// Transport returns an in-process jrpc.Transport. Requests and responses
// are encoded to JSON and back, as they would be on the wire.
func (s *Service) Transport() jrpc.Transport {
	return jrpc.TransportFunc(func(ctx context.Context, req jrpc.Request) (*jrpc.Response, error) {
		data, err := json.Marshal(req)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		out, err := json.Marshal(s.handleBytes(ctx, data))
		if err != nil {
			return nil, fmt.Errorf("encode response: %w", err)
		}
		var resp jrpc.Response
		if err := json.Unmarshal(out, &resp); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return &resp, nil
	})
}

// ServeHTTP accepts POSTed envelopes.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.handleBytes(r.Context(), data)); err != nil {
		s.logger.Warn("write response", "error", err)
	}
}

func (s *Service) handleBytes(ctx context.Context, data []byte) jrpc.Response {
	var req jrpc.Request
	if err := json.Unmarshal(data, &req); err != nil {
		s.requests.WithLabelValues("", "error").Inc()
		return jrpc.Response{
			JSONRPC: jrpc.Version,
			Error:   &jrpc.RPCError{Code: jrpc.CodeParseError, Message: fmt.Sprintf("parse error: %v", err)},
		}
	}
	return s.Handle(ctx, req)
}

// storeError maps store failures onto protocol errors.
func storeError(err error) *jrpc.RPCError {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrExists):
		return &jrpc.RPCError{Code: int(jrpc.StatusInvalidParameterOrValue), Message: err.Error()}
	default:
		return &jrpc.RPCError{Code: jrpc.CodeInternalError, Message: err.Error()}
	}
}

func decodeParams(raw json.RawMessage, v any) *jrpc.RPCError {
	if err := json.Unmarshal(raw, v); err != nil {
		return &jrpc.RPCError{Code: jrpc.CodeInvalidParameter, Message: fmt.Sprintf("decode params: %v", err)}
	}
	return nil
}
