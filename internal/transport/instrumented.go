package transport

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/tcf/internal/jrpc"
)

// Outcome labels recorded per request.
const (
	OutcomeResult           = "result"
	OutcomePending          = "pending"
	OutcomeError            = "error"
	OutcomeTransportFailure = "transport_failure"
)

// Metrics holds the client-side request collectors.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tcf",
				Subsystem: "client",
				Name:      "requests_total",
				Help:      "JSON-RPC requests sent, by method and outcome.",
			},
			[]string{"method", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "tcf",
				Subsystem: "client",
				Name:      "request_duration_seconds",
				Help:      "JSON-RPC round trip duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration)
	}
	return m
}

// Requests exposes the request counter for inspection.
func (m *Metrics) Requests() *prometheus.CounterVec {
	return m.requests
}

// Instrumented decorates a transport with metrics.
type Instrumented struct {
	next    jrpc.Transport
	metrics *Metrics
}

// NewInstrumented wraps next.
func NewInstrumented(next jrpc.Transport, m *Metrics) *Instrumented {
	return &Instrumented{next: next, metrics: m}
}

// Send implements jrpc.Transport.
func (t *Instrumented) Send(ctx context.Context, req jrpc.Request) (*jrpc.Response, error) {
	start := time.Now()
	resp, err := t.next.Send(ctx, req)
	method := string(req.Method)

	t.metrics.duration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	t.metrics.requests.WithLabelValues(method, outcomeOf(resp, err)).Inc()
	return resp, err
}

func outcomeOf(resp *jrpc.Response, err error) string {
	switch {
	case err != nil || resp == nil:
		return OutcomeTransportFailure
	case resp.IsPending():
		return OutcomePending
	case resp.Error != nil:
		return OutcomeError
	default:
		return OutcomeResult
	}
}
