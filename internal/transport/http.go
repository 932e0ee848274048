package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/roach88/tcf/internal/jrpc"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 16 << 20

// HTTP is a jrpc.Transport that POSTs envelopes to one URI.
//
// It never retries. Connection errors, non-2xx statuses and undecodable
// bodies are reported as TransportFailure.
//
// Thread-safety: HTTP is safe for concurrent use.
type HTTP struct {
	uri     string
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// HTTPOption configures an HTTP transport.
type HTTPOption func(*HTTP)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTP) {
		if c != nil {
			t.client = c
		}
	}
}

// WithTimeout sets the per-request timeout of the underlying client.
func WithTimeout(d time.Duration) HTTPOption {
	return func(t *HTTP) {
		clone := *t.client
		clone.Timeout = d
		t.client = &clone
	}
}

// WithRateLimit caps outbound requests at rps with the given burst.
// Send waits for a token, honoring ctx. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) HTTPOption {
	return func(t *HTTP) {
		if rps <= 0 {
			t.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPLogger sets the logger for per-request debug output.
func WithHTTPLogger(l *slog.Logger) HTTPOption {
	return func(t *HTTP) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewHTTP creates a transport posting to uri.
func NewHTTP(uri string, opts ...HTTPOption) *HTTP {
	t := &HTTP{
		uri:    uri,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// URI returns the endpoint this transport posts to.
func (t *HTTP) URI() string {
	return t.uri
}

// Send implements jrpc.Transport.
func (t *HTTP) Send(ctx context.Context, req jrpc.Request) (*jrpc.Response, error) {
	id := string(req.ID)

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, jrpc.TransportFailure(req.Method, id, "rate limit wait", err)
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, jrpc.TransportFailure(req.Method, id, "encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.uri, bytes.NewReader(body))
	if err != nil {
		return nil, jrpc.TransportFailure(req.Method, id, "build http request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, jrpc.TransportFailure(req.Method, id, "http request failed", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, jrpc.TransportFailure(req.Method, id, "read response body", err)
	}
	t.logger.Debug("http exchange",
		"uri", t.uri,
		"method", req.Method,
		"status", httpResp.StatusCode,
		"bytes", len(data),
		"elapsed", time.Since(start),
	)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, jrpc.TransportFailure(req.Method, id,
			fmt.Sprintf("http status %d", httpResp.StatusCode), nil)
	}

	var resp jrpc.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, jrpc.TransportFailure(req.Method, id, "decode response envelope", err)
	}
	return &resp, nil
}
