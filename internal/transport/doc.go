// Package transport delivers JSON-RPC envelopes to a listener.
//
// HTTP posts each envelope to a single endpoint and decodes the reply.
// Instrumented wraps any jrpc.Transport with Prometheus counters and
// latency histograms.
package transport
