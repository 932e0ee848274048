// Package jrpc provides the JSON-RPC 2.0 plumbing shared by the tcf clients.
//
// The package owns the wire envelopes, the method and status vocabularies,
// the correlation id generators, the params builder and the error taxonomy.
// It also defines the two external collaborators every client depends on:
//
//   - Transport: delivers a request envelope and returns the parsed response.
//   - Validator: checks outbound params against the protocol schema.
//
// Caller ties them together. Every outbound call goes through Caller.Call,
// which resolves the correlation id, validates params, dispatches through the
// Transport and verifies the response echoes the request id.
//
// Protocol-level errors (an "error" member in a successfully received
// envelope) are data, not Go errors. Only local validation failures and
// transport failures are returned as errors.
package jrpc
