package testutil

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tcf/internal/jrpc"
)

// AssertGoldenRequest compares the canonical encoding of req against the
// golden file testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./... -update
func AssertGoldenRequest(t *testing.T, name string, req jrpc.Request) {
	t.Helper()

	data, err := req.Canonical()
	if err != nil {
		t.Fatalf("canonical encoding of %s: %v", name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
