package jrpc

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces correlation ids for requests the caller did not tag.
// Implementations must be safe for concurrent use.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 correlation ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequenceGenerator hands out increasing decimal ids starting after a base.
// Useful against servers that log numeric ids.
type SequenceGenerator struct {
	seq atomic.Int64
}

// NewSequenceGenerator returns a generator whose first id is start+1.
func NewSequenceGenerator(start int64) *SequenceGenerator {
	g := &SequenceGenerator{}
	g.seq.Store(start)
	return g
}

// Generate returns the next id. Calls are linearizable.
func (g *SequenceGenerator) Generate() string {
	return strconv.FormatInt(g.seq.Add(1), 10)
}

// FixedGenerator returns predetermined ids for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
// Panics if all ids have been consumed, to surface test misconfiguration.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
