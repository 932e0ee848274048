package testutil

// ConstantIDGenerator returns the same correlation id every time.
//
// Golden wire snapshots need a stable id; unlike jrpc.FixedGenerator it never
// runs out.
//
// Thread-safety: ConstantIDGenerator is stateless and safe for concurrent use.
type ConstantIDGenerator struct {
	id string
}

// NewConstantIDGenerator creates a generator for id.
// If id is empty, Generate() returns "test-id".
func NewConstantIDGenerator(id string) *ConstantIDGenerator {
	if id == "" {
		id = "test-id"
	}
	return &ConstantIDGenerator{id: id}
}

// Generate returns the constant id.
func (g *ConstantIDGenerator) Generate() string {
	return g.id
}
