package engine

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// NameGenerator produces virtual-table module names. Module names are
// global to the driver, so every engine needs a fresh one.
type NameGenerator interface {
	Generate() string
}

// UUIDv7Generator generates names of the form coltab_<uuid-v7 hex>.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new module name. Panics if UUID generation fails.
func (UUIDv7Generator) Generate() string {
	return "coltab_" + strings.ReplaceAll(uuid.Must(uuid.NewV7()).String(), "-", "")
}

// FixedGenerator returns predetermined names for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu    sync.Mutex
	names []string
	idx   int
}

// NewFixedGenerator creates a generator that returns names in order.
func NewFixedGenerator(names ...string) *FixedGenerator {
	return &FixedGenerator{names: names}
}

// Generate returns the next predetermined name.
//
// Panics if all names have been consumed, to catch a test opening more
// engines than it planned.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.names) {
		panic("FixedGenerator: all names exhausted")
	}
	name := g.names[g.idx]
	g.idx++
	return name
}
