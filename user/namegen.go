package user

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/dustinkirkland/golang-petname"
)

// Generator issues petname-style random human-readable handles for newly
// created sessions. golang-petname only exposes functions built on Go's
// package-level math/rand source, so Generator reseeds that global source
// under its own lock immediately before each call, deriving the seed from
// its own (seed, call-index) pair. This keeps each Generator's sequence a
// deterministic function of the seed it was constructed with, without
// requiring callers to serialize access to a single shared PRNG themselves.
type Generator struct {
	mu    sync.Mutex
	seed  int64
	calls int64
}

// NewGenerator seeds a Generator from seed. Callers typically pass a
// time-derived seed once at process start.
func NewGenerator(seed int64) *Generator {
	return &Generator{seed: seed}
}

// Handle returns a fresh petname-style handle, e.g. "quiet-amber-042".
func (g *Generator) Handle() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	rand.Seed(g.seed*1000003 + g.calls)
	g.calls++
	return fmt.Sprintf("%s-%03d", petname.Generate(2, "-"), rand.Intn(1000))
}
