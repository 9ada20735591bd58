// Package rng wraps the uniform-draw contract the simulator needs behind an
// explicit capability, instead of calling a package-level generator
// ambiently. Determinism under a fixed seed is required by the simulator's
// testable properties, so every caller threads a Source through
// construction rather than reaching for math/rand's global functions.
package rng

import "math/rand/v2"

// Source draws a uniform integer in [0, n). Callers must never pass n <= 0.
type Source interface {
	IntN(n int) int
}

// Default is the production Source, backed by math/rand/v2's PCG generator
// (the same generator the sibling gossip daemon's standalone binary uses
// for peer selection).
type Default struct {
	r *rand.Rand
}

// New seeds a Default deterministically. Callers that want the historical
// "seed from wall clock" behavior do so at the call site (in the entry
// point, which owns seed selection per the module's external-interfaces
// contract) by passing a time-derived seed.
func New(seed1, seed2 uint64) *Default {
	return &Default{r: rand.New(rand.NewPCG(seed1, seed2))}
}

func (d *Default) IntN(n int) int {
	return d.r.IntN(n)
}
