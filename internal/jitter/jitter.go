// Package jitter draws the randomized inter-cycle delay.
package jitter

import (
	"math/rand"
	"time"
)

// Generator produces uniform i.i.d. delays from the inclusive whole-minute
// range [minMinutes, maxMinutes].
//
// It owns a single rand.Rand seeded once at construction, never per call, so
// consecutive processes do not synchronize and near-simultaneous draws do not
// correlate. A Generator is not safe for concurrent use; the scheduler loop
// is its sole caller.
type Generator struct {
	rng        *rand.Rand
	minMinutes int
	maxMinutes int
}

// New constructs a Generator seeded from the wall clock. The caller is
// responsible for minMinutes <= maxMinutes (config validation enforces it).
func New(minMinutes, maxMinutes int) *Generator {
	return NewWithSource(rand.NewSource(time.Now().UnixNano()), minMinutes, maxMinutes)
}

// NewWithSource constructs a Generator with an explicit source. Tests use a
// fixed seed here; production goes through New.
func NewWithSource(src rand.Source, minMinutes, maxMinutes int) *Generator {
	return &Generator{
		rng:        rand.New(src),
		minMinutes: minMinutes,
		maxMinutes: maxMinutes,
	}
}

// NextDelay draws the next inter-cycle delay. Each call is independent; no
// state beyond the RNG carries between draws.
func (g *Generator) NextDelay() time.Duration {
	span := g.maxMinutes - g.minMinutes
	minutes := g.minMinutes
	if span > 0 {
		minutes += g.rng.Intn(span + 1)
	}
	return time.Duration(minutes) * time.Minute
}

// Bounds reports the configured minute range.
func (g *Generator) Bounds() (minMinutes, maxMinutes int) {
	return g.minMinutes, g.maxMinutes
}
