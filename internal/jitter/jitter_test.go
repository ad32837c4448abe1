package jitter

import (
	"math/rand"
	"testing"
	"time"
)

func TestNextDelayStaysInBounds(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		min  int
		max  int
	}{
		{name: "production range", min: 60, max: 90},
		{name: "narrow", min: 1, max: 2},
		{name: "degenerate", min: 5, max: 5},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := New(tt.min, tt.max)
			lo := time.Duration(tt.min) * time.Minute
			hi := time.Duration(tt.max) * time.Minute
			for i := 0; i < 10000; i++ {
				d := g.NextDelay()
				if d < lo || d > hi {
					t.Fatalf("draw %d: NextDelay() = %v, want in [%v, %v]", i, d, lo, hi)
				}
				if d%time.Minute != 0 {
					t.Fatalf("draw %d: NextDelay() = %v, want whole minutes", i, d)
				}
			}
		})
	}
}

func TestNextDelaySpansRange(t *testing.T) {
	t.Parallel()
	g := New(60, 90)
	seen := map[time.Duration]bool{}
	for i := 0; i < 10000; i++ {
		seen[g.NextDelay()] = true
	}
	// 31 possible values; a uniform draw over 10k samples hits essentially
	// all of them. Anything below 25 distinct values means the source is
	// badly skewed or stuck.
	if len(seen) < 25 {
		t.Fatalf("distinct delays = %d, want >= 25", len(seen))
	}
	if !seen[60*time.Minute] || !seen[90*time.Minute] {
		t.Fatalf("bounds not reached: min hit=%v max hit=%v", seen[60*time.Minute], seen[90*time.Minute])
	}
}

func TestGeneratorsDoNotSynchronize(t *testing.T) {
	t.Parallel()
	// Two generators with different seeds (fresh processes) must not produce
	// the same draw sequence.
	a := NewWithSource(rand.NewSource(1), 60, 90)
	b := NewWithSource(rand.NewSource(2), 60, 90)

	same := true
	for i := 0; i < 64; i++ {
		if a.NextDelay() != b.NextDelay() {
			same = false
			break
		}
	}
	if same {
		t.Fatal("independent generators produced identical sequences")
	}
}

func TestBounds(t *testing.T) {
	t.Parallel()
	g := New(7, 11)
	lo, hi := g.Bounds()
	if lo != 7 || hi != 11 {
		t.Fatalf("Bounds() = (%d, %d), want (7, 11)", lo, hi)
	}
}
