// Package humanize applies bounded random jitter to emitted notes.
package humanize

import (
	"math"
	"math/rand/v2"
	"sync/atomic"
)

// Jitter bounds at amount 1.
const (
	MaxDelaySec   = 0.020
	MaxVelocity   = 0.15
	MaxGateFactor = 0.20
	minGateFactor = 0.01
	salt          = 0x4855
)

// Note is the part of an emitted note humanize may touch.
type Note struct {
	Delay    int // samples after the nominal start
	Velocity float64
	Gate     float64 // fraction of the step
}

type Humanizer struct {
	amount atomic.Uint64
	rng    *rand.Rand
}

func New(seed uint64) *Humanizer {
	return &Humanizer{rng: rand.New(rand.NewPCG(seed, salt))}
}

func (h *Humanizer) Reseed(seed uint64) {
	h.rng = rand.New(rand.NewPCG(seed, salt))
}

// SetAmount sets humanize, clamped to [0,1].
func (h *Humanizer) SetAmount(v float64) {
	if math.IsNaN(v) || v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	h.amount.Store(math.Float64bits(v))
}

func (h *Humanizer) Amount() float64 {
	return math.Float64frombits(h.amount.Load())
}

// Apply jitters n. Timing is delayed by up to amount*MaxDelaySec but never
// past maxDelay samples; velocity and gate move symmetrically. At amount 0 n
// is returned unchanged and no random values are drawn.
func (h *Humanizer) Apply(n Note, sampleRate float64, maxDelay int) Note {
	amt := h.Amount()
	if amt == 0 {
		return n
	}
	delay := int(math.Round(h.rng.Float64() * amt * MaxDelaySec * sampleRate))
	if delay > maxDelay {
		delay = maxDelay
	}
	if delay < 0 {
		delay = 0
	}
	n.Delay += delay
	n.Velocity += (h.rng.Float64()*2 - 1) * amt * MaxVelocity
	n.Velocity = math.Max(0, math.Min(1, n.Velocity))
	n.Gate *= 1 + (h.rng.Float64()*2-1)*amt*MaxGateFactor
	if n.Gate < minGateFactor {
		n.Gate = minGateFactor
	}
	return n
}
