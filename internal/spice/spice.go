// Package spice blends nominal lane values with a cached random overlay.
//
// The overlay is owned by the render goroutine. It is regenerated only when a
// Dice request is claimed; the request is a single atomic flag so a control
// goroutine can raise it any number of times and exactly one regeneration
// follows.
package spice

import (
	"math"
	"math/rand/v2"
	"sync/atomic"

	"github.com/cbegin/polyarp-go/internal/condition"
	"github.com/cbegin/polyarp-go/internal/lane"
	"github.com/cbegin/polyarp-go/internal/modifier"
)

// Overlay holds one random value per lane and slot.
type Overlay struct {
	Velocity  [lane.MaxSteps]float64
	Gate      [lane.MaxSteps]float64
	Pitch     [lane.MaxSteps]int
	Ratchet   [lane.MaxSteps]int
	Modifier  [lane.MaxSteps]modifier.Flags
	Condition [lane.MaxSteps]condition.Condition

	// Discrete lanes cannot be interpolated; a slot takes its overlay value
	// when its pick is below the spice amount.
	ModifierPick  [lane.MaxSteps]float64
	ConditionPick [lane.MaxSteps]float64
}

type Dice struct {
	amount     atomic.Uint64
	request    atomic.Bool
	generation atomic.Uint64

	overlay   Overlay
	generated bool
	rng       *rand.Rand
}

func New(seed uint64) *Dice {
	return &Dice{rng: rand.New(rand.NewPCG(seed, 0xD1CE))}
}

// Reseed restarts the overlay stream and drops the cache back to identity.
func (d *Dice) Reseed(seed uint64) {
	d.rng = rand.New(rand.NewPCG(seed, 0xD1CE))
	d.generated = false
}

// SetAmount sets spice, clamped to [0,1].
func (d *Dice) SetAmount(v float64) {
	if math.IsNaN(v) || v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	d.amount.Store(math.Float64bits(v))
}

func (d *Dice) Amount() float64 {
	return math.Float64frombits(d.amount.Load())
}

// Request raises the one-shot dice flag. Safe from any goroutine.
func (d *Dice) Request() {
	d.request.Store(true)
}

// Pending reports whether a request is waiting to be serviced.
func (d *Dice) Pending() bool {
	return d.request.Load()
}

// Service claims a pending request and regenerates the overlay. It reports
// whether a regeneration happened. Render goroutine only.
func (d *Dice) Service() bool {
	if !d.request.CompareAndSwap(true, false) {
		return false
	}
	d.regenerate()
	return true
}

// Generation counts completed regenerations.
func (d *Dice) Generation() uint64 {
	return d.generation.Load()
}

// Overlay returns a copy of the current cache and whether it has ever been
// generated.
func (d *Dice) Overlay() (Overlay, bool) {
	return d.overlay, d.generated
}

func (d *Dice) regenerate() {
	o := &d.overlay
	for i := 0; i < lane.MaxSteps; i++ {
		o.Velocity[i] = d.rng.Float64()
		o.Gate[i] = lane.MinGate + d.rng.Float64()*(lane.MaxGate-lane.MinGate)
		o.Pitch[i] = lane.MinPitch + d.rng.IntN(lane.MaxPitch-lane.MinPitch+1)
		o.Ratchet[i] = lane.MinRatch + d.rng.IntN(lane.MaxRatch-lane.MinRatch+1)
		o.Modifier[i] = randomFlags(d.rng.Float64())
		o.Condition[i] = condition.Condition(d.rng.IntN(int(condition.First) + 1))
		o.ModifierPick[i] = d.rng.Float64()
		o.ConditionPick[i] = d.rng.Float64()
	}
	d.generated = true
	d.generation.Add(1)
}

func randomFlags(u float64) modifier.Flags {
	switch {
	case u < 0.55:
		return modifier.Active
	case u < 0.70:
		return modifier.Of(modifier.Rest)
	case u < 0.80:
		return modifier.Of(modifier.Tie)
	case u < 0.90:
		return modifier.Of(modifier.Slide)
	default:
		return modifier.Of(modifier.Accent)
	}
}

// Lerp is nominal*(1-amount) + overlay*amount.
func Lerp(nominal, overlay, amount float64) float64 {
	return nominal*(1-amount) + overlay*amount
}

func (d *Dice) active() (float64, bool) {
	amt := d.Amount()
	return amt, d.generated && amt > 0
}

func (d *Dice) Velocity(slot int, nominal float64) float64 {
	amt, ok := d.active()
	if !ok {
		return nominal
	}
	return Lerp(nominal, d.overlay.Velocity[slot&(lane.MaxSteps-1)], amt)
}

func (d *Dice) Gate(slot int, nominal float64) float64 {
	amt, ok := d.active()
	if !ok {
		return nominal
	}
	return Lerp(nominal, d.overlay.Gate[slot&(lane.MaxSteps-1)], amt)
}

func (d *Dice) Pitch(slot int, nominal int) int {
	amt, ok := d.active()
	if !ok {
		return nominal
	}
	return int(math.Round(Lerp(float64(nominal), float64(d.overlay.Pitch[slot&(lane.MaxSteps-1)]), amt)))
}

func (d *Dice) Ratchet(slot int, nominal int) int {
	amt, ok := d.active()
	if !ok {
		return nominal
	}
	return int(math.Round(Lerp(float64(nominal), float64(d.overlay.Ratchet[slot&(lane.MaxSteps-1)]), amt)))
}

func (d *Dice) Modifier(slot int, nominal modifier.Flags) modifier.Flags {
	amt, ok := d.active()
	slot &= lane.MaxSteps - 1
	if !ok || d.overlay.ModifierPick[slot] >= amt {
		return nominal
	}
	return d.overlay.Modifier[slot]
}

func (d *Dice) Condition(slot int, nominal condition.Condition) condition.Condition {
	amt, ok := d.active()
	slot &= lane.MaxSteps - 1
	if !ok || d.overlay.ConditionPick[slot] >= amt {
		return nominal
	}
	return d.overlay.Condition[slot]
}
