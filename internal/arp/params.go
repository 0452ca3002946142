package arp

import (
	"math"
	"sync/atomic"

	"github.com/cbegin/polyarp-go/internal/clock"
	"github.com/cbegin/polyarp-go/internal/condition"
	"github.com/cbegin/polyarp-go/internal/euclid"
	"github.com/cbegin/polyarp-go/internal/lane"
	"github.com/cbegin/polyarp-go/internal/modifier"
	"github.com/cbegin/polyarp-go/internal/pattern"
	"github.com/cbegin/polyarp-go/internal/ratchet"
)

type Retrigger int

const (
	RetriggerOff Retrigger = iota
	RetriggerNote
)

const (
	MinGateLength     = 1.0
	MaxGateLength     = 200.0
	DefaultGateLength = 80.0
	MaxSlideMs        = 500.0
	DefaultSlideMs    = 60.0
	DefaultSeed       = 1
)

// atomicFloat stores a float64 as its bit pattern.
type atomicFloat struct {
	bits atomic.Uint64
}

func (f *atomicFloat) Load() float64   { return math.Float64frombits(f.bits.Load()) }
func (f *atomicFloat) Store(v float64) { f.bits.Store(math.Float64bits(v)) }

// Params is the configuration surface shared by a control goroutine (writer)
// and the render goroutine (reader). Every field is an independent atomic
// cell; the reader may see old and new values of different fields within one
// block. Ordering that matters is encoded in the writers: SetEuclidean writes
// its enabled flag last, and the engine applies Enabled after everything else.
type Params struct {
	enabled      atomic.Bool
	mode         atomic.Int32
	octaves      atomic.Int32
	octaveMode   atomic.Int32
	latch        atomic.Int32
	retrigger    atomic.Int32
	sync         atomic.Bool
	rateHz       atomicFloat
	noteValue    atomic.Int32
	noteModifier atomic.Int32
	gateLength   atomicFloat
	slideMs      atomicFloat
	accentVel    atomicFloat
	ratchetSwing atomicFloat
	spice        atomicFloat
	humanize     atomicFloat
	fill         atomic.Bool
	seed         atomic.Uint64

	Lanes  *lane.Set
	Euclid *euclid.Gate
}

func NewParams() *Params {
	p := &Params{
		Lanes:  lane.NewSet(),
		Euclid: euclid.NewGate(),
	}
	p.Apply(DefaultConfig())
	return p
}

func (p *Params) SetEnabled(on bool) { p.enabled.Store(on) }
func (p *Params) Enabled() bool      { return p.enabled.Load() }

func (p *Params) SetMode(m pattern.Mode) {
	if m < 0 || int(m) >= pattern.ModeCount {
		m = pattern.Up
	}
	p.mode.Store(int32(m))
}
func (p *Params) Mode() pattern.Mode { return pattern.Mode(p.mode.Load()) }

func (p *Params) SetOctaves(n int) {
	p.octaves.Store(int32(clampInt(n, pattern.MinOctaves, pattern.MaxOctaves)))
}
func (p *Params) Octaves() int { return int(p.octaves.Load()) }

func (p *Params) SetOctaveMode(m pattern.OctaveMode) {
	if m != pattern.Interleaved {
		m = pattern.Sequential
	}
	p.octaveMode.Store(int32(m))
}
func (p *Params) OctaveMode() pattern.OctaveMode { return pattern.OctaveMode(p.octaveMode.Load()) }

func (p *Params) SetLatch(l pattern.Latch) {
	p.latch.Store(int32(clampInt(int(l), int(pattern.LatchOff), int(pattern.LatchAdd))))
}
func (p *Params) Latch() pattern.Latch { return pattern.Latch(p.latch.Load()) }

func (p *Params) SetRetrigger(r Retrigger) {
	p.retrigger.Store(int32(clampInt(int(r), int(RetriggerOff), int(RetriggerNote))))
}
func (p *Params) Retrigger() Retrigger { return Retrigger(p.retrigger.Load()) }

// SetRate writes the step rate. Fields are stored independently.
func (p *Params) SetRate(r clock.Rate) {
	hz := r.Hz
	if math.IsNaN(hz) || hz < clock.MinRateHz {
		hz = clock.MinRateHz
	}
	if hz > clock.MaxRateHz {
		hz = clock.MaxRateHz
	}
	p.rateHz.Store(hz)
	p.noteValue.Store(int32(clampInt(int(r.Value), int(clock.Whole), int(clock.SixtyFourth))))
	p.noteModifier.Store(int32(clampInt(int(r.Modifier), int(clock.Straight), int(clock.Triplet))))
	p.sync.Store(r.Sync)
}

func (p *Params) Rate() clock.Rate {
	return clock.Rate{
		Sync:     p.sync.Load(),
		Hz:       p.rateHz.Load(),
		Value:    clock.NoteValue(p.noteValue.Load()),
		Modifier: clock.Modifier(p.noteModifier.Load()),
	}
}

// SetGateLength sets the base gate in percent of a step, [1,200].
func (p *Params) SetGateLength(pct float64) {
	p.gateLength.Store(clampFloat(pct, MinGateLength, MaxGateLength))
}
func (p *Params) GateLength() float64 { return p.gateLength.Load() }

func (p *Params) SetSlideTime(ms float64) { p.slideMs.Store(clampFloat(ms, 0, MaxSlideMs)) }
func (p *Params) SlideTime() float64      { return p.slideMs.Load() }

func (p *Params) SetAccentVelocity(v float64) { p.accentVel.Store(clampFloat(v, 0, 1)) }
func (p *Params) AccentVelocity() float64     { return p.accentVel.Load() }

// SetRatchetSwing sets the ratchet long/short ratio in percent, [50,75].
func (p *Params) SetRatchetSwing(pct float64) { p.ratchetSwing.Store(ratchet.ClampSwing(pct)) }
func (p *Params) RatchetSwing() float64       { return p.ratchetSwing.Load() }

func (p *Params) SetSpice(v float64) { p.spice.Store(clampFloat(v, 0, 1)) }
func (p *Params) Spice() float64     { return p.spice.Load() }

func (p *Params) SetHumanize(v float64) { p.humanize.Store(clampFloat(v, 0, 1)) }
func (p *Params) Humanize() float64     { return p.humanize.Load() }

// SetFill asserts or releases the performance fill toggle.
func (p *Params) SetFill(on bool) { p.fill.Store(on) }
func (p *Params) Fill() bool      { return p.fill.Load() }

// SetSeed selects the pseudo-random streams; the engine reseeds on change.
func (p *Params) SetSeed(s uint64) { p.seed.Store(s) }
func (p *Params) Seed() uint64     { return p.seed.Load() }

// SetEuclidean applies steps, hits, rotation and then the enabled flag.
func (p *Params) SetEuclidean(c euclid.Config) { p.Euclid.Apply(c) }

// Config is a plain copy of every persistent field.
type Config struct {
	Enabled        bool
	Mode           pattern.Mode
	Octaves        int
	OctaveMode     pattern.OctaveMode
	Latch          pattern.Latch
	Retrigger      Retrigger
	Rate           clock.Rate
	GateLength     float64
	SlideTime      float64
	AccentVelocity float64
	RatchetSwing   float64
	Spice          float64
	Humanize       float64
	Fill           bool
	Seed           uint64
	Euclid         euclid.Config

	VelocityLane  LaneConfig[float64]
	GateLane      LaneConfig[float64]
	PitchLane     LaneConfig[int]
	ModifierLane  LaneConfig[modifier.Flags]
	RatchetLane   LaneConfig[int]
	ConditionLane LaneConfig[condition.Condition]
}

// LaneConfig is a lane's length and all of its slots.
type LaneConfig[T any] struct {
	Length int
	Steps  [lane.MaxSteps]T
}

func defaultLane[T any](v T) LaneConfig[T] {
	c := LaneConfig[T]{Length: 1}
	for i := range c.Steps {
		c.Steps[i] = v
	}
	return c
}

// DefaultConfig reproduces a plain arpeggiator: every lane neutral, Euclidean
// gate off, ratchet swing 50.
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		Mode:           pattern.Up,
		Octaves:        1,
		OctaveMode:     pattern.Sequential,
		Latch:          pattern.LatchOff,
		Retrigger:      RetriggerOff,
		Rate:           clock.Rate{Sync: true, Hz: 4, Value: clock.Sixteenth},
		GateLength:     DefaultGateLength,
		SlideTime:      DefaultSlideMs,
		AccentVelocity: 1,
		RatchetSwing:   ratchet.DefaultSwing,
		Seed:           DefaultSeed,
		Euclid:         euclid.DefaultConfig(),
		VelocityLane:   defaultLane(1.0),
		GateLane:       defaultLane(1.0),
		PitchLane:      defaultLane(0),
		ModifierLane:   defaultLane(modifier.Active),
		RatchetLane:    defaultLane(1),
		ConditionLane:  defaultLane(condition.Always),
	}
}

// Apply writes every field of c. Lanes use the expand/write/shrink sequence,
// the Euclidean gate its own ordered apply, and Enabled goes last.
func (p *Params) Apply(c Config) {
	p.SetMode(c.Mode)
	p.SetOctaves(c.Octaves)
	p.SetOctaveMode(c.OctaveMode)
	p.SetLatch(c.Latch)
	p.SetRetrigger(c.Retrigger)
	p.SetRate(c.Rate)
	p.SetGateLength(c.GateLength)
	p.SetSlideTime(c.SlideTime)
	p.SetAccentVelocity(c.AccentVelocity)
	p.SetRatchetSwing(c.RatchetSwing)
	p.SetSpice(c.Spice)
	p.SetHumanize(c.Humanize)
	p.SetFill(c.Fill)
	p.SetSeed(c.Seed)

	p.Lanes.Velocity.Write(c.VelocityLane.Steps[:], c.VelocityLane.Length)
	p.Lanes.Gate.Write(c.GateLane.Steps[:], c.GateLane.Length)
	p.Lanes.Pitch.Write(c.PitchLane.Steps[:], c.PitchLane.Length)
	p.Lanes.Modifier.Write(c.ModifierLane.Steps[:], c.ModifierLane.Length)
	p.Lanes.Ratchet.Write(c.RatchetLane.Steps[:], c.RatchetLane.Length)
	p.Lanes.Condition.Write(c.ConditionLane.Steps[:], c.ConditionLane.Length)

	p.SetEuclidean(c.Euclid)
	p.SetEnabled(c.Enabled)
}

// Snapshot reads every field. Under concurrent writes the copy may mix old
// and new values of different fields.
func (p *Params) Snapshot() Config {
	c := Config{
		Enabled:        p.Enabled(),
		Mode:           p.Mode(),
		Octaves:        p.Octaves(),
		OctaveMode:     p.OctaveMode(),
		Latch:          p.Latch(),
		Retrigger:      p.Retrigger(),
		Rate:           p.Rate(),
		GateLength:     p.GateLength(),
		SlideTime:      p.SlideTime(),
		AccentVelocity: p.AccentVelocity(),
		RatchetSwing:   p.RatchetSwing(),
		Spice:          p.Spice(),
		Humanize:       p.Humanize(),
		Fill:           p.Fill(),
		Seed:           p.Seed(),
		Euclid:         p.Euclid.Config(),
	}
	snapLane(&c.VelocityLane, p.Lanes.Velocity)
	snapLane(&c.GateLane, p.Lanes.Gate)
	snapLane(&c.PitchLane, p.Lanes.Pitch)
	snapLane(&c.ModifierLane, p.Lanes.Modifier)
	snapLane(&c.RatchetLane, p.Lanes.Ratchet)
	snapLane(&c.ConditionLane, p.Lanes.Condition)
	return c
}

func snapLane[T any](dst *LaneConfig[T], l *lane.Lane[T]) {
	dst.Length = l.Length()
	for i := range dst.Steps {
		dst.Steps[i] = l.Step(i)
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
