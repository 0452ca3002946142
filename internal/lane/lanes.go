package lane

import (
	"math"

	"github.com/cbegin/polyarp-go/internal/condition"
	"github.com/cbegin/polyarp-go/internal/modifier"
)

const (
	MinGate  = 0.01
	MaxGate  = 2.0
	MinPitch = -24
	MaxPitch = 24
	MinRatch = 1
	MaxRatch = 4
)

func floatCodec(lo, hi float64) Codec[float64] {
	return Codec[float64]{
		Encode: math.Float64bits,
		Decode: math.Float64frombits,
		Clamp:  func(v float64) float64 { return clampFloat(v, lo, hi) },
	}
}

func intCodec(lo, hi int) Codec[int] {
	return Codec[int]{
		Encode: func(v int) uint64 { return uint64(int64(v)) },
		Decode: func(w uint64) int { return int(int64(w)) },
		Clamp:  func(v int) int { return clampInt(v, lo, hi) },
	}
}

// NewVelocity: [0,1], default 1.
func NewVelocity() *Lane[float64] { return New(floatCodec(0, 1), 1) }

// NewGate: gate multiplier in [MinGate,MaxGate], default 1.
func NewGate() *Lane[float64] { return New(floatCodec(MinGate, MaxGate), 1) }

// NewPitch: semitone offset in [MinPitch,MaxPitch], default 0.
func NewPitch() *Lane[int] { return New(intCodec(MinPitch, MaxPitch), 0) }

// NewRatchet: sub-step count in [MinRatch,MaxRatch], default 1.
func NewRatchet() *Lane[int] { return New(intCodec(MinRatch, MaxRatch), 1) }

func NewModifier() *Lane[modifier.Flags] {
	return New(Codec[modifier.Flags]{
		Encode: func(f modifier.Flags) uint64 { return uint64(f.Bits()) },
		Decode: func(w uint64) modifier.Flags { return modifier.FromBits(uint8(w)) },
		Clamp:  func(f modifier.Flags) modifier.Flags { return f },
	}, modifier.Active)
}

func NewCondition() *Lane[condition.Condition] {
	return New(Codec[condition.Condition]{
		Encode: func(c condition.Condition) uint64 { return uint64(c) },
		Decode: func(w uint64) condition.Condition { return condition.Clamp(condition.Condition(w)) },
		Clamp:  condition.Clamp,
	}, condition.Always)
}

// Set groups the six lanes an arpeggiator reads on every step.
type Set struct {
	Velocity  *Lane[float64]
	Gate      *Lane[float64]
	Pitch     *Lane[int]
	Modifier  *Lane[modifier.Flags]
	Ratchet   *Lane[int]
	Condition *Lane[condition.Condition]
}

func NewSet() *Set {
	return &Set{
		Velocity:  NewVelocity(),
		Gate:      NewGate(),
		Pitch:     NewPitch(),
		Modifier:  NewModifier(),
		Ratchet:   NewRatchet(),
		Condition: NewCondition(),
	}
}

// Advance moves every cursor one step.
func (s *Set) Advance() {
	s.Velocity.Advance()
	s.Gate.Advance()
	s.Pitch.Advance()
	s.Modifier.Advance()
	s.Ratchet.Advance()
	s.Condition.Advance()
}

func (s *Set) Rewind() {
	s.Velocity.Rewind()
	s.Gate.Rewind()
	s.Pitch.Rewind()
	s.Modifier.Rewind()
	s.Ratchet.Rewind()
	s.Condition.Rewind()
}

// Reset restores every lane's defaults.
func (s *Set) Reset() {
	s.Velocity.Reset()
	s.Gate.Reset()
	s.Pitch.Reset()
	s.Modifier.Reset()
	s.Ratchet.Reset()
	s.Condition.Reset()
}

// Positions is a snapshot of the six cursors, in Set field order.
type Positions [6]int

func (s *Set) Positions() Positions {
	return Positions{
		s.Velocity.Index(),
		s.Gate.Index(),
		s.Pitch.Index(),
		s.Modifier.Index(),
		s.Ratchet.Index(),
		s.Condition.Index(),
	}
}
