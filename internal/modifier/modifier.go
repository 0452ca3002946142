// Package modifier interprets per-step modifier flags.
package modifier

import (
	"fmt"
	"strings"
)

// Flag names one step capability.
type Flag uint8

const (
	Rest Flag = 1 << iota
	Tie
	Slide
	Accent
)

// Flags is a set of step capabilities. The zero value is an ordinary active
// step. Rest is exclusive: a set containing Rest contains nothing else.
type Flags struct {
	set uint8
}

// Active is the default step: no capability set.
var Active = Flags{}

func Of(flags ...Flag) Flags {
	var f Flags
	for _, fl := range flags {
		f = f.With(fl)
	}
	return f
}

// With returns f plus fl. Adding Rest clears every other flag; adding any
// other flag to a rest step is a no-op.
func (f Flags) With(fl Flag) Flags {
	fl &= Rest | Tie | Slide | Accent
	if fl&Rest != 0 {
		return Flags{set: uint8(Rest)}
	}
	if f.Rest() {
		return f
	}
	return Flags{set: f.set | uint8(fl)}
}

func (f Flags) Without(fl Flag) Flags {
	return Flags{set: f.set &^ uint8(fl)}
}

func (f Flags) Has(fl Flag) bool { return f.set&uint8(fl) != 0 }
func (f Flags) Rest() bool       { return f.Has(Rest) }
func (f Flags) Tie() bool        { return f.Has(Tie) }
func (f Flags) Slide() bool      { return f.Has(Slide) }
func (f Flags) Accent() bool     { return f.Has(Accent) }

// Bits is the storage form used by lanes and presets.
func (f Flags) Bits() uint8 { return f.set }

// FromBits normalizes a stored byte; unknown bits are dropped.
func FromBits(b uint8) Flags {
	var f Flags
	for _, fl := range [...]Flag{Tie, Slide, Accent, Rest} {
		if b&uint8(fl) != 0 {
			f = f.With(fl)
		}
	}
	return f
}

func (f Flags) String() string {
	if f.set == 0 {
		return "active"
	}
	if f.Rest() {
		return "rest"
	}
	var parts []string
	if f.Tie() {
		parts = append(parts, "tie")
	}
	if f.Slide() {
		parts = append(parts, "slide")
	}
	if f.Accent() {
		parts = append(parts, "accent")
	}
	return strings.Join(parts, "+")
}

// Parse reads the String form back: "active", "rest" or flag names joined
// with '+'. "-" and "" are active.
func Parse(s string) (Flags, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "-" || s == "active" {
		return Active, nil
	}
	var f Flags
	for _, part := range strings.Split(s, "+") {
		switch part {
		case "rest":
			f = f.With(Rest)
		case "tie":
			f = f.With(Tie)
		case "slide":
			f = f.With(Slide)
		case "accent":
			f = f.With(Accent)
		default:
			return Active, fmt.Errorf("unknown modifier %q", part)
		}
	}
	return f, nil
}

// Kind is what the engine does with a step after the modifier pass.
type Kind int

const (
	Trigger Kind = iota
	Silence
	Sustain
)

// Action is the result of processing one step's flags.
type Action struct {
	Kind     Kind
	Slide    bool
	Velocity float64
}

// Process resolves flags against the lane-derived velocity. Rest wins over
// everything; Tie sustains the sounding note instead of triggering; Slide and
// Accent decorate a triggered note.
func Process(f Flags, velocity, accentVelocity float64) Action {
	if f.Rest() {
		return Action{Kind: Silence}
	}
	if f.Tie() {
		return Action{Kind: Sustain, Velocity: velocity}
	}
	a := Action{Kind: Trigger, Slide: f.Slide(), Velocity: velocity}
	if f.Accent() {
		a.Velocity = accentVelocity
	}
	return a
}
