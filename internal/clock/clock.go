// Package clock produces sample-accurate step ticks.
package clock

import (
	"fmt"
	"math"
)

type NoteValue int

const (
	Whole NoteValue = iota
	Half
	Quarter
	Eighth
	Sixteenth
	ThirtySecond
	SixtyFourth
)

var noteValueNames = [...]string{"1/1", "1/2", "1/4", "1/8", "1/16", "1/32", "1/64"}

func (v NoteValue) String() string {
	if v < Whole || v > SixtyFourth {
		return fmt.Sprintf("notevalue(%d)", int(v))
	}
	return noteValueNames[v]
}

type Modifier int

const (
	Straight Modifier = iota
	Dotted
	Triplet
)

func (m Modifier) String() string {
	switch m {
	case Dotted:
		return "dotted"
	case Triplet:
		return "triplet"
	}
	return "straight"
}

// ParseNoteValue accepts "1/16", "1/8d" (dotted) and "1/8t" (triplet).
func ParseNoteValue(s string) (NoteValue, Modifier, error) {
	mod := Straight
	if n := len(s); n > 0 {
		switch s[n-1] {
		case 'd':
			mod, s = Dotted, s[:n-1]
		case 't':
			mod, s = Triplet, s[:n-1]
		}
	}
	for i, name := range noteValueNames {
		if name == s {
			return NoteValue(i), mod, nil
		}
	}
	return Sixteenth, Straight, fmt.Errorf("unknown note value %q", s)
}

// Beats is the length of v in quarter notes.
func Beats(v NoteValue, m Modifier) float64 {
	if v < Whole {
		v = Whole
	}
	if v > SixtyFourth {
		v = SixtyFourth
	}
	b := 4 / math.Pow(2, float64(v))
	switch m {
	case Dotted:
		b *= 1.5
	case Triplet:
		b *= 2.0 / 3.0
	}
	return b
}

const (
	MinRateHz = 0.5
	MaxRateHz = 50.0

	MinTempo = 20.0
	MaxTempo = 999.0
)

// Rate selects free-running or tempo-synced stepping.
type Rate struct {
	Sync     bool
	Hz       float64
	Value    NoteValue
	Modifier Modifier
}

// Period is the step length in samples for r at the given host tempo.
func (r Rate) Period(sampleRate, tempo float64) float64 {
	if !r.Sync {
		hz := r.Hz
		if math.IsNaN(hz) || hz < MinRateHz {
			hz = MinRateHz
		}
		if hz > MaxRateHz {
			hz = MaxRateHz
		}
		return sampleRate / hz
	}
	if math.IsNaN(tempo) || tempo < MinTempo {
		tempo = MinTempo
	}
	if tempo > MaxTempo {
		tempo = MaxTempo
	}
	return sampleRate * 60 / tempo * Beats(r.Value, r.Modifier)
}

// Clock is a phase accumulator. The period requested on each sample only
// takes effect once the current interval has elapsed, and fractional samples
// carry across ticks so long runs do not drift.
type Clock struct {
	phase  float64
	period float64
	primed bool
}

// Reset makes the next Advance tick immediately.
func (c *Clock) Reset() {
	c.phase = 0
	c.primed = false
}

// Advance consumes one sample and reports whether a step starts on it.
func (c *Clock) Advance(period float64) bool {
	if period < 1 {
		period = 1
	}
	if !c.primed {
		c.primed = true
		c.phase = 0
		c.period = period
		return true
	}
	c.phase++
	if c.phase < c.period {
		return false
	}
	c.phase -= c.period
	c.period = period
	return true
}

// Interval is the period latched at the most recent tick.
func (c *Clock) Interval() float64 {
	return c.period
}
