// Package pattern orders held notes into an arpeggio.
package pattern

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"
)

type Mode int

const (
	Up Mode = iota
	Down
	UpDown
	DownUp
	Converge
	Diverge
	Random
	Walk
	AsPlayed
	Chord

	ModeCount = int(Chord) + 1
)

var modeNames = [...]string{"up", "down", "updown", "downup", "converge", "diverge", "random", "walk", "asplayed", "chord"}

func (m Mode) String() string {
	if m < 0 || int(m) >= ModeCount {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if name == s {
			return Mode(i), nil
		}
	}
	return Up, fmt.Errorf("unknown arp mode %q", s)
}

type OctaveMode int

const (
	// Sequential plays each note through every octave before the next note.
	Sequential OctaveMode = iota
	// Interleaved plays every note in one octave before moving up.
	Interleaved
)

func (o OctaveMode) String() string {
	if o == Interleaved {
		return "interleaved"
	}
	return "sequential"
}

func ParseOctaveMode(s string) (OctaveMode, error) {
	switch s {
	case "sequential":
		return Sequential, nil
	case "interleaved":
		return Interleaved, nil
	}
	return Sequential, fmt.Errorf("unknown octave mode %q", s)
}

const (
	MinOctaves = 1
	MaxOctaves = 4
)

// Step is what one arpeggiator step plays: a single note, or every held note
// in Chord mode.
type Step struct {
	Count      int
	Notes      [MaxHeld]int
	Velocities [MaxHeld]float64
}

// Sequencer walks the expanded held-note sequence. It never allocates.
type Sequencer struct {
	pos     int
	walk    int
	started bool
	rng     *rand.Rand
	sorted  [MaxHeld]HeldNote
}

func NewSequencer(seed uint64) *Sequencer {
	return &Sequencer{rng: rand.New(rand.NewPCG(seed, 0xA5EED))}
}

func (s *Sequencer) Reseed(seed uint64) {
	s.rng = rand.New(rand.NewPCG(seed, 0xA5EED))
}

// Reset returns to the start of the sequence.
func (s *Sequencer) Reset() {
	s.pos = 0
	s.walk = 0
	s.started = false
}

// Next produces the next step for the held set. An empty set yields a step
// with Count 0.
func (s *Sequencer) Next(held []HeldNote, mode Mode, octaves int, om OctaveMode) Step {
	var st Step
	n := len(held)
	if n == 0 {
		return st
	}
	if octaves < MinOctaves {
		octaves = MinOctaves
	}
	if octaves > MaxOctaves {
		octaves = MaxOctaves
	}
	base := s.sorted[:n]
	copy(base, held)
	if mode != AsPlayed {
		slices.SortFunc(base, func(a, b HeldNote) int { return cmp.Compare(a.Note, b.Note) })
	}

	if mode == Chord {
		oct := s.pos % octaves
		st.Count = n
		for i, h := range base {
			st.Notes[i] = h.Note + 12*oct
			st.Velocities[i] = h.Velocity
		}
		s.pos++
		return st
	}

	l := n * octaves
	j := s.index(mode, l)
	var h HeldNote
	var oct int
	if om == Interleaved {
		h, oct = base[j%n], j/n
	} else {
		h, oct = base[j/octaves], j%octaves
	}
	st.Count = 1
	st.Notes[0] = h.Note + 12*oct
	st.Velocities[0] = h.Velocity
	s.pos++
	return st
}

func (s *Sequencer) index(mode Mode, l int) int {
	p := s.pos % l
	switch mode {
	case Down:
		return l - 1 - p
	case UpDown:
		return pingPong(s.pos, l)
	case DownUp:
		return l - 1 - pingPong(s.pos, l)
	case Converge:
		return converge(p, l)
	case Diverge:
		return converge(l-1-p, l)
	case Random:
		return s.rng.IntN(l)
	case Walk:
		if !s.started {
			s.started = true
			s.walk = 0
		} else if l > 1 {
			s.walk += s.rng.IntN(2)*2 - 1
			if s.walk < 0 {
				s.walk = 1
			}
		}
		if s.walk >= l {
			s.walk = max(l-2, 0)
		}
		return s.walk
	default:
		return p
	}
}

// pingPong walks 0..l-1 and back without repeating the end points.
func pingPong(pos, l int) int {
	if l == 1 {
		return 0
	}
	period := 2*l - 2
	p := pos % period
	if p < l {
		return p
	}
	return period - p
}

// converge alternates from the outside in: 0, l-1, 1, l-2, ...
func converge(p, l int) int {
	if p%2 == 0 {
		return p / 2
	}
	return l - 1 - p/2
}
