package pattern

import "fmt"

const MaxHeld = 16

type Latch int

const (
	LatchOff Latch = iota
	LatchHold
	LatchAdd
)

func (l Latch) String() string {
	switch l {
	case LatchHold:
		return "hold"
	case LatchAdd:
		return "add"
	default:
		return "off"
	}
}

func ParseLatch(s string) (Latch, error) {
	for l := LatchOff; l <= LatchAdd; l++ {
		if l.String() == s {
			return l, nil
		}
	}
	return LatchOff, fmt.Errorf("unknown latch %q", s)
}

// HeldNote is one member of the arpeggiated set.
type HeldNote struct {
	Note     int
	Velocity float64
	Order    uint64 // press order, increasing
}

type heldSlot struct {
	HeldNote
	down bool
}

// Held is the set of notes the arpeggiator cycles through. It keeps press
// order and separates physically held keys from latched ones.
type Held struct {
	slots [MaxHeld]heldSlot
	n     int
	down  int
	order uint64
	view  [MaxHeld]HeldNote
}

// Press adds or refreshes note. Under LatchHold a press with no other key
// down starts a fresh set. Presses beyond MaxHeld notes are ignored.
func (h *Held) Press(note int, velocity float64, latch Latch) bool {
	if latch == LatchHold && h.down == 0 {
		h.n = 0
	}
	for i := 0; i < h.n; i++ {
		s := &h.slots[i]
		if s.Note == note {
			s.Velocity = velocity
			if !s.down {
				s.down = true
				h.down++
			}
			return true
		}
	}
	if h.n == MaxHeld {
		return false
	}
	h.order++
	h.slots[h.n] = heldSlot{HeldNote: HeldNote{Note: note, Velocity: velocity, Order: h.order}, down: true}
	h.n++
	h.down++
	return true
}

// Release marks note as physically released; with LatchOff it leaves the set.
func (h *Held) Release(note int, latch Latch) {
	for i := 0; i < h.n; i++ {
		s := &h.slots[i]
		if s.Note != note || !s.down {
			continue
		}
		s.down = false
		h.down--
		if latch == LatchOff {
			h.remove(i)
		}
		return
	}
}

// Unlatch drops every note that is not physically held, as when latch is
// switched off.
func (h *Held) Unlatch() {
	for i := h.n - 1; i >= 0; i-- {
		if !h.slots[i].down {
			h.remove(i)
		}
	}
}

// Clear empties the set, including latched notes.
func (h *Held) Clear() {
	h.n = 0
	h.down = 0
}

func (h *Held) remove(i int) {
	copy(h.slots[i:h.n], h.slots[i+1:h.n])
	h.n--
}

func (h *Held) Len() int { return h.n }

// Down is the number of physically held keys.
func (h *Held) Down() int { return h.down }

// Notes returns the set in press order. The slice is reused by later calls.
func (h *Held) Notes() []HeldNote {
	for i := 0; i < h.n; i++ {
		h.view[i] = h.slots[i].HeldNote
	}
	return h.view[:h.n]
}
