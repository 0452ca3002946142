package arp

// NoteEvent is one note (or one ratchet sub-note) produced by a step.
type NoteEvent struct {
	Note     int
	Velocity float64 // 0..1
	Gate     float64 // sounding length as a fraction of the sub-step
	Offset   int     // samples from the step start
	Length   int     // sounding length in samples
	Step     int64   // absolute step index
	Ratchet  int     // sub-step index within the step

	// Slide asks the receiver to glide the voice playing SlideFrom to Note
	// over SlideTime samples without retriggering its envelope. The engine
	// never sends a NoteOff for SlideFrom after such an event.
	Slide     bool
	SlideFrom int
	SlideTime int

	// Suppressed marks a step that was evaluated but silenced. Suppressed
	// events are reported to observers only, never to a Sink.
	Suppressed bool
}

// Sink receives the engine's output. Offsets are frame positions within the
// block passed to Process. Calls happen on the render goroutine and must not
// block.
type Sink interface {
	NoteOn(offset int, ev NoteEvent)
	NoteOff(offset int, note int)
}

type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Transport is the host context for one block.
type Transport struct {
	Tempo float64 // beats per minute, used when the rate is tempo-synced
}

// Options configures optional engine observers. Callbacks run on the render
// goroutine; keep them brief and non-blocking.
type Options struct {
	OnStep  func(NoteEvent)
	OnState func(State)
}
