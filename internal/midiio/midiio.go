// Package midiio moves notes between the arpeggiator and MIDI: live message
// decoding, Standard MIDI File export of generated events and import of
// input phrases.
package midiio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/polyarp-go/internal/arp"
)

// Resolution is the SMF tick resolution used for export.
const Resolution = 960

// Control numbers recognised by Decode.
const (
	CCDice = 80
	CCFill = 81
)

type InputKind int

const (
	InputNone InputKind = iota
	InputNoteOn
	InputNoteOff
	InputDice
	InputFill
)

// Input is one decoded performance gesture.
type Input struct {
	Kind     InputKind
	Note     int
	Velocity float64
	On       bool // for InputFill
}

// Decode maps a live MIDI message to an Input. A note-on with velocity zero
// is a note-off. Channel is ignored.
func Decode(msg midi.Message) Input {
	var ch, key, vel, cc, val uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return Input{Kind: InputNoteOn, Note: int(key), Velocity: float64(vel) / 127}
	case msg.GetNoteEnd(&ch, &key):
		return Input{Kind: InputNoteOff, Note: int(key)}
	case msg.GetControlChange(&ch, &cc, &val):
		switch cc {
		case CCDice:
			if val >= 64 {
				return Input{Kind: InputDice}
			}
		case CCFill:
			return Input{Kind: InputFill, On: val >= 64}
		}
	}
	return Input{}
}

type recordedNote struct {
	frame int64
	on    bool
	note  int
	vel   float64
}

// Recorder is an arp.Sink that keeps every event with its absolute frame.
// It allocates as it grows and is meant for offline rendering. Events are
// forwarded to Next when set.
type Recorder struct {
	Next   arp.Sink
	base   int64
	events []recordedNote
}

func (r *Recorder) NoteOn(offset int, ev arp.NoteEvent) {
	r.events = append(r.events, recordedNote{frame: r.base + int64(offset), on: true, note: ev.Note, vel: ev.Velocity})
	if r.Next != nil {
		r.Next.NoteOn(offset, ev)
	}
}

func (r *Recorder) NoteOff(offset int, note int) {
	r.events = append(r.events, recordedNote{frame: r.base + int64(offset), note: note})
	if r.Next != nil {
		r.Next.NoteOff(offset, note)
	}
}

// Advance moves the block origin after a Process call of frames samples.
func (r *Recorder) Advance(frames int) { r.base += int64(frames) }

// Len is the number of recorded events.
func (r *Recorder) Len() int { return len(r.events) }

// Close ends every note still sounding at the current position.
func (r *Recorder) Close() {
	var open [128]bool
	for _, e := range r.events {
		open[e.note] = e.on
	}
	for note, on := range open {
		if on {
			r.events = append(r.events, recordedNote{frame: r.base, note: note})
		}
	}
}

// WriteSMF writes the recording as a two-track format 1 file: a tempo track
// and a note track on channel.
func (r *Recorder) WriteSMF(w io.Writer, sampleRate int, bpm float64, channel uint8) error {
	if sampleRate <= 0 {
		return errors.New("midiio: sample rate must be positive")
	}
	if bpm <= 0 {
		return errors.New("midiio: tempo must be positive")
	}
	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(Resolution)

	var tempo smf.Track
	tempo.Add(0, smf.MetaMeter(4, 4))
	tempo.Add(0, smf.MetaTempo(bpm))
	tempo.Close(0)
	if err := sm.Add(tempo); err != nil {
		return fmt.Errorf("midiio: add tempo track: %w", err)
	}

	ticksPerFrame := bpm / 60 * Resolution / float64(sampleRate)
	var notes smf.Track
	var last uint32
	for _, e := range r.events {
		tick := uint32(math.Round(float64(e.frame) * ticksPerFrame))
		if tick < last {
			tick = last
		}
		delta := tick - last
		last = tick
		key := uint8(e.note)
		if e.on {
			vel := uint8(math.Round(e.vel * 127))
			if vel == 0 {
				vel = 1
			}
			notes.Add(delta, midi.NoteOn(channel, key, vel))
		} else {
			notes.Add(delta, midi.NoteOff(channel, key))
		}
	}
	notes.Close(0)
	if err := sm.Add(notes); err != nil {
		return fmt.Errorf("midiio: add note track: %w", err)
	}
	if _, err := sm.WriteTo(w); err != nil {
		return fmt.Errorf("midiio: write: %w", err)
	}
	return nil
}

// PhraseEvent is a key press or release at an absolute frame.
type PhraseEvent struct {
	Frame    int64
	On       bool
	Note     int
	Velocity float64
}

// Phrase is the input to drive an engine offline, sorted by frame.
type Phrase struct {
	Events []PhraseEvent
	BPM    float64
	Frames int64 // frame of the last event
}

// ReadPhrase reads note events from every track of an SMF. The first tempo
// meta event sets the frame mapping; without one 120 BPM is assumed.
func ReadPhrase(r io.Reader, sampleRate int) (Phrase, error) {
	sm, err := smf.ReadFrom(r)
	if err != nil {
		return Phrase{}, fmt.Errorf("midiio: read smf: %w", err)
	}
	mt, ok := sm.TimeFormat.(smf.MetricTicks)
	if !ok {
		return Phrase{}, errors.New("midiio: SMPTE time format is not supported")
	}
	res := float64(uint16(mt))

	bpm := 0.0
	for _, tr := range sm.Tracks {
		for _, ev := range tr {
			var t float64
			if ev.Message.GetMetaTempo(&t) {
				bpm = t
				break
			}
		}
		if bpm > 0 {
			break
		}
	}
	if bpm <= 0 {
		bpm = 120
	}
	framesPerTick := 60 / bpm / res * float64(sampleRate)

	p := Phrase{BPM: bpm}
	for _, tr := range sm.Tracks {
		var tick int64
		for _, ev := range tr {
			tick += int64(ev.Delta)
			frame := int64(math.Round(float64(tick) * framesPerTick))
			msg := midi.Message(ev.Message)
			var ch, key, vel uint8
			switch {
			case msg.GetNoteStart(&ch, &key, &vel):
				p.Events = append(p.Events, PhraseEvent{Frame: frame, On: true, Note: int(key), Velocity: float64(vel) / 127})
			case msg.GetNoteEnd(&ch, &key):
				p.Events = append(p.Events, PhraseEvent{Frame: frame, Note: int(key)})
			default:
				continue
			}
			p.Frames = max(p.Frames, frame)
		}
	}
	slices.SortStableFunc(p.Events, func(a, b PhraseEvent) int {
		switch {
		case a.Frame < b.Frame:
			return -1
		case a.Frame > b.Frame:
			return 1
		}
		// releases before presses at the same frame
		if a.On == b.On {
			return 0
		}
		if !a.On {
			return -1
		}
		return 1
	})
	return p, nil
}
