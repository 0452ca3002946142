package polyarp

import (
	"encoding/binary"
	"io"
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"

	intmidi "github.com/cbegin/polyarp-go/internal/midiio"
)

// Phrase is a timed sequence of key presses and releases.
type Phrase = intmidi.Phrase

type PhraseEvent = intmidi.PhraseEvent

// Hold is a phrase that presses notes at the first frame and never lets go.
func Hold(velocity float64, notes ...int) Phrase {
	p := Phrase{BPM: DefaultTempo}
	for _, n := range notes {
		p.Events = append(p.Events, PhraseEvent{On: true, Note: n, Velocity: velocity})
	}
	return p
}

// ReadPhrase loads a phrase from a Standard MIDI File.
func ReadPhrase(r io.Reader, sampleRate int) (Phrase, error) {
	return intmidi.ReadPhrase(r, sampleRate)
}

// RenderSamples plays phrase through a fresh render graph and returns
// seconds of interleaved stereo audio. The result depends only on its inputs.
func RenderSamples(phrase Phrase, sampleRate int, seconds float64, opts ...PlayerOption) ([]float32, error) {
	cfg, params, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}
	r := newRack(sampleRate, params, cfg, nil)
	out := make([]float32, int(float64(sampleRate)*seconds)*2)
	play(r, phrase, out)
	return out, nil
}

// RenderEvents runs phrase for seconds and writes the generated notes to w
// as a Standard MIDI File at the configured tempo.
func RenderEvents(w io.Writer, phrase Phrase, sampleRate int, seconds float64, opts ...PlayerOption) error {
	cfg, params, err := buildConfig(append(opts, withRecorder()))
	if err != nil {
		return err
	}
	r := newRack(sampleRate, params, cfg, nil)
	out := make([]float32, int(float64(sampleRate)*seconds)*2)
	play(r, phrase, out)
	r.rec.Close()
	return r.rec.WriteSMF(w, sampleRate, r.Tempo(), 0)
}

func play(r *rack, phrase Phrase, out []float32) {
	frames := int64(len(out) / 2)
	next := 0
	var pos int64
	for pos < frames {
		for next < len(phrase.Events) && phrase.Events[next].Frame <= pos {
			ev := phrase.Events[next]
			if ev.On {
				r.apply(command{kind: cmdNoteOn, note: ev.Note, velocity: ev.Velocity})
			} else {
				r.apply(command{kind: cmdNoteOff, note: ev.Note})
			}
			next++
		}
		end := frames
		if next < len(phrase.Events) && phrase.Events[next].Frame < end {
			end = phrase.Events[next].Frame
		}
		r.render(out[pos*2 : end*2])
		pos = end
	}
}

func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	out := wavHeader(len(samples)*4, sampleRate, channels, 3, 32)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}

// EncodeWAVPCM16 quantises to 16-bit PCM with TPDF dither.
func EncodeWAVPCM16(samples []float32, sampleRate int, channels int, seed int64) []byte {
	out := wavHeader(len(samples)*2, sampleRate, channels, 1, 16)
	buf := make([]float64, len(samples))
	for i, s := range samples {
		buf[i] = float64(s) * 32767
	}
	vecmath.AddDitherTPDF(buf, 1, vecmath.NewDitherState(seed))
	for i, v := range buf {
		v = math.Round(math.Max(-32768, math.Min(32767, v)))
		binary.LittleEndian.PutUint16(out[44+i*2:], uint16(int16(v)))
	}
	return out
}

func wavHeader(dataSize, sampleRate, channels, format, bits int) []byte {
	blockAlign := channels * bits / 8
	out := make([]byte, 44+dataSize)
	copy(out[0:], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], uint32(36+dataSize))
	copy(out[8:], "WAVE")
	copy(out[12:], "fmt ")
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], uint16(format))
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], uint16(bits))
	copy(out[36:], "data")
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	return out
}
