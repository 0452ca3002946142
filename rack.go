package polyarp

import (
	"math"
	"sync/atomic"

	intarp "github.com/cbegin/polyarp-go/internal/arp"
	intfx "github.com/cbegin/polyarp-go/internal/effects"
	intmidi "github.com/cbegin/polyarp-go/internal/midiio"
	intsynth "github.com/cbegin/polyarp-go/internal/synth"
)

type commandKind int

const (
	cmdNoteOn commandKind = iota
	cmdNoteOff
	cmdClearLatch
	cmdPanic
)

type command struct {
	kind     commandKind
	note     int
	velocity float64
}

const inboxSize = 256

// rack is the render graph: arpeggiator, voice engine, master effects and
// sample tap. Process runs on the audio goroutine; keyboard input reaches it
// through a buffered inbox drained at the start of every buffer.
type rack struct {
	engine *intarp.Engine
	synth  *intsynth.Synth
	fx     *intfx.Chain
	rec    *intmidi.Recorder
	tap    func([]float32)
	inbox  chan command
	tempo  atomic.Uint64
}

func newRack(sampleRate int, params *intarp.Params, cfg playerConfig, onEvent func(PlaybackEvent)) *rack {
	sp := intsynth.DefaultParams()
	if cfg.voices > 0 {
		sp.Voices = cfg.voices
	}
	sp.Wave = cfg.synthWave
	r := &rack{
		synth: intsynth.New(sampleRate, sp),
		fx:    intfx.NewChain(),
		tap:   cfg.sampleTap,
		inbox: make(chan command, inboxSize),
	}
	if cfg.echo != nil {
		r.fx.Add(intfx.NewEcho(sampleRate, 4, cfg.echo.beats, cfg.echo.feedback, cfg.echo.cross, cfg.echo.wet))
	}
	var sink intarp.Sink = r.synth
	if cfg.record {
		r.rec = &intmidi.Recorder{Next: r.synth}
		sink = r.rec
	}
	var opts intarp.Options
	if onEvent != nil {
		opts.OnStep = func(ev intarp.NoteEvent) { onEvent(PlaybackEvent{Kind: EventStep, Step: ev}) }
		opts.OnState = func(s intarp.State) { onEvent(PlaybackEvent{Kind: EventState, State: s}) }
	}
	r.engine = intarp.NewWithOptions(sampleRate, params, sink, opts)
	if cfg.dice {
		r.engine.RequestDice()
	}
	r.setTempo(cfg.tempo)
	return r
}

func (r *rack) setTempo(bpm float64) {
	if math.IsNaN(bpm) || bpm <= 0 {
		bpm = DefaultTempo
	}
	r.tempo.Store(math.Float64bits(bpm))
}

func (r *rack) Tempo() float64 {
	return math.Float64frombits(r.tempo.Load())
}

// post queues a command without blocking. It reports false when the inbox is
// full and the command was dropped.
func (r *rack) post(c command) bool {
	select {
	case r.inbox <- c:
		return true
	default:
		return false
	}
}

func (r *rack) apply(c command) {
	switch c.kind {
	case cmdNoteOn:
		r.engine.NoteOn(c.note, c.velocity)
	case cmdNoteOff:
		r.engine.NoteOff(c.note)
	case cmdClearLatch:
		r.engine.ClearLatch()
	case cmdPanic:
		r.engine.ClearLatch()
		r.engine.Flush(0)
		r.synth.Reset()
	}
}

func (r *rack) drain() {
	for {
		select {
		case c := <-r.inbox:
			r.apply(c)
		default:
			return
		}
	}
}

// Process renders interleaved stereo frames into dst.
func (r *rack) Process(dst []float32) {
	r.drain()
	r.render(dst)
}

func (r *rack) render(dst []float32) {
	tempo := r.Tempo()
	r.fx.SetTempo(tempo)
	frames := len(dst) / 2
	for pos := 0; pos < frames; {
		n := min(intsynth.MaxBlock, frames-pos)
		r.engine.Process(n, intarp.Transport{Tempo: tempo})
		r.synth.Render(dst[pos*2 : (pos+n)*2])
		if r.rec != nil {
			r.rec.Advance(n)
		}
		pos += n
	}
	r.fx.ProcessBlock(dst)
	if r.tap != nil {
		r.tap(dst)
	}
}
