// Package arp is the polymetric arpeggiator engine.
//
// An Engine turns a held-note set into note events. On every clock tick it
// reads six independently cycling lanes, gates the step through a Euclidean
// pattern and a trig condition, resolves modifier flags, picks pitches from
// the pattern sequencer and splits the step into ratchet sub-notes. Process
// runs synchronously on the render goroutine and never allocates or blocks.
package arp

import (
	"math"
	"sync/atomic"

	"github.com/cbegin/polyarp-go/internal/clock"
	"github.com/cbegin/polyarp-go/internal/condition"
	"github.com/cbegin/polyarp-go/internal/humanize"
	"github.com/cbegin/polyarp-go/internal/lane"
	"github.com/cbegin/polyarp-go/internal/modifier"
	"github.com/cbegin/polyarp-go/internal/pattern"
	"github.com/cbegin/polyarp-go/internal/ratchet"
	"github.com/cbegin/polyarp-go/internal/spice"
)

const (
	maxPending  = 128
	maxSounding = 128
)

type pendingNote struct {
	at   int64
	off  int64
	hold bool
	ev   NoteEvent
}

type soundingNote struct {
	note int
	off  int64
	// hold marks a note kept sounding past its step because the next step
	// may tie or slide from it; the next step always resolves it.
	hold bool
}

type Engine struct {
	params     *Params
	sink       Sink
	sampleRate float64
	onStep     func(NoteEvent)
	onState    func(State)

	clock clock.Clock
	cond  *condition.Evaluator
	seq   *pattern.Sequencer
	dice  *spice.Dice
	human *humanize.Humanizer
	held  pattern.Held

	state    State
	enabled  bool
	latch    pattern.Latch
	seed     uint64
	now      int64
	absStep  int64
	lastNote int

	pending   [maxPending]pendingNote
	npending  int
	sounding  [maxSounding]soundingNote
	nsounding int

	pubLanes    [6]atomic.Int32
	pubStep     atomic.Int64
	pubState    atomic.Int32
	pubSounding atomic.Int32
}

func New(sampleRate int, params *Params, sink Sink) *Engine {
	return NewWithOptions(sampleRate, params, sink, Options{})
}

func NewWithOptions(sampleRate int, params *Params, sink Sink, opts Options) *Engine {
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	if params == nil {
		params = NewParams()
	}
	seed := params.Seed()
	e := &Engine{
		params:     params,
		sink:       sink,
		sampleRate: float64(sampleRate),
		onStep:     opts.OnStep,
		onState:    opts.OnState,
		cond:       condition.NewEvaluator(seed),
		seq:        pattern.NewSequencer(seed),
		dice:       spice.New(seed),
		human:      humanize.New(seed),
		enabled:    params.Enabled(),
		latch:      params.Latch(),
		seed:       seed,
		lastNote:   -1,
	}
	return e
}

func (e *Engine) Params() *Params { return e.params }

// RequestDice asks for a new random overlay. Safe from any goroutine; any
// number of requests before the next Process yield one regeneration.
func (e *Engine) RequestDice() { e.dice.Request() }

// DiceGeneration counts serviced dice requests.
func (e *Engine) DiceGeneration() uint64 { return e.dice.Generation() }

// State, Step, Positions and Sounding are published after every Process call
// and may be read from any goroutine.
func (e *Engine) State() State { return State(e.pubState.Load()) }

func (e *Engine) Step() int64 { return e.pubStep.Load() }

func (e *Engine) Positions() lane.Positions {
	var p lane.Positions
	for i := range p {
		p[i] = int(e.pubLanes[i].Load())
	}
	return p
}

func (e *Engine) Sounding() int { return int(e.pubSounding.Load()) }

// NoteOn adds a key to the held set. Render goroutine only, between Process
// calls.
func (e *Engine) NoteOn(note int, velocity float64) {
	if note < 0 || note > 127 {
		return
	}
	fresh := e.held.Len() == 0 || (e.latch == pattern.LatchHold && e.held.Down() == 0)
	if !e.held.Press(note, clamp01(velocity), e.latch) {
		return
	}
	if fresh || e.params.Retrigger() == RetriggerNote {
		e.restart()
	}
	e.updateState()
}

// NoteOff releases a key. Latched notes stay in the set.
func (e *Engine) NoteOff(note int) {
	e.held.Release(note, e.latch)
	e.updateState()
}

// ClearLatch empties the held set, including latched notes.
func (e *Engine) ClearLatch() {
	e.held.Clear()
	e.updateState()
}

// Held returns the held set in press order. Render goroutine only.
func (e *Engine) Held() []pattern.HeldNote {
	return e.held.Notes()
}

// Flush ends every note the engine is sustaining and drops scheduled
// sub-notes.
func (e *Engine) Flush(offset int) {
	for i := 0; i < e.nsounding; i++ {
		e.emitOff(offset, e.sounding[i].note)
	}
	e.nsounding = 0
	e.npending = 0
}

// Process advances the engine by frames samples.
func (e *Engine) Process(frames int, tr Transport) {
	e.sync()
	period := e.params.Rate().Period(e.sampleRate, tr.Tempo)
	for f := 0; f < frames; f++ {
		if e.enabled && e.state == Running && e.clock.Advance(period) {
			e.step(f)
		}
		e.dispatch(f)
		e.now++
	}
	e.publish()
}

// sync pulls block-rate configuration. The enabled flag is applied last so a
// disable flushes after every other field of the block has been taken.
func (e *Engine) sync() {
	p := e.params
	if s := p.Seed(); s != e.seed {
		e.seed = s
		e.cond.Reseed(s)
		e.seq.Reseed(s)
		e.dice.Reseed(s)
		e.human.Reseed(s)
	}
	e.dice.SetAmount(p.Spice())
	e.human.SetAmount(p.Humanize())
	e.dice.Service()
	if l := p.Latch(); l != e.latch {
		e.latch = l
		if l == pattern.LatchOff {
			e.held.Unlatch()
		}
		e.updateState()
	}
	en := p.Enabled()
	switch {
	case e.enabled && !en:
		e.Flush(0)
	case !e.enabled && en:
		e.clock.Reset()
	}
	e.enabled = en
}

func (e *Engine) updateState() {
	running := e.held.Len() > 0 || e.latch != pattern.LatchOff
	switch {
	case running && e.state == Idle:
		e.restart()
		e.setState(Running)
	case !running && e.state == Running:
		e.setState(Idle)
	}
}

func (e *Engine) setState(s State) {
	e.state = s
	e.pubState.Store(int32(s))
	if e.onState != nil {
		e.onState(s)
	}
}

func (e *Engine) restart() {
	e.params.Lanes.Rewind()
	e.cond.Reset()
	e.seq.Reset()
	e.absStep = 0
	e.lastNote = -1
	e.clock.Reset()
}

func (e *Engine) step(f int) {
	p := e.params
	l := p.Lanes
	abs := e.absStep
	e.absStep++
	duration := int(math.Round(e.clock.Interval()))

	vi, gi, pi := l.Velocity.Index(), l.Gate.Index(), l.Pitch.Index()
	mi, ri, ci := l.Modifier.Index(), l.Ratchet.Index(), l.Condition.Index()
	velocity := e.dice.Velocity(vi, l.Velocity.Step(vi))
	gate := e.dice.Gate(gi, l.Gate.Step(gi))
	offset := e.dice.Pitch(pi, l.Pitch.Step(pi))
	flags := e.dice.Modifier(mi, l.Modifier.Step(mi))
	count := e.dice.Ratchet(ri, l.Ratchet.Step(ri))
	cond := e.dice.Condition(ci, l.Condition.Step(ci))
	l.Advance()
	nmi := l.Modifier.Index()
	next := e.dice.Modifier(nmi, l.Modifier.Step(nmi))
	holdOver := next.Tie() || next.Slide()

	report := NoteEvent{Step: abs, Note: -1, SlideFrom: -1}
	fire := p.Euclid.Evaluate(abs)
	if !e.cond.Step(ci, cond, p.Fill()) {
		fire = false
	}
	if !fire || e.held.Len() == 0 {
		e.suppress(f, report)
		return
	}

	act := modifier.Process(flags, velocity, p.AccentVelocity())
	gateFrac := gate * p.GateLength() / 100
	switch act.Kind {
	case modifier.Silence:
		e.suppress(f, report)
		return
	case modifier.Sustain:
		if !e.sustain(duration, gateFrac, holdOver) {
			e.suppress(f, report)
			return
		}
		report.Note = e.lastNote
		e.observe(report)
		return
	}

	st := e.seq.Next(e.held.Notes(), p.Mode(), p.Octaves(), p.OctaveMode())
	slide := act.Slide && st.Count == 1 && e.lastNote >= 0
	keep := -1
	if slide {
		keep = e.lastNote
	}
	e.releaseHeld(f, keep)

	sched := ratchet.Split(count, duration, p.RatchetSwing())
	subs := sched.Slice()
	h := e.human.Apply(humanize.Note{Velocity: act.Velocity, Gate: gateFrac}, e.sampleRate, maxDelay(subs, duration))
	slideTime := int(p.SlideTime() * e.sampleRate / 1000)
	for k, sub := range subs {
		length := int(math.Round(float64(sub.Duration) * h.Gate))
		if length < 1 {
			length = 1
		}
		hold := holdOver && k == len(subs)-1
		for i := 0; i < st.Count; i++ {
			vel := h.Velocity
			if !flags.Accent() {
				vel *= st.Velocities[i]
			}
			ev := NoteEvent{
				Note:      clampNote(st.Notes[i] + offset),
				Velocity:  clamp01(vel),
				Gate:      h.Gate,
				Offset:    sub.Start + h.Delay,
				Length:    length,
				Step:      abs,
				Ratchet:   k,
				SlideFrom: -1,
			}
			if slide && k == 0 {
				ev.Slide = true
				ev.SlideFrom = e.lastNote
				ev.SlideTime = slideTime
			}
			at := e.now + int64(ev.Offset)
			off := at + int64(length)
			if hold {
				off = e.now + int64(2*duration)
			}
			e.schedule(pendingNote{at: at, off: off, hold: hold, ev: ev})
			if k == 0 && i == 0 {
				report = ev
			}
		}
	}
	e.lastNote = clampNote(st.Notes[st.Count-1] + offset)
	e.observe(report)
}

// maxDelay bounds the humanize delay to a quarter of the shortest sub-step,
// and keeps the last sub-note starting at least two samples before the next
// tick so a following Tie or Slide finds it sounding.
func maxDelay(subs []ratchet.SubStep, duration int) int {
	shortest := duration
	for _, sub := range subs {
		shortest = min(shortest, sub.Duration)
	}
	limit := min(shortest/4, duration-subs[len(subs)-1].Start-2)
	return max(limit, 0)
}

// sustain extends every sounding note over this step. It reports false when
// nothing is sounding.
func (e *Engine) sustain(duration int, gateFrac float64, holdOver bool) bool {
	if e.nsounding == 0 {
		return false
	}
	length := int(math.Round(float64(duration) * gateFrac))
	if length < 1 {
		length = 1
	}
	off := e.now + int64(length)
	if holdOver {
		off = e.now + int64(2*duration)
	}
	for i := 0; i < e.nsounding; i++ {
		s := &e.sounding[i]
		s.off = off
		s.hold = holdOver
	}
	return true
}

// suppress silences a step; held-over notes get their compensating note-off.
func (e *Engine) suppress(f int, report NoteEvent) {
	e.releaseHeld(f, -1)
	report.Suppressed = true
	e.observe(report)
}

func (e *Engine) releaseHeld(f int, keep int) {
	for i := 0; i < e.nsounding; {
		s := e.sounding[i]
		if s.hold && s.note != keep {
			e.emitOff(f, s.note)
			e.removeSounding(i)
			continue
		}
		i++
	}
}

func (e *Engine) schedule(pn pendingNote) {
	if e.npending == maxPending {
		return
	}
	e.pending[e.npending] = pn
	e.npending++
}

// dispatch fires everything due at the current sample: note-offs first so a
// retriggered pitch is closed before it reopens.
func (e *Engine) dispatch(f int) {
	for i := 0; i < e.nsounding; {
		s := e.sounding[i]
		if s.off <= e.now {
			e.emitOff(f, s.note)
			e.removeSounding(i)
			continue
		}
		i++
	}
	for i := 0; i < e.npending; {
		pn := e.pending[i]
		if pn.at > e.now {
			i++
			continue
		}
		copy(e.pending[i:e.npending], e.pending[i+1:e.npending])
		e.npending--
		e.start(f, pn)
	}
}

func (e *Engine) start(f int, pn pendingNote) {
	ev := pn.ev
	if ev.Slide {
		if j := e.findSounding(ev.SlideFrom); j >= 0 {
			e.removeSounding(j)
		}
	}
	if j := e.findSounding(ev.Note); j >= 0 {
		e.emitOff(f, ev.Note)
		e.removeSounding(j)
	}
	if e.nsounding == maxSounding {
		e.emitOff(f, e.sounding[0].note)
		e.removeSounding(0)
	}
	e.sounding[e.nsounding] = soundingNote{note: ev.Note, off: pn.off, hold: pn.hold}
	e.nsounding++
	if e.sink != nil {
		e.sink.NoteOn(f, ev)
	}
}

func (e *Engine) emitOff(f, note int) {
	if e.sink != nil {
		e.sink.NoteOff(f, note)
	}
}

func (e *Engine) findSounding(note int) int {
	for i := 0; i < e.nsounding; i++ {
		if e.sounding[i].note == note {
			return i
		}
	}
	return -1
}

func (e *Engine) removeSounding(i int) {
	copy(e.sounding[i:e.nsounding], e.sounding[i+1:e.nsounding])
	e.nsounding--
}

func (e *Engine) observe(ev NoteEvent) {
	if e.onStep != nil {
		e.onStep(ev)
	}
}

func (e *Engine) publish() {
	pos := e.params.Lanes.Positions()
	for i, v := range pos {
		e.pubLanes[i].Store(int32(v))
	}
	e.pubStep.Store(e.absStep)
	e.pubState.Store(int32(e.state))
	e.pubSounding.Store(int32(e.nsounding))
}

func clampNote(n int) int {
	if n < 0 {
		return 0
	}
	if n > 127 {
		return 127
	}
	return n
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
