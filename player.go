// Package polyarp is a polymetric arpeggiator with a built-in voice engine.
//
// A Player owns the realtime render graph. Keyboard input, dice rolls and
// parameter changes may come from any goroutine; the audio goroutine picks
// them up at the next buffer without locks.
package polyarp

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/gomidi/midi/v2"

	intarp "github.com/cbegin/polyarp-go/internal/arp"
	intaudio "github.com/cbegin/polyarp-go/internal/audio"
	intlane "github.com/cbegin/polyarp-go/internal/lane"
	intmidi "github.com/cbegin/polyarp-go/internal/midiio"
	intpreset "github.com/cbegin/polyarp-go/internal/preset"
	intsynth "github.com/cbegin/polyarp-go/internal/synth"
)

const DefaultTempo = 120.0

type EventKind int

const (
	// EventStep reports every evaluated step, including suppressed ones.
	EventStep EventKind = iota
	// EventState reports idle/running transitions.
	EventState
)

// PlaybackEvent carries engine activity from Watch().
type PlaybackEvent struct {
	Kind  EventKind
	Step  intarp.NoteEvent
	State intarp.State
}

// Wave selects the voice waveform.
type Wave string

const (
	WavePulse    Wave = "pulse"
	WaveSaw      Wave = "saw"
	WaveTriangle Wave = "triangle"
)

func (w Wave) synthWave() (intsynth.Wave, error) {
	switch w {
	case WavePulse, "":
		return intsynth.WavePulse, nil
	case WaveSaw:
		return intsynth.WaveSaw, nil
	case WaveTriangle:
		return intsynth.WaveTriangle, nil
	}
	return intsynth.WavePulse, fmt.Errorf("polyarp: unknown wave %q", string(w))
}

type PlayerOption func(*playerConfig)

type echoConfig struct {
	beats    float64
	feedback float32
	cross    float32
	wet      float32
}

type playerConfig struct {
	tempo      float64
	voices     int
	wave       Wave
	synthWave  intsynth.Wave
	echo       *echoConfig
	sampleTap  func([]float32)
	params     *intarp.Params
	seed       *uint64
	bufferSize time.Duration
	dice       bool
	record     bool
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{tempo: DefaultTempo}
}

// WithTempo sets the host tempo used by tempo-synced rates and the echo.
func WithTempo(bpm float64) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.tempo = bpm
	}
}

func WithVoices(n int) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.voices = n
	}
}

func WithWave(w Wave) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.wave = w
	}
}

// WithEcho adds a tempo-synced echo. beats is the delay in quarter notes;
// cross 1 gives a ping-pong echo.
func WithEcho(beats float64, feedback, cross, wet float32) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.echo = &echoConfig{beats: beats, feedback: feedback, cross: cross, wet: wet}
	}
}

// WithSampleTap installs a callback invoked with each generated stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleTap = tap
	}
}

// WithParams shares an existing parameter block instead of creating one.
func WithParams(p *intarp.Params) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.params = p
	}
}

func WithSeed(seed uint64) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.seed = &seed
	}
}

// WithBufferSize sets the output buffer length for live playback.
func WithBufferSize(d time.Duration) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.bufferSize = d
	}
}

// WithDice rolls a random overlay before the first step.
func WithDice() PlayerOption {
	return func(cfg *playerConfig) {
		cfg.dice = true
	}
}

func withRecorder() PlayerOption {
	return func(cfg *playerConfig) {
		cfg.record = true
	}
}

func buildConfig(opts []PlayerOption) (playerConfig, *intarp.Params, error) {
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	w, err := cfg.wave.synthWave()
	if err != nil {
		return cfg, nil, err
	}
	cfg.synthWave = w
	params := cfg.params
	if params == nil {
		params = intarp.NewParams()
	}
	if cfg.seed != nil {
		params.SetSeed(*cfg.seed)
	}
	return cfg, params, nil
}

type Player struct {
	mu         sync.Mutex
	sampleRate int
	params     *intarp.Params
	rack       *rack
	audio      *intaudio.Output
	bufferSize time.Duration
	baseGain   float64
	volume     float64
	eventCh    atomic.Pointer[chan PlaybackEvent]
}

func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg, params, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}
	p := &Player{
		sampleRate: sampleRate,
		params:     params,
		bufferSize: cfg.bufferSize,
		volume:     1,
	}
	p.rack = newRack(sampleRate, params, cfg, p.sendEvent)
	p.baseGain = p.rack.synth.MasterGain()
	return p, nil
}

// Params is the live parameter block. Setters are safe from any goroutine.
func (p *Player) Params() *intarp.Params { return p.params }

// Start opens the audio output and begins rendering.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		return nil
	}
	out, err := intaudio.Open(p.sampleRate, p.rack, p.bufferSize)
	if err != nil {
		return fmt.Errorf("polyarp: start audio: %w", err)
	}
	p.audio = out
	return nil
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Pause()
	}
}

func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Resume()
	}
}

func (p *Player) Stop() error {
	p.mu.Lock()
	if p.audio == nil {
		p.mu.Unlock()
		return nil
	}
	err := p.audio.Close()
	p.audio = nil
	p.mu.Unlock()
	return err
}

// Process renders dst directly, for hosts that drive their own output. Do not
// mix with Start.
func (p *Player) Process(dst []float32) { p.rack.Process(dst) }

// NoteOn presses a key. It reports false if the input queue was full.
func (p *Player) NoteOn(note int, velocity float64) bool {
	return p.rack.post(command{kind: cmdNoteOn, note: note, velocity: velocity})
}

func (p *Player) NoteOff(note int) bool {
	return p.rack.post(command{kind: cmdNoteOff, note: note})
}

// ClearLatch drops every held and latched note.
func (p *Player) ClearLatch() bool {
	return p.rack.post(command{kind: cmdClearLatch})
}

// Panic clears the held set and silences every voice.
func (p *Player) Panic() bool {
	return p.rack.post(command{kind: cmdPanic})
}

// HandleMIDI applies a live MIDI message: notes go to the held set, CC 80
// rolls the dice and CC 81 holds Fill. Other messages are ignored. It reports
// false only when a note was dropped because the input queue was full.
func (p *Player) HandleMIDI(msg midi.Message) bool {
	in := intmidi.Decode(msg)
	switch in.Kind {
	case intmidi.InputNoteOn:
		return p.NoteOn(in.Note, in.Velocity)
	case intmidi.InputNoteOff:
		return p.NoteOff(in.Note)
	case intmidi.InputDice:
		p.Dice()
	case intmidi.InputFill:
		p.SetFill(in.On)
	}
	return true
}

// Dice requests a new random overlay, applied at the next buffer.
func (p *Player) Dice() { p.rack.engine.RequestDice() }

func (p *Player) SetFill(on bool) { p.params.SetFill(on) }

func (p *Player) SetTempo(bpm float64) { p.rack.setTempo(bpm) }
func (p *Player) Tempo() float64       { return p.rack.Tempo() }

func (p *Player) State() intarp.State { return p.rack.engine.State() }

// Positions reports every lane's cursor as of the last rendered buffer.
func (p *Player) Positions() intlane.Positions { return p.rack.engine.Positions() }

func (p *Player) Step() int64 { return p.rack.engine.Step() }

// Peak is the output level of the last rendered block.
func (p *Player) Peak() float64 { return p.rack.synth.Peak() }

// SetMasterVolume sets runtime volume scalar. 1.0 is default.
func (p *Player) SetMasterVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
	p.rack.synth.SetMasterGain(p.baseGain * p.volume)
}

func (p *Player) MasterVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// PlaybackPosition returns the current output position of the audio driver
// in frames. Returns 0 if not playing.
func (p *Player) PlaybackPosition() int64 {
	p.mu.Lock()
	a := p.audio
	p.mu.Unlock()
	if a == nil {
		return 0
	}
	return int64(a.Position().Seconds() * float64(p.sampleRate))
}

// SavePreset writes the current configuration.
func (p *Player) SavePreset(w io.Writer) error {
	return intpreset.Save(w, p.params.Snapshot())
}

// LoadPreset reads a preset and applies it. A truncated preset applies the
// fields it contains and defaults for the rest.
func (p *Player) LoadPreset(r io.Reader) error {
	c, err := intpreset.Load(r)
	if err != nil {
		return err
	}
	p.params.Apply(c)
	return nil
}

// Watch returns a channel that receives step and state events. The channel
// is buffered (cap 64) and events are dropped when it is full. Only the most
// recent Watch() channel receives events.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 64)
	p.eventCh.Store(&ch)
	return ch
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	ch := p.eventCh.Load()
	if ch == nil {
		return
	}
	select {
	case *ch <- ev:
	default:
	}
}
