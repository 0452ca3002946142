// Package synth is a small polyphonic voice engine that plays arpeggiator
// note events with sample-accurate timing.
package synth

import (
	"math"
	"sync/atomic"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/cbegin/polyarp-go/internal/arp"
)

const twoPi = math.Pi * 2

// MaxBlock is the largest number of frames rendered in one pass.
const MaxBlock = 1024

type Wave int

const (
	WavePulse Wave = iota
	WaveSaw
	WaveTriangle
)

func (w Wave) String() string {
	switch w {
	case WaveSaw:
		return "saw"
	case WaveTriangle:
		return "triangle"
	}
	return "pulse"
}

type Params struct {
	Voices      int
	MasterGain  float64
	AttackSec   float64
	DecaySec    float64
	SustainLvl  float64
	ReleaseSec  float64
	Wave        Wave
	PulseDuty   float64
	VelocityAmp float64
	LPFCutoff   float64 // lowpass cutoff in Hz (0 = disabled)
	Spread      float64 // stereo spread by pitch, 0..1
}

func DefaultParams() Params {
	return Params{
		Voices:      16,
		MasterGain:  0.25,
		AttackSec:   0.002,
		DecaySec:    0.12,
		SustainLvl:  0.6,
		ReleaseSec:  0.08,
		Wave:        WavePulse,
		PulseDuty:   0.25,
		VelocityAmp: 0.85,
		LPFCutoff:   9000,
		Spread:      0.4,
	}
}

type envState int

const (
	envAttack envState = iota
	envDecay
	envSustain
	envRelease
	envOff
)

type voice struct {
	active   bool
	note     int
	age      int
	freq     float64
	phase    float64
	velocity float64
	env      float64
	envState envState
	gainL    float64
	gainR    float64

	glideTarget float64
	glideFrames int
	glideStep   float64
}

type event struct {
	offset int
	on     bool
	note   int
	ev     arp.NoteEvent
}

const maxEvents = 512

// Synth implements arp.Sink. Events received before Render are applied at
// their frame offsets within the next rendered block.
type Synth struct {
	sampleRate float64
	params     Params
	voices     []voice
	masterGain atomic.Uint64
	peak       atomic.Uint64

	events  [maxEvents]event
	nevents int

	voiceBuf []float64
	scratch  []float64
	mixL     []float64
	mixR     []float64

	dcPrevInL  float64
	dcPrevOutL float64
	dcPrevInR  float64
	dcPrevOutR float64
	lpfL       float64
	lpfR       float64
	lpfAlpha   float64
}

func New(sampleRate int, params Params) *Synth {
	if params.Voices <= 0 {
		params.Voices = 16
	}
	if params.PulseDuty <= 0 || params.PulseDuty >= 1 {
		params.PulseDuty = 0.5
	}
	s := &Synth{
		sampleRate: float64(sampleRate),
		params:     params,
		voices:     make([]voice, params.Voices),
		voiceBuf:   make([]float64, MaxBlock),
		scratch:    make([]float64, MaxBlock),
		mixL:       make([]float64, MaxBlock),
		mixR:       make([]float64, MaxBlock),
	}
	s.SetMasterGain(params.MasterGain)
	if params.LPFCutoff > 0 && params.LPFCutoff < float64(sampleRate)/2 {
		rc := 1.0 / (twoPi * params.LPFCutoff)
		dt := 1.0 / float64(sampleRate)
		s.lpfAlpha = dt / (rc + dt)
	}
	return s
}

func (s *Synth) NoteOn(offset int, ev arp.NoteEvent) {
	s.push(event{offset: offset, on: true, note: ev.Note, ev: ev})
}

func (s *Synth) NoteOff(offset int, note int) {
	s.push(event{offset: offset, note: note})
}

func (s *Synth) push(e event) {
	if s.nevents == maxEvents {
		return
	}
	s.events[s.nevents] = e
	s.nevents++
}

// Render writes len(dst)/2 interleaved stereo frames. Queued events are
// consumed; offsets past the end of the block apply after its last frame.
func (s *Synth) Render(dst []float32) {
	frames := len(dst) / 2
	pos := 0
	next := 0
	for pos < frames {
		for next < s.nevents && s.events[next].offset <= pos {
			s.apply(&s.events[next])
			next++
		}
		end := frames
		if next < s.nevents && s.events[next].offset < end {
			end = s.events[next].offset
		}
		if end-pos > MaxBlock {
			end = pos + MaxBlock
		}
		s.renderSegment(dst[pos*2:end*2], end-pos)
		pos = end
	}
	for ; next < s.nevents; next++ {
		s.apply(&s.events[next])
	}
	s.nevents = 0
}

func (s *Synth) renderSegment(dst []float32, n int) {
	mixL, mixR := s.mixL[:n], s.mixR[:n]
	clear(mixL)
	clear(mixR)
	buf, tmp := s.voiceBuf[:n], s.scratch[:n]
	for i := range s.voices {
		v := &s.voices[i]
		if !v.active {
			continue
		}
		s.renderVoice(v, buf)
		vecmath.ScaleBlock(tmp, buf, v.gainL)
		vecmath.AddBlockInPlace(mixL, tmp)
		vecmath.ScaleBlock(tmp, buf, v.gainR)
		vecmath.AddBlockInPlace(mixR, tmp)
	}
	gain := s.MasterGain()
	vecmath.ScaleBlockInPlace(mixL, gain)
	vecmath.ScaleBlockInPlace(mixR, gain)

	for i := 0; i < n; i++ {
		l := s.dcBlockL(mixL[i])
		r := s.dcBlockR(mixR[i])
		if s.lpfAlpha > 0 {
			s.lpfL += s.lpfAlpha * (l - s.lpfL)
			s.lpfR += s.lpfAlpha * (r - s.lpfR)
			l, r = s.lpfL, s.lpfR
		}
		mixL[i], mixR[i] = l, r
		dst[i*2] = float32(clamp(l, -1, 1))
		dst[i*2+1] = float32(clamp(r, -1, 1))
	}
	peak := math.Max(vecmath.MaxAbs(mixL), vecmath.MaxAbs(mixR))
	s.peak.Store(math.Float64bits(peak))
}

func (s *Synth) renderVoice(v *voice, out []float64) {
	for i := range out {
		if !v.active {
			out[i] = 0
			continue
		}
		v.age++
		if v.glideFrames > 0 {
			v.glideFrames--
			v.freq += v.glideStep
			if v.glideFrames == 0 {
				v.freq = v.glideTarget
			}
		}
		env := s.advanceEnv(v)
		out[i] = s.renderWave(v) * env * (0.15 + v.velocity*s.params.VelocityAmp)
	}
}

func (s *Synth) apply(e *event) {
	if !e.on {
		for i := range s.voices {
			v := &s.voices[i]
			if v.active && v.note == e.note && v.envState != envRelease {
				v.envState = envRelease
			}
		}
		return
	}
	ev := e.ev
	target := midiToFreq(ev.Note)
	if ev.Slide {
		if v := s.findHeld(ev.SlideFrom); v != nil {
			// Legato: keep the envelope, move the pitch.
			s.glide(v, target, ev.SlideTime)
			v.note = ev.Note
			v.velocity = clamp(ev.Velocity, 0, 1)
			s.pan(v)
			return
		}
	}
	v := &s.voices[s.stealVoice()]
	v.active = true
	v.note = ev.Note
	v.age = 0
	v.phase = 0
	v.velocity = clamp(ev.Velocity, 0, 1)
	v.env = 0
	v.envState = envAttack
	v.freq = target
	v.glideFrames = 0
	if ev.Slide && ev.SlideFrom >= 0 {
		v.freq = midiToFreq(ev.SlideFrom)
		s.glide(v, target, ev.SlideTime)
	}
	s.pan(v)
}

func (s *Synth) glide(v *voice, target float64, frames int) {
	if frames <= 0 {
		v.freq = target
		v.glideFrames = 0
		return
	}
	v.glideTarget = target
	v.glideFrames = frames
	v.glideStep = (target - v.freq) / float64(frames)
}

func (s *Synth) pan(v *voice) {
	p := clamp(float64(v.note-60)/48*s.params.Spread, -1, 1)
	angle := (p + 1) / 2 * (math.Pi / 2)
	v.gainL = math.Cos(angle)
	v.gainR = math.Sin(angle)
}

func (s *Synth) findHeld(note int) *voice {
	for i := range s.voices {
		v := &s.voices[i]
		if v.active && v.note == note && v.envState != envRelease {
			return v
		}
	}
	return nil
}

func (s *Synth) stealVoice() int {
	for i := range s.voices {
		if !s.voices[i].active {
			return i
		}
	}
	oldestRelease, oldestReleaseAge := -1, -1
	oldestActive, oldestActiveAge := 0, -1
	for i := range s.voices {
		v := &s.voices[i]
		if v.envState == envRelease && v.age > oldestReleaseAge {
			oldestRelease, oldestReleaseAge = i, v.age
		}
		if v.age > oldestActiveAge {
			oldestActive, oldestActiveAge = i, v.age
		}
	}
	if oldestRelease >= 0 {
		return oldestRelease
	}
	return oldestActive
}

func (s *Synth) advanceEnv(v *voice) float64 {
	p := &s.params
	switch v.envState {
	case envAttack:
		step := 1.0
		if p.AttackSec > 0 {
			step = 1 / (p.AttackSec * s.sampleRate)
		}
		v.env += step
		if v.env >= 1 {
			v.env = 1
			v.envState = envDecay
		}
	case envDecay:
		step := 1.0
		if p.DecaySec > 0 {
			step = (1 - p.SustainLvl) / (p.DecaySec * s.sampleRate)
		}
		v.env -= step
		if v.env <= p.SustainLvl {
			v.env = p.SustainLvl
			v.envState = envSustain
		}
	case envSustain:
	case envRelease:
		step := 1.0
		if p.ReleaseSec > 0 {
			step = math.Max(p.SustainLvl, 0.05) / (p.ReleaseSec * s.sampleRate)
		}
		v.env -= step
		if v.env <= 0.0001 {
			v.env = 0
			v.envState = envOff
			v.active = false
		}
	case envOff:
		v.active = false
		v.env = 0
	}
	return v.env
}

// polyBLEP reduces aliasing at waveform discontinuities.
func polyBLEP(t, dt float64) float64 {
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

func (s *Synth) renderWave(v *voice) float64 {
	dt := v.freq / s.sampleRate
	v.phase += dt
	if v.phase >= 1 {
		v.phase -= 1
	}
	switch s.params.Wave {
	case WaveSaw:
		return 2*v.phase - 1 - polyBLEP(v.phase, dt)
	case WaveTriangle:
		return 2*math.Abs(2*v.phase-1) - 1
	default:
		duty := s.params.PulseDuty
		out := -1.0
		if v.phase < duty {
			out = 1
		}
		out += polyBLEP(v.phase, dt)
		out -= polyBLEP(math.Mod(v.phase-duty+1, 1), dt)
		return out
	}
}

func (s *Synth) dcBlockL(x float64) float64 {
	const r = 0.995
	y := x - s.dcPrevInL + r*s.dcPrevOutL
	s.dcPrevInL = x
	s.dcPrevOutL = y
	return y
}

func (s *Synth) dcBlockR(x float64) float64 {
	const r = 0.995
	y := x - s.dcPrevInR + r*s.dcPrevOutR
	s.dcPrevInR = x
	s.dcPrevOutR = y
	return y
}

// Reset silences every voice immediately and drops queued events.
func (s *Synth) Reset() {
	for i := range s.voices {
		s.voices[i] = voice{}
	}
	s.nevents = 0
}

func (s *Synth) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	s.masterGain.Store(math.Float64bits(gain))
}

func (s *Synth) MasterGain() float64 {
	return math.Float64frombits(s.masterGain.Load())
}

// Peak is the absolute peak of the last rendered segment. Safe from any
// goroutine.
func (s *Synth) Peak() float64 {
	return math.Float64frombits(s.peak.Load())
}

func (s *Synth) ActiveVoiceCount() int {
	n := 0
	for i := range s.voices {
		if s.voices[i].active {
			n++
		}
	}
	return n
}

func midiToFreq(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
