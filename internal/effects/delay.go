package effects

import "math"

// Echo is a stereo feedback delay whose time follows the host tempo.
type Echo struct {
	bufL, bufR []float32
	pos        int
	length     int
	sampleRate float64
	beats      float64
	tempo      float64
	feedback   float32
	cross      float32
	wet        float32
}

// NewEcho allocates room for maxSec of delay.
// beats: delay time in quarter notes
// feedback: feedback amount 0..1
// cross: cross-channel feedback 0..1 (1 = ping-pong)
// wet: wet/dry mix 0..1
func NewEcho(sampleRate int, maxSec, beats float64, feedback, cross, wet float32) *Echo {
	size := int(maxSec * float64(sampleRate))
	if size < 1 {
		size = 1
	}
	e := &Echo{
		bufL:       make([]float32, size),
		bufR:       make([]float32, size),
		sampleRate: float64(sampleRate),
		beats:      beats,
		feedback:   clamp(feedback, 0, 0.95),
		cross:      clamp(cross, 0, 1),
		wet:        clamp(wet, 0, 1),
	}
	e.SetTempo(120)
	return e
}

// SetTempo recomputes the delay length. Cheap when the tempo is unchanged.
func (e *Echo) SetTempo(bpm float64) {
	if bpm <= 0 || bpm == e.tempo {
		return
	}
	e.tempo = bpm
	n := int(math.Round(e.beats * 60 / bpm * e.sampleRate))
	if n < 1 {
		n = 1
	}
	if n > len(e.bufL) {
		n = len(e.bufL)
	}
	e.length = n
	if e.pos >= n {
		e.pos = 0
	}
}

// Length is the current delay in samples.
func (e *Echo) Length() int { return e.length }

func (e *Echo) Process(l, r float32) (float32, float32) {
	delL := e.bufL[e.pos]
	delR := e.bufR[e.pos]
	fbL := delL*e.feedback*(1-e.cross) + delR*e.feedback*e.cross
	fbR := delR*e.feedback*(1-e.cross) + delL*e.feedback*e.cross
	e.bufL[e.pos] = l + fbL
	e.bufR[e.pos] = r + fbR
	e.pos++
	if e.pos >= e.length {
		e.pos = 0
	}
	return l*(1-e.wet) + delL*e.wet, r*(1-e.wet) + delR*e.wet
}

func (e *Echo) Reset() {
	clear(e.bufL)
	clear(e.bufR)
	e.pos = 0
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
