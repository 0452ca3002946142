// Package euclid implements a Bjorklund (Euclidean) hit/rest gate.
package euclid

import "sync/atomic"

const (
	MinSteps = 2
	MaxSteps = 32
)

// Pattern is a step bitmask: bit i set means step i is a hit.
type Pattern uint32

func (p Pattern) Hit(i int) bool { return p&(1<<uint(i)) != 0 }

// Bools expands the first steps positions of p.
func (p Pattern) Bools(steps int) []bool {
	out := make([]bool, steps)
	for i := range out {
		out[i] = p.Hit(i)
	}
	return out
}

// Count returns the number of hits within the first steps positions.
func (p Pattern) Count(steps int) int {
	n := 0
	for i := 0; i < steps; i++ {
		if p.Hit(i) {
			n++
		}
	}
	return n
}

// Bjorklund distributes hits across steps as evenly as possible. The result
// starts on a hit whenever hits > 0.
func Bjorklund(hits, steps int) Pattern {
	steps = clamp(steps, 1, MaxSteps)
	hits = clamp(hits, 0, steps)
	if hits == 0 {
		return 0
	}
	if hits == steps {
		return full(steps)
	}

	var counts, remainders [MaxSteps + 2]int
	divisor := steps - hits
	remainders[0] = hits
	level := 0
	for {
		counts[level] = divisor / remainders[level]
		remainders[level+1] = divisor % remainders[level]
		divisor = remainders[level]
		level++
		if remainders[level] <= 1 {
			break
		}
	}
	counts[level] = divisor

	var bits [MaxSteps]bool
	n := 0
	var build func(level int)
	build = func(level int) {
		switch level {
		case -1:
			n++
		case -2:
			bits[n] = true
			n++
		default:
			for i := 0; i < counts[level]; i++ {
				build(level - 1)
			}
			if remainders[level] != 0 {
				build(level - 2)
			}
		}
	}
	build(level)

	first := 0
	for first < steps && !bits[first] {
		first++
	}
	var p Pattern
	for i := 0; i < steps; i++ {
		if bits[(i+first)%steps] {
			p |= 1 << uint(i)
		}
	}
	return p
}

// Rotate shifts p right by r positions within a ring of steps, so the hit at
// step i moves to step (i+r) mod steps.
func Rotate(p Pattern, r, steps int) Pattern {
	steps = clamp(steps, 1, MaxSteps)
	r %= steps
	if r < 0 {
		r += steps
	}
	if r == 0 {
		return p & full(steps)
	}
	mask := full(steps)
	p &= mask
	return ((p << uint(r)) | (p >> uint(steps-r))) & mask
}

func full(steps int) Pattern {
	if steps >= 32 {
		return ^Pattern(0)
	}
	return Pattern(1)<<uint(steps) - 1
}

// Config is a plain snapshot of a gate's settings.
type Config struct {
	Enabled  bool
	Hits     int
	Steps    int
	Rotation int
}

func DefaultConfig() Config {
	return Config{Hits: 4, Steps: 8}
}

// Gate is a lock-free Euclidean gate. Setters recompute the pattern on the
// writer's goroutine and publish it as one word; Evaluate only loads.
type Gate struct {
	enabled  atomic.Bool
	hits     atomic.Int32
	steps    atomic.Int32
	rotation atomic.Int32
	pattern  atomic.Uint32
}

func NewGate() *Gate {
	g := &Gate{}
	g.Apply(DefaultConfig())
	return g
}

// Apply writes steps, then hits, then rotation, and the enabled flag last so
// the pattern is complete before it can gate anything.
func (g *Gate) Apply(c Config) {
	g.SetSteps(c.Steps)
	g.SetHits(c.Hits)
	g.SetRotation(c.Rotation)
	g.SetEnabled(c.Enabled)
}

func (g *Gate) SetSteps(n int) {
	n = clamp(n, MinSteps, MaxSteps)
	g.steps.Store(int32(n))
	if h := int(g.hits.Load()); h > n {
		g.hits.Store(int32(n))
	}
	if r := int(g.rotation.Load()); r > n-1 {
		g.rotation.Store(int32(n - 1))
	}
	g.publish()
}

func (g *Gate) SetHits(n int) {
	g.hits.Store(int32(clamp(n, 0, int(g.steps.Load()))))
	g.publish()
}

func (g *Gate) SetRotation(n int) {
	g.rotation.Store(int32(clamp(n, 0, int(g.steps.Load())-1)))
	g.publish()
}

func (g *Gate) SetEnabled(on bool) {
	g.enabled.Store(on)
}

func (g *Gate) Config() Config {
	return Config{
		Enabled:  g.enabled.Load(),
		Hits:     int(g.hits.Load()),
		Steps:    int(g.steps.Load()),
		Rotation: int(g.rotation.Load()),
	}
}

// Pattern returns the rotated pattern currently in effect.
func (g *Gate) Pattern() Pattern {
	return Pattern(g.pattern.Load())
}

func (g *Gate) publish() {
	steps := int(g.steps.Load())
	p := Rotate(Bjorklund(int(g.hits.Load()), steps), int(g.rotation.Load()), steps)
	g.pattern.Store(uint32(p))
}

// Evaluate reports whether the absolute step fires. A disabled gate passes
// every step.
func (g *Gate) Evaluate(step int64) bool {
	if !g.enabled.Load() {
		return true
	}
	steps := int64(g.steps.Load())
	i := step % steps
	if i < 0 {
		i += steps
	}
	return g.Pattern().Hit(int(i))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
