// Package lane implements fixed-capacity cyclic step lanes.
//
// A Lane holds MaxSteps slots and an independent active length. Slot values
// and the length are stored in atomic cells so a control goroutine can write
// while the render goroutine reads; the cursor is owned by the reader.
package lane

import (
	"math"
	"sync/atomic"
)

const MaxSteps = 32

// Codec maps a lane value to and from its atomic storage word and clamps
// writes to the lane's documented range.
type Codec[T any] struct {
	Encode func(T) uint64
	Decode func(uint64) T
	Clamp  func(T) T
}

type Lane[T any] struct {
	codec  Codec[T]
	def    T
	length atomic.Int32
	steps  [MaxSteps]atomic.Uint64
	index  int
}

// New returns a lane of length 1 with every slot set to def.
func New[T any](codec Codec[T], def T) *Lane[T] {
	l := &Lane[T]{codec: codec, def: def}
	l.Reset()
	return l
}

// Reset restores the documented defaults: length 1, all slots def, cursor 0.
func (l *Lane[T]) Reset() {
	word := l.codec.Encode(l.codec.Clamp(l.def))
	for i := range l.steps {
		l.steps[i].Store(word)
	}
	l.length.Store(1)
	l.index = 0
}

// SetLength clamps n to [1,MaxSteps]. Slot values are never touched, so
// shrinking and regrowing preserves them.
func (l *Lane[T]) SetLength(n int) {
	l.length.Store(int32(clampInt(n, 1, MaxSteps)))
}

func (l *Lane[T]) Length() int {
	return int(l.length.Load())
}

// SetStep writes one slot. Out-of-range indices are ignored.
func (l *Lane[T]) SetStep(i int, v T) {
	if i < 0 || i >= MaxSteps {
		return
	}
	l.steps[i].Store(l.codec.Encode(l.codec.Clamp(v)))
}

func (l *Lane[T]) Step(i int) T {
	if i < 0 || i >= MaxSteps {
		return l.def
	}
	return l.codec.Decode(l.steps[i].Load())
}

// Write replaces the lane contents: the length is expanded to MaxSteps, every
// provided slot is written, then the length shrinks to n. Slots past
// len(values) keep their previous contents.
func (l *Lane[T]) Write(values []T, n int) {
	l.length.Store(MaxSteps)
	for i := 0; i < len(values) && i < MaxSteps; i++ {
		l.SetStep(i, values[i])
	}
	l.SetLength(n)
}

// Values copies the first Length() slots into dst and returns it.
func (l *Lane[T]) Values(dst []T) []T {
	dst = dst[:0]
	n := l.Length()
	for i := 0; i < n; i++ {
		dst = append(dst, l.Step(i))
	}
	return dst
}

// Index is the cursor position, always in [0, Length()).
func (l *Lane[T]) Index() int {
	n := l.Length()
	if l.index >= n {
		l.index %= n
	}
	return l.index
}

// Current returns the value under the cursor.
func (l *Lane[T]) Current() T {
	return l.Step(l.Index())
}

// Advance moves the cursor one slot, wrapping at the lane's own length.
func (l *Lane[T]) Advance() {
	l.index = (l.Index() + 1) % l.Length()
}

// Rewind puts the cursor back on slot 0.
func (l *Lane[T]) Rewind() {
	l.index = 0
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
