package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

type rampSource struct{ n float32 }

func (s *rampSource) Process(dst []float32) {
	for i := range dst {
		dst[i] = s.n
		s.n += 0.25
	}
}

func TestStreamReaderEncodesFloat32LE(t *testing.T) {
	r := NewStreamReader(&rampSource{})
	p := make([]byte, 2*8+3) // trailing partial frame is ignored
	n, err := r.Read(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != 16 {
		t.Fatalf("n = %d, want 16", n)
	}
	for i, want := range []float32{0, 0.25, 0.5, 0.75} {
		got := math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:]))
		if got != want {
			t.Fatalf("sample %d = %v, want %v", i, got, want)
		}
	}
	if r.Frames() != 2 {
		t.Fatalf("frames = %d", r.Frames())
	}
}
