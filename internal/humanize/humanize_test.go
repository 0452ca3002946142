package humanize

import (
	"math"
	"testing"
)

func TestZeroAmountIsIdentity(t *testing.T) {
	h := New(5)
	in := Note{Delay: 3, Velocity: 0.61, Gate: 0.8}
	for i := 0; i < 50; i++ {
		if out := h.Apply(in, 48000, 1000); out != in {
			t.Fatalf("humanize=0 changed %+v to %+v", in, out)
		}
	}
}

func TestJitterStaysInBounds(t *testing.T) {
	h := New(5)
	h.SetAmount(1)
	const sr = 48000.0
	maxDelay := int(math.Round(MaxDelaySec * sr))
	in := Note{Velocity: 0.5, Gate: 1}
	moved := false
	for i := 0; i < 1000; i++ {
		out := h.Apply(in, sr, 100000)
		if out.Delay < 0 || out.Delay > maxDelay {
			t.Fatalf("delay %d out of range", out.Delay)
		}
		if math.Abs(out.Velocity-0.5) > MaxVelocity+1e-12 {
			t.Fatalf("velocity %v out of range", out.Velocity)
		}
		if math.Abs(out.Gate-1) > MaxGateFactor+1e-12 {
			t.Fatalf("gate %v out of range", out.Gate)
		}
		if out != in {
			moved = true
		}
	}
	if !moved {
		t.Fatal("humanize=1 never changed anything")
	}
}

func TestDelayCappedByStep(t *testing.T) {
	h := New(1)
	h.SetAmount(1)
	for i := 0; i < 200; i++ {
		if out := h.Apply(Note{Velocity: 1, Gate: 1}, 48000, 10); out.Delay > 10 {
			t.Fatalf("delay %d exceeds cap", out.Delay)
		}
	}
}

func TestSameSeedSameJitter(t *testing.T) {
	a, b := New(77), New(77)
	a.SetAmount(0.7)
	b.SetAmount(0.7)
	for i := 0; i < 100; i++ {
		n := Note{Velocity: 0.8, Gate: 0.5}
		if a.Apply(n, 44100, 500) != b.Apply(n, 44100, 500) {
			t.Fatalf("diverged at %d", i)
		}
	}
}
