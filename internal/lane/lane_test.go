package lane

import (
	"testing"

	"github.com/cbegin/polyarp-go/internal/condition"
	"github.com/cbegin/polyarp-go/internal/modifier"
)

func TestDefaults(t *testing.T) {
	s := NewSet()
	if s.Velocity.Length() != 1 || s.Velocity.Current() != 1 {
		t.Fatalf("velocity default: len=%d v=%v", s.Velocity.Length(), s.Velocity.Current())
	}
	if s.Gate.Current() != 1 || s.Pitch.Current() != 0 || s.Ratchet.Current() != 1 {
		t.Fatal("unexpected numeric lane defaults")
	}
	if s.Modifier.Current() != modifier.Active || s.Condition.Current() != condition.Always {
		t.Fatal("unexpected enum lane defaults")
	}
}

func TestSetStepClamps(t *testing.T) {
	v := NewVelocity()
	v.SetStep(0, 1.7)
	v.SetStep(1, -3)
	if v.Step(0) != 1 || v.Step(1) != 0 {
		t.Fatalf("velocity clamp: %v %v", v.Step(0), v.Step(1))
	}
	g := NewGate()
	g.SetStep(0, 0)
	g.SetStep(1, 9)
	if g.Step(0) != MinGate || g.Step(1) != MaxGate {
		t.Fatalf("gate clamp: %v %v", g.Step(0), g.Step(1))
	}
	p := NewPitch()
	p.SetStep(0, -99)
	p.SetStep(1, 99)
	if p.Step(0) != MinPitch || p.Step(1) != MaxPitch {
		t.Fatalf("pitch clamp: %v %v", p.Step(0), p.Step(1))
	}
	r := NewRatchet()
	r.SetStep(0, 0)
	r.SetStep(1, 8)
	if r.Step(0) != 1 || r.Step(1) != 4 {
		t.Fatalf("ratchet clamp: %v %v", r.Step(0), r.Step(1))
	}
	c := NewCondition()
	c.SetStep(0, condition.Condition(200))
	if c.Step(0) != condition.Always {
		t.Fatalf("condition clamp: %v", c.Step(0))
	}
	v.SetStep(-1, 0.5)
	v.SetStep(MaxSteps, 0.5)
}

func TestSetLengthClamps(t *testing.T) {
	l := NewPitch()
	l.SetLength(0)
	if l.Length() != 1 {
		t.Fatalf("length = %d, want 1", l.Length())
	}
	l.SetLength(100)
	if l.Length() != MaxSteps {
		t.Fatalf("length = %d, want %d", l.Length(), MaxSteps)
	}
}

func TestLengthRoundTripPreservesSteps(t *testing.T) {
	l := NewPitch()
	for i := 0; i < MaxSteps; i++ {
		l.SetStep(i, i-16)
	}
	for _, n := range []int{32, 7, 1, 19} {
		l.SetLength(n)
		l.SetLength(3)
		l.SetLength(n)
		for i := 0; i < MaxSteps; i++ {
			if got := l.Step(i); got != i-16 {
				t.Fatalf("length %d: step %d = %d, want %d", n, i, got, i-16)
			}
		}
	}
}

func TestAdvanceWrapsAtOwnLength(t *testing.T) {
	l := NewVelocity()
	l.Write([]float64{0.1, 0.2, 0.3}, 3)
	want := []float64{0.1, 0.2, 0.3, 0.1, 0.2, 0.3, 0.1}
	for i, w := range want {
		if got := l.Current(); got != w {
			t.Fatalf("step %d: got %v want %v", i, got, w)
		}
		l.Advance()
	}
}

func TestShrinkMovesCursorInsideLength(t *testing.T) {
	l := NewRatchet()
	l.Write([]int{1, 2, 3, 4, 1, 2}, 6)
	for i := 0; i < 5; i++ {
		l.Advance()
	}
	l.SetLength(2)
	if idx := l.Index(); idx < 0 || idx >= 2 {
		t.Fatalf("index %d outside length 2", idx)
	}
}

func TestPolymeterRepeatsAtLCM(t *testing.T) {
	s := NewSet()
	s.Velocity.Write([]float64{1, 0.5, 0.25}, 3)
	s.Pitch.Write([]int{0, 12, 7, 5}, 4)
	type pair struct {
		v float64
		p int
	}
	var seq []pair
	for i := 0; i < 24; i++ {
		seq = append(seq, pair{s.Velocity.Current(), s.Pitch.Current()})
		s.Advance()
	}
	for i := 0; i < 12; i++ {
		if seq[i] != seq[i+12] {
			t.Fatalf("combined pattern should repeat every 12 steps, differs at %d", i)
		}
	}
	for p := 1; p < 12; p++ {
		same := true
		for i := 0; i+p < 24; i++ {
			if seq[i] != seq[i+p] {
				same = false
				break
			}
		}
		if same {
			t.Fatalf("combined pattern repeats early with period %d", p)
		}
	}
}

func TestWriteKeepsUnwrittenSlots(t *testing.T) {
	l := NewGate()
	l.Write([]float64{0.5, 0.5, 0.5, 0.5}, 4)
	l.Write([]float64{1.5}, 2)
	got := l.Values(nil)
	if len(got) != 2 || got[0] != 1.5 || got[1] != 0.5 {
		t.Fatalf("values = %v", got)
	}
}

func TestSetResetRestoresDefaults(t *testing.T) {
	s := NewSet()
	s.Modifier.Write([]modifier.Flags{modifier.Of(modifier.Rest)}, 5)
	s.Advance()
	s.Reset()
	if s.Modifier.Length() != 1 || s.Modifier.Current() != modifier.Active {
		t.Fatal("reset should restore modifier defaults")
	}
	if s.Positions() != (Positions{}) {
		t.Fatalf("positions = %v", s.Positions())
	}
}
