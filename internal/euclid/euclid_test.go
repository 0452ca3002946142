package euclid

import (
	"reflect"
	"testing"
)

func TestBjorklundHitCount(t *testing.T) {
	for steps := 1; steps <= MaxSteps; steps++ {
		for hits := 0; hits <= steps; hits++ {
			p := Bjorklund(hits, steps)
			if got := p.Count(steps); got != hits {
				t.Fatalf("E(%d,%d) has %d hits", hits, steps, got)
			}
			if steps < 32 && p>>uint(steps) != 0 {
				t.Fatalf("E(%d,%d) sets bits past the ring: %b", hits, steps, p)
			}
			if hits > 0 && !p.Hit(0) {
				t.Fatalf("E(%d,%d) should start on a hit: %v", hits, steps, p.Bools(steps))
			}
		}
	}
}

func TestBjorklundKnownRhythms(t *testing.T) {
	cases := []struct {
		hits, steps int
		want        string
	}{
		{4, 8, "x.x.x.x."},
		{3, 8, "x..x..x."},
		{5, 8, "x.xx.xx."},
		{2, 5, "x.x.."},
		{1, 4, "x..."},
		{0, 6, "......"},
		{6, 6, "xxxxxx"},
	}
	for _, tc := range cases {
		got := render(Bjorklund(tc.hits, tc.steps), tc.steps)
		if got != tc.want {
			t.Errorf("E(%d,%d) = %s, want %s", tc.hits, tc.steps, got, tc.want)
		}
	}
}

func TestBjorklundMaximallyEven(t *testing.T) {
	for steps := 2; steps <= MaxSteps; steps++ {
		for hits := 1; hits <= steps; hits++ {
			p := Bjorklund(hits, steps)
			lo, hi := steps/hits, (steps+hits-1)/hits
			prev := -1
			first := -1
			for i := 0; i < steps; i++ {
				if !p.Hit(i) {
					continue
				}
				if prev >= 0 {
					if gap := i - prev; gap < lo || gap > hi {
						t.Fatalf("E(%d,%d) gap %d outside [%d,%d]", hits, steps, gap, lo, hi)
					}
				} else {
					first = i
				}
				prev = i
			}
			if gap := steps - prev + first; gap < lo || gap > hi {
				t.Fatalf("E(%d,%d) wrap gap %d outside [%d,%d]", hits, steps, gap, lo, hi)
			}
		}
	}
}

func TestRotatePeriodicity(t *testing.T) {
	for steps := 2; steps <= MaxSteps; steps++ {
		for hits := 0; hits <= steps; hits++ {
			p := Bjorklund(hits, steps)
			if got := Rotate(p, steps, steps); got != p {
				t.Fatalf("rotating E(%d,%d) by %d changed it", hits, steps, steps)
			}
			r := Rotate(p, 1, steps)
			if r.Count(steps) != hits {
				t.Fatalf("rotation changed hit count")
			}
			if r.Hit(1) != p.Hit(0) || r.Hit(0) != p.Hit(steps-1) {
				t.Fatalf("rotation by 1 should shift hits one step later")
			}
		}
	}
}

func TestGateScenario(t *testing.T) {
	g := NewGate()
	g.Apply(Config{Enabled: true, Hits: 4, Steps: 8, Rotation: 0})
	want := []bool{true, false, true, false, true, false, true, false}
	if got := g.Pattern().Bools(8); !reflect.DeepEqual(got, want) {
		t.Fatalf("pattern = %v", got)
	}
	for i := int64(0); i < 32; i++ {
		if g.Evaluate(i) != want[i%8] {
			t.Fatalf("step %d mismatch", i)
		}
	}
}

func TestGateDisabledPassesEverything(t *testing.T) {
	g := NewGate()
	g.Apply(Config{Enabled: false, Hits: 0, Steps: 8})
	for i := int64(0); i < 16; i++ {
		if !g.Evaluate(i) {
			t.Fatalf("disabled gate blocked step %d", i)
		}
	}
}

func TestGateZeroHitsSilencesEverything(t *testing.T) {
	g := NewGate()
	g.Apply(Config{Enabled: true, Hits: 0, Steps: 5})
	for i := int64(0); i < 100; i++ {
		if g.Evaluate(i) {
			t.Fatalf("hits=0 fired at step %d", i)
		}
	}
}

func TestGateClampsInApplyOrder(t *testing.T) {
	g := NewGate()
	g.Apply(Config{Enabled: true, Hits: 12, Steps: 12, Rotation: 11})
	g.SetSteps(5)
	c := g.Config()
	if c.Steps != 5 || c.Hits != 5 || c.Rotation != 4 {
		t.Fatalf("config after shrink = %+v", c)
	}
	g.Apply(Config{Enabled: true, Hits: 40, Steps: 1, Rotation: -3})
	c = g.Config()
	if c.Steps != MinSteps || c.Hits != MinSteps || c.Rotation != 0 {
		t.Fatalf("clamped config = %+v", c)
	}
}

func render(p Pattern, steps int) string {
	b := make([]byte, steps)
	for i := range b {
		b[i] = '.'
		if p.Hit(i) {
			b[i] = 'x'
		}
	}
	return string(b)
}
