package modifier

import "testing"

func TestRestIsExclusive(t *testing.T) {
	f := Of(Tie, Accent).With(Rest)
	if !f.Rest() || f.Tie() || f.Accent() {
		t.Fatalf("rest should clear other flags, got %v", f)
	}
	if g := f.With(Slide); g != f {
		t.Fatalf("adding to a rest step should be a no-op, got %v", g)
	}
}

func TestFromBitsNormalizes(t *testing.T) {
	f := FromBits(uint8(Rest | Tie | Slide))
	if f.Bits() != uint8(Rest) {
		t.Fatalf("bits = %08b, want rest only", f.Bits())
	}
	if got := FromBits(0xF0); got != Active {
		t.Fatalf("unknown bits should drop, got %v", got)
	}
	g := FromBits(uint8(Slide | Accent))
	if !g.Slide() || !g.Accent() || g.Tie() {
		t.Fatalf("unexpected flags %v", g)
	}
}

func TestProcess(t *testing.T) {
	cases := []struct {
		name  string
		flags Flags
		kind  Kind
		slide bool
		vel   float64
	}{
		{"active", Active, Trigger, false, 0.5},
		{"rest", Of(Rest), Silence, false, 0},
		{"tie", Of(Tie), Sustain, false, 0.5},
		{"tie beats slide", Of(Tie, Slide), Sustain, false, 0.5},
		{"slide", Of(Slide), Trigger, true, 0.5},
		{"accent", Of(Accent), Trigger, false, 0.9},
		{"slide accent", Of(Slide, Accent), Trigger, true, 0.9},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := Process(tc.flags, 0.5, 0.9)
			if a.Kind != tc.kind || a.Slide != tc.slide || a.Velocity != tc.vel {
				t.Fatalf("got %+v", a)
			}
		})
	}
}

func TestString(t *testing.T) {
	if s := Of(Tie, Accent).String(); s != "tie+accent" {
		t.Fatalf("string = %q", s)
	}
	if s := Active.String(); s != "active" {
		t.Fatalf("string = %q", s)
	}
}

func TestParse(t *testing.T) {
	for _, f := range []Flags{Active, Of(Rest), Of(Tie, Accent), Of(Slide), Of(Tie, Slide, Accent)} {
		got, err := Parse(f.String())
		if err != nil || got != f {
			t.Fatalf("Parse(%q) = %v, %v", f.String(), got, err)
		}
	}
	if _, err := Parse("tie+wobble"); err == nil {
		t.Fatal("expected error")
	}
}
