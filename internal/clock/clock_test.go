package clock

import (
	"math"
	"testing"
)

func TestBeats(t *testing.T) {
	cases := []struct {
		v    NoteValue
		m    Modifier
		want float64
	}{
		{Quarter, Straight, 1},
		{Sixteenth, Straight, 0.25},
		{Eighth, Dotted, 0.75},
		{Eighth, Triplet, 1.0 / 3.0},
		{Whole, Straight, 4},
	}
	for _, tc := range cases {
		if got := Beats(tc.v, tc.m); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("Beats(%v,%v) = %v, want %v", tc.v, tc.m, got, tc.want)
		}
	}
}

func TestPeriod(t *testing.T) {
	sync := Rate{Sync: true, Value: Sixteenth}
	if got := sync.Period(48000, 120); got != 6000 {
		t.Fatalf("1/16 at 120bpm = %v samples, want 6000", got)
	}
	free := Rate{Hz: 8}
	if got := free.Period(48000, 0); got != 6000 {
		t.Fatalf("8Hz = %v samples, want 6000", got)
	}
	if got := (Rate{Hz: 0}).Period(48000, 0); got != 48000/MinRateHz {
		t.Fatalf("rate should clamp, got %v", got)
	}
}

func TestFirstAdvanceTicks(t *testing.T) {
	var c Clock
	if !c.Advance(100) {
		t.Fatal("first sample should tick")
	}
	for i := 1; i < 100; i++ {
		if c.Advance(100) {
			t.Fatalf("early tick at sample %d", i)
		}
	}
	if !c.Advance(100) {
		t.Fatal("expected tick at sample 100")
	}
}

func TestFractionalPeriodDoesNotDrift(t *testing.T) {
	var c Clock
	period := 48000.0 * 60 / 133 / 4 // 1/16 at 133bpm, non-integer
	ticks := 0
	const samples = 48000 * 60
	for i := 0; i < samples; i++ {
		if c.Advance(period) {
			ticks++
		}
	}
	want := int(math.Floor(float64(samples-1)/period)) + 1
	if ticks != want {
		t.Fatalf("ticks = %d, want %d", ticks, want)
	}
}

func TestTempoChangeWaitsForNextTick(t *testing.T) {
	var c Clock
	c.Advance(100)
	for i := 1; i < 50; i++ {
		c.Advance(100)
	}
	// Halving the period mid-interval must not cut the current step short.
	for i := 50; i < 100; i++ {
		if c.Advance(50) {
			t.Fatalf("tick at %d before the latched interval ended", i)
		}
	}
	if !c.Advance(50) {
		t.Fatal("expected tick at sample 100")
	}
	if c.Interval() != 50 {
		t.Fatalf("interval = %v, want 50", c.Interval())
	}
	for i := 1; i < 50; i++ {
		if c.Advance(50) {
			t.Fatalf("early tick %d into new interval", i)
		}
	}
	if !c.Advance(50) {
		t.Fatal("expected tick after the new interval")
	}
}

func TestParseNoteValue(t *testing.T) {
	v, m, err := ParseNoteValue("1/8d")
	if err != nil || v != Eighth || m != Dotted {
		t.Fatalf("got %v %v %v", v, m, err)
	}
	v, m, err = ParseNoteValue("1/16t")
	if err != nil || v != Sixteenth || m != Triplet {
		t.Fatalf("got %v %v %v", v, m, err)
	}
	if _, _, err := ParseNoteValue("1/5"); err == nil {
		t.Fatal("expected error")
	}
}
