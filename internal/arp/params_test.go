package arp

import (
	"testing"

	"github.com/cbegin/polyarp-go/internal/clock"
	"github.com/cbegin/polyarp-go/internal/condition"
	"github.com/cbegin/polyarp-go/internal/euclid"
	"github.com/cbegin/polyarp-go/internal/modifier"
	"github.com/cbegin/polyarp-go/internal/pattern"
)

func TestDefaultConfigIsNeutral(t *testing.T) {
	p := NewParams()
	if !p.Enabled() || p.Mode() != pattern.Up || p.Octaves() != 1 {
		t.Fatalf("unexpected defaults: %+v", p.Snapshot())
	}
	if p.Euclid.Config().Enabled {
		t.Fatal("euclidean gate should start disabled")
	}
	l := p.Lanes
	if l.Velocity.Length() != 1 || l.Velocity.Step(0) != 1 || l.Gate.Step(0) != 1 {
		t.Fatal("velocity and gate lanes should be neutral")
	}
	if l.Modifier.Step(5) != modifier.Active || l.Condition.Step(31) != condition.Always {
		t.Fatal("modifier and condition lanes should be neutral")
	}
	if p.RatchetSwing() != 50 || p.GateLength() != DefaultGateLength {
		t.Fatalf("swing %v gate %v", p.RatchetSwing(), p.GateLength())
	}
}

func TestParamsClamp(t *testing.T) {
	p := NewParams()
	p.SetOctaves(9)
	p.SetGateLength(500)
	p.SetRatchetSwing(10)
	p.SetSpice(-1)
	p.SetSlideTime(9999)
	p.SetMode(pattern.Mode(99))
	p.SetRate(clock.Rate{Hz: 1000, Value: clock.NoteValue(42)})

	if p.Octaves() != pattern.MaxOctaves {
		t.Errorf("octaves = %d", p.Octaves())
	}
	if p.GateLength() != MaxGateLength {
		t.Errorf("gate length = %v", p.GateLength())
	}
	if p.RatchetSwing() != 50 {
		t.Errorf("swing = %v", p.RatchetSwing())
	}
	if p.Spice() != 0 {
		t.Errorf("spice = %v", p.Spice())
	}
	if p.SlideTime() != MaxSlideMs {
		t.Errorf("slide = %v", p.SlideTime())
	}
	if p.Mode() != pattern.Up {
		t.Errorf("mode = %v", p.Mode())
	}
	if r := p.Rate(); r.Hz != clock.MaxRateHz || r.Value != clock.SixtyFourth {
		t.Errorf("rate = %+v", r)
	}
}

func TestSnapshotApplyRoundTrip(t *testing.T) {
	c := DefaultConfig()
	c.Mode = pattern.Converge
	c.Octaves = 3
	c.Latch = pattern.LatchAdd
	c.Spice = 0.4
	c.Seed = 77
	c.Euclid = euclid.Config{Enabled: true, Hits: 5, Steps: 13, Rotation: 2}
	c.PitchLane.Length = 5
	c.PitchLane.Steps[4] = -7
	c.RatchetLane.Length = 3
	c.RatchetLane.Steps[2] = 4
	c.ModifierLane.Length = 2
	c.ModifierLane.Steps[1] = modifier.Of(modifier.Slide, modifier.Accent)

	p := NewParams()
	p.Apply(c)
	got := p.Snapshot()
	if got != c {
		t.Fatalf("snapshot differs:\n got %+v\nwant %+v", got, c)
	}
}

func TestApplyKeepsSlotsBeyondLength(t *testing.T) {
	p := NewParams()
	p.Lanes.Pitch.Write([]int{1, 2, 3, 4, 5, 6, 7, 8}, 8)
	c := p.Snapshot()
	c.PitchLane.Length = 2
	p.Apply(c)
	if p.Lanes.Pitch.Length() != 2 || p.Lanes.Pitch.Step(7) != 8 {
		t.Fatalf("shrinking a lane should keep its slots, got len %d slot7 %d",
			p.Lanes.Pitch.Length(), p.Lanes.Pitch.Step(7))
	}
}
