package preset

import (
	"bytes"
	"errors"
	"testing"

	"github.com/cbegin/polyarp-go/internal/arp"
	"github.com/cbegin/polyarp-go/internal/clock"
	"github.com/cbegin/polyarp-go/internal/condition"
	"github.com/cbegin/polyarp-go/internal/euclid"
	"github.com/cbegin/polyarp-go/internal/modifier"
	"github.com/cbegin/polyarp-go/internal/pattern"
)

func sampleConfig() arp.Config {
	c := arp.DefaultConfig()
	c.Mode = pattern.Random
	c.Octaves = 2
	c.OctaveMode = pattern.Interleaved
	c.Latch = pattern.LatchHold
	c.Retrigger = arp.RetriggerNote
	c.Rate = clock.Rate{Sync: true, Hz: 7.5, Value: clock.Eighth, Modifier: clock.Triplet}
	c.GateLength = 120
	c.Spice = 0.3
	c.Humanize = 0.2
	c.Seed = 0xDEADBEEF
	c.Euclid = euclid.Config{Enabled: true, Hits: 5, Steps: 16, Rotation: 3}
	c.VelocityLane.Length = 3
	c.VelocityLane.Steps[1] = 0.25
	c.PitchLane.Length = 4
	c.PitchLane.Steps[3] = -12
	c.ModifierLane.Length = 2
	c.ModifierLane.Steps[1] = modifier.Of(modifier.Tie, modifier.Accent)
	c.ConditionLane.Length = 8
	c.ConditionLane.Steps[7] = condition.Ratio3of4
	return c
}

func TestRoundTrip(t *testing.T) {
	c := sampleConfig()
	var buf bytes.Buffer
	if err := Save(&buf, c); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(&buf)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != c {
		t.Fatalf("round trip differs:\n got %+v\nwant %+v", got, c)
	}
}

func TestTruncatedKeepsDefaults(t *testing.T) {
	c := sampleConfig()
	data := Marshal(c)
	// magic, version, enabled, mode, octaves
	got, err := Unmarshal(data[:9])
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Mode != pattern.Random || got.Octaves != 2 {
		t.Fatalf("leading fields lost: %+v", got)
	}
	def := arp.DefaultConfig()
	if got.OctaveMode != def.OctaveMode || got.Seed != def.Seed || got.PitchLane != def.PitchLane {
		t.Fatalf("missing fields should keep defaults: %+v", got)
	}

	for n := 6; n < len(data); n += 7 {
		if _, err := Unmarshal(data[:n]); err != nil {
			t.Fatalf("truncated at %d: %v", n, err)
		}
	}
}

func TestRejectsForeignData(t *testing.T) {
	if _, err := Unmarshal([]byte("RIFF....")); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("err = %v, want ErrBadMagic", err)
	}
	data := Marshal(arp.DefaultConfig())
	data[4] = Version + 1
	if _, err := Unmarshal(data); err == nil {
		t.Fatal("expected a version error")
	}
}

func TestLoadedPresetAppliesToParams(t *testing.T) {
	c := sampleConfig()
	got, err := Unmarshal(Marshal(c))
	if err != nil {
		t.Fatal(err)
	}
	p := arp.NewParams()
	p.Apply(got)
	if p.Lanes.Pitch.Length() != 4 || p.Lanes.Pitch.Step(3) != -12 {
		t.Fatal("pitch lane not applied")
	}
	if !p.Euclid.Config().Enabled || p.Euclid.Config().Hits != 5 {
		t.Fatalf("euclid = %+v", p.Euclid.Config())
	}
}
