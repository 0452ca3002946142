package polyarp

import (
	"bytes"
	"testing"

	"gitlab.com/gomidi/midi/v2"

	intarp "github.com/cbegin/polyarp-go/internal/arp"
	intpattern "github.com/cbegin/polyarp-go/internal/pattern"
)

func TestPlayerMasterVolumeRuntimeAPI(t *testing.T) {
	pl, err := NewPlayer(48000)
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	if got := pl.MasterVolume(); got != 1 {
		t.Fatalf("default master volume = %v, want 1", got)
	}
	pl.SetMasterVolume(0.35)
	if got := pl.MasterVolume(); got != 0.35 {
		t.Fatalf("master volume = %v, want 0.35", got)
	}
	pl.SetMasterVolume(-2)
	if got := pl.MasterVolume(); got != 0 {
		t.Fatalf("master volume should clamp to 0, got %v", got)
	}
}

func TestNewPlayerRejectsBadSampleRate(t *testing.T) {
	if _, err := NewPlayer(0); err == nil {
		t.Fatal("expected error")
	}
}

func TestPlayerRejectsUnknownWave(t *testing.T) {
	if _, err := NewPlayer(48000, WithWave("square")); err == nil {
		t.Fatal("expected error for unknown wave")
	}
	for _, w := range []Wave{WavePulse, WaveSaw, WaveTriangle} {
		if _, err := NewPlayer(48000, WithWave(w)); err != nil {
			t.Fatalf("wave %q: %v", w, err)
		}
	}
}

func TestPlayerNotesReachEngineOnNextBuffer(t *testing.T) {
	pl, err := NewPlayer(48000)
	if err != nil {
		t.Fatal(err)
	}
	events := pl.Watch()
	if !pl.NoteOn(60, 1) || !pl.NoteOn(64, 1) {
		t.Fatal("inbox rejected a note")
	}
	if pl.State() != intarp.Idle {
		t.Fatal("engine should not see input before a buffer is rendered")
	}
	buf := make([]float32, 512*2)
	pl.Process(buf)
	if pl.State() != intarp.Running {
		t.Fatalf("state = %v", pl.State())
	}
	if pl.Peak() == 0 {
		t.Fatal("expected audio")
	}

	var sawState, sawStep bool
	for len(events) > 0 {
		ev := <-events
		switch ev.Kind {
		case EventState:
			sawState = ev.State == intarp.Running
		case EventStep:
			sawStep = ev.Step.Note == 60 && !ev.Step.Suppressed
		}
	}
	if !sawState || !sawStep {
		t.Fatalf("state event %v, step event %v", sawState, sawStep)
	}

	pl.Panic()
	pl.Process(buf)
	if pl.State() != intarp.Idle {
		t.Fatalf("state after panic = %v", pl.State())
	}
}

func TestPlayerInboxReportsOverflow(t *testing.T) {
	pl, _ := NewPlayer(48000)
	for i := 0; i < inboxSize; i++ {
		if !pl.NoteOff(60) {
			t.Fatalf("inbox full after %d commands", i)
		}
	}
	if pl.NoteOn(60, 1) {
		t.Fatal("expected the full inbox to reject the command")
	}
}

func TestPlayerDiceAppliesOnce(t *testing.T) {
	pl, _ := NewPlayer(48000)
	pl.Params().SetSpice(1)
	pl.Dice()
	pl.Dice()
	pl.Process(make([]float32, 64*2))
	if g := pl.rack.engine.DiceGeneration(); g != 1 {
		t.Fatalf("generation = %d", g)
	}
}

func TestPlayerHandleMIDI(t *testing.T) {
	pl, _ := NewPlayer(48000)
	buf := make([]float32, 256*2)
	pl.HandleMIDI(midi.NoteOn(0, 60, 100))
	pl.HandleMIDI(midi.ControlChange(0, 81, 127))
	pl.HandleMIDI(midi.ControlChange(0, 80, 127))
	pl.Process(buf)
	if pl.State() != intarp.Running {
		t.Fatalf("state = %v", pl.State())
	}
	if !pl.Params().Fill() {
		t.Fatal("CC 81 should hold fill")
	}
	if g := pl.rack.engine.DiceGeneration(); g != 1 {
		t.Fatalf("dice generation = %d", g)
	}
	pl.HandleMIDI(midi.ControlChange(0, 81, 0))
	pl.HandleMIDI(midi.NoteOff(0, 60))
	pl.Process(buf)
	if pl.State() != intarp.Idle || pl.Params().Fill() {
		t.Fatalf("state = %v fill = %v", pl.State(), pl.Params().Fill())
	}
}

func TestPlayerPresetRoundTrip(t *testing.T) {
	src, _ := NewPlayer(48000)
	src.Params().SetMode(intpattern.DownUp)
	src.Params().Lanes.Pitch.Write([]int{0, 7, 12}, 3)
	var buf bytes.Buffer
	if err := src.SavePreset(&buf); err != nil {
		t.Fatal(err)
	}
	dst, _ := NewPlayer(48000)
	if err := dst.LoadPreset(&buf); err != nil {
		t.Fatal(err)
	}
	if dst.Params().Mode() != intpattern.DownUp || dst.Params().Lanes.Pitch.Length() != 3 {
		t.Fatalf("preset not applied: %+v", dst.Params().Snapshot())
	}
}

func TestPlayerSharesParams(t *testing.T) {
	p := intarp.NewParams()
	pl, _ := NewPlayer(48000, WithParams(p), WithSeed(42))
	if pl.Params() != p || p.Seed() != 42 {
		t.Fatal("WithParams/WithSeed not honoured")
	}
}
