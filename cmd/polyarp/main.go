package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/cbegin/polyarp-go"
	"github.com/cbegin/polyarp-go/internal/arp"
	"github.com/cbegin/polyarp-go/internal/clock"
	"github.com/cbegin/polyarp-go/internal/condition"
	"github.com/cbegin/polyarp-go/internal/euclid"
	"github.com/cbegin/polyarp-go/internal/lane"
	"github.com/cbegin/polyarp-go/internal/modifier"
	"github.com/cbegin/polyarp-go/internal/pattern"
	"github.com/cbegin/polyarp-go/internal/preset"
)

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		tempo      = flag.Float64("tempo", 120, "host tempo in BPM")
		notes      = flag.String("notes", "60,64,67", "held notes when no -in file is given")
		inPath     = flag.String("in", "", "Standard MIDI File to use as the input phrase")
		mode       = flag.String("mode", "up", "arp mode: up|down|updown|downup|converge|diverge|random|walk|asplayed|chord")
		octaves    = flag.Int("octaves", 1, "octave range 1..4")
		octMode    = flag.String("octave-mode", "sequential", "sequential|interleaved")
		latch      = flag.String("latch", "off", "latch mode: off|hold|add")
		rate       = flag.String("rate", "1/16", "tempo-synced step rate, e.g. 1/16, 1/8d, 1/8t")
		hz         = flag.Float64("hz", 0, "free-running step rate in Hz (overrides -rate)")
		gate       = flag.Float64("gate", arp.DefaultGateLength, "gate length percent 1..200")
		swing      = flag.Float64("swing", 50, "ratchet swing percent 50..75")
		velLane    = flag.String("velocity", "", "velocity lane, comma separated 0..1")
		gateLane   = flag.String("gates", "", "gate lane, comma separated multipliers")
		pitchLane  = flag.String("pitch", "", "pitch lane, comma separated semitones")
		ratchLane  = flag.String("ratchet", "", "ratchet lane, comma separated 1..4")
		modLane    = flag.String("mods", "", "modifier lane, e.g. active,tie,rest,slide+accent")
		condLane   = flag.String("conds", "", "condition lane, e.g. always,1:2,50%,fill")
		euclidSpec = flag.String("euclid", "", "euclidean gate hits/steps[+rotation], e.g. 5/8+2")
		spice      = flag.Float64("spice", 0, "spice amount 0..1")
		dice       = flag.Bool("dice", false, "roll the dice before starting")
		humanize   = flag.Float64("humanize", 0, "humanize amount 0..1")
		seed       = flag.Uint64("seed", arp.DefaultSeed, "random seed")
		waveName   = flag.String("wave", "pulse", "voice waveform: pulse|saw|triangle")
		echo       = flag.Float64("echo", 0, "echo time in beats (0 = off)")
		volume     = flag.Float64("volume", 1.0, "master volume scalar")
		seconds    = flag.Float64("seconds", 8, "length to play or render")
		presetIn   = flag.String("preset", "", "load a preset before applying flags")
		presetOut  = flag.String("save-preset", "", "write the resulting preset")
		wavOut     = flag.String("wav", "", "render to a WAV file instead of playing")
		pcm16      = flag.Bool("pcm16", false, "write 16-bit PCM instead of float WAV")
		midOut     = flag.String("mid", "", "render generated notes to a MIDI file")
		verbose    = flag.Bool("v", false, "print every step while playing")
	)
	flag.Parse()

	params := arp.NewParams()
	if *presetIn != "" {
		if err := loadPreset(params, *presetIn); err != nil {
			log.Fatal(err)
		}
	}
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if err := applyFlags(params, set, flagValues{
		mode: *mode, octaves: *octaves, octMode: *octMode, latch: *latch, rate: *rate, hz: *hz,
		gate: *gate, swing: *swing, velocity: *velLane, gates: *gateLane, pitch: *pitchLane,
		ratchet: *ratchLane, mods: *modLane, conds: *condLane, euclid: *euclidSpec,
		spice: *spice, humanize: *humanize, seed: *seed,
	}); err != nil {
		log.Fatal(err)
	}
	if *presetOut != "" {
		if err := savePreset(params, *presetOut); err != nil {
			log.Fatal(err)
		}
	}

	wave, err := parseWave(*waveName)
	if err != nil {
		log.Fatal(err)
	}
	phrase, err := resolvePhrase(*inPath, *notes, *sampleRate)
	if err != nil {
		log.Fatal(err)
	}
	bpm := *tempo
	if *inPath != "" && !set["tempo"] && phrase.BPM > 0 {
		bpm = phrase.BPM
	}
	opts := []polyarp.PlayerOption{
		polyarp.WithParams(params),
		polyarp.WithTempo(bpm),
		polyarp.WithWave(wave),
	}
	if *echo > 0 {
		opts = append(opts, polyarp.WithEcho(*echo, 0.35, 0.5, 0.25))
	}
	if *dice {
		opts = append(opts, polyarp.WithDice())
	}

	if *wavOut != "" || *midOut != "" {
		if err := render(*wavOut, *midOut, *pcm16, phrase, *sampleRate, *seconds, *seed, opts); err != nil {
			log.Fatal(err)
		}
		return
	}

	pl, err := polyarp.NewPlayer(*sampleRate, opts...)
	if err != nil {
		log.Fatal(err)
	}
	pl.SetMasterVolume(*volume)
	ch := pl.Watch()
	if err := pl.Start(); err != nil {
		log.Fatal(err)
	}
	defer pl.Stop()

	go perform(pl, phrase, *sampleRate)
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	timeout := time.After(time.Duration(*seconds * float64(time.Second)))
	for {
		select {
		case ev := <-ch:
			if *verbose {
				printEvent(ev)
			}
		case <-interrupt:
			fmt.Println("interrupted")
			return
		case <-timeout:
			return
		}
	}
}

// perform replays the phrase's presses and releases in real time.
func perform(pl *polyarp.Player, phrase polyarp.Phrase, sampleRate int) {
	start := time.Now()
	for _, ev := range phrase.Events {
		at := time.Duration(float64(ev.Frame) / float64(sampleRate) * float64(time.Second))
		time.Sleep(time.Until(start.Add(at)))
		if ev.On {
			pl.NoteOn(ev.Note, ev.Velocity)
		} else {
			pl.NoteOff(ev.Note)
		}
	}
}

func printEvent(ev polyarp.PlaybackEvent) {
	switch ev.Kind {
	case polyarp.EventState:
		fmt.Printf("state %s\n", ev.State)
	case polyarp.EventStep:
		s := ev.Step
		if s.Suppressed {
			fmt.Printf("step %4d  --\n", s.Step)
			return
		}
		slide := ""
		if s.Slide {
			slide = fmt.Sprintf(" slide from %d", s.SlideFrom)
		}
		fmt.Printf("step %4d  note %3d vel %.2f len %d%s\n", s.Step, s.Note, s.Velocity, s.Length, slide)
	}
}

func render(wavPath, midPath string, pcm16 bool, phrase polyarp.Phrase, sampleRate int, seconds float64, seed uint64, opts []polyarp.PlayerOption) error {
	if wavPath != "" {
		samples, err := polyarp.RenderSamples(phrase, sampleRate, seconds, opts...)
		if err != nil {
			return err
		}
		var data []byte
		if pcm16 {
			data = polyarp.EncodeWAVPCM16(samples, sampleRate, 2, int64(seed))
		} else {
			data = polyarp.EncodeWAVFloat32LE(samples, sampleRate, 2)
		}
		if err := os.WriteFile(wavPath, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("wrote %s (%.1fs)\n", wavPath, seconds)
	}
	if midPath != "" {
		f, err := os.Create(midPath)
		if err != nil {
			return err
		}
		if err := polyarp.RenderEvents(f, phrase, sampleRate, seconds, opts...); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", midPath)
	}
	return nil
}

func resolvePhrase(path, notes string, sampleRate int) (polyarp.Phrase, error) {
	if strings.TrimSpace(path) != "" {
		f, err := os.Open(path)
		if err != nil {
			return polyarp.Phrase{}, err
		}
		defer f.Close()
		return polyarp.ReadPhrase(f, sampleRate)
	}
	keys, err := parseInts(notes)
	if err != nil {
		return polyarp.Phrase{}, fmt.Errorf("invalid -notes: %w", err)
	}
	return polyarp.Hold(0.9, keys...), nil
}

func loadPreset(params *arp.Params, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	c, err := preset.Load(f)
	if err != nil {
		return err
	}
	params.Apply(c)
	return nil
}

func savePreset(params *arp.Params, path string) error {
	return os.WriteFile(path, preset.Marshal(params.Snapshot()), 0o644)
}

type flagValues struct {
	mode, octMode, latch, rate            string
	octaves                               int
	hz, gate, swing, spice, humanize      float64
	velocity, gates, pitch, ratchet, mods string
	conds, euclid                         string
	seed                                  uint64
}

// applyFlags writes the flags the user set, so a loaded preset keeps
// everything else.
func applyFlags(p *arp.Params, set map[string]bool, v flagValues) error {
	if set["mode"] {
		m, err := pattern.ParseMode(strings.ToLower(v.mode))
		if err != nil {
			return err
		}
		p.SetMode(m)
	}
	if set["octaves"] {
		p.SetOctaves(v.octaves)
	}
	if set["octave-mode"] {
		om, err := pattern.ParseOctaveMode(strings.ToLower(v.octMode))
		if err != nil {
			return err
		}
		p.SetOctaveMode(om)
	}
	if set["latch"] {
		l, err := pattern.ParseLatch(strings.ToLower(v.latch))
		if err != nil {
			return err
		}
		p.SetLatch(l)
	}
	if set["rate"] || set["hz"] {
		r := p.Rate()
		if set["hz"] && v.hz > 0 {
			r.Sync, r.Hz = false, v.hz
		} else {
			val, mod, err := clock.ParseNoteValue(v.rate)
			if err != nil {
				return err
			}
			r.Sync, r.Value, r.Modifier = true, val, mod
		}
		p.SetRate(r)
	}
	if set["gate"] {
		p.SetGateLength(v.gate)
	}
	if set["swing"] {
		p.SetRatchetSwing(v.swing)
	}
	if set["spice"] {
		p.SetSpice(v.spice)
	}
	if set["humanize"] {
		p.SetHumanize(v.humanize)
	}
	if set["seed"] {
		p.SetSeed(v.seed)
	}
	if v.velocity != "" {
		vals, err := parseFloats(v.velocity)
		if err != nil {
			return fmt.Errorf("invalid -velocity: %w", err)
		}
		writeLane(p.Lanes.Velocity, vals)
	}
	if v.gates != "" {
		vals, err := parseFloats(v.gates)
		if err != nil {
			return fmt.Errorf("invalid -gates: %w", err)
		}
		writeLane(p.Lanes.Gate, vals)
	}
	if v.pitch != "" {
		vals, err := parseInts(v.pitch)
		if err != nil {
			return fmt.Errorf("invalid -pitch: %w", err)
		}
		writeLane(p.Lanes.Pitch, vals)
	}
	if v.ratchet != "" {
		vals, err := parseInts(v.ratchet)
		if err != nil {
			return fmt.Errorf("invalid -ratchet: %w", err)
		}
		writeLane(p.Lanes.Ratchet, vals)
	}
	if v.mods != "" {
		vals, err := parseList(v.mods, modifier.Parse)
		if err != nil {
			return fmt.Errorf("invalid -mods: %w", err)
		}
		writeLane(p.Lanes.Modifier, vals)
	}
	if v.conds != "" {
		vals, err := parseList(v.conds, condition.Parse)
		if err != nil {
			return fmt.Errorf("invalid -conds: %w", err)
		}
		writeLane(p.Lanes.Condition, vals)
	}
	if v.euclid != "" {
		c, err := parseEuclid(v.euclid)
		if err != nil {
			return err
		}
		p.SetEuclidean(c)
	}
	return nil
}

func writeLane[T any](l *lane.Lane[T], vals []T) {
	if len(vals) > lane.MaxSteps {
		vals = vals[:lane.MaxSteps]
	}
	l.Write(vals, len(vals))
}

func parseList[T any](s string, parse func(string) (T, error)) ([]T, error) {
	var out []T
	for _, part := range strings.Split(s, ",") {
		v, err := parse(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseInts(s string) ([]int, error) {
	return parseList(s, strconv.Atoi)
}

func parseFloats(s string) ([]float64, error) {
	return parseList(s, func(p string) (float64, error) { return strconv.ParseFloat(p, 64) })
}

// parseEuclid reads "hits/steps" with an optional "+rotation".
func parseEuclid(s string) (euclid.Config, error) {
	c := euclid.Config{Enabled: true}
	body, rot, hasRot := strings.Cut(s, "+")
	hits, steps, ok := strings.Cut(body, "/")
	if !ok {
		return c, fmt.Errorf("invalid -euclid %q (expected hits/steps[+rotation])", s)
	}
	var err error
	if c.Hits, err = strconv.Atoi(hits); err != nil {
		return c, fmt.Errorf("invalid -euclid hits: %w", err)
	}
	if c.Steps, err = strconv.Atoi(steps); err != nil {
		return c, fmt.Errorf("invalid -euclid steps: %w", err)
	}
	if hasRot {
		if c.Rotation, err = strconv.Atoi(rot); err != nil {
			return c, fmt.Errorf("invalid -euclid rotation: %w", err)
		}
	}
	return c, nil
}

func parseWave(name string) (polyarp.Wave, error) {
	switch w := polyarp.Wave(strings.ToLower(strings.TrimSpace(name))); w {
	case polyarp.WavePulse, polyarp.WaveSaw, polyarp.WaveTriangle:
		return w, nil
	}
	return "", fmt.Errorf("invalid -wave %q (expected pulse|saw|triangle)", name)
}
