package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cbegin/polyarp-go"
	"github.com/cbegin/polyarp-go/internal/preset"
)

func main() {
	sampleRate := flag.Int("sample-rate", 48000, "output sample rate")
	tempo := flag.Float64("tempo", 120, "host tempo in BPM")
	presetPath := flag.String("preset", "", "preset to load at startup")
	flag.Parse()

	pl, err := polyarp.NewPlayer(*sampleRate, polyarp.WithTempo(*tempo), polyarp.WithEcho(0.75, 0.3, 0.6, 0.2))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *presetPath != "" {
		f, err := os.Open(*presetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening preset: %v\n", err)
			os.Exit(1)
		}
		c, err := preset.Load(f)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading preset: %v\n", err)
			os.Exit(1)
		}
		pl.Params().Apply(c)
	}
	if err := pl.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer pl.Stop()

	p := tea.NewProgram(newModel(pl, *presetPath))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
