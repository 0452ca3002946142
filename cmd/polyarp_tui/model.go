package main

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cbegin/polyarp-go"
	"github.com/cbegin/polyarp-go/internal/arp"
	"github.com/cbegin/polyarp-go/internal/condition"
	"github.com/cbegin/polyarp-go/internal/lane"
	"github.com/cbegin/polyarp-go/internal/modifier"
	"github.com/cbegin/polyarp-go/internal/pattern"
)

// Terminals report presses but not releases, so each piano key toggles its
// note in the held set.
var pianoKeys = map[string]int{
	"z": 0, "s": 1, "x": 2, "d": 3, "c": 4, "v": 5,
	"g": 6, "b": 7, "h": 8, "n": 9, "j": 10, "m": 11,
}

var laneNames = [6]string{"VEL", "GATE", "PITCH", "MOD", "RATCH", "COND"}

const noteNames = "C-C#D-D#E-F-F#G-G#A-A#B-"

type model struct {
	player     *polyarp.Player
	events     <-chan polyarp.PlaybackEvent
	presetPath string

	width    int
	octave   int
	held     map[int]bool
	last     arp.NoteEvent
	haveLast bool
	paused   bool
	showHelp bool
	status   string
}

func newModel(pl *polyarp.Player, presetPath string) model {
	return model{
		player:     pl,
		events:     pl.Watch(),
		presetPath: presetPath,
		octave:     5,
		held:       map[int]bool{},
		width:      100,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tea.EnterAltScreen, tickCmd())
}

type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second/30, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tickMsg:
		m.drainEvents()
		return m, tickCmd()
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// drainEvents keeps the most recent step.
func (m *model) drainEvents() {
	for {
		select {
		case ev := <-m.events:
			if ev.Kind == polyarp.EventStep {
				m.last, m.haveLast = ev.Step, true
			}
		default:
			return
		}
	}
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	params := m.player.Params()
	key := msg.String()
	if semi, ok := pianoKeys[key]; ok {
		note := m.octave*12 + semi
		if note > 127 {
			return m, nil
		}
		if m.held[note] {
			delete(m.held, note)
			m.player.NoteOff(note)
		} else {
			m.held[note] = true
			m.player.NoteOn(note, 0.9)
		}
		return m, nil
	}

	switch key {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "?":
		m.showHelp = !m.showHelp
	case " ":
		if m.paused {
			m.player.Resume()
		} else {
			m.player.Pause()
		}
		m.paused = !m.paused
	case "tab":
		params.SetMode(pattern.Mode((int(params.Mode()) + 1) % pattern.ModeCount))
	case "shift+tab":
		params.SetMode(pattern.Mode((int(params.Mode()) + pattern.ModeCount - 1) % pattern.ModeCount))
	case "pgup":
		params.SetOctaves(params.Octaves() + 1)
	case "pgdown":
		params.SetOctaves(params.Octaves() - 1)
	case "o":
		if params.OctaveMode() == pattern.Sequential {
			params.SetOctaveMode(pattern.Interleaved)
		} else {
			params.SetOctaveMode(pattern.Sequential)
		}
	case "left":
		m.octave = max(0, m.octave-1)
	case "right":
		m.octave = min(9, m.octave+1)
	case "up":
		m.player.SetTempo(m.player.Tempo() + 5)
	case "down":
		m.player.SetTempo(max(20, m.player.Tempo()-5))
	case "[":
		params.SetGateLength(params.GateLength() - 5)
	case "]":
		params.SetGateLength(params.GateLength() + 5)
	case ",":
		params.SetSpice(params.Spice() - 0.1)
	case ".":
		params.SetSpice(params.Spice() + 0.1)
	case ";":
		params.SetHumanize(params.Humanize() - 0.1)
	case "'":
		params.SetHumanize(params.Humanize() + 0.1)
	case "l":
		next := (params.Latch() + 1) % (pattern.LatchAdd + 1)
		params.SetLatch(next)
		if next == pattern.LatchOff {
			clear(m.held)
		}
	case "k":
		m.player.ClearLatch()
		clear(m.held)
	case "r":
		m.player.Dice()
		m.status = "dice rolled"
	case "f":
		params.SetFill(!params.Fill())
	case "e":
		c := params.Euclid.Config()
		c.Enabled = !c.Enabled
		params.SetEuclidean(c)
	case "a":
		params.SetEnabled(!params.Enabled())
	case "esc":
		m.player.Panic()
		clear(m.held)
	case "w":
		m.status = m.savePreset()
	}
	return m, nil
}

func (m model) savePreset() string {
	path := m.presetPath
	if path == "" {
		path = "polyarp.preset"
	}
	f, err := os.Create(path)
	if err != nil {
		return err.Error()
	}
	defer f.Close()
	if err := m.player.SavePreset(f); err != nil {
		return err.Error()
	}
	return "saved " + path
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	onStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	cursorStyle = lipgloss.NewStyle().Background(lipgloss.Color("4")).Foreground(lipgloss.Color("15"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	meterStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)
)

func (m model) View() string {
	if m.showHelp {
		return helpView()
	}
	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(panelStyle.Render(m.settingsView()))
	b.WriteString("\n")
	b.WriteString(panelStyle.Render(m.lanesView()))
	b.WriteString("\n")
	b.WriteString(m.footerView())
	return b.String()
}

func (m model) headerView() string {
	state := dimStyle.Render("IDLE")
	if m.player.State() == arp.Running {
		state = onStyle.Render("RUNNING")
	}
	if m.paused {
		state = dimStyle.Render("PAUSED")
	}
	return fmt.Sprintf("%s  %s  %s %.0f BPM  %s %d",
		titleStyle.Render("POLYARP"), state,
		labelStyle.Render("tempo"), m.player.Tempo(),
		labelStyle.Render("step"), m.player.Step())
}

func (m model) settingsView() string {
	p := m.player.Params()
	eu := p.Euclid.Config()
	euclid := "off"
	if eu.Enabled {
		euclid = fmt.Sprintf("E(%d,%d)+%d", eu.Hits, eu.Steps, eu.Rotation)
	}
	row := func(pairs ...string) string {
		var parts []string
		for i := 0; i+1 < len(pairs); i += 2 {
			parts = append(parts, labelStyle.Render(pairs[i])+" "+valueStyle.Render(pairs[i+1]))
		}
		return strings.Join(parts, "   ")
	}
	lines := []string{
		row("arp", onOff(p.Enabled()), "mode", p.Mode().String(), "octaves",
			fmt.Sprintf("%d %s", p.Octaves(), p.OctaveMode()), "latch", p.Latch().String()),
		row("gate", fmt.Sprintf("%.0f%%", p.GateLength()), "spice", fmt.Sprintf("%.1f", p.Spice()),
			"humanize", fmt.Sprintf("%.1f", p.Humanize()), "fill", onOff(p.Fill()), "euclid", euclid),
		row("keys", m.heldView(), "kbd oct", fmt.Sprint(m.octave)),
		labelStyle.Render("level ") + meter(m.player.Peak(), 40),
	}
	if m.haveLast {
		lines = append(lines, labelStyle.Render("last  ")+m.stepView(m.last))
	}
	return strings.Join(lines, "\n")
}

func (m model) heldView() string {
	if len(m.held) == 0 {
		return "-"
	}
	notes := make([]int, 0, len(m.held))
	for n := range m.held {
		notes = append(notes, n)
	}
	slices.Sort(notes)
	names := make([]string, len(notes))
	for i, n := range notes {
		names[i] = noteName(n)
	}
	return strings.Join(names, " ")
}

func (m model) stepView(ev arp.NoteEvent) string {
	if ev.Suppressed {
		return dimStyle.Render(fmt.Sprintf("#%d --", ev.Step))
	}
	s := fmt.Sprintf("#%d %s vel %.2f", ev.Step, noteName(ev.Note), ev.Velocity)
	if ev.Slide {
		s += " slide"
	}
	return valueStyle.Render(s)
}

// lanesView prints every lane up to its length with the cursor highlighted.
func (m model) lanesView() string {
	lanes := m.player.Params().Lanes
	pos := m.player.Positions()
	cells := [6][]string{
		formatLane(lanes.Velocity, func(v float64) string { return fmt.Sprintf("%.2f", v) }),
		formatLane(lanes.Gate, func(v float64) string { return fmt.Sprintf("%.2f", v) }),
		formatLane(lanes.Pitch, func(v int) string { return fmt.Sprintf("%+d", v) }),
		formatLane(lanes.Modifier, modifier.Flags.String),
		formatLane(lanes.Ratchet, func(v int) string { return fmt.Sprint(v) }),
		formatLane(lanes.Condition, condition.Condition.String),
	}
	var rows []string
	for i, name := range laneNames {
		var parts []string
		for j, c := range cells[i] {
			if j == pos[i] {
				parts = append(parts, cursorStyle.Render(fmt.Sprintf("%5s", c)))
			} else {
				parts = append(parts, fmt.Sprintf("%5s", c))
			}
		}
		rows = append(rows, labelStyle.Render(fmt.Sprintf("%-6s", name))+strings.Join(parts, " "))
	}
	return strings.Join(rows, "\n")
}

func formatLane[T any](l *lane.Lane[T], f func(T) string) []string {
	vals := l.Values(make([]T, 0, lane.MaxSteps))
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = f(v)
	}
	return out
}

func (m model) footerView() string {
	keys := " [zsxdcvgbhnjm]Notes [←→]Kbd oct [Tab]Mode [PgUp/Dn]Octaves [l]Latch [r]Dice [f]Fill [?]Help [q]Quit"
	out := labelStyle.Render(keys)
	if m.status != "" {
		out += "\n " + valueStyle.Render(m.status)
	}
	return out
}

func helpView() string {
	help := `
 NOTES         z s x d c v g b h n j m   toggle C..B in the keyboard octave
               ← →                       keyboard octave
 ARP           a        on/off           Tab/Shift+Tab  mode
               PgUp/Dn  octave range     o              octave order
               l        latch off/hold/add
               k        clear latch      Esc            panic
 TIMING        ↑ ↓      tempo ±5         [ ]            gate ±5%
 VARIATION     r        dice             , .            spice ±0.1
               ; '      humanize ±0.1    f              fill
               e        euclidean gate on/off
 OTHER         Space    pause/resume     w              save preset
               ?        close help       q              quit
`
	return titleStyle.Render(help)
}

func meter(level float64, width int) string {
	n := int(min(level, 1) * float64(width))
	return meterStyle.Render(strings.Repeat("█", n)) + dimStyle.Render(strings.Repeat("·", width-n))
}

func noteName(n int) string {
	return fmt.Sprintf("%s%d", noteNames[n%12*2:n%12*2+2], n/12-1)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
