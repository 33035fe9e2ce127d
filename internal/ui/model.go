// ABOUTME: Bubbletea model for the practice looper TUI
// ABOUTME: Defines application state and update logic
package ui

import (
	"fmt"
	"math"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abloop-audio/abloop-go/pkg/abloop"
)

const seekStep = 5.0

// Controller is the slice of the player the TUI drives
type Controller interface {
	Play() error
	Pause()
	Seek(seconds float64)
	SetLoopPoints(startSeconds, endSeconds float64)
	SetLooping(enabled bool)
	SetRate(rate float64)
	SetVolume(volume float64)
	SetPitch(semitones float64)
	Position() float64
}

// Model represents the TUI state
type Model struct {
	player Controller

	// Track
	file     string
	duration float64
	backend  abloop.Backend

	// Playback
	state    abloop.State
	position float64
	rate     float64
	volume   float64
	pitch    float64

	// Loop
	loopA   float64
	loopB   float64
	hasA    bool
	hasB    bool
	looping bool

	lastErr error

	width  int
	height int
}

// NewModel creates the TUI model for a loaded track
func NewModel(player Controller, file string, duration float64, backend abloop.Backend) Model {
	return Model{
		player:   player,
		file:     file,
		duration: duration,
		backend:  backend,
		rate:     1.0,
		volume:   1.0,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case TimeMsg:
		m.position = float64(msg)
	case StateMsg:
		m.state = abloop.State(msg)
	case EndedMsg:
		m.state = abloop.StatePaused
		m.position = m.duration
	case ErrMsg:
		m.lastErr = msg.Err
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderTransport()
	s += m.renderLoop()
	s += m.renderHelp()
	return s
}

func (m Model) renderHeader() string {
	return fmt.Sprintf(`┌─ abloop ─────────────────────────────────────────────┐
│ Track:   %-43s │
│ Engine:  %-43s │
├──────────────────────────────────────────────────────┤
`, truncate(m.file, 43), string(m.backend))
}

func (m Model) renderTransport() string {
	bar := renderBar(m.position, m.duration, 32)
	stateLabel := m.state.String()
	if m.lastErr != nil {
		stateLabel = fmt.Sprintf("%s (err: %v)", stateLabel, m.lastErr)
	}

	return fmt.Sprintf("│ %s  [%s]  %s │\n"+
		"│ State:   %-43s │\n"+
		"│ Rate: %.2fx  Pitch: %+.0fst  Volume: %3.0f%%%-11s │\n",
		formatTime(m.position), bar, formatTime(m.duration),
		truncate(stateLabel, 43),
		m.rate, m.pitch, m.volume*100, "")
}

func (m Model) renderLoop() string {
	a, b := "--:--", "--:--"
	if m.hasA {
		a = formatTime(m.loopA)
	}
	if m.hasB {
		b = formatTime(m.loopB)
	}
	loopState := "off"
	if m.looping {
		loopState = "on"
	}

	return fmt.Sprintf("│ Loop:    A %s   B %s   [%s]%-18s │\n", a, b, loopState, "")
}

func (m Model) renderHelp() string {
	return `├──────────────────────────────────────────────────────┤
│ space:Play/Pause  a/b:Loop points  l:Loop  c:Clear   │
│ ←/→:Seek  -/+:Rate  ↓/↑:Volume  [/]:Pitch  q:Quit    │
└──────────────────────────────────────────────────────┘
`
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		if m.state == abloop.StatePlaying {
			m.player.Pause()
		} else if err := m.player.Play(); err != nil {
			m.lastErr = err
		}
	case "a":
		m.loopA = m.position
		m.hasA = true
		m.pushLoop()
	case "b":
		m.loopB = m.position
		m.hasB = true
		m.pushLoop()
	case "l":
		m.looping = !m.looping
		m.player.SetLooping(m.looping)
	case "c":
		m.hasA, m.hasB, m.looping = false, false, false
		m.player.SetLooping(false)
	case "left":
		m.position = math.Max(0, m.position-seekStep)
		m.player.Seek(m.position)
	case "right":
		m.position = math.Min(m.duration, m.position+seekStep)
		m.player.Seek(m.position)
	case "+", "=":
		m.rate = clampRate(m.rate + 0.25)
		m.player.SetRate(m.rate)
	case "-":
		m.rate = clampRate(m.rate - 0.25)
		m.player.SetRate(m.rate)
	case "up":
		m.volume = math.Min(1.0, m.volume+0.05)
		m.player.SetVolume(m.volume)
	case "down":
		m.volume = math.Max(0.0, m.volume-0.05)
		m.player.SetVolume(m.volume)
	case "]":
		m.pitch++
		m.player.SetPitch(m.pitch)
	case "[":
		m.pitch--
		m.player.SetPitch(m.pitch)
	}

	return m, nil
}

// pushLoop sends the region once both points exist and engages the loop
func (m *Model) pushLoop() {
	if !m.hasA || !m.hasB {
		return
	}
	m.player.SetLoopPoints(m.loopA, m.loopB)
	if !m.looping {
		m.looping = true
		m.player.SetLooping(true)
	}
}

// TimeMsg carries a playhead update in seconds
type TimeMsg float64

// StateMsg carries a play-state change
type StateMsg abloop.State

// EndedMsg signals non-looping playback reaching the end
type EndedMsg struct{}

// ErrMsg carries an engine error
type ErrMsg struct{ Err error }

// Utility functions
func renderBar(value, max float64, width int) string {
	filled := 0
	if max > 0 {
		filled = int(value / max * float64(width))
		if filled > width {
			filled = width
		}
	}
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func formatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	t := int(seconds)
	return fmt.Sprintf("%02d:%02d", t/60, t%60)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func clampRate(r float64) float64 {
	if r < abloop.MinRate {
		return abloop.MinRate
	}
	if r > abloop.MaxRate {
		return abloop.MaxRate
	}
	return r
}
