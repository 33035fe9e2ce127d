// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and bridges player callbacks
package ui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abloop-audio/abloop-go/pkg/abloop"
)

// Relay forwards player events into the TUI. The player is created
// before the program exists, so events are dropped until Attach.
type Relay struct {
	prog atomic.Pointer[tea.Program]
}

// NewRelay creates an unattached relay
func NewRelay() *Relay {
	return &Relay{}
}

// Attach starts forwarding events to the program
func (r *Relay) Attach(p *tea.Program) {
	r.prog.Store(p)
}

// Config returns player callbacks wired to the relay
func (r *Relay) Config() abloop.Config {
	return abloop.Config{
		OnTimeUpdate:  func(seconds float64) { r.send(TimeMsg(seconds)) },
		OnStateChange: func(s abloop.State) { r.send(StateMsg(s)) },
		OnEnded:       func() { r.send(EndedMsg{}) },
		OnError:       func(err error) { r.send(ErrMsg{Err: err}) },
	}
}

func (r *Relay) send(msg tea.Msg) {
	if p := r.prog.Load(); p != nil {
		p.Send(msg)
	}
}

// Run starts the TUI for a loaded player and blocks until quit
func Run(player Controller, file string, duration float64, backend abloop.Backend) error {
	return RunWith(NewRelay(), player, file, duration, backend)
}

// RunWith runs the TUI using an existing relay so callbacks wired at
// player construction reach the program
func RunWith(relay *Relay, player Controller, file string, duration float64, backend abloop.Backend) error {
	p := tea.NewProgram(NewModel(player, file, duration, backend), tea.WithAltScreen())
	relay.Attach(p)
	_, err := p.Run()
	return err
}
