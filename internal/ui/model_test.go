// ABOUTME: Tests for the TUI model and key handling
// ABOUTME: Tests message application, loop point keys, and rendering helpers
package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abloop-audio/abloop-go/pkg/abloop"
)

type fakeController struct {
	played    int
	paused    int
	seeked    []float64
	loopStart float64
	loopEnd   float64
	loopSet   bool
	looping   bool
	rate      float64
	volume    float64
	pitch     float64
	playErr   error
}

func (f *fakeController) Play() error {
	f.played++
	return f.playErr
}
func (f *fakeController) Pause()             { f.paused++ }
func (f *fakeController) Seek(s float64)     { f.seeked = append(f.seeked, s) }
func (f *fakeController) SetLooping(on bool) { f.looping = on }
func (f *fakeController) SetRate(r float64)  { f.rate = r }
func (f *fakeController) SetVolume(v float64) {
	f.volume = v
}
func (f *fakeController) SetPitch(s float64) { f.pitch = s }
func (f *fakeController) Position() float64  { return 0 }

func (f *fakeController) SetLoopPoints(start, end float64) {
	f.loopStart, f.loopEnd, f.loopSet = start, end, true
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, s string) Model {
	t.Helper()
	next, _ := m.Update(key(s))
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("update returned %T", next)
	}
	return model
}

func TestNewModelDefaults(t *testing.T) {
	m := NewModel(&fakeController{}, "track.wav", 120, abloop.BackendSample)

	if m.rate != 1.0 {
		t.Errorf("expected default rate 1.0, got %v", m.rate)
	}
	if m.volume != 1.0 {
		t.Errorf("expected default volume 1.0, got %v", m.volume)
	}
	if m.looping {
		t.Error("expected looping off initially")
	}
}

func TestSpaceTogglesPlayback(t *testing.T) {
	ctl := &fakeController{}
	m := NewModel(ctl, "t.wav", 10, abloop.BackendSample)

	m = press(t, m, " ")
	if ctl.played != 1 {
		t.Fatalf("expected play, got %d plays", ctl.played)
	}

	next, _ := m.Update(StateMsg(abloop.StatePlaying))
	m = next.(Model)
	m = press(t, m, " ")
	if ctl.paused != 1 {
		t.Errorf("expected pause while playing, got %d pauses", ctl.paused)
	}
}

func TestPlayErrorSurfaces(t *testing.T) {
	ctl := &fakeController{playErr: errors.New("no asset")}
	m := NewModel(ctl, "t.wav", 10, abloop.BackendSample)

	m = press(t, m, " ")
	if m.lastErr == nil {
		t.Error("expected play error to be recorded")
	}
}

func TestLoopPointsEngageLoop(t *testing.T) {
	ctl := &fakeController{}
	m := NewModel(ctl, "t.wav", 30, abloop.BackendSample)

	next, _ := m.Update(TimeMsg(4.0))
	m = next.(Model)
	m = press(t, m, "a")
	if ctl.loopSet {
		t.Fatal("loop must not be pushed with only one point")
	}

	next, _ = m.Update(TimeMsg(9.0))
	m = next.(Model)
	m = press(t, m, "b")

	if !ctl.loopSet || ctl.loopStart != 4.0 || ctl.loopEnd != 9.0 {
		t.Errorf("loop region = [%v, %v], want [4, 9]", ctl.loopStart, ctl.loopEnd)
	}
	if !ctl.looping || !m.looping {
		t.Error("setting both points should engage the loop")
	}
}

func TestClearDisablesLoop(t *testing.T) {
	ctl := &fakeController{}
	m := NewModel(ctl, "t.wav", 30, abloop.BackendSample)
	m.hasA, m.hasB, m.looping = true, true, true

	m = press(t, m, "c")
	if m.hasA || m.hasB || m.looping {
		t.Error("clear should drop loop points and disable looping")
	}
	if ctl.looping {
		t.Error("clear should disable looping on the player")
	}
}

func TestSeekKeysClampToTrack(t *testing.T) {
	ctl := &fakeController{}
	m := NewModel(ctl, "t.wav", 8, abloop.BackendSample)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	m = next.(Model)
	if got := ctl.seeked[len(ctl.seeked)-1]; got != 0 {
		t.Errorf("seek before start = %v, want 0", got)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m = next.(Model)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m = next.(Model)
	if got := ctl.seeked[len(ctl.seeked)-1]; got != 8 {
		t.Errorf("seek past end = %v, want 8", got)
	}
}

func TestRateKeysStayInRange(t *testing.T) {
	ctl := &fakeController{}
	m := NewModel(ctl, "t.wav", 30, abloop.BackendSample)

	for i := 0; i < 20; i++ {
		m = press(t, m, "+")
	}
	if ctl.rate != abloop.MaxRate {
		t.Errorf("rate = %v, want %v", ctl.rate, abloop.MaxRate)
	}

	for i := 0; i < 40; i++ {
		m = press(t, m, "-")
	}
	if ctl.rate != abloop.MinRate {
		t.Errorf("rate = %v, want %v", ctl.rate, abloop.MinRate)
	}
}

func TestEndedMsgStopsTransport(t *testing.T) {
	m := NewModel(&fakeController{}, "t.wav", 30, abloop.BackendSample)
	next, _ := m.Update(StateMsg(abloop.StatePlaying))
	m = next.(Model)

	next, _ = m.Update(EndedMsg{})
	m = next.(Model)
	if m.state != abloop.StatePaused {
		t.Errorf("state after ended = %v, want paused", m.state)
	}
	if m.position != 30 {
		t.Errorf("position after ended = %v, want duration", m.position)
	}
}

func TestViewShowsLoopPoints(t *testing.T) {
	m := NewModel(&fakeController{}, "t.wav", 30, abloop.BackendSample)
	m.width, m.height = 80, 24
	m.loopA, m.hasA = 65.0, true

	view := m.View()
	if !strings.Contains(view, "01:05") {
		t.Errorf("view missing loop A time:\n%s", view)
	}
	if !strings.Contains(view, "--:--") {
		t.Errorf("view missing unset loop B marker:\n%s", view)
	}
}

func TestRenderBar(t *testing.T) {
	if got := renderBar(5, 10, 10); got != "█████░░░░░" {
		t.Errorf("half bar = %q", got)
	}
	if got := renderBar(20, 10, 4); got != "████" {
		t.Errorf("overfull bar = %q", got)
	}
	if got := renderBar(1, 0, 4); got != "░░░░" {
		t.Errorf("zero-duration bar = %q", got)
	}
}

func TestFormatTime(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "00:00"},
		{59.9, "00:59"},
		{61, "01:01"},
		{-3, "00:00"},
	}
	for _, c := range cases {
		if got := formatTime(c.in); got != c.want {
			t.Errorf("formatTime(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("a very long track name", 10); got != "a very ..." {
		t.Errorf("truncate long = %q", got)
	}
}
