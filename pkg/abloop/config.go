// ABOUTME: Public configuration and state types for the player
// ABOUTME: Backend selection plus the caller-facing event callbacks
package abloop

// Backend names a loop playback implementation
type Backend string

const (
	// BackendAuto prefers the sample-accurate engine and falls back to
	// the buffer scheduler when the audio device cannot be opened in
	// pull mode
	BackendAuto Backend = "auto"

	// BackendSample renders per sample with a fractional cursor
	BackendSample Backend = "sample"

	// BackendBuffer schedules lookahead segments on a transport
	BackendBuffer Backend = "buffer"

	// BackendNative chains crossfaded loop cycles and adds pitch shift
	BackendNative Backend = "native"
)

// State describes playback state
type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "idle"
	}
}

// Config holds player configuration. All callbacks are optional; they
// are invoked from player goroutines and must not block.
type Config struct {
	// Backend selects the loop engine; empty means BackendAuto
	Backend Backend

	// OnTimeUpdate reports the playhead position, about ten times per
	// second while playing
	OnTimeUpdate func(seconds float64)

	// OnStateChange reports play/pause transitions
	OnStateChange func(state State)

	// OnEnded fires when non-looping playback reaches the end
	OnEnded func()

	// OnError reports engine failures
	OnError func(err error)
}
