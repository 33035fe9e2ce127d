// ABOUTME: Loop engine contract shared by all playback backends
// ABOUTME: Defines the control surface, parameters, and event callbacks
package engine

import (
	"errors"

	"github.com/abloop-audio/abloop-go/pkg/audio"
)

// ErrNoAsset is returned by commands that need a loaded asset.
var ErrNoAsset = errors.New("no asset loaded")

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

// Engine is the loop playback capability implemented by each backend.
// Time at this boundary is in seconds; implementations convert to
// sample counts or engine-native units internally.
type Engine interface {
	// Load hands the decoded asset to the engine
	Load(asset *audio.Asset) error

	// Play starts or resumes playback
	Play() error

	// Pause stops playback immediately, cancelling scheduled audio
	Pause()

	// Seek moves the playhead; callers clamp to [0, duration] first
	Seek(seconds float64)

	// SetLoopPoints sets the loop region in seconds
	SetLoopPoints(startSeconds, endSeconds float64)

	// SetLooping toggles loop playback
	SetLooping(enabled bool)

	// SetRate sets the playback speed multiplier (> 0)
	SetRate(rate float64)

	// SetVolume sets the output gain in [0, 1]
	SetVolume(volume float64)

	// Position reports the current playhead in seconds
	Position() float64

	// Close releases all resources and stops scheduling loops
	Close() error
}

// NativeEngine extends Engine with the capabilities only the
// crossfading backend offers.
type NativeEngine interface {
	Engine

	// SetPitch shifts pitch in semitones, independent of rate
	SetPitch(semitones float64)

	// Suspend models a system audio interruption: playback pauses and
	// stays paused until an explicit Play
	Suspend()
}

// Events carries the engine-to-caller notification callbacks. Any
// field may be nil; the Emit helpers are nil-safe. Callbacks are
// invoked from engine goroutines and must not block.
type Events struct {
	OnTime  func(seconds float64)
	OnState func(state State)
	OnEnded func()
	OnError func(err error)
}

// EmitTime reports a playhead position
func (e Events) EmitTime(seconds float64) {
	if e.OnTime != nil {
		e.OnTime(seconds)
	}
}

// EmitState reports a play-state change
func (e Events) EmitState(s State) {
	if e.OnState != nil {
		e.OnState(s)
	}
}

// EmitEnded reports non-looping playback reaching the end of the asset
func (e Events) EmitEnded() {
	if e.OnEnded != nil {
		e.OnEnded()
	}
}

// EmitError reports an engine failure
func (e Events) EmitError(err error) {
	if e.OnError != nil {
		e.OnError(err)
	}
}
