// ABOUTME: Sample-accurate engine wrapper
// ABOUTME: Binds the processor to an audio device and pumps notifications
package sampleloop

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/abloop-audio/abloop-go/internal/engine"
	"github.com/abloop-audio/abloop-go/internal/transport"
	"github.com/abloop-audio/abloop-go/pkg/audio"
)

// device is the slice of transport.PullDevice the engine needs
type device interface {
	Play()
	Pause()
	Close() error
}

// Engine drives the sample-accurate processor through a pull-mode
// audio device. It implements engine.Engine.
type Engine struct {
	events engine.Events

	// newDevice exists so tests can swap in a fake device
	newDevice func(sampleRate, channels int, r io.Reader) (device, error)

	mu         sync.Mutex
	proc       *Processor
	dev        device
	sampleRate int
	cancel     context.CancelFunc
}

// New creates an unloaded sample-accurate engine
func New(events engine.Events) *Engine {
	return &Engine{
		events: events,
		newDevice: func(sampleRate, channels int, r io.Reader) (device, error) {
			return transport.NewPullDevice(sampleRate, channels, r)
		},
	}
}

// Load builds the processor for the asset's format and opens the device
func (e *Engine) Load(asset *audio.Asset) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dev != nil {
		e.closeLocked()
	}

	proc := NewProcessor(asset.SampleRate, asset.Channels)
	dev, err := e.newDevice(asset.SampleRate, asset.Channels, proc)
	if err != nil {
		return fmt.Errorf("failed to open audio device: %w", err)
	}

	e.proc = proc
	e.dev = dev
	e.sampleRate = asset.SampleRate
	e.proc.Load(asset)

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	go e.pumpNotes(ctx, proc)

	log.Printf("sampleloop: loaded %d frames at %dHz", asset.Frames, asset.SampleRate)
	return nil
}

// Play starts playback
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.proc == nil {
		return engine.ErrNoAsset
	}
	e.post(e.proc.Play())
	e.dev.Play()
	e.events.EmitState(engine.StatePlaying)
	return nil
}

// Pause silences output from the next processed block
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.proc == nil {
		return
	}
	e.post(e.proc.Pause())
	e.events.EmitState(engine.StatePaused)
}

// Seek moves the cursor; takes effect on the next processed block
func (e *Engine) Seek(seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.proc == nil {
		return
	}
	e.post(e.proc.Seek(seconds * float64(e.sampleRate)))
}

// SetLoopPoints sets the loop region in seconds
func (e *Engine) SetLoopPoints(startSeconds, endSeconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.proc == nil {
		return
	}
	r := engine.RegionFromSeconds(startSeconds, endSeconds, e.sampleRate)
	e.post(e.proc.SetLoopPoints(r.Start, r.End))
}

// SetLooping toggles loop playback
func (e *Engine) SetLooping(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.proc == nil {
		return
	}
	e.post(e.proc.SetLooping(enabled))
}

// SetRate sets the playback speed multiplier
func (e *Engine) SetRate(rate float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.proc == nil {
		return
	}
	e.post(e.proc.SetRate(rate))
}

// SetVolume sets the output gain
func (e *Engine) SetVolume(volume float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.proc == nil {
		return
	}
	e.post(e.proc.SetVolume(volume))
}

// Position reports the playhead in seconds
func (e *Engine) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.proc == nil {
		return 0
	}
	return e.proc.PositionSeconds()
}

// Close stops the device and the notification pump
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closeLocked()
}

func (e *Engine) closeLocked() error {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if e.dev != nil {
		if err := e.dev.Close(); err != nil {
			return err
		}
		e.dev = nil
	}
	e.proc = nil
	return nil
}

func (e *Engine) post(ok bool) {
	if !ok {
		log.Printf("sampleloop: command queue full, command dropped")
	}
}

// pumpNotes forwards processor notifications to the event callbacks
func (e *Engine) pumpNotes(ctx context.Context, proc *Processor) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-proc.Notes():
			switch n.Kind {
			case NotePosition:
				e.events.EmitTime(n.Seconds)
			case NoteEnded:
				e.events.EmitEnded()
			}
		}
	}
}
