// ABOUTME: Playback facade over the loop engines
// ABOUTME: Decodes media, selects a backend, and clamps control input
package abloop

import (
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/abloop-audio/abloop-go/internal/clock"
	"github.com/abloop-audio/abloop-go/internal/engine"
	"github.com/abloop-audio/abloop-go/internal/engine/bufferloop"
	"github.com/abloop-audio/abloop-go/internal/engine/crossfade"
	"github.com/abloop-audio/abloop-go/internal/engine/sampleloop"
	"github.com/abloop-audio/abloop-go/internal/transport"
	"github.com/abloop-audio/abloop-go/pkg/audio/decode"
)

// Control input outside these ranges is clamped, never rejected
const (
	MinRate = 0.25
	MaxRate = 4.0

	maxPitchSemitones = 12.0
)

// Player is the unified control surface over the loop engines. One
// player holds one loaded asset; Load replaces it. All methods are
// safe for concurrent use.
type Player struct {
	cfg Config
	id  string

	// buildEngine exists so tests can swap in a fake backend
	buildEngine func(b Backend, ev engine.Events) (engine.Engine, error)

	mu       sync.Mutex
	eng      engine.Engine
	backend  Backend
	duration float64
	closed   bool
}

// New creates a player with no asset loaded
func New(cfg Config) *Player {
	if cfg.Backend == "" {
		cfg.Backend = BackendAuto
	}
	p := &Player{
		cfg: cfg,
		id:  uuid.New().String(),
	}
	p.buildEngine = p.defaultEngine
	return p
}

// ID returns the player's session identifier
func (p *Player) ID() string { return p.id }

// Backend reports the engine selected by the last Load
func (p *Player) Backend() Backend {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backend
}

// Duration reports the loaded asset's length in seconds, 0 if none
func (p *Player) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

// Load decodes the media bytes, stands up the configured engine, and
// returns the asset duration in seconds. A previous asset and engine
// are torn down first.
func (p *Player) Load(data []byte) (float64, error) {
	asset, err := decode.Asset(data)
	if err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, fmt.Errorf("player closed")
	}
	if p.eng != nil {
		p.eng.Close()
		p.eng = nil
	}

	ev := p.events()
	backend := p.cfg.Backend

	eng, err := p.buildEngine(backend, ev)
	if err != nil {
		return 0, err
	}
	if err := eng.Load(asset); err != nil {
		eng.Close()
		if backend != BackendAuto {
			return 0, err
		}
		// Pull-mode device unavailable; retry on the buffer scheduler
		log.Printf("abloop: sample engine unavailable (%v), falling back to buffer engine", err)
		backend = BackendBuffer
		if eng, err = p.buildEngine(backend, ev); err != nil {
			return 0, err
		}
		if err = eng.Load(asset); err != nil {
			eng.Close()
			return 0, err
		}
	}
	if backend == BackendAuto {
		backend = BackendSample
	}

	p.eng = eng
	p.backend = backend
	p.duration = asset.Duration()
	log.Printf("abloop: session %s loaded %.2fs on %s engine", p.id, p.duration, backend)
	return p.duration, nil
}

// Play starts or resumes playback
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.eng == nil {
		return engine.ErrNoAsset
	}
	return p.eng.Play()
}

// Pause stops playback, holding the current position
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.eng != nil {
		p.eng.Pause()
	}
}

// Seek moves the playhead, clamped to the asset
func (p *Player) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.eng == nil {
		return
	}
	p.eng.Seek(clamp(seconds, 0, p.duration))
}

// SetLoopPoints sets the loop region in seconds, clamped to the
// asset. An empty or inverted region deactivates looping instead.
func (p *Player) SetLoopPoints(startSeconds, endSeconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.eng == nil {
		return
	}
	start := clamp(startSeconds, 0, p.duration)
	end := clamp(endSeconds, 0, p.duration)
	if end <= start {
		log.Printf("abloop: loop region [%.3f, %.3f] is empty, disabling loop", startSeconds, endSeconds)
		p.eng.SetLooping(false)
		return
	}
	p.eng.SetLoopPoints(start, end)
}

// SetLooping toggles loop playback
func (p *Player) SetLooping(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.eng != nil {
		p.eng.SetLooping(enabled)
	}
}

// SetRate sets playback speed, clamped to [MinRate, MaxRate]
func (p *Player) SetRate(rate float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.eng != nil {
		p.eng.SetRate(clamp(rate, MinRate, MaxRate))
	}
}

// SetVolume sets output gain, clamped to [0, 1]
func (p *Player) SetVolume(volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.eng != nil {
		p.eng.SetVolume(clamp(volume, 0, 1))
	}
}

// SetPitch shifts pitch in semitones. Only the native engine supports
// pitch; on other backends this logs and does nothing.
func (p *Player) SetPitch(semitones float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.eng == nil {
		return
	}
	if native, ok := p.eng.(engine.NativeEngine); ok {
		native.SetPitch(clamp(semitones, -maxPitchSemitones, maxPitchSemitones))
		return
	}
	log.Printf("abloop: pitch shift not supported on %s engine", p.backend)
}

// Suspend models a system audio interruption on engines that expose
// it; elsewhere it is a plain pause
func (p *Player) Suspend() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if native, ok := p.eng.(engine.NativeEngine); ok {
		native.Suspend()
		return
	}
	if p.eng != nil {
		p.eng.Pause()
	}
}

// Position reports the playhead in seconds
func (p *Player) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.eng == nil {
		return 0
	}
	return p.eng.Position()
}

// Close releases the engine and device
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.eng == nil {
		return nil
	}
	err := p.eng.Close()
	p.eng = nil
	return err
}

// events adapts the public callbacks to the engine event surface
func (p *Player) events() engine.Events {
	return engine.Events{
		OnTime: p.cfg.OnTimeUpdate,
		OnState: func(s engine.State) {
			if p.cfg.OnStateChange != nil {
				p.cfg.OnStateChange(State(s))
			}
		},
		OnEnded: p.cfg.OnEnded,
		OnError: p.cfg.OnError,
	}
}

// defaultEngine wires the real backends. The buffer and native
// engines run on their own transport and oto sink; the sample engine
// opens a pull-mode device itself.
func (p *Player) defaultEngine(b Backend, ev engine.Events) (engine.Engine, error) {
	switch b {
	case BackendSample, BackendAuto:
		return sampleloop.New(ev), nil
	case BackendBuffer:
		clk, tr := newTransport()
		return bufferloop.New(clk, tr, ev), nil
	case BackendNative:
		clk, tr := newTransport()
		return crossfade.New(clk, tr, ev), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", b)
	}
}

func newTransport() (clock.Clock, *transport.Transport) {
	clk := clock.NewMonotonic()
	tr := transport.New(clk, transport.NewOtoSink())
	go tr.Run()
	return clk, tr
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
