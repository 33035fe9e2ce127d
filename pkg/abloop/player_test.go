// ABOUTME: Tests for the playback facade
// ABOUTME: Uses a fake engine to verify clamping, fallback, and events
package abloop

import (
	"encoding/binary"
	"sync"
	"testing"

	"github.com/abloop-audio/abloop-go/internal/engine"
	"github.com/abloop-audio/abloop-go/pkg/audio"
)

// wavBytes builds a minimal 16-bit PCM WAV file
func wavBytes(frames, channels, sampleRate int) []byte {
	dataSize := frames * channels * 2
	buf := make([]byte, 0, 44+dataSize)
	u32 := func(v int) []byte {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(v))
		return b
	}
	u16 := func(v int) []byte {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(v))
		return b
	}
	buf = append(buf, "RIFF"...)
	buf = append(buf, u32(36+dataSize)...)
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = append(buf, u32(16)...)
	buf = append(buf, u16(1)...)
	buf = append(buf, u16(channels)...)
	buf = append(buf, u32(sampleRate)...)
	buf = append(buf, u32(sampleRate*channels*2)...)
	buf = append(buf, u16(channels*2)...)
	buf = append(buf, u16(16)...)
	buf = append(buf, "data"...)
	buf = append(buf, u32(dataSize)...)
	buf = append(buf, make([]byte, dataSize)...)
	return buf
}

type fakeEngine struct {
	mu        sync.Mutex
	loadErr   error
	loaded    *audio.Asset
	seeked    float64
	loopStart float64
	loopEnd   float64
	loopSet   bool
	looping   bool
	rate      float64
	volume    float64
	closed    bool
}

func (f *fakeEngine) Load(asset *audio.Asset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return f.loadErr
	}
	f.loaded = asset
	return nil
}

func (f *fakeEngine) Play() error { return nil }
func (f *fakeEngine) Pause()      {}

func (f *fakeEngine) Seek(seconds float64) {
	f.mu.Lock()
	f.seeked = seconds
	f.mu.Unlock()
}

func (f *fakeEngine) SetLoopPoints(start, end float64) {
	f.mu.Lock()
	f.loopStart, f.loopEnd, f.loopSet = start, end, true
	f.mu.Unlock()
}

func (f *fakeEngine) SetLooping(enabled bool) {
	f.mu.Lock()
	f.looping = enabled
	f.mu.Unlock()
}

func (f *fakeEngine) SetRate(rate float64) {
	f.mu.Lock()
	f.rate = rate
	f.mu.Unlock()
}

func (f *fakeEngine) SetVolume(volume float64) {
	f.mu.Lock()
	f.volume = volume
	f.mu.Unlock()
}

func (f *fakeEngine) Position() float64 { return 0 }

func (f *fakeEngine) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

type fakeNative struct {
	fakeEngine
	pitch     float64
	suspended bool
}

func (f *fakeNative) SetPitch(semitones float64) {
	f.mu.Lock()
	f.pitch = semitones
	f.mu.Unlock()
}

func (f *fakeNative) Suspend() {
	f.mu.Lock()
	f.suspended = true
	f.mu.Unlock()
}

// newFakePlayer wires a player to the given engine and loads a 1s
// mono asset
func newFakePlayer(t *testing.T, cfg Config, eng engine.Engine) *Player {
	t.Helper()
	p := New(cfg)
	p.buildEngine = func(b Backend, ev engine.Events) (engine.Engine, error) {
		return eng, nil
	}
	d, err := p.Load(wavBytes(8000, 1, 8000))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if d != 1.0 {
		t.Fatalf("duration = %v, want 1", d)
	}
	return p
}

func TestLoadReportsDurationAndBackend(t *testing.T) {
	fake := &fakeEngine{}
	p := newFakePlayer(t, Config{}, fake)
	defer p.Close()

	if fake.loaded == nil || fake.loaded.Frames != 8000 {
		t.Fatalf("engine did not receive the decoded asset: %+v", fake.loaded)
	}
	if p.Backend() != BackendSample {
		t.Errorf("auto resolved to %q, want sample", p.Backend())
	}
	if p.Duration() != 1.0 {
		t.Errorf("duration = %v, want 1", p.Duration())
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	p := New(Config{})
	defer p.Close()

	if _, err := p.Load([]byte("definitely not audio")); err == nil {
		t.Error("expected decode error")
	}
}

func TestAutoFallsBackToBufferEngine(t *testing.T) {
	broken := &fakeEngine{loadErr: engine.ErrNoAsset}
	working := &fakeEngine{}
	p := New(Config{})
	p.buildEngine = func(b Backend, ev engine.Events) (engine.Engine, error) {
		if b == BackendAuto {
			return broken, nil
		}
		return working, nil
	}
	defer p.Close()

	if _, err := p.Load(wavBytes(8000, 1, 8000)); err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Backend() != BackendBuffer {
		t.Errorf("fallback backend = %q, want buffer", p.Backend())
	}
	if !broken.closed {
		t.Error("failed engine was not closed")
	}
	if working.loaded == nil {
		t.Error("fallback engine never received the asset")
	}
}

func TestExplicitBackendDoesNotFallBack(t *testing.T) {
	broken := &fakeEngine{loadErr: engine.ErrNoAsset}
	p := New(Config{Backend: BackendSample})
	p.buildEngine = func(b Backend, ev engine.Events) (engine.Engine, error) {
		return broken, nil
	}
	defer p.Close()

	if _, err := p.Load(wavBytes(8000, 1, 8000)); err == nil {
		t.Error("expected the explicit backend's failure to surface")
	}
}

func TestSeekClamped(t *testing.T) {
	fake := &fakeEngine{}
	p := newFakePlayer(t, Config{}, fake)
	defer p.Close()

	p.Seek(5.0)
	if fake.seeked != 1.0 {
		t.Errorf("seek past end = %v, want clamped to 1", fake.seeked)
	}
	p.Seek(-2.0)
	if fake.seeked != 0.0 {
		t.Errorf("negative seek = %v, want clamped to 0", fake.seeked)
	}
}

func TestRateAndVolumeClamped(t *testing.T) {
	fake := &fakeEngine{}
	p := newFakePlayer(t, Config{}, fake)
	defer p.Close()

	p.SetRate(10.0)
	if fake.rate != MaxRate {
		t.Errorf("rate = %v, want %v", fake.rate, MaxRate)
	}
	p.SetRate(0.01)
	if fake.rate != MinRate {
		t.Errorf("rate = %v, want %v", fake.rate, MinRate)
	}
	p.SetVolume(3.0)
	if fake.volume != 1.0 {
		t.Errorf("volume = %v, want 1", fake.volume)
	}
}

func TestEmptyLoopRegionDisablesLooping(t *testing.T) {
	fake := &fakeEngine{looping: true}
	p := newFakePlayer(t, Config{}, fake)
	defer p.Close()

	p.SetLoopPoints(0.8, 0.2)
	if fake.loopSet {
		t.Error("inverted region must not reach the engine")
	}
	if fake.looping {
		t.Error("inverted region should disable looping")
	}

	// A region hanging past the end clamps rather than rejects
	p.SetLoopPoints(0.5, 7.0)
	if !fake.loopSet || fake.loopStart != 0.5 || fake.loopEnd != 1.0 {
		t.Errorf("clamped region = [%v, %v], want [0.5, 1]", fake.loopStart, fake.loopEnd)
	}
}

func TestPitchClampedOnNativeEngine(t *testing.T) {
	fake := &fakeNative{}
	p := newFakePlayer(t, Config{Backend: BackendNative}, fake)
	defer p.Close()

	p.SetPitch(30.0)
	if fake.pitch != maxPitchSemitones {
		t.Errorf("pitch = %v, want %v", fake.pitch, maxPitchSemitones)
	}
	p.Suspend()
	if !fake.suspended {
		t.Error("suspend did not reach the native engine")
	}
}

func TestPitchIgnoredElsewhere(t *testing.T) {
	fake := &fakeEngine{}
	p := newFakePlayer(t, Config{}, fake)
	defer p.Close()

	// Must not panic or misroute on an engine without pitch support
	p.SetPitch(3.0)
	p.Suspend()
}

func TestStateCallbackMapping(t *testing.T) {
	var mu sync.Mutex
	var got []State
	p := New(Config{OnStateChange: func(s State) {
		mu.Lock()
		got = append(got, s)
		mu.Unlock()
	}})
	defer p.Close()

	var ev engine.Events
	p.buildEngine = func(b Backend, e engine.Events) (engine.Engine, error) {
		ev = e
		return &fakeEngine{}, nil
	}
	if _, err := p.Load(wavBytes(100, 1, 8000)); err != nil {
		t.Fatal(err)
	}

	ev.EmitState(engine.StatePlaying)
	ev.EmitState(engine.StatePaused)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != StatePlaying || got[1] != StatePaused {
		t.Errorf("state sequence = %v", got)
	}
}

func TestControlsSafeWithoutAsset(t *testing.T) {
	p := New(Config{})
	defer p.Close()

	if err := p.Play(); err != engine.ErrNoAsset {
		t.Errorf("play without asset = %v, want ErrNoAsset", err)
	}
	p.Pause()
	p.Seek(1)
	p.SetLoopPoints(0, 1)
	p.SetLooping(true)
	p.SetRate(2)
	p.SetVolume(0.5)
	p.SetPitch(1)
	p.Suspend()
	if p.Position() != 0 {
		t.Errorf("position without asset = %v", p.Position())
	}
}

func TestCloseIsIdempotentAndBlocksLoad(t *testing.T) {
	fake := &fakeEngine{}
	p := newFakePlayer(t, Config{}, fake)

	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if !fake.closed {
		t.Error("engine not closed")
	}
	if err := p.Close(); err != nil {
		t.Errorf("second close = %v", err)
	}
	if _, err := p.Load(wavBytes(100, 1, 8000)); err == nil {
		t.Error("load after close must fail")
	}
}

func TestPlayersGetDistinctSessionIDs(t *testing.T) {
	a, b := New(Config{}), New(Config{})
	defer a.Close()
	defer b.Close()
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("session ids not distinct: %q, %q", a.ID(), b.ID())
	}
}
