// ABOUTME: Audio device output using the oto library
// ABOUTME: Push-mode sink for the transport plus a pull-mode device for callbacks
package transport

import (
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"

	"github.com/abloop-audio/abloop-go/pkg/audio"
)

// oto allows exactly one context per process, so every sink and pull
// device shares this one. The first caller creates it; later callers
// resume it. Suspended, not destroyed, when the last user releases it.
var (
	otoMu       sync.Mutex
	otoShared   *oto.Context
	otoRate     int
	otoChannels int
	otoUsers    int
)

func acquireOtoContext(sampleRate, channels int) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoShared != nil {
		if sampleRate != otoRate || channels != otoChannels {
			return nil, fmt.Errorf("audio device is open at %dHz/%dch, cannot reopen at %dHz/%dch",
				otoRate, otoChannels, sampleRate, channels)
		}
		if err := otoShared.Resume(); err != nil {
			return nil, fmt.Errorf("failed to resume audio device: %w", err)
		}
		otoUsers++
		return otoShared, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	otoShared = ctx
	otoRate = sampleRate
	otoChannels = channels
	otoUsers = 1
	return ctx, nil
}

func releaseOtoContext() {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoUsers > 0 {
		otoUsers--
	}
	if otoUsers == 0 && otoShared != nil {
		otoShared.Suspend()
	}
}

// OtoSink is a push-mode Sink backed by an oto player reading from a
// bounded internal buffer. The bound (~500ms) gives Write real-time
// backpressure.
type OtoSink struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	buf      []float32
	capacity int
	channels int
	closed   bool

	framesPlayed atomic.Int64

	otoCtx *oto.Context
	player *oto.Player
}

// NewOtoSink creates an unstarted oto sink
func NewOtoSink() *OtoSink {
	s := &OtoSink{}
	s.notFull = sync.NewCond(&s.mu)
	return s
}

// Start opens the audio device for the given stream parameters. A
// restarted sink drops its old player and reuses the shared context.
func (s *OtoSink) Start(sampleRate, channels int) error {
	if s.player != nil {
		s.player.Close()
		s.player = nil
		releaseOtoContext()
	}

	ctx, err := acquireOtoContext(sampleRate, channels)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.otoCtx = ctx
	s.channels = channels
	s.capacity = sampleRate * channels / 2 // ~500ms
	s.buf = make([]float32, 0, s.capacity)
	s.mu.Unlock()

	s.player = ctx.NewPlayer(&sinkReader{sink: s})
	s.player.Play()

	log.Printf("audio output started: %dHz, %d channels", sampleRate, channels)
	return nil
}

// Write buffers interleaved frames, blocking while the buffer is full
func (s *OtoSink) Write(pcm []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(pcm) > 0 {
		if s.closed {
			return fmt.Errorf("sink closed")
		}
		free := s.capacity - len(s.buf)
		if free == 0 {
			s.notFull.Wait()
			continue
		}
		n := len(pcm)
		if n > free {
			n = free
		}
		s.buf = append(s.buf, pcm[:n]...)
		pcm = pcm[n:]
	}
	return nil
}

// FramesPlayed reports frames consumed by the device
func (s *OtoSink) FramesPlayed() int64 {
	return s.framesPlayed.Load()
}

// Reset drops all buffered audio; the device goes silent immediately
func (s *OtoSink) Reset() {
	s.mu.Lock()
	s.buf = s.buf[:0]
	s.mu.Unlock()
	s.notFull.Broadcast()
}

// Close releases the device
func (s *OtoSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.buf = nil
	s.mu.Unlock()
	s.notFull.Broadcast()

	if s.player != nil {
		if err := s.player.Close(); err != nil {
			return err
		}
		s.player = nil
	}
	if s.otoCtx != nil {
		s.otoCtx = nil
		releaseOtoContext()
	}
	return nil
}

// sinkReader is the device-side pull path. When the buffer runs dry it
// emits silence rather than blocking the audio thread.
type sinkReader struct {
	sink *OtoSink
}

func (r *sinkReader) Read(p []byte) (int, error) {
	s := r.sink
	maxSamples := len(p) / 2

	s.mu.Lock()
	n := len(s.buf)
	if n > maxSamples {
		n = maxSamples
	}
	for i := 0; i < n; i++ {
		v := audio.SampleToInt16(s.buf[i])
		p[i*2] = byte(v)
		p[i*2+1] = byte(uint16(v) >> 8)
	}
	copy(s.buf, s.buf[n:])
	s.buf = s.buf[:len(s.buf)-n]
	if s.channels > 0 {
		s.framesPlayed.Add(int64(n / s.channels))
	}
	s.mu.Unlock()
	s.notFull.Broadcast()

	// Pad the rest of the block with silence
	for i := n * 2; i < maxSamples*2; i++ {
		p[i] = 0
	}
	return maxSamples * 2, nil
}

// PullDevice drives a caller-supplied reader as the audio callback.
// The reader's Read is invoked on the device's schedule with whatever
// block size the host picks.
type PullDevice struct {
	otoCtx *oto.Context
	player *oto.Player
}

// NewPullDevice opens the device and attaches the callback reader
func NewPullDevice(sampleRate, channels int, r io.Reader) (*PullDevice, error) {
	ctx, err := acquireOtoContext(sampleRate, channels)
	if err != nil {
		return nil, err
	}

	d := &PullDevice{
		otoCtx: ctx,
		player: ctx.NewPlayer(r),
	}
	return d, nil
}

// Play starts pulling from the callback reader
func (d *PullDevice) Play() {
	d.player.Play()
}

// Pause stops pulling; buffered device audio drains first
func (d *PullDevice) Pause() {
	d.player.Pause()
}

// Close releases the device
func (d *PullDevice) Close() error {
	err := d.player.Close()
	releaseOtoContext()
	return err
}
