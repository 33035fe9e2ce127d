// ABOUTME: Crossfading loop engine
// ABOUTME: Chains scheduled cycles with an equal-power seam crossfade
package crossfade

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/abloop-audio/abloop-go/internal/clock"
	"github.com/abloop-audio/abloop-go/internal/dsp"
	"github.com/abloop-audio/abloop-go/internal/engine"
	"github.com/abloop-audio/abloop-go/internal/transport"
	"github.com/abloop-audio/abloop-go/pkg/audio"
)

const (
	// crossfadeWindow masks the loop seam: long enough to hide a
	// click, short enough not to read as a fade
	crossfadeWindow = 8 * time.Millisecond

	// startDelay gives the first cycle a little scheduling headroom
	startDelay = 50 * time.Millisecond
)

var errClosed = errors.New("engine closed")

// Looper is the native-style loop engine: each loop cycle is a main
// segment plus a synthesized equal-power crossfade buffer, scheduled
// back to back, with the completion of one cycle scheduling the next.
//
// All state mutations run on a dedicated serial ops goroutine so
// in-flight scheduling never races a parameter change. It implements
// engine.NativeEngine.
type Looper struct {
	clk    clock.Clock
	tr     *transport.Transport
	events engine.Events

	ops  chan func()
	done chan struct{}
	once sync.Once

	// Guarded by mu for Position readers; written only on the ops
	// goroutine (and in Load before playback exists).
	mu              sync.Mutex
	asset           *audio.Asset
	params          engine.Params
	region          engine.LoopRegion
	pausedPos       float64
	offset          float64
	playStartFrames int64
	nextStart       time.Duration
	generation      uint64
	endedSent       bool
}

// New creates the crossfading engine and starts its serial ops queue
func New(clk clock.Clock, tr *transport.Transport, events engine.Events) *Looper {
	l := &Looper{
		clk:    clk,
		tr:     tr,
		events: events,
		ops:    make(chan func(), 64),
		done:   make(chan struct{}),
		params: engine.DefaultParams(),
	}
	go l.serve()
	return l
}

func (l *Looper) serve() {
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case f := <-l.ops:
			f()
		case <-tick.C:
			l.mu.Lock()
			playing := l.params.Playing
			pos := l.positionLocked()
			l.mu.Unlock()
			if playing {
				l.events.EmitTime(pos)
			}
		case <-l.done:
			return
		}
	}
}

// do enqueues an operation on the serial queue
func (l *Looper) do(f func()) {
	select {
	case l.ops <- f:
	case <-l.done:
	}
}

// doSync runs an operation on the serial queue and waits for its result
func (l *Looper) doSync(f func() error) error {
	ch := make(chan error, 1)
	l.do(func() { ch <- f() })
	select {
	case err := <-ch:
		return err
	case <-l.done:
		return errClosed
	}
}

// Load attaches the decoded asset and starts the output device. A nil
// or empty asset is an explicit error, never a silent empty buffer.
func (l *Looper) Load(asset *audio.Asset) error {
	return l.doSync(func() error {
		if asset == nil || asset.Frames == 0 {
			return fmt.Errorf("crossfade: empty asset")
		}
		if err := l.tr.Sink().Start(asset.SampleRate, asset.Channels); err != nil {
			return err
		}

		l.mu.Lock()
		l.asset = asset
		l.params = engine.DefaultParams()
		l.region = engine.LoopRegion{}
		l.pausedPos = 0
		l.mu.Unlock()

		log.Printf("crossfade: loaded %d frames at %dHz", asset.Frames, asset.SampleRate)
		return nil
	})
}

// Play starts cycle scheduling from the paused position
func (l *Looper) Play() error {
	started := false
	err := l.doSync(func() error {
		l.mu.Lock()
		if l.asset == nil {
			l.mu.Unlock()
			return engine.ErrNoAsset
		}
		if l.params.Playing {
			l.mu.Unlock()
			return nil
		}

		from := l.snapLocked(int64(l.pausedPos * float64(l.asset.SampleRate)))
		if from >= int64(l.asset.Frames) {
			// Nothing left to schedule: finish instead of sitting in
			// a playing state that never ends
			l.pausedPos = l.asset.Duration()
			sendEnded := !l.endedSent
			l.endedSent = true
			l.mu.Unlock()
			if sendEnded {
				l.events.EmitEnded()
			}
			return nil
		}

		l.params.Playing = true
		l.playStartFrames = l.tr.FramesPlayed()
		l.nextStart = l.clk.Now() + startDelay
		l.endedSent = false
		l.generation++
		gen := l.generation
		l.offset = float64(from) / float64(l.asset.SampleRate)
		l.mu.Unlock()

		l.scheduleCycle(gen, from)
		started = true
		return nil
	})
	if err == nil && started {
		l.events.EmitState(engine.StatePlaying)
	}
	return err
}

// Pause halts scheduling and silences pending audio immediately
func (l *Looper) Pause() {
	l.do(func() {
		if l.haltOp() {
			l.events.EmitState(engine.StatePaused)
		}
	})
}

// Suspend handles a system audio interruption: an implicit pause.
// Resuming afterward is an explicit Play, never automatic.
func (l *Looper) Suspend() {
	l.do(func() {
		if l.haltOp() {
			log.Printf("crossfade: audio session interrupted, pausing")
			l.events.EmitState(engine.StatePaused)
		}
	})
}

// haltOp stops playback on the ops goroutine; reports whether state changed
func (l *Looper) haltOp() bool {
	l.mu.Lock()
	if !l.params.Playing {
		l.mu.Unlock()
		return false
	}
	l.pausedPos = l.positionLocked()
	l.params.Playing = false
	l.generation++
	l.mu.Unlock()

	l.tr.CancelPending()
	l.tr.Sink().Reset()
	return true
}

// Seek moves the playhead, rescheduling from the new position if playing
func (l *Looper) Seek(seconds float64) {
	l.do(func() {
		l.mu.Lock()
		if l.asset == nil {
			l.mu.Unlock()
			return
		}
		l.pausedPos = seconds
		l.endedSent = false
		playing := l.params.Playing
		l.mu.Unlock()

		if playing {
			l.rescheduleFrom(seconds)
		}
	})
}

// SetLoopPoints changes the loop region. While playing, the previous
// schedule is interrupted and cycling restarts from the current
// position, so the edit is audible within one scheduling round-trip.
func (l *Looper) SetLoopPoints(startSeconds, endSeconds float64) {
	l.do(func() {
		l.mu.Lock()
		if l.asset == nil {
			l.mu.Unlock()
			return
		}
		if endSeconds <= startSeconds {
			l.mu.Unlock()
			log.Printf("crossfade: rejecting loop points end %.3f <= start %.3f", endSeconds, startSeconds)
			return
		}
		l.region = engine.RegionFromSeconds(startSeconds, endSeconds, l.asset.SampleRate)
		pos := l.positionLocked()
		playing := l.params.Playing
		l.mu.Unlock()

		if playing {
			l.rescheduleFrom(pos)
		}
	})
}

// SetLooping toggles loop playback
func (l *Looper) SetLooping(enabled bool) {
	l.do(func() {
		l.mu.Lock()
		l.params.Looping = enabled
		if enabled {
			l.endedSent = false
		}
		pos := l.positionLocked()
		playing := l.params.Playing
		l.mu.Unlock()

		if playing {
			l.rescheduleFrom(pos)
		}
	})
}

// SetRate changes tempo through the time-stretch stage; pitch is
// unaffected. All future scheduled audio renders at the new rate.
func (l *Looper) SetRate(rate float64) {
	if rate <= 0 {
		return
	}
	l.do(func() {
		l.mu.Lock()
		pos := l.positionLocked()
		l.params.Rate = rate
		playing := l.params.Playing
		l.mu.Unlock()

		if playing {
			l.rescheduleFrom(pos)
		}
	})
}

// SetPitch shifts pitch in semitones, independent of rate
func (l *Looper) SetPitch(semitones float64) {
	l.do(func() {
		l.mu.Lock()
		pos := l.positionLocked()
		l.params.Pitch = semitones
		playing := l.params.Playing
		l.mu.Unlock()

		if playing {
			l.rescheduleFrom(pos)
		}
	})
}

// SetVolume changes gain from the next rendered cycle
func (l *Looper) SetVolume(volume float64) {
	l.do(func() {
		l.mu.Lock()
		l.params.Volume = volume
		l.mu.Unlock()
	})
}

// Position derives the playhead from the device's sample clock
func (l *Looper) Position() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.positionLocked()
}

// Close tears down the ops queue, transport, and device
func (l *Looper) Close() error {
	l.once.Do(func() { close(l.done) })
	l.tr.CancelPending()
	l.tr.Stop()
	return l.tr.Sink().Close()
}

// rescheduleFrom interrupts the current schedule and starts a fresh
// cycle chain at the given content position. Ops goroutine only.
func (l *Looper) rescheduleFrom(pos float64) {
	l.tr.CancelPending()
	l.tr.Sink().Reset()

	l.mu.Lock()
	l.generation++
	gen := l.generation
	l.pausedPos = pos
	l.playStartFrames = l.tr.FramesPlayed()
	l.nextStart = l.clk.Now() + startDelay
	from := l.snapLocked(int64(pos * float64(l.asset.SampleRate)))
	l.offset = float64(from) / float64(l.asset.SampleRate)
	l.mu.Unlock()

	l.scheduleCycle(gen, from)
}

// scheduleCycle renders and schedules one cycle starting at the given
// content frame. Looping cycles chain themselves through their
// completion handler; non-looping playback schedules the remainder
// and ends. Ops goroutine only.
func (l *Looper) scheduleCycle(gen uint64, from int64) {
	l.mu.Lock()
	if gen != l.generation || !l.params.Playing || l.asset == nil {
		l.mu.Unlock()
		return
	}

	asset := l.asset
	region := l.region
	loop := l.params.Looping && region.Active() && region.Start < int64(asset.Frames)

	var pcm []float32
	var contentFrames int64

	if loop {
		xf := xfadeFrames(region, asset.SampleRate)
		if from < region.Start || from >= region.End-xf {
			from = region.Start
		}

		main := asset.Interleaved(from, region.End-xf)
		tail := asset.Interleaved(region.End-xf, region.End)
		head := asset.Interleaved(region.Start, region.Start+xf)
		seam := dsp.EqualPowerCrossfade(tail, head, asset.Channels)

		pcm = append(main, seam...)
		contentFrames = region.End - from

		// The crossfade already played the head of the next cycle
		next := region.Start + xf
		l.scheduleSegmentLocked(gen, pcm, contentFrames, func() {
			l.do(func() { l.scheduleCycle(gen, next) })
		})
		l.mu.Unlock()
		return
	}

	if from >= int64(asset.Frames) {
		l.mu.Unlock()
		l.finishOp(gen)
		return
	}
	pcm = asset.Interleaved(from, int64(asset.Frames))
	contentFrames = int64(asset.Frames) - from

	l.scheduleSegmentLocked(gen, pcm, contentFrames, func() {
		l.do(func() { l.finishOp(gen) })
	})
	l.mu.Unlock()
}

// scheduleSegmentLocked renders pcm through the rate/pitch stage and
// hands it to the transport. Caller holds mu.
func (l *Looper) scheduleSegmentLocked(gen uint64, pcm []float32, contentFrames int64, onComplete func()) {
	ch := l.asset.Channels
	fs := float64(l.asset.SampleRate)
	p := l.params

	// After a stall the chain's timeline lags the clock; resync so
	// the transport plays the cycle on schedule instead of late
	if now := l.clk.Now(); l.nextStart < now {
		l.nextStart = now + startDelay
	}

	if p.Rate != 1.0 {
		pcm = dsp.TimeStretch(pcm, ch, 1/p.Rate)
	}
	if p.Pitch != 0 {
		pcm = dsp.PitchShift(pcm, ch, p.Pitch)
	}
	dsp.Gain(pcm, float32(p.Volume))

	l.tr.Schedule(transport.Segment{
		StartAt:    l.nextStart,
		PCM:        pcm,
		OnComplete: onComplete,
	})
	l.nextStart += time.Duration(float64(contentFrames) / p.Rate / fs * float64(time.Second))
}

// finishOp ends non-looping playback after its final segment
func (l *Looper) finishOp(gen uint64) {
	l.mu.Lock()
	if gen != l.generation || l.endedSent {
		l.mu.Unlock()
		return
	}
	l.endedSent = true
	l.params.Playing = false
	l.pausedPos = l.asset.Duration()
	l.mu.Unlock()

	l.events.EmitEnded()
}

// positionLocked maps consumed device frames to content seconds
func (l *Looper) positionLocked() float64 {
	if l.asset == nil {
		return 0
	}
	if !l.params.Playing {
		return l.pausedPos
	}

	fs := float64(l.asset.SampleRate)
	consumed := l.tr.FramesPlayed() - l.playStartFrames
	pos := l.offset + float64(consumed)/fs*l.params.Rate

	// The seam buffer already carries the head of the next cycle, so
	// the cycle period in consumed frames is the loop minus the
	// crossfade. Wrapping at the effective end keeps position and
	// audible content aligned across cycles.
	if l.params.Looping && l.region.Active() {
		xf := xfadeFrames(l.region, l.asset.SampleRate)
		startSec := float64(l.region.Start) / fs
		endSec := float64(l.region.End-xf) / fs
		if pos >= endSec && endSec > startSec {
			pos = startSec + modf(pos-startSec, endSec-startSec)
		}
		return pos
	}

	if d := l.asset.Duration(); pos > d {
		pos = d
	}
	return pos
}

// snapLocked pulls a start frame inside the loop region when cycling
// is engaged; outside positions restart at the loop start. Caller
// holds mu.
func (l *Looper) snapLocked(from int64) int64 {
	if !l.params.Looping || !l.region.Active() || l.region.Start >= int64(l.asset.Frames) {
		return from
	}
	xf := xfadeFrames(l.region, l.asset.SampleRate)
	if from < l.region.Start || from >= l.region.End-xf {
		return l.region.Start
	}
	return from
}

// xfadeFrames sizes the seam crossfade, capped at a quarter of the loop
func xfadeFrames(region engine.LoopRegion, sampleRate int) int64 {
	xf := int64(crossfadeWindow.Seconds() * float64(sampleRate))
	if max := region.Frames() / 4; xf > max {
		xf = max
	}
	return xf
}

func modf(x, m float64) float64 {
	r := x - float64(int64(x/m))*m
	if r < 0 {
		r += m
	}
	return r
}
