// ABOUTME: Buffer-scheduling loop engine
// ABOUTME: Pre-schedules loop segments ahead of the engine clock for continuity
package bufferloop

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"github.com/abloop-audio/abloop-go/internal/clock"
	"github.com/abloop-audio/abloop-go/internal/dsp"
	"github.com/abloop-audio/abloop-go/internal/engine"
	"github.com/abloop-audio/abloop-go/internal/transport"
	"github.com/abloop-audio/abloop-go/pkg/audio"
)

const (
	defaultLookahead = 100 * time.Millisecond
	scheduleTick     = 15 * time.Millisecond
	timeTick         = 100 * time.Millisecond
)

// Looper achieves loop continuity by scheduling discrete playback
// segments at absolute engine-clock times, always keeping the
// scheduled horizon ahead of now. It implements engine.Engine.
//
// Position is derived analytically from elapsed engine time, never
// from a mutable "current segment" pointer.
type Looper struct {
	clk    clock.Clock
	tr     *transport.Transport
	events engine.Events

	lookahead time.Duration

	mu        sync.Mutex
	asset     *audio.Asset
	params    engine.Params
	region    engine.LoopRegion
	pausedPos float64       // content seconds while not playing
	offset    float64       // content seconds at playStart
	playStart time.Duration // engine time when audible playback begins
	nextStart time.Duration // next segment start on the engine clock
	schedPos  int64         // content frame the next segment starts from
	endedSent bool
	stopLoop  context.CancelFunc
}

// New creates a looper over the given clock and transport. The caller
// runs the transport; the looper only schedules onto it.
func New(clk clock.Clock, tr *transport.Transport, events engine.Events) *Looper {
	return &Looper{
		clk:       clk,
		tr:        tr,
		events:    events,
		lookahead: defaultLookahead,
		params:    engine.DefaultParams(),
	}
}

// Load attaches the decoded asset and starts the output device
func (l *Looper) Load(asset *audio.Asset) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.tr.Sink().Start(asset.SampleRate, asset.Channels); err != nil {
		return err
	}
	l.asset = asset
	l.pausedPos = 0
	l.params = engine.DefaultParams()
	l.region = engine.LoopRegion{}

	log.Printf("bufferloop: loaded %d frames at %dHz", asset.Frames, asset.SampleRate)
	return nil
}

// Play begins scheduling segments from the paused position
func (l *Looper) Play() error {
	l.mu.Lock()
	if l.asset == nil {
		l.mu.Unlock()
		return engine.ErrNoAsset
	}
	if l.params.Playing {
		l.mu.Unlock()
		return nil
	}

	l.params.Playing = true
	l.pausedPos = l.snapLocked(l.pausedPos)
	l.offset = l.pausedPos
	l.schedPos = int64(l.pausedPos * float64(l.asset.SampleRate))
	l.nextStart = l.clk.Now() + l.lookahead
	l.playStart = l.nextStart
	l.endedSent = false

	ctx, cancel := context.WithCancel(context.Background())
	l.stopLoop = cancel
	l.mu.Unlock()

	go l.run(ctx)
	l.events.EmitState(engine.StatePlaying)
	return nil
}

// Pause halts scheduling and cancels all pending audio immediately
func (l *Looper) Pause() {
	l.mu.Lock()
	if !l.params.Playing {
		l.mu.Unlock()
		return
	}
	l.pausedPos = l.positionLocked(l.clk.Now())
	l.params.Playing = false
	l.haltLocked()
	l.mu.Unlock()

	l.events.EmitState(engine.StatePaused)
}

// Seek cancels in-flight segments, moves the position, and resumes if
// playback was active
func (l *Looper) Seek(seconds float64) {
	l.mu.Lock()
	if l.asset == nil {
		l.mu.Unlock()
		return
	}
	wasPlaying := l.params.Playing
	if wasPlaying {
		l.params.Playing = false
		l.haltLocked()
	}
	l.pausedPos = seconds
	l.endedSent = false
	l.mu.Unlock()

	if wasPlaying {
		l.Play()
	}
}

// SetLoopPoints sets the loop region; while playing, scheduling
// restarts from the current position so the edit is heard promptly
func (l *Looper) SetLoopPoints(startSeconds, endSeconds float64) {
	l.mu.Lock()
	if l.asset == nil {
		l.mu.Unlock()
		return
	}
	l.region = engine.RegionFromSeconds(startSeconds, endSeconds, l.asset.SampleRate)
	l.restartFromCurrentLocked()
	l.mu.Unlock()
}

// SetLooping toggles loop playback
func (l *Looper) SetLooping(enabled bool) {
	l.mu.Lock()
	if l.asset == nil {
		l.mu.Unlock()
		return
	}
	l.params.Looping = enabled
	if enabled {
		l.endedSent = false
	}
	l.restartFromCurrentLocked()
	l.mu.Unlock()
}

// SetRate changes playback speed; already-scheduled segments keep the
// rate they were rendered with
func (l *Looper) SetRate(rate float64) {
	l.mu.Lock()
	if rate <= 0 {
		l.mu.Unlock()
		return
	}
	l.restartFromCurrentLocked()
	l.params.Rate = rate
	l.mu.Unlock()
}

// SetVolume changes gain, effective from the next scheduled segment
func (l *Looper) SetVolume(volume float64) {
	l.mu.Lock()
	l.params.Volume = volume
	l.mu.Unlock()
}

// Position reports the playhead analytically from the engine clock
func (l *Looper) Position() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.positionLocked(l.clk.Now())
}

// Close stops scheduling and releases the transport and device
func (l *Looper) Close() error {
	l.mu.Lock()
	l.params.Playing = false
	l.haltLocked()
	l.mu.Unlock()

	l.tr.Stop()
	return l.tr.Sink().Close()
}

// run drives scheduling and time reporting until cancelled
func (l *Looper) run(ctx context.Context) {
	sched := time.NewTicker(scheduleTick)
	defer sched.Stop()
	report := time.NewTicker(timeTick)
	defer report.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sched.C:
			l.step()
		case <-report.C:
			l.events.EmitTime(l.Position())
		}
	}
}

// step fills the scheduling horizon. Idempotent: with the horizon
// already filled it schedules nothing.
func (l *Looper) step() {
	l.mu.Lock()
	if !l.params.Playing || l.asset == nil {
		l.mu.Unlock()
		return
	}
	now := l.clk.Now()

	// Non-looping playback that has reached the asset end stops here
	if !l.loopEngagedLocked() && !l.endedSent && l.positionLocked(now) >= l.asset.Duration() {
		l.endedSent = true
		l.params.Playing = false
		l.pausedPos = l.asset.Duration()
		cancel := l.stopLoop
		l.stopLoop = nil
		l.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		l.events.EmitEnded()
		return
	}

	fs := float64(l.asset.SampleRate)
	for l.nextStart < now+l.lookahead {
		if l.nextStart < now {
			log.Printf("bufferloop: horizon %v behind, scheduling immediately", now-l.nextStart)
		}

		start, end := l.nextRangeLocked()
		if end <= start {
			break
		}

		pcm := l.asset.Interleaved(start, end)
		if l.params.Rate != 1.0 {
			pcm = dsp.Resample(pcm, l.asset.Channels, l.params.Rate)
		}
		dsp.Gain(pcm, float32(l.params.Volume))

		l.tr.Schedule(transport.Segment{StartAt: l.nextStart, PCM: pcm})

		// Advance by the exact segment duration computed from sample
		// counts, not wall time, so cycles never drift.
		frames := float64(end - start)
		l.nextStart += time.Duration(frames / l.params.Rate / fs * float64(time.Second))
	}
	l.mu.Unlock()
}

// nextRangeLocked picks the content frames of the next segment and
// advances the scheduling position past it
func (l *Looper) nextRangeLocked() (int64, int64) {
	if l.loopEngagedLocked() {
		s := l.schedPos
		if s < 0 || s >= l.region.End {
			s = l.region.Start
		}
		l.schedPos = l.region.Start
		return s, l.region.End
	}

	s := l.schedPos
	end := int64(l.asset.Frames)
	l.schedPos = end
	return s, end
}

// snapLocked folds a resume position onto what the scheduler will
// actually play: with a loop engaged, positions the region can no
// longer reach restart at the region start, matching nextRangeLocked
func (l *Looper) snapLocked(pos float64) float64 {
	if !l.loopEngagedLocked() {
		return pos
	}
	fs := float64(l.asset.SampleRate)
	if pos < 0 || pos >= float64(l.region.End)/fs {
		return float64(l.region.Start) / fs
	}
	return pos
}

// loopEngagedLocked reports whether looping is on with a usable region
func (l *Looper) loopEngagedLocked() bool {
	return l.params.Looping && l.region.Active() && int64(l.asset.Frames) > l.region.Start
}

// positionLocked maps elapsed engine time to content seconds
func (l *Looper) positionLocked(now time.Duration) float64 {
	if l.asset == nil {
		return 0
	}
	if !l.params.Playing {
		return l.pausedPos
	}

	elapsed := (now - l.playStart).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	pos := l.offset + elapsed*l.params.Rate

	if l.loopEngagedLocked() {
		fs := float64(l.asset.SampleRate)
		startSec := float64(l.region.Start) / fs
		endSec := float64(l.region.End) / fs
		if pos >= endSec {
			pos = startSec + math.Mod(pos-startSec, endSec-startSec)
		}
		return pos
	}

	if d := l.asset.Duration(); pos > d {
		pos = d
	}
	return pos
}

// restartFromCurrentLocked folds the analytic position into a fresh
// play origin and drops pending segments so new parameters schedule
// from here. No-op while paused.
func (l *Looper) restartFromCurrentLocked() {
	if !l.params.Playing {
		return
	}
	now := l.clk.Now()
	pos := l.positionLocked(now)

	l.tr.CancelPending()
	l.offset = pos
	l.pausedPos = pos
	l.playStart = now
	l.nextStart = now
	l.schedPos = int64(pos * float64(l.asset.SampleRate))
}

// haltLocked stops the scheduling loop and silences pending audio
func (l *Looper) haltLocked() {
	if l.stopLoop != nil {
		l.stopLoop()
		l.stopLoop = nil
	}
	l.tr.CancelPending()
	l.tr.Sink().Reset()
}
