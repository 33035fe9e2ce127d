// ABOUTME: Sample-accurate loop processor
// ABOUTME: Real-time per-sample generator with fractional cursor and loop wrap
package sampleloop

import (
	"math"
	"sync/atomic"

	"github.com/abloop-audio/abloop-go/internal/dsp"
	"github.com/abloop-audio/abloop-go/internal/engine"
	"github.com/abloop-audio/abloop-go/internal/rt"
	"github.com/abloop-audio/abloop-go/pkg/audio"
)

// NoteKind classifies processor notifications
type NoteKind uint8

const (
	NotePosition NoteKind = iota
	NoteEnded
)

// Note is a notification posted from the audio callback
type Note struct {
	Kind    NoteKind
	Seconds float64
}

type cmdOp uint8

const (
	opLoad cmdOp = iota
	opPlay
	opPause
	opSeek
	opLoopPoints
	opLooping
	opRate
	opVolume
)

type command struct {
	op    cmdOp
	f1    float64
	f2    float64
	b     bool
	asset *audio.Asset
}

// Processor generates output samples one at a time from a fractional
// cursor into the loaded asset. Read is the audio callback: it must
// never block, error, or allocate, so control flows in through an
// SPSC command queue and notifications flow out through a buffered
// channel with non-blocking sends.
type Processor struct {
	sampleRate int
	channels   int

	cmds  *rt.Queue[command]
	notes chan Note

	// Callback-owned state. Only Read touches these.
	asset     *audio.Asset
	cursor    float64
	region    engine.LoopRegion
	rate      float64
	volume    float64
	looping   bool
	playing   bool
	endedSent bool

	notifyEvery int
	sinceNotify int

	posBits atomic.Uint64 // cursor snapshot readable from the control side
}

// NewProcessor creates a processor for the given output format. The
// position notification cadence defaults to ~10 per second.
func NewProcessor(sampleRate, channels int) *Processor {
	if channels < 1 {
		channels = 1
	}
	return &Processor{
		sampleRate:  sampleRate,
		channels:    channels,
		cmds:        rt.NewQueue[command](64),
		notes:       make(chan Note, 64),
		rate:        1.0,
		volume:      1.0,
		notifyEvery: sampleRate / 10,
	}
}

// Notes returns the notification channel drained by the control side
func (p *Processor) Notes() <-chan Note {
	return p.notes
}

// Load hands a decoded asset to the callback. Control side only.
func (p *Processor) Load(asset *audio.Asset) bool {
	return p.post(command{op: opLoad, asset: asset})
}

// Play resumes sample generation
func (p *Processor) Play() bool { return p.post(command{op: opPlay}) }

// Pause silences output from the next block onward
func (p *Processor) Pause() bool { return p.post(command{op: opPause}) }

// Seek moves the cursor to an absolute frame position
func (p *Processor) Seek(frame float64) bool {
	return p.post(command{op: opSeek, f1: frame})
}

// SetLoopPoints sets the loop region in frames
func (p *Processor) SetLoopPoints(start, end int64) bool {
	return p.post(command{op: opLoopPoints, f1: float64(start), f2: float64(end)})
}

// SetLooping toggles loop wrapping
func (p *Processor) SetLooping(enabled bool) bool {
	return p.post(command{op: opLooping, b: enabled})
}

// SetRate sets the cursor advance per output frame
func (p *Processor) SetRate(rate float64) bool {
	return p.post(command{op: opRate, f1: rate})
}

// SetVolume sets the output gain
func (p *Processor) SetVolume(volume float64) bool {
	return p.post(command{op: opVolume, f1: volume})
}

func (p *Processor) post(c command) bool {
	return p.cmds.Push(c)
}

// PositionFrames reports the cursor as last published by the callback
func (p *Processor) PositionFrames() float64 {
	return math.Float64frombits(p.posBits.Load())
}

// PositionSeconds reports the cursor in seconds
func (p *Processor) PositionSeconds() float64 {
	return p.PositionFrames() / float64(p.sampleRate)
}

// Read fills the block with 16-bit little-endian interleaved PCM. It
// accepts any positive block size and always succeeds; with no asset
// or paused playback it emits silence.
func (p *Processor) Read(b []byte) (int, error) {
	p.drainCommands()

	frameBytes := 2 * p.channels
	frames := len(b) / frameBytes

	for f := 0; f < frames; f++ {
		off := f * frameBytes

		if !p.playing || p.asset == nil {
			for i := 0; i < frameBytes; i++ {
				b[off+i] = 0
			}
			continue
		}

		// Wrap before emitting so the sample comes from the new
		// position. Overshoot past the loop end folds into the loop
		// instead of snapping to the start, keeping the phase smooth.
		if p.looping && p.region.Active() && p.cursor >= float64(p.region.End) {
			over := p.cursor - float64(p.region.End)
			p.cursor = float64(p.region.Start) + math.Mod(over, float64(p.region.Frames()))
		}

		if int(p.cursor) >= p.asset.Frames {
			// Past the asset: silence, one ended notification, cursor holds
			if !p.endedSent {
				p.endedSent = true
				p.notify(Note{Kind: NoteEnded, Seconds: p.asset.Duration()})
			}
			for i := 0; i < frameBytes; i++ {
				b[off+i] = 0
			}
			continue
		}

		for ch := 0; ch < p.channels; ch++ {
			src := ch
			if src >= p.asset.Channels {
				src = p.asset.Channels - 1
			}
			s := dsp.SampleAt(p.asset.Data[src], p.cursor) * float32(p.volume)
			v := audio.SampleToInt16(s)
			b[off+ch*2] = byte(v)
			b[off+ch*2+1] = byte(uint16(v) >> 8)
		}

		p.cursor += p.rate

		p.sinceNotify++
		if p.sinceNotify >= p.notifyEvery {
			p.sinceNotify = 0
			p.notify(Note{Kind: NotePosition, Seconds: p.published() / float64(p.sampleRate)})
		}
	}

	p.posBits.Store(math.Float64bits(p.published()))
	return frames * frameBytes, nil
}

// published returns the cursor with any pending loop wrap applied.
// The raw cursor may sit past the loop end for one frame because the
// wrap happens lazily before the next emit; observers should never
// see that intermediate value.
func (p *Processor) published() float64 {
	c := p.cursor
	if p.looping && p.region.Active() && c >= float64(p.region.End) {
		c = float64(p.region.Start) + math.Mod(c-float64(p.region.End), float64(p.region.Frames()))
	}
	return c
}

func (p *Processor) drainCommands() {
	for {
		c, ok := p.cmds.Pop()
		if !ok {
			return
		}
		switch c.op {
		case opLoad:
			p.asset = c.asset
			p.cursor = 0
			p.endedSent = false
		case opPlay:
			p.playing = true
		case opPause:
			p.playing = false
		case opSeek:
			p.cursor = c.f1
			p.endedSent = false
		case opLoopPoints:
			p.region = engine.LoopRegion{Start: int64(c.f1), End: int64(c.f2)}
		case opLooping:
			p.looping = c.b
			if c.b {
				p.endedSent = false
			}
		case opRate:
			p.rate = c.f1
		case opVolume:
			p.volume = c.f1
		}
	}
}

// notify posts without blocking; the callback drops notifications
// rather than stall when the control side falls behind.
func (p *Processor) notify(n Note) {
	select {
	case p.notes <- n:
	default:
	}
}
