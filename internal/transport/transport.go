// ABOUTME: Timed segment transport
// ABOUTME: Plays pre-scheduled PCM segments at absolute engine-clock times
package transport

import (
	"container/heap"
	"context"
	"log"
	"sync"
	"time"

	"github.com/abloop-audio/abloop-go/internal/clock"
)

// lateThreshold is how far behind the clock a segment may start before
// it is counted as late. Late segments still play immediately so the
// stream catches up instead of gapping.
const lateThreshold = 50 * time.Millisecond

// Segment is one unit of audio scheduled at an absolute engine time.
type Segment struct {
	StartAt    time.Duration // engine-clock start time
	PCM        []float32     // interleaved frames, fully rendered
	OnComplete func()        // invoked once the segment is handed to the sink
}

// Stats tracks transport throughput
type Stats struct {
	Scheduled int64
	Played    int64
	Late      int64
	Cancelled int64
}

// Transport consumes scheduled segments and feeds them to the sink
// when their start time arrives.
type Transport struct {
	clk    clock.Clock
	sink   Sink
	tick   time.Duration
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	q     *segmentQueue
	stats Stats
}

// New creates a transport over the given clock and sink
func New(clk clock.Clock, sink Sink) *Transport {
	ctx, cancel := context.WithCancel(context.Background())

	return &Transport{
		clk:    clk,
		sink:   sink,
		tick:   5 * time.Millisecond,
		ctx:    ctx,
		cancel: cancel,
		q:      newSegmentQueue(),
	}
}

// Schedule queues a segment for playback at its start time
func (t *Transport) Schedule(seg Segment) {
	t.mu.Lock()
	heap.Push(t.q, seg)
	t.stats.Scheduled++
	t.mu.Unlock()
}

// Run drives the transport until Stop is called
func (t *Transport) Run() {
	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return
		case <-ticker.C:
			t.Step()
		}
	}
}

// Step plays every segment whose start time has arrived. Safe to call
// repeatedly; does nothing when no segment is due.
func (t *Transport) Step() {
	now := t.clk.Now()

	for {
		t.mu.Lock()
		if t.q.Len() == 0 {
			t.mu.Unlock()
			return
		}
		seg := t.q.Peek()
		if seg.StartAt > now {
			t.mu.Unlock()
			return
		}
		heap.Pop(t.q)
		if now-seg.StartAt > lateThreshold {
			t.stats.Late++
			log.Printf("transport: segment %v late, playing immediately", now-seg.StartAt)
		}
		t.stats.Played++
		t.mu.Unlock()

		// Write outside the lock: the sink may block for backpressure,
		// and completion handlers may schedule more segments.
		if err := t.sink.Write(seg.PCM); err != nil {
			log.Printf("transport: sink write failed: %v", err)
		}
		if seg.OnComplete != nil {
			seg.OnComplete()
		}
	}
}

// CancelPending drops every queued segment and returns how many were
// dropped. In-flight device audio is the sink's concern; callers pause
// by combining CancelPending with Sink.Reset.
func (t *Transport) CancelPending() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.q.Len()
	t.q.items = t.q.items[:0]
	t.stats.Cancelled += int64(n)
	return n
}

// Pending returns the number of queued segments
func (t *Transport) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.q.Len()
}

// FramesPlayed reports frames consumed by the sink's device side
func (t *Transport) FramesPlayed() int64 {
	return t.sink.FramesPlayed()
}

// Sink returns the output sink the transport feeds
func (t *Transport) Sink() Sink {
	return t.sink
}

// Stats returns transport statistics
func (t *Transport) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// Stop halts the transport loop
func (t *Transport) Stop() {
	t.cancel()
}

// segmentQueue is a priority queue of segments ordered by start time
type segmentQueue struct {
	items []Segment
}

func newSegmentQueue() *segmentQueue {
	q := &segmentQueue{}
	heap.Init(q)
	return q
}

func (q *segmentQueue) Len() int { return len(q.items) }

func (q *segmentQueue) Less(i, j int) bool {
	return q.items[i].StartAt < q.items[j].StartAt
}

func (q *segmentQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
}

func (q *segmentQueue) Push(x interface{}) {
	q.items = append(q.items, x.(Segment))
}

func (q *segmentQueue) Pop() interface{} {
	n := len(q.items)
	item := q.items[n-1]
	q.items[n-1] = Segment{}
	q.items = q.items[:n-1]
	return item
}

func (q *segmentQueue) Peek() Segment {
	return q.items[0]
}
