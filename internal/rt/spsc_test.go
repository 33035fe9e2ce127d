// ABOUTME: Tests for the SPSC command queue
// ABOUTME: Tests ordering, capacity, and concurrent produce/consume
package rt

import (
	"testing"
	"time"
)

func TestQueueOrdering(t *testing.T) {
	q := NewQueue[int](8)

	for i := 0; i < 5; i++ {
		if !q.Push(i) {
			t.Fatalf("push %d failed", i)
		}
	}

	for i := 0; i < 5; i++ {
		v, ok := q.Pop()
		if !ok || v != i {
			t.Fatalf("expected %d, got %d (ok=%v)", i, v, ok)
		}
	}

	if _, ok := q.Pop(); ok {
		t.Error("pop from empty queue should fail")
	}
}

func TestQueueFull(t *testing.T) {
	q := NewQueue[int](4)

	for i := 0; i < 4; i++ {
		if !q.Push(i) {
			t.Fatalf("push %d should succeed", i)
		}
	}
	if q.Push(99) {
		t.Error("push to full queue should fail")
	}

	q.Pop()
	if !q.Push(99) {
		t.Error("push after pop should succeed")
	}
}

func TestQueueCapacityRounding(t *testing.T) {
	q := NewQueue[int](5)
	// Rounded up to 8
	for i := 0; i < 8; i++ {
		if !q.Push(i) {
			t.Fatalf("push %d should fit in rounded capacity", i)
		}
	}
	if q.Len() != 8 {
		t.Errorf("expected len 8, got %d", q.Len())
	}
}

func TestQueueConcurrent(t *testing.T) {
	q := NewQueue[uint64](64)
	const n = 10000

	done := make(chan struct{})
	go func() {
		defer close(done)
		var expect uint64
		deadline := time.Now().Add(5 * time.Second)
		for expect < n {
			v, ok := q.Pop()
			if !ok {
				if time.Now().After(deadline) {
					t.Errorf("consumer timed out at %d", expect)
					return
				}
				continue
			}
			if v != expect {
				t.Errorf("out of order: expected %d, got %d", expect, v)
				return
			}
			expect++
		}
	}()

	for i := uint64(0); i < n; {
		if q.Push(i) {
			i++
		}
	}
	<-done
}
