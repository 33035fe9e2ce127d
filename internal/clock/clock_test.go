// ABOUTME: Tests for the engine clock
// ABOUTME: Tests monotonic progression and virtual advancement
package clock

import (
	"testing"
	"time"
)

func TestMonotonicStartsNearZero(t *testing.T) {
	c := NewMonotonic()
	if now := c.Now(); now > 50*time.Millisecond {
		t.Errorf("fresh clock should be near zero, got %v", now)
	}
}

func TestMonotonicAdvances(t *testing.T) {
	c := NewMonotonic()
	first := c.Now()
	time.Sleep(5 * time.Millisecond)
	if c.Now() <= first {
		t.Error("monotonic clock did not advance")
	}
}

func TestVirtualAdvance(t *testing.T) {
	c := NewVirtual()
	if c.Now() != 0 {
		t.Error("virtual clock should start at zero")
	}

	c.Advance(100 * time.Millisecond)
	c.Advance(150 * time.Millisecond)
	if c.Now() != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", c.Now())
	}

	c.Set(time.Second)
	if c.Now() != time.Second {
		t.Errorf("expected 1s after Set, got %v", c.Now())
	}
}
