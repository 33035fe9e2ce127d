// ABOUTME: Engine clock abstraction
// ABOUTME: Provides monotonic engine time plus a virtual clock for tests
package clock

import (
	"sync"
	"time"
)

// Clock reports elapsed engine time. All scheduling math is done in
// engine time so that tests can drive it deterministically.
type Clock interface {
	// Now returns the time elapsed since the clock was created
	Now() time.Duration
}

// Monotonic is a wall-backed engine clock
type Monotonic struct {
	start time.Time
}

// NewMonotonic creates a clock starting at zero
func NewMonotonic() *Monotonic {
	return &Monotonic{start: time.Now()}
}

// Now returns elapsed time since creation
func (c *Monotonic) Now() time.Duration {
	return time.Since(c.start)
}

// Virtual is a manually advanced clock for deterministic tests
type Virtual struct {
	mu  sync.Mutex
	now time.Duration
}

// NewVirtual creates a virtual clock at time zero
func NewVirtual() *Virtual {
	return &Virtual{}
}

// Now returns the current virtual time
func (c *Virtual) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the virtual clock forward
func (c *Virtual) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

// Set jumps the virtual clock to an absolute engine time
func (c *Virtual) Set(d time.Duration) {
	c.mu.Lock()
	c.now = d
	c.mu.Unlock()
}
