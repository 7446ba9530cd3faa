package payment

import (
	"sync"
	"time"
)

// Guard suppresses duplicate order submissions. An attempt is rejected while
// another is in flight, and for a cooldown window after the last attempt
// started; rapid double-clicks on the pay button collapse into one order.
type Guard struct {
	mu      sync.Mutex
	inUse   bool
	window  time.Duration
	last    time.Time
	nowFunc func() time.Time
}

// NewGuard builds a guard with the given cooldown window.
func NewGuard(window time.Duration) *Guard {
	return &Guard{window: window, nowFunc: time.Now}
}

// TryAcquire claims the guard for one submission attempt. It returns false
// while an attempt is in flight or the cooldown has not elapsed.
func (g *Guard) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.nowFunc()
	if g.inUse {
		return false
	}
	if !g.last.IsZero() && now.Sub(g.last) < g.window {
		return false
	}
	g.inUse = true
	g.last = now
	return true
}

// Release returns the guard to idle. The cooldown keeps running from the
// moment the attempt started.
func (g *Guard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inUse = false
}
