package warfare

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/talgya/colony-wars/internal/colony"
)

// Cooldowns allows one offensive action per colony per window.
type Cooldowns struct {
	window time.Duration

	mu       sync.Mutex
	limiters map[colony.ID]*rate.Limiter
}

// NewCooldowns creates a cooldown table. A zero window disables cooldowns.
func NewCooldowns(window time.Duration) *Cooldowns {
	return &Cooldowns{
		window:   window,
		limiters: make(map[colony.ID]*rate.Limiter),
	}
}

// Reserve claims the colony's action slot at now. On failure of the surrounding
// operation the caller must invoke the returned cancel func to give the slot back.
func (c *Cooldowns) Reserve(id colony.ID, now time.Time) (cancel func(), err error) {
	if c == nil || c.window <= 0 {
		return func() {}, nil
	}

	c.mu.Lock()
	l, ok := c.limiters[id]
	if !ok {
		l = rate.NewLimiter(rate.Every(c.window), 1)
		c.limiters[id] = l
	}
	c.mu.Unlock()

	r := l.ReserveN(now, 1)
	if !r.OK() || r.DelayFrom(now) > 0 {
		r.CancelAt(now)
		return nil, ErrActionOnCooldown
	}
	return func() { r.CancelAt(now) }, nil
}
