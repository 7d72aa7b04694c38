package pathflock

import (
	"math"
)

// Clock is the global animation time. It advances by Step once per frame
// and wraps modulo Duration, so it only ever decreases at the wrap.
type Clock struct {
	Time     float32
	Step     float32
	Duration float32
	Ticks    uint64
	Wraps    uint64
}

func NewClock(step, duration float32) *Clock {
	return &Clock{Step: step, Duration: duration}
}

// Tick advances the clock one step. The sum is taken in float64 so long
// runs do not accumulate float32 rounding before the wrap.
func (c *Clock) Tick() {
	next := float64(c.Time) + float64(c.Step)
	if d := float64(c.Duration); next >= d {
		next = math.Mod(next, d)
		c.Wraps++
	}
	c.Time = float32(next)
	if c.Time >= c.Duration {
		c.Time = 0
	}
	c.Ticks++
}

func clockSystem(clock *Clock) {
	clock.Tick()
}
