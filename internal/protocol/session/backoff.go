package session

import (
	"math"
	"time"
)

// Delay returns the poll delay before check N (1-based), growing
// geometrically from InitialDelay and capped at MaxDelay.
func (c BackoffConfig) Delay(attempt int) time.Duration {
	if attempt <= 1 || c.InitialDelay <= 0 {
		return max(c.InitialDelay, 0)
	}
	mult := c.Multiplier
	if mult < 1.0 {
		mult = 1.0
	}
	delay := float64(c.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if c.MaxDelay > 0 && delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}
	return time.Duration(delay)
}

// pollSchedule hands out successive delays for one wait.
type pollSchedule struct {
	cfg     BackoffConfig
	attempt int
}

func (p *pollSchedule) next() time.Duration {
	p.attempt++
	return p.cfg.Delay(p.attempt)
}

// reset restarts growth after activity (a watcher wake-up).
func (p *pollSchedule) reset() {
	p.attempt = 0
}
