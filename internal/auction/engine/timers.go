package engine

import (
	"time"

	"github.com/rs/zerolog/log"
)

// armDeadlineLocked schedules the countdown that ends the bidding window
// and records the absolute deadline on the aggregate so clients recompute
// their own countdown from it. Replaces any timer already running. Callers
// must hold e.mu.
func (e *Engine) armDeadlineLocked(d time.Duration) {
	deadline := e.clock.Now().Add(d)
	e.state.DeadlineAt = &deadline
	e.state.Remaining = 0
	e.armTimerLocked(d, e.onDeadline)
}

// armSoldDelayLocked schedules the automatic advance out of SOLD. No
// deadline is exposed on the aggregate: the display delay is cosmetic and
// not biddable. Callers must hold e.mu.
func (e *Engine) armSoldDelayLocked(d time.Duration) {
	e.state.DeadlineAt = nil
	e.armTimerLocked(d, e.onSoldDelay)
}

// armTimerLocked replaces the active timer with a fresh one-shot timer.
// AfterFunc runs the callback directly, so re-arming never accumulates
// blocked goroutines. Each arm bumps the generation counter; a fire whose
// generation no longer matches raced with a cancel or re-arm and is
// dropped. Callers must hold e.mu.
func (e *Engine) armTimerLocked(d time.Duration, fire func(gen uint64)) {
	e.stopTimerLocked()
	e.timerGen++
	gen := e.timerGen
	e.timer = e.clock.AfterFunc(d, func() { fire(gen) })

	log.Debug().
		Dur("duration", d).
		Uint64("gen", gen).
		Msg("armed one-shot timer")
}

// stopTimerLocked cancels the active timer, if any, and invalidates any
// fire already in flight via the generation counter. Callers must hold
// e.mu.
func (e *Engine) stopTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.timerGen++
}
