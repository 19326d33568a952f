package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fantadraft/asta/internal/auction"
	"github.com/fantadraft/asta/internal/models"
)

// Join registers a participant (idempotent for an existing id) and
// publishes so every client sees the roster change.
func (e *Engine) Join(ctx context.Context, userID, name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	auction.AddUser(e.state, userID, name)
	e.publishLocked(ctx)
}

// SetReady flags a user as ready.
func (e *Engine) SetReady(ctx context.Context, userID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := auction.SetReady(e.state, userID); err != nil {
		return err
	}
	e.publishLocked(ctx)
	return nil
}

// SetTeamName renames a user's team.
func (e *Engine) SetTeamName(ctx context.Context, userID, teamName string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := auction.SetTeamName(e.state, userID, teamName); err != nil {
		return err
	}
	e.publishLocked(ctx)
	return nil
}

// SetProfilePicture stores a user's picture reference.
func (e *Engine) SetProfilePicture(ctx context.Context, userID, ref string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := auction.SetProfilePicture(e.state, userID, ref); err != nil {
		return err
	}
	e.publishLocked(ctx)
	return nil
}

// SetPlayers ingests a validated player pool. Admin only.
func (e *Engine) SetPlayers(ctx context.Context, actorID string, players []models.Player) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(actorID); err != nil {
		return err
	}
	if err := auction.SetPlayers(e.state, players); err != nil {
		return err
	}
	e.publishLocked(ctx)
	return nil
}

// AddPlayer appends one player to the pool. Admin only.
func (e *Engine) AddPlayer(ctx context.Context, actorID string, p models.Player) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(actorID); err != nil {
		return err
	}
	if err := auction.AddPlayer(e.state, p); err != nil {
		return err
	}
	e.publishLocked(ctx)
	return nil
}

// SetCustomLogo overrides a club logo. Admin only.
func (e *Engine) SetCustomLogo(ctx context.Context, actorID, club, url string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(actorID); err != nil {
		return err
	}
	auction.SetCustomLogo(e.state, club, url)
	e.publishLocked(ctx)
	return nil
}

// SetWinnerImage stores the winner-celebration image reference. Admin only.
func (e *Engine) SetWinnerImage(ctx context.Context, actorID, url string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(actorID); err != nil {
		return err
	}
	e.state.Config.WinnerImageURL = url
	e.publishLocked(ctx)
	return nil
}

// Initialize moves SETUP -> READY with a fresh credit budget. Admin only.
func (e *Engine) Initialize(ctx context.Context, actorID string, initialCredits int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(actorID); err != nil {
		return err
	}
	if err := auction.Initialize(e.state, initialCredits); err != nil {
		return err
	}
	e.publishLocked(ctx)
	return nil
}

// Start opens bidding on the first queued player. Admin only; requires
// READY status and every non-admin participant flagged ready. The readiness
// gate is enforced here even though the UI already hides the button.
func (e *Engine) Start(ctx context.Context, actorID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(actorID); err != nil {
		return err
	}
	if e.state.Status != models.StatusReady {
		return auction.ErrInvalidStatus
	}
	if !auction.AllNonAdminReady(e.state) {
		return auction.ErrNotAllReady
	}
	e.advanceLocked(ctx)
	return nil
}

// Pause freezes a live countdown, preserving the remaining time. Admin only.
func (e *Engine) Pause(ctx context.Context, actorID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(actorID); err != nil {
		return err
	}
	if e.state.Status != models.StatusBidding {
		return auction.ErrInvalidStatus
	}
	e.pauseLocked()
	e.publishLocked(ctx)
	return nil
}

// Resume re-arms the countdown at "now + remaining", not a fresh full
// window, so a pause never hands late bidders extra time. Admin only.
func (e *Engine) Resume(ctx context.Context, actorID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(actorID); err != nil {
		return err
	}
	if e.state.Status != models.StatusPaused {
		return auction.ErrInvalidStatus
	}
	remaining := e.state.Remaining
	if remaining <= 0 {
		remaining = e.bidWindow()
	}
	e.state.Status = models.StatusBidding
	e.state.Remaining = 0
	e.armDeadlineLocked(remaining)
	e.publishLocked(ctx)
	return nil
}

// Stop force-settles the player on the block without waiting for the
// countdown. Admin only.
func (e *Engine) Stop(ctx context.Context, actorID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(actorID); err != nil {
		return err
	}
	if e.state.Status != models.StatusBidding {
		return auction.ErrInvalidStatus
	}
	e.sellLocked(ctx)
	return nil
}

// Reset unconditionally returns the room to SETUP, cancelling every pending
// timer. Users survive with their identities. Admin only.
func (e *Engine) Reset(ctx context.Context, actorID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(actorID); err != nil {
		return err
	}
	e.stopTimerLocked()
	auction.Reset(e.state)
	e.publishLocked(ctx)
	return nil
}

// StartTest force-readies everyone at default credits and runs the same
// state machine with shortened timers. Admin only.
func (e *Engine) StartTest(ctx context.Context, actorID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(actorID); err != nil {
		return err
	}
	if err := auction.EnterTestMode(e.state); err != nil {
		return err
	}
	e.advanceLocked(ctx)
	return nil
}

// StopTest parks the auction in PAUSED and drops the test flag without
// resetting progress. Admin only.
func (e *Engine) StopTest(ctx context.Context, actorID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(actorID); err != nil {
		return err
	}
	if e.state.Status == models.StatusBidding {
		e.pauseLocked()
	} else {
		e.stopTimerLocked()
	}
	auction.LeaveTestMode(e.state)
	e.publishLocked(ctx)
	return nil
}

// PlaceBid validates and commits a bid. On success the current bid is
// replaced wholesale and the anti-snipe window re-armed, so the player only
// sells once bidding has gone quiet for the full window. Validation and
// commit happen under the same lock: by the time a concurrent higher bid
// has landed, a stale submission fails validation rather than clobbering it.
func (e *Engine) PlaceBid(ctx context.Context, userID string, amount int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := auction.ApplyBid(e.state, userID, amount); err != nil {
		return err
	}
	e.armDeadlineLocked(e.bidWindow())
	log.Info().
		Str("user_id", userID).
		Int("amount", amount).
		Int("cursor", e.state.CurrentPlayerIndex).
		Msg("bid accepted")
	e.publishLocked(ctx)
	return nil
}

// pauseLocked freezes the countdown, keeping the leftover duration on the
// aggregate. Callers must hold e.mu and have checked status.
func (e *Engine) pauseLocked() {
	remaining := time.Duration(0)
	if e.state.DeadlineAt != nil {
		remaining = e.state.DeadlineAt.Sub(e.clock.Now())
		if remaining < 0 {
			remaining = 0
		}
	}
	e.stopTimerLocked()
	e.state.Remaining = remaining
	e.state.DeadlineAt = nil
	e.state.Status = models.StatusPaused
}

// advanceLocked moves the cursor to the next queued player and opens a
// fresh full-length window, or ends the auction when the queue is
// exhausted. Callers must hold e.mu.
func (e *Engine) advanceLocked(ctx context.Context) {
	// Read the window before AdvanceQueue: queue exhaustion force-clears
	// the test flag and must not flip timer durations mid-decision.
	window := e.openWindow()
	if auction.AdvanceQueue(e.state) {
		e.armDeadlineLocked(window)
		log.Info().
			Int("cursor", e.state.CurrentPlayerIndex).
			Dur("window", window).
			Msg("bidding opened on next player")
	} else {
		e.stopTimerLocked()
		e.state.DeadlineAt = nil
		e.state.Remaining = 0
		log.Info().Msg("queue exhausted, auction ended")
	}
	e.publishLocked(ctx)
}

// sellLocked settles the current player and enters SOLD, then schedules the
// automatic advance. Callers must hold e.mu.
func (e *Engine) sellLocked(ctx context.Context) {
	winner := auction.Settle(e.state)
	e.state.LastWinner = winner
	e.state.Status = models.StatusSold
	e.state.Remaining = 0
	if winner != nil {
		log.Info().
			Str("player_id", winner.Player.ID).
			Str("user_id", winner.User.ID).
			Int("amount", winner.Amount).
			Msg("player sold")
	} else {
		log.Info().Int("cursor", e.state.CurrentPlayerIndex).Msg("player went unsold")
	}
	e.armSoldDelayLocked(e.soldDelay())
	e.publishLocked(ctx)
}

// onDeadline fires when the bidding countdown elapses.
func (e *Engine) onDeadline(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.timerGen {
		return // raced with a re-arm or cancel
	}
	if e.state.Status != models.StatusBidding {
		return
	}
	e.sellLocked(e.ctx)
}

// onSoldDelay fires when the SOLD display delay elapses.
func (e *Engine) onSoldDelay(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.timerGen {
		return
	}
	if e.state.Status != models.StatusSold {
		return
	}
	e.advanceLocked(e.ctx)
}
