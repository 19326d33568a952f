package auction

import (
	"github.com/fantadraft/asta/internal/models"
	"github.com/fantadraft/asta/internal/roster"
)

// ValidateBid decides whether userID may place amount on the player under
// auction. Checks run in a fixed order so the caller always gets the most
// specific rejection:
//
//  1. status must be BIDDING
//  2. user and queued player must resolve
//  3. the user's squad must have room for the player's role
//  4. amount must beat the current bid, or meet the base value when opening
//  5. the user must be able to afford amount
//
// The opening-bid floor is the base value itself: a first bid of exactly
// baseValue is legal, baseValue-1 is not.
func ValidateBid(a *models.Auction, userID string, amount int) error {
	if a.Status != models.StatusBidding {
		return ErrNotBiddingPhase
	}

	user, ok := a.Users[userID]
	if !ok {
		return ErrUnknownUser
	}
	player := a.CurrentPlayer()
	if player == nil {
		return ErrNoActivePlayer
	}

	if !roster.CanAcquire(user.Squad, player.Role) {
		return ErrRoleLimitReached
	}

	floor := player.Value - 1
	if a.CurrentBid != nil {
		floor = a.CurrentBid.Amount
	}
	if amount <= floor {
		return ErrBidTooLow
	}

	if user.Credits < amount {
		return ErrInsufficientCredits
	}

	return nil
}

// ApplyBid validates and, on success, replaces the current bid in place.
// Re-arming the anti-snipe countdown is the engine's job.
func ApplyBid(a *models.Auction, userID string, amount int) error {
	if err := ValidateBid(a, userID, amount); err != nil {
		return err
	}
	a.CurrentBid = &models.Bid{UserID: userID, Amount: amount}
	return nil
}
