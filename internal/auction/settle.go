package auction

import (
	"github.com/rs/zerolog/log"

	"github.com/fantadraft/asta/internal/models"
)

// Settle resolves the current bid into a squad mutation and returns the
// winner record, or nil when nobody bid. The winning user is debited and
// receives a copy of the player with Value overwritten to the price paid.
//
// An unresolvable user or player reference means corrupted state; the
// mutation is skipped so the state machine can keep advancing, and the
// caller still gets a nil winner.
func Settle(a *models.Auction) *models.AuctionWinner {
	if a.CurrentBid == nil {
		return nil
	}

	player := a.CurrentPlayer()
	user, ok := a.Users[a.CurrentBid.UserID]
	if player == nil || !ok {
		log.Error().
			Str("bid_user_id", a.CurrentBid.UserID).
			Int("cursor", a.CurrentPlayerIndex).
			Msg("settlement skipped: bid references unresolvable user or player")
		return nil
	}

	bought := *player
	bought.Value = a.CurrentBid.Amount

	updated := user.Clone()
	updated.Credits -= a.CurrentBid.Amount
	updated.Squad = append(updated.Squad, bought)
	a.Users[user.ID] = updated

	return &models.AuctionWinner{
		Player: *player,
		User:   updated,
		Amount: a.CurrentBid.Amount,
	}
}
