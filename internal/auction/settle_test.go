package auction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fantadraft/asta/internal/models"
)

func TestSettleWithBid(t *testing.T) {
	a := biddingAuction()
	a.CurrentBid = &models.Bid{UserID: "u1", Amount: 42}

	winner := Settle(a)

	require.NotNil(t, winner)
	assert.Equal(t, "p1", winner.Player.ID)
	assert.Equal(t, 10, winner.Player.Value, "winner record keeps the pool player untouched")
	assert.Equal(t, 42, winner.Amount)

	// Winner snapshot reflects the post-debit state.
	assert.Equal(t, 100-42, winner.User.Credits)

	u := a.Users["u1"]
	assert.Equal(t, 100-42, u.Credits)
	require.Len(t, u.Squad, 1)
	assert.Equal(t, "p1", u.Squad[0].ID)
	assert.Equal(t, 42, u.Squad[0].Value, "squad copy carries the price paid")

	// Pool entry is never mutated.
	assert.Equal(t, 10, a.Players[0].Value)
}

func TestSettleNoBid(t *testing.T) {
	a := biddingAuction()

	winner := Settle(a)

	assert.Nil(t, winner, "unsold is an explicit absence, not a zero-amount winner")
	u := a.Users["u1"]
	assert.Equal(t, 100, u.Credits)
	assert.Empty(t, u.Squad)
}

func TestSettleUnresolvableReferencesSkipMutation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *models.Auction)
	}{
		{
			name: "bid references unknown user",
			mutate: func(a *models.Auction) {
				a.CurrentBid = &models.Bid{UserID: "ghost", Amount: 42}
			},
		},
		{
			name: "cursor points outside the queue",
			mutate: func(a *models.Auction) {
				a.CurrentBid = &models.Bid{UserID: "u1", Amount: 42}
				a.CurrentPlayerIndex = 99
			},
		},
		{
			name: "queue entry dangles past the pool",
			mutate: func(a *models.Auction) {
				a.CurrentBid = &models.Bid{UserID: "u1", Amount: 42}
				a.Queue[0] = 99
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := biddingAuction()
			tc.mutate(a)

			winner := Settle(a)

			assert.Nil(t, winner)
			u := a.Users["u1"]
			assert.Equal(t, 100, u.Credits, "corrupt state must not mutate users")
			assert.Empty(t, u.Squad)
		})
	}
}

func TestCreditConservation(t *testing.T) {
	const initial = 100
	a := biddingAuction()
	a.Players = append(a.Players, models.Player{
		ID: "p2", Name: "Bianchi", Role: models.RoleDefender, Club: "Milan", Value: 5,
	})
	a.Queue = []int{0, 1}

	// Sell both players to u1 at different prices.
	a.CurrentBid = &models.Bid{UserID: "u1", Amount: 30}
	require.NotNil(t, Settle(a))

	a.CurrentPlayerIndex = 1
	a.CurrentBid = &models.Bid{UserID: "u1", Amount: 7}
	require.NotNil(t, Settle(a))

	u := a.Users["u1"]
	paid := 0
	for _, p := range u.Squad {
		paid += p.Value
	}
	assert.Equal(t, initial, u.Credits+paid, "sum of prices paid plus credits equals the initial budget")
}
