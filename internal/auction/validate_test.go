package auction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fantadraft/asta/internal/models"
)

// biddingAuction builds an aggregate in BIDDING on a player with base value
// 10, with user "u1" holding 100 credits.
func biddingAuction() *models.Auction {
	a := models.NewAuction("admin", "Admin", 500)
	a.Players = []models.Player{
		{ID: "p1", Name: "Rossi", Role: models.RoleForward, Club: "Inter", Value: 10},
	}
	a.Queue = []int{0}
	a.CurrentPlayerIndex = 0
	a.Status = models.StatusBidding
	a.Users["u1"] = models.User{ID: "u1", Name: "One", Credits: 100, Squad: []models.Player{}}
	return a
}

func TestValidateBid(t *testing.T) {
	fullForwardSquad := make([]models.Player, 6)
	for i := range fullForwardSquad {
		fullForwardSquad[i] = models.Player{ID: "f", Role: models.RoleForward, Value: 1}
	}

	tests := []struct {
		name    string
		mutate  func(a *models.Auction)
		userID  string
		amount  int
		wantErr error
	}{
		{
			name:   "opening bid at base value is accepted",
			userID: "u1", amount: 10,
		},
		{
			name:    "opening bid one below base value is rejected",
			userID:  "u1", amount: 9,
			wantErr: ErrBidTooLow,
		},
		{
			name: "bid must strictly exceed current bid",
			mutate: func(a *models.Auction) {
				a.CurrentBid = &models.Bid{UserID: "u2", Amount: 20}
			},
			userID: "u1", amount: 20,
			wantErr: ErrBidTooLow,
		},
		{
			name: "higher bid over current bid is accepted",
			mutate: func(a *models.Auction) {
				a.CurrentBid = &models.Bid{UserID: "u2", Amount: 20}
			},
			userID: "u1", amount: 21,
		},
		{
			name: "rejected outside bidding phase",
			mutate: func(a *models.Auction) {
				a.Status = models.StatusPaused
			},
			userID: "u1", amount: 10,
			wantErr: ErrNotBiddingPhase,
		},
		{
			name:    "unknown user",
			userID:  "ghost", amount: 10,
			wantErr: ErrUnknownUser,
		},
		{
			name: "no active player",
			mutate: func(a *models.Auction) {
				a.CurrentPlayerIndex = -1
			},
			userID: "u1", amount: 10,
			wantErr: ErrNoActivePlayer,
		},
		{
			name: "role limit reached regardless of credits",
			mutate: func(a *models.Auction) {
				u := a.Users["u1"]
				u.Squad = fullForwardSquad
				a.Users["u1"] = u
			},
			userID: "u1", amount: 10,
			wantErr: ErrRoleLimitReached,
		},
		{
			name:    "insufficient credits",
			userID:  "u1", amount: 101,
			wantErr: ErrInsufficientCredits,
		},
		{
			name: "credits must cover the full amount",
			mutate: func(a *models.Auction) {
				u := a.Users["u1"]
				u.Credits = 10
				a.Users["u1"] = u
			},
			userID: "u1", amount: 10,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := biddingAuction()
			if tc.mutate != nil {
				tc.mutate(a)
			}
			err := ValidateBid(a, tc.userID, tc.amount)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyBidReplacesWholesale(t *testing.T) {
	a := biddingAuction()
	a.Users["u2"] = models.User{ID: "u2", Name: "Two", Credits: 100, Squad: []models.Player{}}

	require.NoError(t, ApplyBid(a, "u1", 10))
	require.NotNil(t, a.CurrentBid)
	assert.Equal(t, models.Bid{UserID: "u1", Amount: 10}, *a.CurrentBid)

	require.NoError(t, ApplyBid(a, "u2", 15))
	assert.Equal(t, models.Bid{UserID: "u2", Amount: 15}, *a.CurrentBid)
}

func TestApplyBidRejectionLeavesBidUntouched(t *testing.T) {
	a := biddingAuction()
	require.NoError(t, ApplyBid(a, "u1", 20))

	err := ApplyBid(a, "u1", 20)
	assert.ErrorIs(t, err, ErrBidTooLow)
	assert.Equal(t, models.Bid{UserID: "u1", Amount: 20}, *a.CurrentBid)
}

func TestStaleConcurrentBidLoses(t *testing.T) {
	// A bid that was valid when typed but superseded by a higher concurrent
	// bid must be rejected, not overwrite the winner.
	a := biddingAuction()
	a.Users["u2"] = models.User{ID: "u2", Name: "Two", Credits: 100, Squad: []models.Player{}}

	require.NoError(t, ApplyBid(a, "u2", 30))
	err := ApplyBid(a, "u1", 25)
	assert.ErrorIs(t, err, ErrBidTooLow)
	assert.Equal(t, "u2", a.CurrentBid.UserID)
}
