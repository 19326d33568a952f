package models

import "time"

// AuctionStatus defines where the auction is in its lifecycle.
type AuctionStatus string

const (
	StatusSetup   AuctionStatus = "SETUP"
	StatusReady   AuctionStatus = "READY"
	StatusBidding AuctionStatus = "BIDDING"
	StatusPaused  AuctionStatus = "PAUSED"
	StatusSold    AuctionStatus = "SOLD"
	StatusEnded   AuctionStatus = "ENDED"
)

// Bid is the current highest live bid for the player under auction.
// It is replaced wholesale on every accepted bid, never patched.
type Bid struct {
	UserID string `json:"user_id"`
	Amount int    `json:"amount"`
}

// AuctionWinner records the outcome of the most recent sale. It is
// overwritten on every sale; a nil winner on a SOLD state means the player
// went unsold, which is distinct from "not yet settled".
type AuctionWinner struct {
	Player Player `json:"player"`
	User   User   `json:"user"`
	Amount int    `json:"amount"`
}

// AuctionConfig holds auxiliary, admin-configured settings.
type AuctionConfig struct {
	IsTestMode     bool   `json:"is_test_mode"`
	WinnerImageURL string `json:"winner_image_url,omitempty"`
	InitialCredits int    `json:"initial_credits"`
}

// Auction is the aggregate root and the single source of truth for a draft
// room. The queue is a permutation of pool indices so re-ordering the draft
// never rewrites the pool. CurrentPlayerIndex is a cursor into Queue, -1
// meaning not started.
//
// Exactly one of DeadlineAt / Remaining is meaningful at a time: DeadlineAt
// is the absolute end of the live countdown while BIDDING, Remaining is the
// frozen leftover while PAUSED.
type Auction struct {
	Status             AuctionStatus     `json:"status"`
	Players            []Player          `json:"players"`
	Queue              []int             `json:"auction_queue"`
	CurrentPlayerIndex int               `json:"current_player_index"`
	CurrentBid         *Bid              `json:"current_bid,omitempty"`
	DeadlineAt         *time.Time        `json:"countdown_ends_at,omitempty"`
	Remaining          time.Duration     `json:"countdown_remaining,omitempty"`
	LastWinner         *AuctionWinner    `json:"last_winner,omitempty"`
	Users              map[string]User   `json:"users"`
	Config             AuctionConfig     `json:"config"`
	CustomLogos        map[string]string `json:"custom_logos,omitempty"`
}

// NewAuction returns a SETUP-shaped aggregate holding only the admin user.
func NewAuction(adminID, adminName string, initialCredits int) *Auction {
	return &Auction{
		Status:             StatusSetup,
		Players:            []Player{},
		Queue:              []int{},
		CurrentPlayerIndex: -1,
		Users: map[string]User{
			adminID: {
				ID:       adminID,
				Name:     adminName,
				TeamName: adminName,
				Credits:  initialCredits,
				Squad:    []Player{},
				IsAdmin:  true,
			},
		},
		Config:      AuctionConfig{InitialCredits: initialCredits},
		CustomLogos: map[string]string{},
	}
}

// CurrentPlayer resolves the queued player under the cursor, or nil when the
// cursor is out of range or the queue entry dangles.
func (a *Auction) CurrentPlayer() *Player {
	if a.CurrentPlayerIndex < 0 || a.CurrentPlayerIndex >= len(a.Queue) {
		return nil
	}
	poolIdx := a.Queue[a.CurrentPlayerIndex]
	if poolIdx < 0 || poolIdx >= len(a.Players) {
		return nil
	}
	p := a.Players[poolIdx]
	return &p
}

// Admin returns the admin user, or nil if the aggregate is malformed.
func (a *Auction) Admin() *User {
	for _, u := range a.Users {
		if u.IsAdmin {
			u := u
			return &u
		}
	}
	return nil
}

// Clone returns a deep copy of the aggregate. Snapshots handed to
// subscribers are always clones so no reader can mutate engine state.
func (a *Auction) Clone() *Auction {
	out := *a
	out.Players = make([]Player, len(a.Players))
	copy(out.Players, a.Players)
	out.Queue = make([]int, len(a.Queue))
	copy(out.Queue, a.Queue)
	if a.CurrentBid != nil {
		bid := *a.CurrentBid
		out.CurrentBid = &bid
	}
	if a.DeadlineAt != nil {
		t := *a.DeadlineAt
		out.DeadlineAt = &t
	}
	if a.LastWinner != nil {
		w := *a.LastWinner
		w.User = a.LastWinner.User.Clone()
		out.LastWinner = &w
	}
	out.Users = make(map[string]User, len(a.Users))
	for id, u := range a.Users {
		out.Users[id] = u.Clone()
	}
	out.CustomLogos = make(map[string]string, len(a.CustomLogos))
	for k, v := range a.CustomLogos {
		out.CustomLogos[k] = v
	}
	return &out
}
