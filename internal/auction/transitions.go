package auction

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/fantadraft/asta/internal/models"
)

// SetPlayers replaces the player pool and rebuilds the queue in pool order.
// Allowed only outside a live countdown; it drops the auction back to SETUP.
// Every player must carry a unique id, a known role and a positive base
// value. A zero or negative base value would make the opening-bid floor
// degenerate, so it is rejected at ingestion.
func SetPlayers(a *models.Auction, players []models.Player) error {
	if a.Status == models.StatusBidding || a.Status == models.StatusPaused {
		return ErrInvalidStatus
	}
	seen := make(map[string]struct{}, len(players))
	for _, p := range players {
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicatePlayer, p.ID)
		}
		seen[p.ID] = struct{}{}
		if !p.Role.Valid() {
			return fmt.Errorf("invalid role %q for player %s", p.Role, p.ID)
		}
		if p.Value <= 0 {
			return fmt.Errorf("%w: %s", ErrBadBaseValue, p.ID)
		}
	}
	a.Players = make([]models.Player, len(players))
	copy(a.Players, players)
	a.Queue = make([]int, len(players))
	for i := range players {
		a.Queue[i] = i
	}
	a.Status = models.StatusSetup
	return nil
}

// AddPlayer appends a single player to the pool and to the end of the
// queue, generating an id when none is supplied.
func AddPlayer(a *models.Auction, p models.Player) error {
	if a.Status == models.StatusBidding || a.Status == models.StatusPaused {
		return ErrInvalidStatus
	}
	if p.ID == "" {
		p.ID = fmt.Sprintf("%s-%s", strings.ReplaceAll(p.Name, " ", "-"), uuid.NewString()[:8])
	}
	if !p.Role.Valid() {
		return fmt.Errorf("invalid role %q for player %s", p.Role, p.ID)
	}
	if p.Value <= 0 {
		return fmt.Errorf("%w: %s", ErrBadBaseValue, p.ID)
	}
	for _, existing := range a.Players {
		if existing.ID == p.ID {
			return fmt.Errorf("%w: %s", ErrDuplicatePlayer, p.ID)
		}
	}
	a.Players = append(a.Players, p)
	a.Queue = append(a.Queue, len(a.Players)-1)
	return nil
}

// AddUser registers a participant. The id is supplied by the identity
// provider and trusted as-is; re-registering an existing id is a no-op so a
// reconnecting client cannot wipe its own squad.
func AddUser(a *models.Auction, id, name string) {
	if _, exists := a.Users[id]; exists {
		return
	}
	a.Users[id] = models.User{
		ID:       id,
		Name:     name,
		TeamName: fmt.Sprintf("%s's Team", name),
		Credits:  a.Config.InitialCredits,
		Squad:    []models.Player{},
	}
}

// SetReady flags a user as ready to start.
func SetReady(a *models.Auction, userID string) error {
	u, ok := a.Users[userID]
	if !ok {
		return ErrUnknownUser
	}
	u.IsReady = true
	a.Users[userID] = u
	return nil
}

// SetTeamName renames a user's team.
func SetTeamName(a *models.Auction, userID, teamName string) error {
	u, ok := a.Users[userID]
	if !ok {
		return ErrUnknownUser
	}
	u.TeamName = teamName
	a.Users[userID] = u
	return nil
}

// SetProfilePicture stores a user's profile picture reference.
func SetProfilePicture(a *models.Auction, userID, ref string) error {
	u, ok := a.Users[userID]
	if !ok {
		return ErrUnknownUser
	}
	u.ProfilePicture = ref
	a.Users[userID] = u
	return nil
}

// SetCustomLogo overrides the logo for a club. Keys are lowercased so
// lookups are case-insensitive.
func SetCustomLogo(a *models.Auction, club, url string) {
	a.CustomLogos[strings.ToLower(club)] = url
}

// Initialize moves SETUP -> READY: locks in the initial credit budget,
// wipes squads and readiness (the admin is auto-ready) and rewinds the
// cursor. Requires a non-empty pool.
func Initialize(a *models.Auction, initialCredits int) error {
	if len(a.Players) == 0 {
		return ErrEmptyPool
	}
	if a.Status != models.StatusSetup && a.Status != models.StatusEnded {
		return ErrInvalidStatus
	}
	a.Config.InitialCredits = initialCredits
	for id, u := range a.Users {
		u.Credits = initialCredits
		u.Squad = []models.Player{}
		u.IsReady = u.IsAdmin
		a.Users[id] = u
	}
	a.Status = models.StatusReady
	a.CurrentPlayerIndex = -1
	a.CurrentBid = nil
	a.LastWinner = nil
	return nil
}

// AllNonAdminReady reports whether every non-admin user has flagged ready.
func AllNonAdminReady(a *models.Auction) bool {
	for _, u := range a.Users {
		if !u.IsAdmin && !u.IsReady {
			return false
		}
	}
	return true
}

// AdvanceQueue moves the cursor to the next queued player and clears the
// bid. It reports false when the queue is exhausted, in which case the
// auction is ENDED, the cursor rewound and test mode force-cleared.
func AdvanceQueue(a *models.Auction) bool {
	next := a.CurrentPlayerIndex + 1
	if next < len(a.Queue) {
		a.CurrentPlayerIndex = next
		a.CurrentBid = nil
		a.Status = models.StatusBidding
		return true
	}
	a.Status = models.StatusEnded
	a.CurrentPlayerIndex = -1
	a.CurrentBid = nil
	a.Config.IsTestMode = false
	return false
}

// Reset unconditionally returns the aggregate to its SETUP shape. Users
// survive with their identities; credits, squads and readiness go back to
// defaults and every auction-specific field is cleared. Calling it twice is
// the same as calling it once.
func Reset(a *models.Auction) {
	for id, u := range a.Users {
		u.Credits = a.Config.InitialCredits
		u.Squad = []models.Player{}
		u.IsReady = false
		a.Users[id] = u
	}
	a.Players = []models.Player{}
	a.Queue = []int{}
	a.CurrentPlayerIndex = -1
	a.CurrentBid = nil
	a.DeadlineAt = nil
	a.Remaining = 0
	a.LastWinner = nil
	a.Status = models.StatusSetup
	a.Config.IsTestMode = false
}

// EnterTestMode force-readies every user at default credits and wipes any
// partial progress, priming the machine for a shortened-timer dry run.
func EnterTestMode(a *models.Auction) error {
	if len(a.Players) == 0 {
		return ErrEmptyPool
	}
	for id, u := range a.Users {
		u.Credits = a.Config.InitialCredits
		u.Squad = []models.Player{}
		u.IsReady = true
		a.Users[id] = u
	}
	a.Config.IsTestMode = true
	a.CurrentPlayerIndex = -1
	a.CurrentBid = nil
	a.LastWinner = nil
	return nil
}

// LeaveTestMode drops the test flag and parks the auction in PAUSED without
// resetting progress.
func LeaveTestMode(a *models.Auction) {
	a.Config.IsTestMode = false
	a.Status = models.StatusPaused
}
