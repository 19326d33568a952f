package replication

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/fantadraft/asta/internal/models"
)

// View is a client's reconciled copy of the auction. Each incoming snapshot
// fully overwrites the previous one; clients never patch. The single
// exception: a user record this client created locally (its own login)
// survives a slightly-stale snapshot that predates the write, merged by
// union of keys with the incoming map winning any key present in both.
type View struct {
	mu         sync.RWMutex
	snap       Snapshot
	receivedAt time.Time
	localUsers map[string]models.User
	clock      clockwork.Clock
}

// NewView builds an empty view.
func NewView(clock clockwork.Clock) *View {
	return &View{
		localUsers: make(map[string]models.User),
		clock:      clock,
	}
}

// TrackLocalUser registers a just-created local user record that must not
// be clobbered by a stale snapshot.
func (v *View) TrackLocalUser(u models.User) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.localUsers[u.ID] = u.Clone()
}

// Apply overwrites the view with an authoritative snapshot.
func (v *View) Apply(snap Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if snap.State != nil {
		for id, u := range v.localUsers {
			if _, present := snap.State.Users[id]; present {
				// The authority has caught up with our write; stop guarding.
				delete(v.localUsers, id)
				continue
			}
			snap.State.Users[id] = u
		}
	}

	v.snap = snap
	v.receivedAt = v.clock.Now()
}

// State returns the current reconciled aggregate, or nil before the first
// snapshot arrives.
func (v *View) State() *models.Auction {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.snap.State == nil {
		return nil
	}
	return v.snap.State.Clone()
}

// Seq returns the sequence number of the applied snapshot.
func (v *View) Seq() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.snap.Seq
}

// TimeRemaining derives the live countdown from the replicated absolute
// deadline: the authority's remaining time at publish, minus how long ago
// this client received the snapshot. Local wall-clock drift cancels out.
func (v *View) TimeRemaining() time.Duration {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.snap.State == nil {
		return 0
	}
	base := v.snap.TimeRemaining()
	if v.snap.State.Status != models.StatusBidding {
		return base
	}
	remaining := base - v.clock.Since(v.receivedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}
