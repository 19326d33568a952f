// Package replication moves complete auction snapshots from the single
// authoritative engine to every subscribed client. Readers never see
// partial updates: each message is a self-consistent copy of the whole
// aggregate, and the per-snapshot sequence number gives subscribers a total
// order to reconcile against.
package replication

import (
	"time"

	"github.com/fantadraft/asta/internal/models"
)

// Snapshot is one complete, self-consistent copy of the auction aggregate.
// ServerTime is the authority's clock at publish time so clients can
// recompute the countdown from DeadlineAt without trusting their own clock.
type Snapshot struct {
	Seq        uint64          `json:"seq"`
	ServerTime time.Time       `json:"server_time"`
	State      *models.Auction `json:"state"`
}

// TimeRemaining recomputes the countdown as of the authority's clock at
// publish time. While PAUSED it is the frozen leftover; with no deadline it
// is 0. Clients wanting a live ticking value subtract their own elapsed
// time since receipt (see View).
func (s Snapshot) TimeRemaining() time.Duration {
	if s.State == nil {
		return 0
	}
	if s.State.Status == models.StatusPaused {
		return s.State.Remaining
	}
	if s.State.DeadlineAt == nil {
		return 0
	}
	remaining := s.State.DeadlineAt.Sub(s.ServerTime)
	if remaining < 0 {
		return 0
	}
	return remaining
}
