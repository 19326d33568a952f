// Package engine hosts the authoritative auction state machine. Exactly one
// engine instance exists per room and it is the only timeout authority:
// time-based transitions (sale on countdown expiry, advance after the sold
// display delay) fire from its own clockwork timers, never from clients.
// Clients only observe snapshots and submit commands.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/fantadraft/asta/internal/models"
	"github.com/fantadraft/asta/internal/replication"
)

// ErrNotAdmin rejects privileged commands from non-admin users.
var ErrNotAdmin = errors.New("command requires the admin user")

// Publisher fans a snapshot out to subscribers.
type Publisher interface {
	Publish(ctx context.Context, snap replication.Snapshot) error
}

// SnapshotStore persists the latest snapshot so the auction survives a
// restart. Persistence is best-effort: a failing store never blocks the
// state machine.
type SnapshotStore interface {
	Save(ctx context.Context, snap replication.Snapshot) error
}

// Timings groups the three countdown windows. The test variants kick in
// while the aggregate carries the test-mode flag.
type Timings struct {
	BidWindow      time.Duration // anti-snipe window re-armed on every bid
	OpenWindow     time.Duration // fresh window when a player goes up
	SoldDelay      time.Duration // how long the SOLD result stays on screen
	TestBidWindow  time.Duration
	TestOpenWindow time.Duration
	TestSoldDelay  time.Duration
}

// DefaultTimings mirrors the live product: 5s anti-snipe, 10s opening
// window, 5s sold display, with 2s/3s/2s test-mode variants.
func DefaultTimings() Timings {
	return Timings{
		BidWindow:      5 * time.Second,
		OpenWindow:     10 * time.Second,
		SoldDelay:      5 * time.Second,
		TestBidWindow:  2 * time.Second,
		TestOpenWindow: 3 * time.Second,
		TestSoldDelay:  2 * time.Second,
	}
}

// Engine serializes every command against the aggregate behind one mutex.
// The single-writer discipline is what makes bid submission safe under
// concurrency: a bid that was valid when typed but superseded by a higher
// concurrent bid re-validates under the lock and loses with ErrBidTooLow
// instead of silently overwriting.
type Engine struct {
	mu    sync.Mutex
	state *models.Auction
	seq   uint64

	clock   clockwork.Clock
	timings Timings
	pub     Publisher
	store   SnapshotStore

	timer    clockwork.Timer
	timerGen uint64 // invalidates in-flight timer fires

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds an engine around an existing aggregate (e.g. one recovered
// from the snapshot store). pub is required; store may be nil.
func New(state *models.Auction, timings Timings, pub Publisher, store SnapshotStore, clock clockwork.Clock) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		state:   state,
		clock:   clock,
		timings: timings,
		pub:     pub,
		store:   store,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Shutdown cancels all pending timers. The aggregate is left as-is; a later
// engine can resume from the persisted snapshot.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	e.stopTimerLocked()
	e.mu.Unlock()
	e.cancel()
}

// RestoreSeq fast-forwards the snapshot sequence after recovering stored
// state, so new snapshots outrank the one already replicated and persisted.
func (e *Engine) RestoreSeq(seq uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if seq > e.seq {
		e.seq = seq
	}
}

// State returns a deep copy of the current aggregate.
func (e *Engine) State() *models.Auction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Snapshot returns the current state wrapped in a snapshot envelope.
func (e *Engine) Snapshot() replication.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return replication.Snapshot{
		Seq:        e.seq,
		ServerTime: e.clock.Now(),
		State:      e.state.Clone(),
	}
}

// publishLocked snapshots the aggregate and hands it to the publisher and
// the store. Callers must hold e.mu. Failures are logged, never fatal: a
// broken replication path must not stall the auction for everyone.
func (e *Engine) publishLocked(ctx context.Context) {
	e.seq++
	snap := replication.Snapshot{
		Seq:        e.seq,
		ServerTime: e.clock.Now(),
		State:      e.state.Clone(),
	}
	if err := e.pub.Publish(ctx, snap); err != nil {
		log.Error().Err(err).Uint64("seq", snap.Seq).Msg("snapshot publish failed")
	}
	if e.store != nil {
		if err := e.store.Save(ctx, snap); err != nil {
			log.Error().Err(err).Uint64("seq", snap.Seq).Msg("snapshot persist failed")
		}
	}
}

// requireAdmin guards privileged commands. Callers must hold e.mu.
func (e *Engine) requireAdmin(actorID string) error {
	u, ok := e.state.Users[actorID]
	if !ok || !u.IsAdmin {
		return ErrNotAdmin
	}
	return nil
}

func (e *Engine) bidWindow() time.Duration {
	if e.state.Config.IsTestMode {
		return e.timings.TestBidWindow
	}
	return e.timings.BidWindow
}

func (e *Engine) openWindow() time.Duration {
	if e.state.Config.IsTestMode {
		return e.timings.TestOpenWindow
	}
	return e.timings.OpenWindow
}

func (e *Engine) soldDelay() time.Duration {
	if e.state.Config.IsTestMode {
		return e.timings.TestSoldDelay
	}
	return e.timings.SoldDelay
}
