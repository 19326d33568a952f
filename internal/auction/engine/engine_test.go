package engine

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fantadraft/asta/internal/auction"
	"github.com/fantadraft/asta/internal/models"
	"github.com/fantadraft/asta/internal/replication"
)

type capturePublisher struct {
	mu    sync.Mutex
	snaps []replication.Snapshot
}

func (p *capturePublisher) Publish(_ context.Context, snap replication.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snaps = append(p.snaps, snap)
	return nil
}

func (p *capturePublisher) last() replication.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.snaps) == 0 {
		return replication.Snapshot{}
	}
	return p.snaps[len(p.snaps)-1]
}

func testTimings() Timings {
	return DefaultTimings()
}

// newTestEngine builds an engine over a two-player pool with users u1 and
// u2 ready to go, parked in READY.
func newTestEngine(t *testing.T) (*Engine, *capturePublisher, *clockwork.FakeClock) {
	t.Helper()

	state := models.NewAuction("admin", "Admin", 500)
	players := []models.Player{
		{ID: "p1", Name: "Rossi", Role: models.RoleForward, Club: "Inter", Value: 10},
		{ID: "p2", Name: "Bianchi", Role: models.RoleDefender, Club: "Milan", Value: 5},
	}
	require.NoError(t, auction.SetPlayers(state, players))
	auction.AddUser(state, "u1", "One")
	auction.AddUser(state, "u2", "Two")
	require.NoError(t, auction.Initialize(state, 500))
	require.NoError(t, auction.SetReady(state, "u1"))
	require.NoError(t, auction.SetReady(state, "u2"))

	clk := clockwork.NewFakeClock()
	pub := &capturePublisher{}
	eng := New(state, testTimings(), pub, nil, clk)
	t.Cleanup(eng.Shutdown)
	return eng, pub, clk
}

func waitForStatus(t *testing.T, eng *Engine, want models.AuctionStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		return eng.State().Status == want
	}, time.Second, time.Millisecond, "expected status %s", want)
}

func TestStartOpensFullWindowOnFirstPlayer(t *testing.T) {
	eng, _, clk := newTestEngine(t)

	require.NoError(t, eng.Start(context.Background(), "admin"))

	state := eng.State()
	assert.Equal(t, models.StatusBidding, state.Status)
	assert.Equal(t, 0, state.CurrentPlayerIndex)
	require.NotNil(t, state.DeadlineAt)
	assert.Equal(t, clk.Now().Add(10*time.Second), *state.DeadlineAt)
}

func TestStartRequiresAdminAndReadiness(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	assert.ErrorIs(t, eng.Start(context.Background(), "u1"), ErrNotAdmin)

	// Not-ready participant blocks the start.
	eng2 := func() *Engine {
		state := models.NewAuction("admin", "Admin", 500)
		require.NoError(t, auction.SetPlayers(state, []models.Player{
			{ID: "p1", Role: models.RoleForward, Club: "Inter", Value: 10},
		}))
		auction.AddUser(state, "u1", "One")
		require.NoError(t, auction.Initialize(state, 500))
		e := New(state, testTimings(), &capturePublisher{}, nil, clockwork.NewFakeClock())
		t.Cleanup(e.Shutdown)
		return e
	}()
	assert.ErrorIs(t, eng2.Start(context.Background(), "admin"), auction.ErrNotAllReady)
}

func TestAcceptedBidRearmsAntiSnipeWindow(t *testing.T) {
	eng, _, clk := newTestEngine(t)
	require.NoError(t, eng.Start(context.Background(), "admin"))

	clk.Advance(4 * time.Second)
	require.NoError(t, eng.PlaceBid(context.Background(), "u1", 10))

	state := eng.State()
	require.NotNil(t, state.CurrentBid)
	assert.Equal(t, models.Bid{UserID: "u1", Amount: 10}, *state.CurrentBid)
	require.NotNil(t, state.DeadlineAt)
	assert.Equal(t, clk.Now().Add(5*time.Second), *state.DeadlineAt,
		"every accepted bid resets the clock to the bid window")
}

func TestRejectedBidLeavesDeadlineUntouched(t *testing.T) {
	eng, _, clk := newTestEngine(t)
	require.NoError(t, eng.Start(context.Background(), "admin"))
	require.NoError(t, eng.PlaceBid(context.Background(), "u1", 10))
	deadline := *eng.State().DeadlineAt

	clk.Advance(time.Second)
	err := eng.PlaceBid(context.Background(), "u2", 10)

	assert.ErrorIs(t, err, auction.ErrBidTooLow)
	state := eng.State()
	assert.Equal(t, models.Bid{UserID: "u1", Amount: 10}, *state.CurrentBid)
	assert.Equal(t, deadline, *state.DeadlineAt)
}

func TestDeadlineElapsesIntoSoldWithWinner(t *testing.T) {
	eng, pub, clk := newTestEngine(t)
	require.NoError(t, eng.Start(context.Background(), "admin"))
	require.NoError(t, eng.PlaceBid(context.Background(), "u1", 12))

	clk.Advance(5 * time.Second)
	waitForStatus(t, eng, models.StatusSold)

	state := eng.State()
	require.NotNil(t, state.LastWinner)
	assert.Equal(t, "p1", state.LastWinner.Player.ID)
	assert.Equal(t, "u1", state.LastWinner.User.ID)
	assert.Equal(t, 12, state.LastWinner.Amount)
	assert.Equal(t, 500-12, state.Users["u1"].Credits)
	assert.Nil(t, state.DeadlineAt)

	assert.Equal(t, models.StatusSold, pub.last().State.Status,
		"the SOLD snapshot is replicated")
}

func TestNoBidSaleLeavesExplicitAbsence(t *testing.T) {
	eng, _, clk := newTestEngine(t)
	require.NoError(t, eng.Start(context.Background(), "admin"))

	clk.Advance(10 * time.Second)
	waitForStatus(t, eng, models.StatusSold)

	state := eng.State()
	assert.Nil(t, state.LastWinner, "nobody bid: winner is explicitly absent")
	assert.Equal(t, 500, state.Users["u1"].Credits)
	assert.Equal(t, 500, state.Users["u2"].Credits)
}

func TestSoldAdvancesToNextPlayerAfterDisplayDelay(t *testing.T) {
	eng, _, clk := newTestEngine(t)
	require.NoError(t, eng.Start(context.Background(), "admin"))
	require.NoError(t, eng.PlaceBid(context.Background(), "u1", 10))

	clk.Advance(5 * time.Second)
	waitForStatus(t, eng, models.StatusSold)

	clk.Advance(5 * time.Second)
	require.Eventually(t, func() bool {
		s := eng.State()
		return s.Status == models.StatusBidding && s.CurrentPlayerIndex == 1
	}, time.Second, time.Millisecond)

	state := eng.State()
	assert.Nil(t, state.CurrentBid)
	require.NotNil(t, state.DeadlineAt)
	assert.Equal(t, clk.Now().Add(10*time.Second), *state.DeadlineAt,
		"the next player opens with a fresh full window")
}

func TestQueueExhaustionEndsAuction(t *testing.T) {
	eng, _, clk := newTestEngine(t)
	require.NoError(t, eng.Start(context.Background(), "admin"))

	// Sell both players through timeouts.
	for i := 0; i < 2; i++ {
		clk.Advance(10 * time.Second)
		waitForStatus(t, eng, models.StatusSold)
		clk.Advance(5 * time.Second)
		if i == 0 {
			require.Eventually(t, func() bool {
				return eng.State().Status == models.StatusBidding
			}, time.Second, time.Millisecond)
		}
	}

	waitForStatus(t, eng, models.StatusEnded)
	state := eng.State()
	assert.Equal(t, -1, state.CurrentPlayerIndex)
	assert.False(t, state.Config.IsTestMode)
	assert.Nil(t, state.DeadlineAt)
}

func TestPauseFreezesRemainingAndResumeKeepsIt(t *testing.T) {
	eng, _, clk := newTestEngine(t)
	require.NoError(t, eng.Start(context.Background(), "admin"))

	// 3 seconds into the 10 second window: 7 remaining.
	clk.Advance(3 * time.Second)
	require.NoError(t, eng.Pause(context.Background(), "admin"))

	state := eng.State()
	assert.Equal(t, models.StatusPaused, state.Status)
	assert.Nil(t, state.DeadlineAt)
	assert.Equal(t, 7*time.Second, state.Remaining)

	// A long real-world pause must not eat into the countdown.
	clk.Advance(30 * time.Second)
	require.NoError(t, eng.Resume(context.Background(), "admin"))

	state = eng.State()
	assert.Equal(t, models.StatusBidding, state.Status)
	require.NotNil(t, state.DeadlineAt)
	assert.Equal(t, clk.Now().Add(7*time.Second), *state.DeadlineAt,
		"resume re-arms now+remaining, not a fresh window")
	assert.Equal(t, time.Duration(0), state.Remaining)
}

func TestPausedCountdownDoesNotFire(t *testing.T) {
	eng, _, clk := newTestEngine(t)
	require.NoError(t, eng.Start(context.Background(), "admin"))
	require.NoError(t, eng.Pause(context.Background(), "admin"))

	clk.Advance(time.Minute)

	assert.Equal(t, models.StatusPaused, eng.State().Status,
		"no sale may fire while paused")
}

func TestStopForcesImmediateSale(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	require.NoError(t, eng.Start(context.Background(), "admin"))
	require.NoError(t, eng.PlaceBid(context.Background(), "u1", 10))

	require.NoError(t, eng.Stop(context.Background(), "admin"))

	state := eng.State()
	assert.Equal(t, models.StatusSold, state.Status)
	require.NotNil(t, state.LastWinner)
	assert.Equal(t, "u1", state.LastWinner.User.ID)
}

func TestResetCancelsTimersUnconditionally(t *testing.T) {
	eng, _, clk := newTestEngine(t)
	require.NoError(t, eng.Start(context.Background(), "admin"))
	require.NoError(t, eng.PlaceBid(context.Background(), "u1", 10))

	require.NoError(t, eng.Reset(context.Background(), "admin"))

	state := eng.State()
	assert.Equal(t, models.StatusSetup, state.Status)
	assert.Contains(t, state.Users, "u1")

	// A timer left over from before the reset must not resurrect a sale.
	clk.Advance(time.Minute)
	assert.Equal(t, models.StatusSetup, eng.State().Status)
}

func TestTimerRearmDoesNotAccumulateGoroutines(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	require.NoError(t, eng.Start(context.Background(), "admin"))

	before := runtime.NumGoroutine()
	for i := 0; i < 300; i++ {
		require.NoError(t, eng.Pause(context.Background(), "admin"))
		require.NoError(t, eng.Resume(context.Background(), "admin"))
	}

	// Each resume re-arms the countdown; none of them may leave a
	// goroutine parked on a dead timer.
	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+10
	}, time.Second, 10*time.Millisecond)
}

func TestTestModeUsesShortTimers(t *testing.T) {
	eng, _, clk := newTestEngine(t)

	require.NoError(t, eng.StartTest(context.Background(), "admin"))

	state := eng.State()
	assert.True(t, state.Config.IsTestMode)
	assert.Equal(t, models.StatusBidding, state.Status)
	require.NotNil(t, state.DeadlineAt)
	assert.Equal(t, clk.Now().Add(3*time.Second), *state.DeadlineAt)

	require.NoError(t, eng.PlaceBid(context.Background(), "u1", 10))
	state = eng.State()
	assert.Equal(t, clk.Now().Add(2*time.Second), *state.DeadlineAt,
		"test mode shortens the anti-snipe window")

	require.NoError(t, eng.StopTest(context.Background(), "admin"))
	state = eng.State()
	assert.Equal(t, models.StatusPaused, state.Status)
	assert.False(t, state.Config.IsTestMode)
	assert.Equal(t, 2*time.Second, state.Remaining,
		"stop test preserves the frozen countdown")
}

func TestAdminGuards(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	assert.ErrorIs(t, eng.Initialize(ctx, "u1", 300), ErrNotAdmin)
	assert.ErrorIs(t, eng.Pause(ctx, "u1"), ErrNotAdmin)
	assert.ErrorIs(t, eng.Resume(ctx, "u1"), ErrNotAdmin)
	assert.ErrorIs(t, eng.Stop(ctx, "u1"), ErrNotAdmin)
	assert.ErrorIs(t, eng.Reset(ctx, "u1"), ErrNotAdmin)
	assert.ErrorIs(t, eng.StartTest(ctx, "u1"), ErrNotAdmin)
	assert.ErrorIs(t, eng.StopTest(ctx, "u1"), ErrNotAdmin)
	assert.ErrorIs(t, eng.SetPlayers(ctx, "u1", nil), ErrNotAdmin)
}

func TestSnapshotSequenceIsMonotonic(t *testing.T) {
	eng, pub, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, eng.Start(ctx, "admin"))
	require.NoError(t, eng.PlaceBid(ctx, "u1", 10))
	require.NoError(t, eng.PlaceBid(ctx, "u2", 11))

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.GreaterOrEqual(t, len(pub.snaps), 3)
	for i := 1; i < len(pub.snaps); i++ {
		assert.Greater(t, pub.snaps[i].Seq, pub.snaps[i-1].Seq)
	}
}
