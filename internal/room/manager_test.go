package room

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akrabse/Joker-Poker/internal/bankroll"
	"github.com/akrabse/Joker-Poker/internal/game"
	"github.com/akrabse/Joker-Poker/internal/randutil"
)

func testManager(t *testing.T, timeout time.Duration) (*Manager, *bankroll.Memory, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	bank := bankroll.NewMemory(clock)
	cfg := Config{
		SmallBlind:    5,
		BigBlind:      10,
		MinPlayers:    2,
		MaxPlayers:    8,
		ActionTimeout: timeout,
	}
	logger := log.New(io.Discard)
	return NewManager(cfg, bank, randutil.New(7), clock, logger), bank, clock
}

func TestCreateRoomSeatsHost(t *testing.T) {
	m, bank, _ := testManager(t, 0)
	ctx := context.Background()

	r, err := m.CreateRoom(ctx, "id-alice", "alice")
	require.NoError(t, err)
	assert.Len(t, r.Code, codeLength)
	for _, c := range r.Code {
		assert.Contains(t, codeAlphabet, string(c))
	}

	state := r.Snapshot("id-alice")
	require.Len(t, state.Seats, 1)
	assert.Equal(t, "alice", state.Seats[0].Name)
	assert.True(t, state.Seats[0].IsYou)
	assert.Equal(t, game.Waiting, state.Stage)

	// The host's bankroll account exists with the starting balance
	acct, err := bank.Account(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, bankroll.StartingChips, acct.Chips)
}

func TestJoinUnknownRoom(t *testing.T) {
	m, _, _ := testManager(t, 0)
	_, err := m.JoinRoom(context.Background(), "NOSUCH", "id", "bob")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestBuyInMovesChipsFromBankroll(t *testing.T) {
	m, bank, _ := testManager(t, 0)
	ctx := context.Background()

	r, err := m.CreateRoom(ctx, "id-alice", "alice")
	require.NoError(t, err)

	require.NoError(t, m.BuyIn(ctx, r.Code, "id-alice", "alice", 200))
	state := r.Snapshot("id-alice")
	assert.Equal(t, 200, state.Seats[0].Chips)
	acct, _ := bank.Account(ctx, "alice")
	assert.Equal(t, 300, acct.Chips)

	// Cannot buy in more than the bankroll holds
	err = m.BuyIn(ctx, r.Code, "id-alice", "alice", 1000)
	assert.ErrorIs(t, err, bankroll.ErrInsufficientFunds)
	state = r.Snapshot("id-alice")
	assert.Equal(t, 200, state.Seats[0].Chips, "failed buy-in must not change the stack")
}

func TestLeaveCreditsStackAndDeactivatesEmptyRoom(t *testing.T) {
	m, bank, _ := testManager(t, 0)
	ctx := context.Background()

	r, err := m.CreateRoom(ctx, "id-alice", "alice")
	require.NoError(t, err)
	require.NoError(t, m.BuyIn(ctx, r.Code, "id-alice", "alice", 150))

	require.NoError(t, m.LeaveRoom(ctx, r.Code, "id-alice", "alice"))
	acct, _ := bank.Account(ctx, "alice")
	assert.Equal(t, bankroll.StartingChips, acct.Chips, "table stack returns to the bankroll")

	// The room is retained but inactive: still addressable, hidden from
	// discovery, and no longer joinable.
	_, err = m.Room(r.Code)
	assert.NoError(t, err, "empty room stays registered")
	assert.Empty(t, m.List(), "inactive room is not listed")
	_, err = m.JoinRoom(ctx, r.Code, "id-bob", "bob")
	assert.ErrorIs(t, err, game.ErrRoomInactive)
}

func seatThreePlayers(t *testing.T, m *Manager) *Room {
	t.Helper()
	ctx := context.Background()
	r, err := m.CreateRoom(ctx, "id-alice", "alice")
	require.NoError(t, err)
	_, err = m.JoinRoom(ctx, r.Code, "id-bob", "bob")
	require.NoError(t, err)
	_, err = m.JoinRoom(ctx, r.Code, "id-carol", "carol")
	require.NoError(t, err)
	for _, who := range []struct{ id, name string }{
		{"id-alice", "alice"}, {"id-bob", "bob"}, {"id-carol", "carol"},
	} {
		require.NoError(t, m.BuyIn(ctx, r.Code, who.id, who.name, 300))
	}
	return r
}

// actorID returns the seat identity whose turn it is.
func actorID(t *testing.T, r *Room) string {
	t.Helper()
	state := r.Snapshot("")
	require.GreaterOrEqual(t, state.CurrentPosition, 0)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.game.Seats {
		if s.Position == state.CurrentPosition {
			return s.ID
		}
	}
	t.Fatal("current position has no seat")
	return ""
}

func TestHandResultsReachBankroll(t *testing.T) {
	m, bank, _ := testManager(t, 0)
	ctx := context.Background()
	r := seatThreePlayers(t, m)

	require.NoError(t, m.StartHand(ctx, r.Code))
	// Everyone folds to the big blind
	require.NoError(t, m.Fold(ctx, r.Code, actorID(t, r)))
	require.NoError(t, m.Fold(ctx, r.Code, actorID(t, r)))

	state := r.Snapshot("")
	require.Equal(t, game.Ended, state.Stage)
	require.NotNil(t, state.Winner)

	winner, err := bank.Account(ctx, state.Winner.Name)
	require.NoError(t, err)
	assert.Equal(t, 1, winner.HandsPlayed)
	assert.Equal(t, 1, winner.HandsWon)
	assert.Equal(t, 15, winner.TotalWinnings, "blinds fold to the winner")
	require.Len(t, winner.History, 1)
	assert.Equal(t, r.Code, winner.History[0].RoomID)

	// The small blind lost 5; it shows up as a loss aggregate
	var lossSeen bool
	for _, name := range []string{"alice", "bob", "carol"} {
		acct, err := bank.Account(ctx, name)
		require.NoError(t, err)
		if acct.TotalLosses == 5 {
			lossSeen = true
		}
	}
	assert.True(t, lossSeen)
}

func TestResultsRecordedOnce(t *testing.T) {
	m, bank, _ := testManager(t, 0)
	ctx := context.Background()
	r := seatThreePlayers(t, m)

	require.NoError(t, m.StartHand(ctx, r.Code))
	require.NoError(t, m.Fold(ctx, r.Code, actorID(t, r)))
	require.NoError(t, m.Fold(ctx, r.Code, actorID(t, r)))
	winnerName := r.Snapshot("").Winner.Name

	// Further failed actions after the hand must not re-record results
	err := m.Fold(ctx, r.Code, "id-alice")
	require.Error(t, err)

	acct, _ := bank.Account(ctx, winnerName)
	assert.Equal(t, 1, acct.HandsPlayed)

	// The next hand records a fresh result
	require.NoError(t, m.StartHand(ctx, r.Code))
	require.NoError(t, m.Fold(ctx, r.Code, actorID(t, r)))
	require.NoError(t, m.Fold(ctx, r.Code, actorID(t, r)))

	total := 0
	for _, name := range []string{"alice", "bob", "carol"} {
		a, _ := bank.Account(ctx, name)
		total += a.HandsPlayed
	}
	assert.Greater(t, total, 2)
}

func TestHoleCardsArePrivate(t *testing.T) {
	m, _, _ := testManager(t, 0)
	ctx := context.Background()
	r := seatThreePlayers(t, m)
	require.NoError(t, m.StartHand(ctx, r.Code))

	state := r.Snapshot("id-alice")
	for _, s := range state.Seats {
		if s.Name == "alice" {
			assert.Len(t, s.HoleCards, 2)
		} else {
			assert.Empty(t, s.HoleCards, "opponent hole cards must not leak")
		}
	}

	// A spectator snapshot shows no hole cards at all
	state = r.Snapshot("")
	for _, s := range state.Seats {
		assert.Empty(t, s.HoleCards)
	}
}

func TestListSummaries(t *testing.T) {
	m, _, _ := testManager(t, 0)
	ctx := context.Background()

	r1, err := m.CreateRoom(ctx, "id-a", "a")
	require.NoError(t, err)
	r2, err := m.CreateRoom(ctx, "id-b", "b")
	require.NoError(t, err)

	list := m.List()
	require.Len(t, list, 2)
	codes := []string{list[0].Code, list[1].Code}
	assert.Contains(t, codes, r1.Code)
	assert.Contains(t, codes, r2.Code)
	assert.Equal(t, 8, list[0].MaxPlayers)
	assert.Equal(t, game.Waiting, list[0].Stage)
}

func TestAutoFoldOnTimeout(t *testing.T) {
	m, _, clock := testManager(t, 30*time.Second)
	ctx := context.Background()
	r := seatThreePlayers(t, m)

	notified := make(chan string, 4)
	m.SetNotify(func(code string) { notified <- code })

	require.NoError(t, m.StartHand(ctx, r.Code))
	stalled := actorID(t, r)

	clock.Advance(30 * time.Second).MustWait(ctx)

	select {
	case code := <-notified:
		assert.Equal(t, r.Code, code)
	case <-time.After(5 * time.Second):
		t.Fatal("auto-fold did not notify")
	}

	r.mu.Lock()
	seat, err := r.game.Seat(stalled)
	r.mu.Unlock()
	require.NoError(t, err)
	assert.True(t, seat.Folded)
}

func TestTimerResetsOnAction(t *testing.T) {
	m, _, clock := testManager(t, 30*time.Second)
	ctx := context.Background()
	r := seatThreePlayers(t, m)

	require.NoError(t, m.StartHand(ctx, r.Code))
	first := actorID(t, r)

	clock.Advance(20 * time.Second).MustWait(ctx)
	require.NoError(t, m.Call(ctx, r.Code, first))

	// The original deadline passes without folding the next actor
	clock.Advance(15 * time.Second).MustWait(ctx)
	state := r.Snapshot("")
	require.Equal(t, game.Preflop, state.Stage)

	r.mu.Lock()
	var folded int
	for _, s := range r.game.Seats {
		if s.Folded {
			folded++
		}
	}
	r.mu.Unlock()
	assert.Zero(t, folded, "acting in time must reset the clock")
}
