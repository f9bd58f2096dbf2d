package room

import (
	"context"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/akrabse/Joker-Poker/internal/bankroll"
	"github.com/akrabse/Joker-Poker/internal/game"
	"github.com/akrabse/Joker-Poker/internal/randutil"
)

var ErrRoomNotFound = errors.New("room not found")

// Config carries the table defaults applied to every new room.
type Config struct {
	SmallBlind    int
	BigBlind      int
	MinPlayers    int
	MaxPlayers    int
	ActionTimeout time.Duration // 0 disables auto-fold
}

// Manager owns the room registry. Registry access is guarded by mu; each
// room's game state is guarded by its own lock. Bankroll calls happen with
// no lock held.
type Manager struct {
	logger *log.Logger
	clock  quartz.Clock
	bank   bankroll.Service
	cfg    Config

	mu    sync.RWMutex
	rooms map[string]*Room
	rng   *rand.Rand // room codes and game seeds, guarded by mu

	notify func(code string) // async state changes (auto-fold)
}

func NewManager(cfg Config, bank bankroll.Service, rng *rand.Rand, clock quartz.Clock, logger *log.Logger) *Manager {
	return &Manager{
		logger: logger.WithPrefix("rooms"),
		clock:  clock,
		bank:   bank,
		cfg:    cfg,
		rooms:  make(map[string]*Room),
		rng:    rng,
	}
}

// SetNotify registers a callback invoked after a state change the caller
// did not initiate, such as a turn-timer auto-fold.
func (m *Manager) SetNotify(fn func(code string)) {
	m.notify = fn
}

// CreateRoom makes a new room and seats the creator at it.
func (m *Manager) CreateRoom(ctx context.Context, playerID, username string) (*Room, error) {
	if _, err := m.bank.Ensure(ctx, username); err != nil {
		return nil, err
	}

	m.mu.Lock()
	code := newCode(m.rng)
	for _, taken := m.rooms[code]; taken; _, taken = m.rooms[code] {
		code = newCode(m.rng)
	}
	r := &Room{
		Code:      code,
		CreatedAt: m.clock.Now(),
		game: game.New(game.Config{
			RoomID:     code,
			SmallBlind: m.cfg.SmallBlind,
			BigBlind:   m.cfg.BigBlind,
			MinPlayers: m.cfg.MinPlayers,
			MaxPlayers: m.cfg.MaxPlayers,
		}, randutil.New(m.rng.Int64()), m.clock),
	}
	m.rooms[code] = r
	m.mu.Unlock()

	r.mu.Lock()
	_, err := r.game.AddSeat(playerID, username)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	m.logger.Info("Room created", "room", code, "host", username)
	return r, nil
}

// JoinRoom seats a player at an existing room.
func (m *Manager) JoinRoom(ctx context.Context, code, playerID, username string) (*Room, error) {
	if _, err := m.bank.Ensure(ctx, username); err != nil {
		return nil, err
	}
	r, err := m.Room(code)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	_, err = r.game.AddSeat(playerID, username)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	m.logger.Info("Player joined", "room", code, "player", username)
	return r, nil
}

// Room looks up a room by code.
func (m *Manager) Room(code string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	}
	return r, nil
}

// BuyIn moves chips from the player's bankroll onto the table. The debit
// happens with the room unlocked; if the seat vanished in the meantime the
// chips are refunded.
func (m *Manager) BuyIn(ctx context.Context, code, playerID, username string, amount int) error {
	r, err := m.Room(code)
	if err != nil {
		return err
	}

	r.mu.Lock()
	_, err = r.game.Seat(playerID)
	r.mu.Unlock()
	if err != nil {
		return err
	}

	if err := m.bank.Debit(ctx, username, amount); err != nil {
		return err
	}

	r.mu.Lock()
	err = r.game.AddChips(playerID, amount)
	r.mu.Unlock()
	if err != nil {
		if cerr := m.bank.Credit(ctx, username, amount); cerr != nil {
			m.logger.Error("Buy-in refund failed", "room", code, "player", username, "amount", amount, "error", cerr)
		}
		return err
	}

	m.logger.Info("Buy-in", "room", code, "player", username, "amount", amount)
	return nil
}

// LeaveRoom removes the player and credits their remaining stack back to
// the bankroll. An emptied room stays registered but inactive, so its code
// and history remain inspectable; joining it is rejected.
func (m *Manager) LeaveRoom(ctx context.Context, code, playerID, username string) error {
	r, err := m.Room(code)
	if err != nil {
		return err
	}

	r.mu.Lock()
	chips, err := r.game.RemoveSeat(playerID)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	pending := m.collectResultsLocked(r)
	m.armTimerLocked(r)
	empty := len(r.game.Seats) == 0
	r.mu.Unlock()

	if chips > 0 {
		if cerr := m.bank.Credit(ctx, username, chips); cerr != nil {
			m.logger.Error("Cash-out failed", "room", code, "player", username, "chips", chips, "error", cerr)
		}
	}
	m.deliver(ctx, pending)

	if empty {
		m.deactivateRoom(r)
	}
	m.logger.Info("Player left", "room", code, "player", username, "chips", chips)
	return nil
}

func (m *Manager) deactivateRoom(r *Room) {
	r.mu.Lock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.mu.Unlock()
	m.logger.Info("Room deactivated", "room", r.Code)
}

// StartHand begins the next hand.
func (m *Manager) StartHand(ctx context.Context, code string) error {
	return m.withGame(ctx, code, func(g *game.Game, r *Room) error {
		if err := g.StartHand(); err != nil {
			return err
		}
		r.recorded = false
		return nil
	})
}

// Fold applies a voluntary fold for the acting player.
func (m *Manager) Fold(ctx context.Context, code, playerID string) error {
	return m.withGame(ctx, code, func(g *game.Game, _ *Room) error {
		return g.Fold(playerID)
	})
}

// Call matches the table bet, or checks.
func (m *Manager) Call(ctx context.Context, code, playerID string) error {
	return m.withGame(ctx, code, func(g *game.Game, _ *Room) error {
		return g.Call(playerID)
	})
}

// Raise commits amount additional chips.
func (m *Manager) Raise(ctx context.Context, code, playerID string, amount int) error {
	return m.withGame(ctx, code, func(g *game.Game, _ *Room) error {
		return g.Raise(playerID, amount)
	})
}

// withGame runs fn under the room lock, then handles hand completion and
// the turn timer before delivering bankroll results lock-free.
func (m *Manager) withGame(ctx context.Context, code string, fn func(*game.Game, *Room) error) error {
	r, err := m.Room(code)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if err := fn(r.game, r); err != nil {
		r.mu.Unlock()
		return err
	}
	pending := m.collectResultsLocked(r)
	m.armTimerLocked(r)
	r.mu.Unlock()

	m.deliver(ctx, pending)
	return nil
}

// List returns summaries of the active rooms, newest first. Deactivated
// rooms are retained in the registry but not discoverable.
func (m *Manager) List() []Summary {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})
	out := make([]Summary, 0, len(rooms))
	for _, r := range rooms {
		r.mu.Lock()
		if r.game.Active {
			out = append(out, r.summaryLocked())
		}
		r.mu.Unlock()
	}
	return out
}

// Shutdown stops every pending turn timer.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rooms {
		r.mu.Lock()
		if r.timer != nil {
			r.timer.Stop()
			r.timer = nil
		}
		r.mu.Unlock()
	}
}

type pendingResult struct {
	username string
	rec      bankroll.GameRecord
}

// collectResultsLocked drains a finished hand's results exactly once.
// Callers hold the room lock.
func (m *Manager) collectResultsLocked(r *Room) []pendingResult {
	if r.game.Stage != game.Ended || r.recorded {
		return nil
	}
	r.recorded = true

	now := m.clock.Now()
	out := make([]pendingResult, 0, len(r.game.Results))
	for _, res := range r.game.Results {
		out = append(out, pendingResult{
			username: res.Name,
			rec: bankroll.GameRecord{
				RoomID:    r.Code,
				Won:       res.Won,
				Amount:    res.Amount,
				Hand:      res.Hand,
				Timestamp: now,
			},
		})
	}
	return out
}

func (m *Manager) deliver(ctx context.Context, pending []pendingResult) {
	for _, p := range pending {
		if err := m.bank.RecordHandResult(ctx, p.username, p.rec); err != nil {
			m.logger.Error("Recording hand result failed", "player", p.username, "error", err)
		}
	}
}

// armTimerLocked puts the acting seat on the clock. Callers hold the room
// lock.
func (m *Manager) armTimerLocked(r *Room) {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	if m.cfg.ActionTimeout <= 0 {
		return
	}
	g := r.game
	if !g.Stage.Betting() || g.Current < 0 {
		return
	}
	seatID := g.Seats[g.Current].ID
	r.timer = m.clock.AfterFunc(m.cfg.ActionTimeout, func() {
		m.autoFold(r, seatID)
	})
}

// autoFold fires when a seat runs out its clock. The seat identity is
// re-checked under the lock since the action may have moved on.
func (m *Manager) autoFold(r *Room, seatID string) {
	r.mu.Lock()
	g := r.game
	if !g.Stage.Betting() || g.Current < 0 || g.Seats[g.Current].ID != seatID {
		r.mu.Unlock()
		return
	}
	err := g.ForceFold(seatID)
	if err != nil {
		m.logger.Warn("Auto-fold failed", "room", r.Code, "seat", seatID, "error", err)
		r.mu.Unlock()
		return
	}
	m.logger.Info("Auto-folded stalled seat", "room", r.Code, "seat", seatID)
	pending := m.collectResultsLocked(r)
	m.armTimerLocked(r)
	r.mu.Unlock()

	m.deliver(context.Background(), pending)
	if m.notify != nil {
		m.notify(r.Code)
	}
}
