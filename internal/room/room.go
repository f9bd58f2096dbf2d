// Package room manages the registry of live tables. Each room owns one
// game behind its own mutex; the manager coordinates room lifecycle, the
// bankroll and turn timers.
package room

import (
	"sync"
	"time"

	"github.com/coder/quartz"

	"github.com/akrabse/Joker-Poker/internal/deck"
	"github.com/akrabse/Joker-Poker/internal/game"
)

// Room is one table. All game access goes through mu; nothing network
// facing happens while it is held.
type Room struct {
	Code      string
	CreatedAt time.Time

	mu       sync.Mutex
	game     *game.Game
	timer    *quartz.Timer // pending auto-fold, nil when nobody is on the clock
	recorded bool          // current hand's results already sent to the bankroll
}

// SeatState is the outward view of one seat. HoleCards is only populated
// for the viewer's own seat, or for contenders once the hand has ended.
type SeatState struct {
	Name       string      `json:"name"`
	Position   int         `json:"position"`
	Chips      int         `json:"chips"`
	StreetBet  int         `json:"currentStreetBet"`
	Folded     bool        `json:"folded"`
	AllIn      bool        `json:"isAllIn"`
	SittingOut bool        `json:"isSittingOut"`
	HoleCards  []deck.Card `json:"holeCards,omitempty"`
	IsYou      bool        `json:"isYou,omitempty"`
}

// State is a per-viewer snapshot of a room.
type State struct {
	Code            string              `json:"roomId"`
	Stage           game.Stage          `json:"stage"`
	Pot             int                 `json:"pot"`
	CurrentBet      int                 `json:"currentBet"`
	SmallBlind      int                 `json:"smallBlind"`
	BigBlind        int                 `json:"bigBlind"`
	Community       []deck.Card         `json:"communityCards"`
	Seats           []SeatState         `json:"seats"`
	CurrentPosition int                 `json:"currentPosition"`
	DealerPosition  int                 `json:"dealerPosition"`
	Winner          *game.WinnerInfo    `json:"winner,omitempty"`
	History         []game.HistoryEntry `json:"history,omitempty"`
}

// Summary is the lightweight listing for room discovery.
type Summary struct {
	Code       string     `json:"roomId"`
	Players    int        `json:"players"`
	MaxPlayers int        `json:"maxPlayers"`
	Stage      game.Stage `json:"stage"`
	SmallBlind int        `json:"smallBlind"`
	BigBlind   int        `json:"bigBlind"`
}

// snapshotLocked builds the viewer's state. Callers hold r.mu.
func (r *Room) snapshotLocked(viewerID string) State {
	g := r.game
	ended := g.Stage == game.Showdown || g.Stage == game.Ended

	state := State{
		Code:            r.Code,
		Stage:           g.Stage,
		Pot:             g.Pot,
		CurrentBet:      g.CurrentBet,
		SmallBlind:      g.SmallBlind,
		BigBlind:        g.BigBlind,
		Community:       append([]deck.Card(nil), g.Community...),
		CurrentPosition: -1,
		DealerPosition:  g.DealerPosition(),
		Winner:          g.Winner,
		History:         append([]game.HistoryEntry(nil), g.History...),
	}
	if g.Current >= 0 && g.Current < len(g.Seats) {
		state.CurrentPosition = g.Seats[g.Current].Position
	}

	state.Seats = make([]SeatState, len(g.Seats))
	for i, s := range g.Seats {
		ss := SeatState{
			Name:       s.Name,
			Position:   s.Position,
			Chips:      s.Chips,
			StreetBet:  s.StreetBet,
			Folded:     s.Folded,
			AllIn:      s.AllIn,
			SittingOut: s.SittingOut,
			IsYou:      s.ID == viewerID,
		}
		// Hole cards stay private until the hand is over, and folded
		// seats never show
		if s.ID == viewerID || (ended && !s.Folded) {
			ss.HoleCards = append([]deck.Card(nil), s.HoleCards...)
		}
		state.Seats[i] = ss
	}
	return state
}

func (r *Room) summaryLocked() Summary {
	g := r.game
	return Summary{
		Code:       r.Code,
		Players:    len(g.Seats),
		MaxPlayers: g.MaxPlayers,
		Stage:      g.Stage,
		SmallBlind: g.SmallBlind,
		BigBlind:   g.BigBlind,
	}
}

// Snapshot returns the room state as seen by viewerID.
func (r *Room) Snapshot(viewerID string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked(viewerID)
}
