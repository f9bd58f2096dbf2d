package game

import "github.com/akrabse/Joker-Poker/internal/deck"

// Seat is one position at the table. Chips is table-local currency,
// disjoint from the player's off-table bankroll until an explicit buy-in
// or cash-out moves chips between the two.
type Seat struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Position   int         `json:"position"`
	Chips      int         `json:"chips"`
	HoleCards  []deck.Card `json:"holeCards,omitempty"`
	StreetBet  int         `json:"streetBet"`
	HandBet    int         `json:"-"`
	Folded     bool        `json:"folded"`
	AllIn      bool        `json:"allIn"`
	SittingOut bool        `json:"sittingOut"`
}

// Eligible reports whether the seat can be dealt into the next hand.
func (s *Seat) Eligible() bool {
	return !s.SittingOut && s.Chips > 0
}

// CanAct reports whether the seat may act on the current street.
func (s *Seat) CanAct() bool {
	return !s.Folded && !s.SittingOut && !s.AllIn
}
