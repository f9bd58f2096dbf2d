package game

import "fmt"

// actingSeat validates that the identity holds the seat whose turn it is.
func (g *Game) actingSeat(id string) (*Seat, error) {
	if !g.Stage.Betting() {
		return nil, ErrNoHandInProgress
	}
	idx, ok := g.seatIdx[id]
	if !ok {
		return nil, ErrSeatNotFound
	}
	if idx != g.Current {
		return nil, ErrNotYourTurn
	}
	seat := g.Seats[idx]
	if !seat.CanAct() {
		return nil, ErrCannotAct
	}
	return seat, nil
}

// Fold marks the seat folded and advances the turn. If only one contender
// remains the hand ends immediately with the pot awarded by fold.
func (g *Game) Fold(id string) error {
	seat, err := g.actingSeat(id)
	if err != nil {
		return err
	}
	return g.foldSeat(seat)
}

// ForceFold folds a seat regardless of turn order. It behaves identically
// to a voluntary fold; the transport layer uses it for stalled or
// disconnected players.
func (g *Game) ForceFold(id string) error {
	if !g.Stage.Betting() {
		return ErrNoHandInProgress
	}
	idx, ok := g.seatIdx[id]
	if !ok {
		return ErrSeatNotFound
	}
	seat := g.Seats[idx]
	if seat.Folded || seat.SittingOut {
		return ErrCannotAct
	}
	return g.foldSeat(seat)
}

func (g *Game) foldSeat(seat *Seat) error {
	wasCurrent := g.seatIdx[seat.ID] == g.Current
	seat.Folded = true
	g.addHistory("fold", seat.Name, 0)

	if len(g.contenders()) == 1 {
		return g.endHand()
	}

	if wasCurrent {
		g.Current = g.nextActor(g.Current + 1)
	}
	if g.Current == -1 || g.roundComplete() {
		return g.advanceStage()
	}
	return g.checkConservation()
}

// Call matches the outstanding bet, or checks when there is nothing to
// call. A short stack calls for less and goes all-in.
func (g *Game) Call(id string) error {
	seat, err := g.actingSeat(id)
	if err != nil {
		return err
	}

	callAmount := g.CurrentBet - seat.StreetBet
	actual := min(callAmount, seat.Chips)
	g.commit(seat, actual)

	action := "call"
	if callAmount == 0 {
		action = "check"
	}
	g.addHistory(action, seat.Name, actual)

	return g.afterAction()
}

// Raise commits amount additional chips after validation. The table bet
// rises to the seat's new street total when it exceeds the old bet.
func (g *Game) Raise(id string, amount int) error {
	seat, err := g.actingSeat(id)
	if err != nil {
		return err
	}

	if err := g.ValidateBet(seat, amount); err != nil {
		return err
	}

	actual := min(amount, seat.Chips)
	g.commit(seat, actual)
	if seat.StreetBet > g.CurrentBet {
		g.CurrentBet = seat.StreetBet
	}
	g.addHistory("raise", seat.Name, actual)

	return g.afterAction()
}

// ValidateBet applies the legality envelope for a raise without mutating
// any state. amount is the additional chips the seat wants to commit.
func (g *Game) ValidateBet(seat *Seat, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrIllegalBet)
	}
	if amount > seat.Chips {
		return fmt.Errorf("%w: not enough chips", ErrIllegalBet)
	}

	allIn := amount == seat.Chips
	callAmount := g.CurrentBet - seat.StreetBet

	// Must at least match the table bet, unless all-in for less
	if amount < callAmount && !allIn {
		return fmt.Errorf("%w: must at least match the current bet", ErrIllegalBet)
	}

	// The raise portion must be at least the size of the current bet,
	// unless all-in for less
	if amount > callAmount {
		if raise := amount - callAmount; raise < g.CurrentBet && !allIn {
			return fmt.Errorf("%w: raise must be at least the current bet amount", ErrIllegalBet)
		}
	}

	return nil
}

// commit moves chips from a seat's stack into the pot.
func (g *Game) commit(seat *Seat, amount int) {
	seat.Chips -= amount
	seat.StreetBet += amount
	seat.HandBet += amount
	g.Pot += amount
	if seat.Chips == 0 {
		seat.AllIn = true
	}
}

// afterAction advances the turn, closes the street when everyone has
// matched the bet, and verifies the chip ledger.
func (g *Game) afterAction() error {
	g.Current = g.nextActor(g.Current + 1)
	if g.Current == -1 || g.roundComplete() {
		return g.advanceStage()
	}
	return g.checkConservation()
}
