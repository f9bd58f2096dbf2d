package game

import (
	"fmt"
	rand "math/rand/v2"

	"github.com/coder/quartz"

	"github.com/akrabse/Joker-Poker/internal/deck"
	"github.com/akrabse/Joker-Poker/internal/evaluator"
)

// Config holds the table parameters for a game.
type Config struct {
	RoomID     string
	SmallBlind int
	BigBlind   int
	MinPlayers int
	MaxPlayers int
}

// WinnerInfo summarises the last settled hand for display.
type WinnerInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Hand   string `json:"hand"`
	Amount int    `json:"amount"`
}

// HandResult is one seat's settled outcome, handed to the bankroll
// collaborator by the session layer after the hand ends.
type HandResult struct {
	ID     string
	Name   string
	Won    bool
	Amount int
	Hand   string
}

// Game owns the full state of one poker room: seats, deck, board, pot and
// the betting state machine. It is not safe for concurrent use; the room
// session manager serialises all access behind a per-room lock.
type Game struct {
	RoomID     string
	Seats      []*Seat
	Community  []deck.Card
	Pot        int
	CurrentBet int
	Current    int // index into Seats of the seat to act; -1 if nobody can
	SmallBlind int
	BigBlind   int
	Stage      Stage
	MinPlayers int
	MaxPlayers int
	History    []HistoryEntry
	Active     bool
	Winner     *WinnerInfo

	// Results of the last completed hand, consumed by the session layer.
	Results []HandResult

	deck      *deck.Deck
	dealerIdx int // index into Seats of the button; -1 before the first hand
	rng       *rand.Rand
	clock     quartz.Clock
	seatIdx   map[string]int // identity -> index into Seats
	handChips int            // conservation baseline for the current hand
	nextPos   int            // next seat position to assign
}

// New creates a game in the waiting stage with no seats.
func New(cfg Config, rng *rand.Rand, clock quartz.Clock) *Game {
	return &Game{
		RoomID:     cfg.RoomID,
		SmallBlind: cfg.SmallBlind,
		BigBlind:   cfg.BigBlind,
		MinPlayers: cfg.MinPlayers,
		MaxPlayers: cfg.MaxPlayers,
		Stage:      Waiting,
		Active:     true,
		Current:    -1,
		dealerIdx:  -1,
		rng:        rng,
		clock:      clock,
		seatIdx:    make(map[string]int),
	}
}

// AddSeat seats a new player at the next stable position with zero table
// chips; they must buy in before playing.
func (g *Game) AddSeat(id, name string) (*Seat, error) {
	if !g.Active {
		return nil, ErrRoomInactive
	}
	if len(g.Seats) >= g.MaxPlayers {
		return nil, ErrTableFull
	}
	if _, ok := g.seatIdx[id]; ok {
		return nil, ErrAlreadySeated
	}

	seat := &Seat{
		ID:       id,
		Name:     name,
		Position: g.nextPos,
		// A seat joining mid-hand is not dealt in
		Folded: g.Stage.InHand(),
	}
	g.nextPos++
	g.seatIdx[id] = len(g.Seats)
	g.Seats = append(g.Seats, seat)
	return seat, nil
}

// RemoveSeat removes a player and returns their remaining table chips. If
// a hand is in progress the seat is folded out of it first.
func (g *Game) RemoveSeat(id string) (int, error) {
	idx, ok := g.seatIdx[id]
	if !ok {
		return 0, ErrSeatNotFound
	}
	seat := g.Seats[idx]

	if g.Stage.Betting() && !seat.Folded {
		if err := g.ForceFold(id); err != nil && g.Stage.Betting() {
			return 0, err
		}
	}

	chips := seat.Chips
	// The seat's street bets already sit in the pot; only the stack leaves
	// the table. Removing mid-hand forfeits nothing beyond the fold above.
	g.handChips -= chips
	seat.Chips = 0

	g.Seats = append(g.Seats[:idx], g.Seats[idx+1:]...)
	delete(g.seatIdx, id)
	for i, s := range g.Seats {
		g.seatIdx[s.ID] = i
	}
	if g.Current > idx {
		g.Current--
	} else if g.Current == idx {
		g.Current = g.nextActor(idx)
	}
	if g.dealerIdx >= idx && g.dealerIdx > -1 {
		g.dealerIdx--
	}

	if len(g.Seats) == 0 {
		g.Active = false
	}
	return chips, nil
}

// Seat returns the seat for an identity.
func (g *Game) Seat(id string) (*Seat, error) {
	idx, ok := g.seatIdx[id]
	if !ok {
		return nil, ErrSeatNotFound
	}
	return g.Seats[idx], nil
}

// AddChips credits a buy-in to a seat's table stack. The conservation
// baseline moves with it so mid-hand buy-ins stay accounted for.
func (g *Game) AddChips(id string, amount int) error {
	seat, err := g.Seat(id)
	if err != nil {
		return err
	}
	seat.Chips += amount
	g.handChips += amount
	g.addHistory("buy-in", seat.Name, amount)
	return nil
}

// DealerPosition returns the seat position holding the button, -1 before
// the first hand.
func (g *Game) DealerPosition() int {
	if g.dealerIdx < 0 || g.dealerIdx >= len(g.Seats) {
		return -1
	}
	return g.Seats[g.dealerIdx].Position
}

// eligibleSeats returns indices of seats that can be dealt the next hand.
func (g *Game) eligibleSeats() []int {
	elig := make([]int, 0, len(g.Seats))
	for i, s := range g.Seats {
		if s.Eligible() {
			elig = append(elig, i)
		}
	}
	return elig
}

// StartHand shuffles a fresh deck, deals hole cards, posts blinds and
// moves the game to preflop. Only legal between hands.
func (g *Game) StartHand() error {
	if g.Stage.InHand() {
		return ErrHandInProgress
	}

	elig := g.eligibleSeats()
	if len(elig) < g.MinPlayers {
		return fmt.Errorf("%w: have %d, need %d", ErrNotEnoughPlayers, len(elig), g.MinPlayers)
	}

	// Reset the round
	g.Community = nil
	g.Pot = 0
	g.CurrentBet = 0
	g.Winner = nil
	g.Results = nil
	for _, s := range g.Seats {
		s.HoleCards = nil
		s.StreetBet = 0
		s.HandBet = 0
		s.AllIn = false
		// Seats not dealt in are out of the hand from the start
		s.Folded = !s.Eligible()
	}

	// Advance the button to the next eligible seat in seat order.
	dealerOrd := 0
	for ord, idx := range elig {
		if idx > g.dealerIdx {
			dealerOrd = ord
			break
		}
	}
	g.dealerIdx = elig[dealerOrd]

	// Fresh shuffled deck; hole cards dealt round-robin, one card per seat
	// per pass, starting after the button.
	g.deck = deck.New(g.rng)
	n := len(elig)
	for pass := 0; pass < 2; pass++ {
		for off := 1; off <= n; off++ {
			seat := g.Seats[elig[(dealerOrd+off)%n]]
			card, err := g.deck.DealOne()
			if err != nil {
				return err
			}
			seat.HoleCards = append(seat.HoleCards, card)
		}
	}

	// Blinds, short stacks post what they can
	sb := g.Seats[elig[(dealerOrd+1)%n]]
	bb := g.Seats[elig[(dealerOrd+2)%n]]
	g.postBlind(sb, g.SmallBlind)
	g.postBlind(bb, g.BigBlind)
	g.CurrentBet = g.BigBlind

	g.Stage = Preflop
	g.Current = g.nextActor(elig[(dealerOrd+3)%n])
	g.handChips = g.tableChips()
	g.addHistory("blinds-posted", "System", g.SmallBlind+g.BigBlind)

	// Both blinds all-in already settles the streets
	if g.Current == -1 || g.roundComplete() {
		return g.advanceStage()
	}
	return nil
}

func (g *Game) postBlind(seat *Seat, blind int) {
	amount := min(blind, seat.Chips)
	seat.Chips -= amount
	seat.StreetBet = amount
	seat.HandBet += amount
	g.Pot += amount
	if seat.Chips == 0 {
		seat.AllIn = true
	}
}

// tableChips is the pot plus every stack: bets move into the pot the
// moment they are made, so this sum is the conserved quantity.
func (g *Game) tableChips() int {
	total := g.Pot
	for _, s := range g.Seats {
		total += s.Chips
	}
	return total
}

func (g *Game) checkConservation() error {
	if got := g.tableChips(); got != g.handChips {
		return fmt.Errorf("%w: table holds %d chips, expected %d", ErrChipConservation, got, g.handChips)
	}
	return nil
}

// nextActor returns the index of the first seat at or after from (wrapping
// in seat order) that can act, or -1 if none can.
func (g *Game) nextActor(from int) int {
	n := len(g.Seats)
	if n == 0 {
		return -1
	}
	for i := 0; i < n; i++ {
		idx := ((from + i) % n + n) % n
		if g.Seats[idx].CanAct() {
			return idx
		}
	}
	return -1
}

// contenders returns the seats still in the hand.
func (g *Game) contenders() []*Seat {
	live := make([]*Seat, 0, len(g.Seats))
	for _, s := range g.Seats {
		if !s.Folded {
			live = append(live, s)
		}
	}
	return live
}

// roundComplete reports whether every seat still able to act has matched
// the table bet.
func (g *Game) roundComplete() bool {
	for _, s := range g.Seats {
		if s.CanAct() && s.StreetBet != g.CurrentBet {
			return false
		}
	}
	return true
}

// advanceStage closes the street: bets reset, the next community cards are
// dealt and action restarts after the button. If nobody can act (everyone
// all-in), the remaining streets run out to showdown.
func (g *Game) advanceStage() error {
	for _, s := range g.Seats {
		s.StreetBet = 0
	}
	g.CurrentBet = 0

	var dealN int
	switch g.Stage {
	case Preflop:
		g.Stage, dealN = Flop, 3
	case Flop:
		g.Stage, dealN = Turn, 1
	case Turn:
		g.Stage, dealN = River, 1
	case River:
		return g.endHand()
	default:
		return fmt.Errorf("%w: cannot advance from %s", ErrNoHandInProgress, g.Stage)
	}

	cards, err := g.deck.Deal(dealN)
	if err != nil {
		// Deck exhaustion mid-hand is an engine bug; refuse to continue.
		return err
	}
	g.Community = append(g.Community, cards...)

	g.Current = g.nextActor(g.dealerIdx + 1)
	if g.Current == -1 || g.roundComplete() {
		return g.advanceStage()
	}
	return nil
}

// endHand runs the showdown (or fold-out), distributes the pot and moves
// the game to ended. The pot splits evenly between winners with floor
// division; an odd remainder is deliberately left undistributed.
func (g *Game) endHand() error {
	g.Stage = Showdown

	live := g.contenders()
	contenders := make([]evaluator.Contender, len(live))
	for i, s := range live {
		contenders[i] = evaluator.Contender{Seat: i, Hole: s.HoleCards}
	}

	winners, err := evaluator.FindWinners(contenders, g.Community)
	if err != nil {
		return err
	}

	share := g.Pot / len(winners)
	won := make(map[string]bool, len(winners))
	for _, w := range winners {
		seat := live[w.Seat]
		seat.Chips += share
		g.Pot -= share
		won[seat.ID] = true
		g.addHistory("win", seat.Name, share)
		g.Results = append(g.Results, HandResult{
			ID:     seat.ID,
			Name:   seat.Name,
			Won:    true,
			Amount: share,
			Hand:   w.Hand.Descr,
		})
	}
	// The undistributed remainder of an odd pot leaves the hand ledger, so
	// the baseline follows it.
	g.handChips -= g.Pot

	for _, s := range g.Seats {
		if !won[s.ID] && s.HandBet > 0 {
			g.Results = append(g.Results, HandResult{
				ID:     s.ID,
				Name:   s.Name,
				Amount: s.HandBet,
			})
		}
	}

	first := live[winners[0].Seat]
	g.Winner = &WinnerInfo{
		ID:     first.ID,
		Name:   first.Name,
		Hand:   winners[0].Hand.Descr,
		Amount: share,
	}

	g.Pot = 0
	g.Current = -1
	g.Stage = Ended
	return g.checkConservation()
}
