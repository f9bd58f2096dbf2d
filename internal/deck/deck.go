package deck

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
)

// ErrInsufficientCards is returned when a deal asks for more cards than remain.
// Hitting it mid-hand means the draw sequence is wrong, so callers treat it as
// a fatal diagnostic rather than a user error.
var ErrInsufficientCards = errors.New("insufficient cards in deck")

// Deck is an ordered sequence of the 52 distinct cards, owned by one game
// during a hand. It shrinks as cards are dealt and is never reshuffled
// mid-hand.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// New creates a full 52-card deck shuffled with the provided RNG using
// Fisher-Yates, so each of the 52! permutations is equally likely.
func New(rng *rand.Rand) *Deck {
	d := &Deck{
		cards: make([]Card, 0, 52),
		rng:   rng,
	}
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(rank, suit))
		}
	}
	d.shuffle()
	return d
}

func (d *Deck) shuffle() {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Deal removes and returns n cards from the dealing end of the deck.
func (d *Deck) Deal(n int) ([]Card, error) {
	if n < 0 {
		return nil, fmt.Errorf("deal %d: %w", n, ErrInsufficientCards)
	}
	if n > len(d.cards) {
		return nil, fmt.Errorf("deal %d with %d remaining: %w", n, len(d.cards), ErrInsufficientCards)
	}

	cards := make([]Card, n)
	copy(cards, d.cards[:n])
	d.cards = d.cards[n:]
	return cards, nil
}

// DealOne removes and returns the next card from the deck.
func (d *Deck) DealOne() (Card, error) {
	cards, err := d.Deal(1)
	if err != nil {
		return Card{}, err
	}
	return cards[0], nil
}

// Remaining returns the number of cards left in the deck.
func (d *Deck) Remaining() int {
	return len(d.cards)
}
