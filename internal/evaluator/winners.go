package evaluator

import (
	"fmt"

	"github.com/akrabse/Joker-Poker/internal/deck"
)

// WonByFold is the description used when a hand ends without a showdown.
const WonByFold = "won by fold"

// Contender is a non-folded seat entering the showdown.
type Contender struct {
	Seat int
	Hole []deck.Card
}

// Winner pairs a contending seat with its evaluated hand.
type Winner struct {
	Seat int
	Hand Result
}

// FindWinners evaluates every contender against the community cards and
// returns the subset with the maximal score; exact ties return multiple
// winners. A single contender wins outright without evaluation.
func FindWinners(contenders []Contender, community []deck.Card) ([]Winner, error) {
	if len(contenders) == 0 {
		return nil, fmt.Errorf("%w: no contenders", ErrHandEvaluation)
	}

	if len(contenders) == 1 {
		return []Winner{{
			Seat: contenders[0].Seat,
			Hand: Result{Descr: WonByFold},
		}}, nil
	}

	var winners []Winner
	var best Score
	for _, c := range contenders {
		cards := make([]deck.Card, 0, len(c.Hole)+len(community))
		cards = append(cards, c.Hole...)
		cards = append(cards, community...)

		result, err := Evaluate(cards)
		if err != nil {
			return nil, fmt.Errorf("seat %d: %w", c.Seat, err)
		}

		switch {
		case len(winners) == 0 || result.Score > best:
			best = result.Score
			winners = winners[:0]
			winners = append(winners, Winner{Seat: c.Seat, Hand: result})
		case result.Score == best:
			winners = append(winners, Winner{Seat: c.Seat, Hand: result})
		}
	}
	return winners, nil
}
