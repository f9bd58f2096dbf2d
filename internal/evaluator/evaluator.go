package evaluator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/akrabse/Joker-Poker/internal/deck"
)

// ErrHandEvaluation is returned for malformed card sets (wrong count,
// invalid or duplicate cards). Settlement paths must surface it, never
// swallow it.
var ErrHandEvaluation = errors.New("hand evaluation failed")

// Category is the hand class, ordered weakest to strongest.
type Category int

const (
	HighCard Category = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

// String returns the display name of a category
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	default:
		return "Unknown"
	}
}

// Score is a totally-ordered hand strength: the category in the high bits
// and up to five 4-bit tiebreak ranks below it, most significant first.
// Two hands compare exactly as poker hands do; equal scores are exact ties.
type Score uint32

const (
	categoryShift = 20
	tiebreakBits  = 4
)

func makeScore(cat Category, tiebreaks ...int) Score {
	s := Score(cat) << categoryShift
	shift := categoryShift - tiebreakBits
	for _, tb := range tiebreaks {
		s |= Score(tb) << shift
		shift -= tiebreakBits
	}
	return s
}

// Category extracts the hand class from a score
func (s Score) Category() Category {
	return Category(s >> categoryShift)
}

// Result is the evaluation of one hand: its comparable score and a
// human-readable description for history entries and broadcasts.
type Result struct {
	Score Score  `json:"score"`
	Descr string `json:"descr"`
}

// Evaluate scores the best 5-card hand out of 5 to 7 cards.
func Evaluate(cards []deck.Card) (Result, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return Result{}, fmt.Errorf("%w: need 5-7 cards, got %d", ErrHandEvaluation, len(cards))
	}

	seen := make(map[deck.Card]bool, len(cards))
	for _, c := range cards {
		if !c.Valid() {
			return Result{}, fmt.Errorf("%w: invalid card %v", ErrHandEvaluation, c)
		}
		if seen[c] {
			return Result{}, fmt.Errorf("%w: duplicate card %s", ErrHandEvaluation, c)
		}
		seen[c] = true
	}

	best := Result{}
	var hand [5]deck.Card
	forEachFive(cards, &hand, func() {
		r := score5(hand)
		if r.Score > best.Score || best.Descr == "" {
			best = r
		}
	})
	return best, nil
}

// forEachFive visits every 5-card subset of cards, writing each into hand.
func forEachFive(cards []deck.Card, hand *[5]deck.Card, visit func()) {
	n := len(cards)
	for a := 0; a < n-4; a++ {
		hand[0] = cards[a]
		for b := a + 1; b < n-3; b++ {
			hand[1] = cards[b]
			for c := b + 1; c < n-2; c++ {
				hand[2] = cards[c]
				for d := c + 1; d < n-1; d++ {
					hand[3] = cards[d]
					for e := d + 1; e < n; e++ {
						hand[4] = cards[e]
						visit()
					}
				}
			}
		}
	}
}

// score5 ranks exactly five cards.
func score5(hand [5]deck.Card) Result {
	ranks := make([]int, 5)
	flush := true
	for i, c := range hand {
		ranks[i] = int(c.Rank)
		if c.Suit != hand[0].Suit {
			flush = false
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))

	straightHigh := straightHighCard(ranks)

	if flush && straightHigh > 0 {
		return Result{
			Score: makeScore(StraightFlush, straightHigh),
			Descr: fmt.Sprintf("Straight Flush, %s high", rankName(straightHigh)),
		}
	}

	// Group ranks by multiplicity, then by rank, both descending. The
	// grouped order is exactly the tiebreak order for every paired category.
	counts := map[int]int{}
	for _, r := range ranks {
		counts[r]++
	}
	distinct := make([]int, 0, len(counts))
	for r := range counts {
		distinct = append(distinct, r)
	}
	sort.Slice(distinct, func(i, j int) bool {
		if counts[distinct[i]] != counts[distinct[j]] {
			return counts[distinct[i]] > counts[distinct[j]]
		}
		return distinct[i] > distinct[j]
	})

	switch {
	case counts[distinct[0]] == 4:
		quad, kicker := distinct[0], distinct[1]
		return Result{
			Score: makeScore(FourOfAKind, quad, kicker),
			Descr: fmt.Sprintf("Four of a Kind, %ss", rankName(quad)),
		}

	case counts[distinct[0]] == 3 && counts[distinct[1]] >= 2:
		trip, pair := distinct[0], distinct[1]
		return Result{
			Score: makeScore(FullHouse, trip, pair),
			Descr: fmt.Sprintf("Full House, %ss full of %ss", rankName(trip), rankName(pair)),
		}

	case flush:
		return Result{
			Score: makeScore(Flush, ranks...),
			Descr: fmt.Sprintf("Flush, %s high", rankName(ranks[0])),
		}

	case straightHigh > 0:
		return Result{
			Score: makeScore(Straight, straightHigh),
			Descr: fmt.Sprintf("Straight, %s high", rankName(straightHigh)),
		}

	case counts[distinct[0]] == 3:
		return Result{
			Score: makeScore(ThreeOfAKind, distinct...),
			Descr: fmt.Sprintf("Three of a Kind, %ss", rankName(distinct[0])),
		}

	case counts[distinct[0]] == 2 && counts[distinct[1]] == 2:
		return Result{
			Score: makeScore(TwoPair, distinct...),
			Descr: fmt.Sprintf("Two Pair, %ss and %ss", rankName(distinct[0]), rankName(distinct[1])),
		}

	case counts[distinct[0]] == 2:
		return Result{
			Score: makeScore(Pair, distinct...),
			Descr: fmt.Sprintf("Pair of %ss", rankName(distinct[0])),
		}

	default:
		return Result{
			Score: makeScore(HighCard, ranks...),
			Descr: fmt.Sprintf("High Card, %s", rankName(ranks[0])),
		}
	}
}

// straightHighCard returns the high card of a straight formed by five
// distinct descending ranks, 0 if none. The wheel (A-2-3-4-5) scores as a
// 5-high straight.
func straightHighCard(desc []int) int {
	for i := 1; i < 5; i++ {
		if desc[i] != desc[i-1]-1 {
			// Wheel: A,5,4,3,2 sorted descending
			if desc[0] == int(deck.Ace) && desc[1] == 5 && desc[2] == 4 && desc[3] == 3 && desc[4] == 2 {
				return 5
			}
			return 0
		}
	}
	return desc[0]
}

func rankName(r int) string {
	switch deck.Rank(r) {
	case deck.Ace:
		return "Ace"
	case deck.King:
		return "King"
	case deck.Queen:
		return "Queen"
	case deck.Jack:
		return "Jack"
	case deck.Ten:
		return "Ten"
	case deck.Nine:
		return "Nine"
	case deck.Eight:
		return "Eight"
	case deck.Seven:
		return "Seven"
	case deck.Six:
		return "Six"
	case deck.Five:
		return "Five"
	case deck.Four:
		return "Four"
	case deck.Three:
		return "Three"
	case deck.Two:
		return "Two"
	default:
		return "?"
	}
}
