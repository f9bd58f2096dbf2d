package game

import "fmt"

// Stage is the hand's position in the round state machine:
// waiting → preflop → flop → turn → river → showdown → ended.
type Stage int

const (
	Waiting Stage = iota
	Preflop
	Flop
	Turn
	River
	Showdown
	Ended
)

var stageNames = [...]string{"waiting", "preflop", "flop", "turn", "river", "showdown", "ended"}

func (s Stage) String() string {
	if s < Waiting || s > Ended {
		return "unknown"
	}
	return stageNames[s]
}

// InHand reports whether a hand is being played (cards are out).
func (s Stage) InHand() bool {
	return s >= Preflop && s <= Showdown
}

// Betting reports whether the stage accepts player actions.
func (s Stage) Betting() bool {
	return s >= Preflop && s <= River
}

// MarshalJSON encodes the stage as its name
func (s Stage) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON decodes a stage from its name
func (s *Stage) UnmarshalJSON(data []byte) error {
	for i, name := range stageNames {
		if string(data) == `"`+name+`"` {
			*s = Stage(i)
			return nil
		}
	}
	return fmt.Errorf("unknown stage %s", data)
}
