package game

import "errors"

// Validation errors: reported to the caller, no state mutated.
var (
	ErrNotEnoughPlayers = errors.New("not enough players to start")
	ErrHandInProgress   = errors.New("hand already in progress")
	ErrNoHandInProgress = errors.New("no hand in progress")
	ErrNotYourTurn      = errors.New("not your turn to act")
	ErrSeatNotFound     = errors.New("player not seated at this table")
	ErrAlreadySeated    = errors.New("already seated at this table")
	ErrTableFull        = errors.New("table is full")
	ErrRoomInactive     = errors.New("room is no longer active")
	ErrCannotAct        = errors.New("seat cannot act")

	// ErrIllegalBet wraps the specific reason a bet was rejected.
	ErrIllegalBet = errors.New("illegal bet")
)

// ErrChipConservation indicates chips were created or destroyed by an
// action. This is an engine bug, not a user error: the game refuses to
// continue rather than settle a corrupted ledger.
var ErrChipConservation = errors.New("chip conservation violated")
