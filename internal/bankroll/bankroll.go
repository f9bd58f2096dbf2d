// Package bankroll tracks each user's off-table chips and lifetime results.
// Table stacks live in the game; chips only move between the two through a
// buy-in debit or a cash-out credit.
package bankroll

import (
	"context"
	"errors"
	"time"
)

// StartingChips is credited to every account on first sight.
const StartingChips = 500

// maxHistory bounds the per-account game history.
const maxHistory = 100

var (
	ErrUnknownUser       = errors.New("unknown user")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

// GameRecord is one finished hand from the account's point of view.
type GameRecord struct {
	RoomID    string    `json:"roomId"`
	Won       bool      `json:"won"`
	Amount    int       `json:"amount"`
	Hand      string    `json:"hand,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Account is a user's bankroll and lifetime statistics.
type Account struct {
	Username      string       `json:"username"`
	Chips         int          `json:"chips"`
	HandsPlayed   int          `json:"handsPlayed"`
	HandsWon      int          `json:"handsWon"`
	TotalWinnings int          `json:"totalWinnings"`
	TotalLosses   int          `json:"totalLosses"`
	BiggestWin    int          `json:"biggestWin"`
	BiggestLoss   int          `json:"biggestLoss"`
	History       []GameRecord `json:"history,omitempty"`
}

// Service stores bankrolls. Implementations are safe for concurrent use.
type Service interface {
	// Ensure creates the account with StartingChips if it does not exist
	// and returns it either way.
	Ensure(ctx context.Context, username string) (Account, error)

	// Account returns the account, ErrUnknownUser if absent.
	Account(ctx context.Context, username string) (Account, error)

	// Debit removes chips, failing with ErrInsufficientFunds rather than
	// going negative.
	Debit(ctx context.Context, username string, amount int) error

	// Credit adds chips.
	Credit(ctx context.Context, username string, amount int) error

	// RecordHandResult folds one hand outcome into the account's
	// aggregates and history.
	RecordHandResult(ctx context.Context, username string, rec GameRecord) error

	Close()
}

// apply folds a result into the aggregate counters.
func (a *Account) apply(rec GameRecord) {
	a.HandsPlayed++
	if rec.Won {
		a.HandsWon++
		a.TotalWinnings += rec.Amount
		if rec.Amount > a.BiggestWin {
			a.BiggestWin = rec.Amount
		}
	} else {
		a.TotalLosses += rec.Amount
		if rec.Amount > a.BiggestLoss {
			a.BiggestLoss = rec.Amount
		}
	}
	a.History = append(a.History, rec)
	if len(a.History) > maxHistory {
		a.History = a.History[len(a.History)-maxHistory:]
	}
}
