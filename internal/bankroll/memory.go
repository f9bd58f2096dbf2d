package bankroll

import (
	"context"
	"fmt"
	"sync"

	"github.com/coder/quartz"
)

// Memory is the in-process Service used when no database is configured.
type Memory struct {
	mu       sync.Mutex
	accounts map[string]*Account
	clock    quartz.Clock
}

var _ Service = (*Memory)(nil)

func NewMemory(clock quartz.Clock) *Memory {
	return &Memory{
		accounts: make(map[string]*Account),
		clock:    clock,
	}
}

func (m *Memory) Ensure(_ context.Context, username string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[username]
	if !ok {
		acct = &Account{Username: username, Chips: StartingChips}
		m.accounts[username] = acct
	}
	return snapshot(acct), nil
}

func (m *Memory) Account(_ context.Context, username string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[username]
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrUnknownUser, username)
	}
	return snapshot(acct), nil
}

func (m *Memory) Debit(_ context.Context, username string, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[username]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUser, username)
	}
	if acct.Chips < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, acct.Chips, amount)
	}
	acct.Chips -= amount
	return nil
}

func (m *Memory) Credit(_ context.Context, username string, amount int) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[username]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUser, username)
	}
	acct.Chips += amount
	return nil
}

func (m *Memory) RecordHandResult(_ context.Context, username string, rec GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[username]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUser, username)
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = m.clock.Now()
	}
	acct.apply(rec)
	return nil
}

func (m *Memory) Close() {}

// snapshot copies the account so callers cannot alias store internals.
func snapshot(acct *Account) Account {
	out := *acct
	out.History = append([]GameRecord(nil), acct.History...)
	return out
}
