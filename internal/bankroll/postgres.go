package bankroll

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema embed.FS

// Postgres is the durable Service backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Service = (*Postgres)(nil)

// OpenPostgres connects, pings and migrates.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	p := &Postgres{pool: pool}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	ddl, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, string(ddl))
	return err
}

func (p *Postgres) Close() { p.pool.Close() }

func (p *Postgres) Ensure(ctx context.Context, username string) (Account, error) {
	if _, err := p.pool.Exec(ctx, `
		INSERT INTO accounts(username, chips)
		VALUES ($1, $2)
		ON CONFLICT (username) DO NOTHING
	`, username, StartingChips); err != nil {
		return Account{}, err
	}
	return p.Account(ctx, username)
}

func (p *Postgres) Account(ctx context.Context, username string) (Account, error) {
	var acct Account
	err := p.pool.QueryRow(ctx, `
		SELECT username, chips, hands_played, hands_won,
		       total_winnings, total_losses, biggest_win, biggest_loss
		  FROM accounts WHERE username = $1
	`, username).Scan(
		&acct.Username, &acct.Chips, &acct.HandsPlayed, &acct.HandsWon,
		&acct.TotalWinnings, &acct.TotalLosses, &acct.BiggestWin, &acct.BiggestLoss,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, fmt.Errorf("%w: %s", ErrUnknownUser, username)
		}
		return Account{}, err
	}

	rows, err := p.pool.Query(ctx, `
		SELECT room_id, won, amount, COALESCE(hand, ''), played_at
		  FROM account_history
		 WHERE username = $1
		 ORDER BY played_at DESC, id DESC
		 LIMIT $2
	`, username, maxHistory)
	if err != nil {
		return Account{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var rec GameRecord
		if err := rows.Scan(&rec.RoomID, &rec.Won, &rec.Amount, &rec.Hand, &rec.Timestamp); err != nil {
			return Account{}, err
		}
		acct.History = append(acct.History, rec)
	}
	if err := rows.Err(); err != nil {
		return Account{}, err
	}
	return acct, nil
}

// Debit is a single conditional update so concurrent buy-ins cannot drive
// the balance negative.
func (p *Postgres) Debit(ctx context.Context, username string, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	tag, err := p.pool.Exec(ctx, `
		UPDATE accounts
		   SET chips = chips - $2, updated_at = now()
		 WHERE username = $1 AND chips >= $2
	`, username, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := p.Account(ctx, username); err != nil {
			return err
		}
		return fmt.Errorf("%w: need %d", ErrInsufficientFunds, amount)
	}
	return nil
}

func (p *Postgres) Credit(ctx context.Context, username string, amount int) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	tag, err := p.pool.Exec(ctx, `
		UPDATE accounts
		   SET chips = chips + $2, updated_at = now()
		 WHERE username = $1
	`, username, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownUser, username)
	}
	return nil
}

func (p *Postgres) RecordHandResult(ctx context.Context, username string, rec GameRecord) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // safe if already committed

	tag, err := tx.Exec(ctx, `
		UPDATE accounts
		   SET hands_played = hands_played + 1,
		       hands_won = hands_won + CASE WHEN $2 THEN 1 ELSE 0 END,
		       total_winnings = total_winnings + CASE WHEN $2 THEN $3 ELSE 0 END,
		       total_losses = total_losses + CASE WHEN $2 THEN 0 ELSE $3 END,
		       biggest_win = GREATEST(biggest_win, CASE WHEN $2 THEN $3 ELSE 0 END),
		       biggest_loss = GREATEST(biggest_loss, CASE WHEN $2 THEN 0 ELSE $3 END),
		       updated_at = now()
		 WHERE username = $1
	`, username, rec.Won, rec.Amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownUser, username)
	}

	var hand any
	if rec.Hand != "" {
		hand = rec.Hand
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO account_history(username, room_id, won, amount, hand)
		VALUES ($1,$2,$3,$4,$5)
	`, username, rec.RoomID, rec.Won, rec.Amount, hand); err != nil {
		return err
	}

	// Trim rows beyond the history cap
	if _, err := tx.Exec(ctx, `
		DELETE FROM account_history
		 WHERE id IN (
			SELECT id FROM account_history
			 WHERE username = $1
			 ORDER BY played_at DESC, id DESC
			OFFSET $2
		 )
	`, username, maxHistory); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
