package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInsufficientBalance is returned by DebitPlayer when the ledger
// balance cannot cover the amount. Nothing is written in that case.
var ErrInsufficientBalance = errors.New("insufficient balance")

func (s *Store) EnsurePlayer(ctx context.Context, agentID, playerID string, initial decimal.Decimal) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO player_balances (agent_id, player_id, balance) VALUES ($1,$2,$3)
		 ON CONFLICT (agent_id, player_id) DO NOTHING`,
		agentID, playerID, initial)
	return err
}

func (s *Store) GetPlayerBalance(ctx context.Context, agentID, playerID string) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := s.DB.QueryRowContext(ctx,
		`SELECT balance FROM player_balances WHERE agent_id = $1 AND player_id = $2`,
		agentID, playerID).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrNotFound
	}
	return bal, err
}

// DebitPlayer subtracts amount under a row lock and rejects overdraws
// whole. Returns the new balance.
func (s *Store) DebitPlayer(ctx context.Context, agentID, playerID string, amount decimal.Decimal) (decimal.Decimal, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback()

	var bal decimal.Decimal
	err = tx.QueryRowContext(ctx,
		`SELECT balance FROM player_balances WHERE agent_id = $1 AND player_id = $2 FOR UPDATE`,
		agentID, playerID).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrNotFound
	}
	if err != nil {
		return decimal.Zero, err
	}
	if bal.LessThan(amount) {
		return decimal.Zero, ErrInsufficientBalance
	}
	newBal := bal.Sub(amount)
	if _, err := tx.ExecContext(ctx,
		`UPDATE player_balances SET balance = $1, updated_at = now() WHERE agent_id = $2 AND player_id = $3`,
		newBal, agentID, playerID); err != nil {
		return decimal.Zero, err
	}
	return newBal, tx.Commit()
}

func (s *Store) CreditPlayer(ctx context.Context, agentID, playerID string, amount decimal.Decimal) (decimal.Decimal, error) {
	var newBal decimal.Decimal
	err := s.DB.QueryRowContext(ctx,
		`UPDATE player_balances SET balance = balance + $1, updated_at = now()
		 WHERE agent_id = $2 AND player_id = $3 RETURNING balance`,
		amount, agentID, playerID).Scan(&newBal)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrNotFound
	}
	return newBal, err
}
