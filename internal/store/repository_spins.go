package store

import (
	"context"
	"database/sql"
	"errors"
)

const spinColumns = `id, session_token, agent_id, player_id, game_code, round_id,
	idempotency_key, bet, win, balance_before, balance_after, credit_state, created_at`

func scanSpin(row *sql.Row) (*SpinTransaction, error) {
	var t SpinTransaction
	err := row.Scan(&t.ID, &t.SessionToken, &t.AgentID, &t.PlayerID, &t.GameCode, &t.RoundID,
		&t.IdempotencyKey, &t.Bet, &t.Win, &t.BalanceBefore, &t.BalanceAfter, &t.CreditState, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// InsertSpinTransaction writes the per-round settlement record. A
// replayed idempotency key returns ErrDuplicate and writes nothing.
func (s *Store) InsertSpinTransaction(ctx context.Context, t *SpinTransaction) error {
	if t.ID == "" {
		t.ID = NewID()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO spin_transactions (id, session_token, agent_id, player_id, game_code, round_id,
			idempotency_key, bet, win, balance_before, balance_after, credit_state)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		t.ID, t.SessionToken, t.AgentID, t.PlayerID, t.GameCode, t.RoundID,
		t.IdempotencyKey, t.Bet, t.Win, t.BalanceBefore, t.BalanceAfter, t.CreditState)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *Store) GetSpinByIdempotencyKey(ctx context.Context, key string) (*SpinTransaction, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+spinColumns+` FROM spin_transactions WHERE idempotency_key = $1`, key)
	return scanSpin(row)
}

func (s *Store) UpdateSpinCreditState(ctx context.Context, id string, state CreditState) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE spin_transactions SET credit_state = $1 WHERE id = $2`, state, id)
	return err
}

// ListPendingCredits returns spins whose remote credit has not landed
// yet, oldest first, for the reconciler.
func (s *Store) ListPendingCredits(ctx context.Context, limit int) ([]SpinTransaction, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+spinColumns+` FROM spin_transactions WHERE credit_state = 'pending'
		 ORDER BY created_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SpinTransaction
	for rows.Next() {
		var t SpinTransaction
		if err := rows.Scan(&t.ID, &t.SessionToken, &t.AgentID, &t.PlayerID, &t.GameCode, &t.RoundID,
			&t.IdempotencyKey, &t.Bet, &t.Win, &t.BalanceBefore, &t.BalanceAfter, &t.CreditState, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// HasPendingCredit reports whether any spin on the session is still
// waiting for its remote credit. Settlement refuses new spins while
// one exists.
func (s *Store) HasPendingCredit(ctx context.Context, sessionToken string) (bool, error) {
	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM spin_transactions WHERE session_token = $1 AND credit_state = 'pending')`,
		sessionToken).Scan(&exists)
	return exists, err
}
