package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
)

const sessionColumns = `token, player_id, agent_id, operator_id, game_code, currency, mode,
	balance, balance_stale, status, created_at, updated_at`

func scanSession(row *sql.Row) (*GameSession, error) {
	var gs GameSession
	err := row.Scan(&gs.Token, &gs.PlayerID, &gs.AgentID, &gs.OperatorID, &gs.GameCode,
		&gs.Currency, &gs.Mode, &gs.Balance, &gs.BalanceStale, &gs.Status,
		&gs.CreatedAt, &gs.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &gs, nil
}

func (s *Store) InsertSession(ctx context.Context, gs *GameSession) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO game_sessions (token, player_id, agent_id, operator_id, game_code, currency, mode, balance, status)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		gs.Token, gs.PlayerID, gs.AgentID, gs.OperatorID, gs.GameCode, gs.Currency, gs.Mode, gs.Balance, gs.Status)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *Store) GetSession(ctx context.Context, token string) (*GameSession, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM game_sessions WHERE token = $1`, token)
	return scanSession(row)
}

func (s *Store) TouchSession(ctx context.Context, token string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE game_sessions SET updated_at = now() WHERE token = $1`, token)
	return err
}

func (s *Store) UpdateSessionBalance(ctx context.Context, token string, balance decimal.Decimal, stale bool) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE game_sessions SET balance = $1, balance_stale = $2, updated_at = now() WHERE token = $3`,
		balance, stale, token)
	return err
}

func (s *Store) SetSessionStatus(ctx context.Context, token string, status SessionStatus) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE game_sessions SET status = $1, updated_at = now() WHERE token = $2`, status, token)
	return err
}
