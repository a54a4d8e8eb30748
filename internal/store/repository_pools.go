package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const poolColumns = `id, agent_id, balance, current_phase, is_auto_phase,
	low_balance, critical_balance, release_balance, max_risk_percent,
	retention_win_chance, normal_win_chance, release_win_chance,
	retention_max_multiplier, normal_max_multiplier, release_max_multiplier,
	total_bets, total_payouts, total_spins, total_wins, biggest_win, biggest_loss,
	created_at, updated_at`

func scanPool(row *sql.Row) (*AgentPool, error) {
	var p AgentPool
	err := row.Scan(&p.ID, &p.AgentID, &p.Balance, &p.CurrentPhase, &p.IsAutoPhase,
		&p.LowBalance, &p.CriticalBalance, &p.ReleaseBalance, &p.MaxRiskPercent,
		&p.RetentionWinChance, &p.NormalWinChance, &p.ReleaseWinChance,
		&p.RetentionMaxMultiplier, &p.NormalMaxMultiplier, &p.ReleaseMaxMultiplier,
		&p.TotalBets, &p.TotalPayouts, &p.TotalSpins, &p.TotalWins, &p.BiggestWin, &p.BiggestLoss,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetPoolByAgent(ctx context.Context, agentID string) (*AgentPool, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+poolColumns+` FROM agent_pools WHERE agent_id = $1`, agentID)
	return scanPool(row)
}

// CreatePool inserts a pool with column defaults and returns it. Safe
// under concurrent first spins: the loser of the unique race reads the
// winner's row.
func (s *Store) CreatePool(ctx context.Context, agentID string) (*AgentPool, error) {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO agent_pools (id, agent_id) VALUES ($1,$2)`, NewID(), agentID)
	if err != nil && !isUniqueViolation(err) {
		return nil, err
	}
	return s.GetPoolByAgent(ctx, agentID)
}

// SavePool persists the pool's mutable state together with the ledger
// records describing the change, in one transaction. Callers hold the
// agent's resource lock, so the read-modify-write is race-free.
func (s *Store) SavePool(ctx context.Context, pool *AgentPool, records []PoolTransaction) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE agent_pools SET balance = $1, current_phase = $2, is_auto_phase = $3,
			low_balance = $4, critical_balance = $5, release_balance = $6, max_risk_percent = $7,
			total_bets = $8, total_payouts = $9, total_spins = $10, total_wins = $11,
			biggest_win = $12, biggest_loss = $13, updated_at = now()
		 WHERE id = $14`,
		pool.Balance, pool.CurrentPhase, pool.IsAutoPhase,
		pool.LowBalance, pool.CriticalBalance, pool.ReleaseBalance, pool.MaxRiskPercent,
		pool.TotalBets, pool.TotalPayouts, pool.TotalSpins, pool.TotalWins,
		pool.BiggestWin, pool.BiggestLoss, pool.ID)
	if err != nil {
		return err
	}
	for i := range records {
		r := &records[i]
		if r.ID == "" {
			r.ID = NewID()
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now().UTC()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO pool_transactions (id, pool_id, type, amount, balance_before, balance_after, note, game_code, player_id, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			r.ID, r.PoolID, r.Type, r.Amount, r.BalanceBefore, r.BalanceAfter, r.Note, r.GameCode, r.PlayerID, r.CreatedAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

type PoolTransactionFilter struct {
	Type      PoolTransactionType
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

func (s *Store) ListPoolTransactions(ctx context.Context, poolID string, f PoolTransactionFilter) ([]PoolTransaction, int, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	where := `pool_id = $1 AND ($2 = '' OR type = $2)
		AND ($3::timestamptz IS NULL OR created_at >= $3)
		AND ($4::timestamptz IS NULL OR created_at <= $4)`
	args := []any{poolID, string(f.Type), f.StartDate, f.EndDate}

	var total int
	if err := s.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM pool_transactions WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, pool_id, type, amount, balance_before, balance_after, note, game_code, player_id, created_at
		 FROM pool_transactions WHERE `+where+`
		 ORDER BY created_at DESC LIMIT $5 OFFSET $6`,
		append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]PoolTransaction, 0, f.Limit)
	for rows.Next() {
		var r PoolTransaction
		if err := rows.Scan(&r.ID, &r.PoolID, &r.Type, &r.Amount, &r.BalanceBefore, &r.BalanceAfter,
			&r.Note, &r.GameCode, &r.PlayerID, &r.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}
