package pool

import (
	"context"
	"errors"
	"fmt"

	"spinhub/internal/cache"
	"spinhub/internal/store"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Store is the slice of the repository the manager needs; tests plug
// in an in-memory fake.
type Store interface {
	GetPoolByAgent(ctx context.Context, agentID string) (*store.AgentPool, error)
	CreatePool(ctx context.Context, agentID string) (*store.AgentPool, error)
	SavePool(ctx context.Context, pool *store.AgentPool, records []store.PoolTransaction) error
}

type Manager struct {
	store  Store
	locker *cache.Locker
}

func NewManager(s Store, locker *cache.Locker) *Manager {
	return &Manager{store: s, locker: locker}
}

// withAgentLock serializes admin mutations against concurrent spins on
// the same resource name the settlement engine locks.
func (m *Manager) withAgentLock(ctx context.Context, agentID string, fn func() error) error {
	lock, err := m.locker.Acquire(ctx, agentID)
	if errors.Is(err, cache.ErrLockHeld) {
		return ErrPoolBusy
	}
	if err != nil {
		return fmt.Errorf("acquire pool lock: %w", err)
	}
	defer func() {
		if rerr := lock.Release(context.WithoutCancel(ctx)); rerr != nil {
			log.Warn().Err(rerr).Str("agent_id", agentID).Msg("release pool lock failed")
		}
	}()
	return fn()
}

// GetOrCreate returns the agent's pool, creating it lazily on the
// first spin.
func (m *Manager) GetOrCreate(ctx context.Context, agentID string) (*store.AgentPool, error) {
	p, err := m.store.GetPoolByAgent(ctx, agentID)
	if errors.Is(err, store.ErrNotFound) {
		return m.store.CreatePool(ctx, agentID)
	}
	return p, err
}

// EffectiveLimits derives what one spin betting bet may pay out under
// the current phase. With a zero bet (limits queries) the multiplier
// leg drops out and only the risk cap applies.
func (m *Manager) EffectiveLimits(p *store.AgentPool, bet decimal.Decimal) Limits {
	winChance, maxMult := phaseSettings(p, p.CurrentPhase)

	riskCap := p.Balance.Mul(p.MaxRiskPercent)
	if riskCap.IsNegative() {
		riskCap = decimal.Zero
	}
	maxPayout := riskCap
	if bet.IsPositive() {
		if multCap := maxMult.Mul(bet); multCap.LessThan(maxPayout) {
			maxPayout = multCap
		}
	}

	l := Limits{
		Phase:         p.CurrentPhase,
		WinChance:     winChance,
		MaxMultiplier: maxMult,
		MaxPayout:     maxPayout.Round(2),
		CanPay:        maxPayout.IsPositive(),
	}
	if !l.CanPay {
		l.Reason = "pool balance exhausted"
	}
	return l
}

// SettleSpin books one spin against the pool: income bet, payout
// capped to the effective limits, stats and phase updated, ledger
// records appended. A zero bet books only the payout leg; bonus
// rounds of a free-spin sequence are pre-funded by their trigger.
// The settlement engine holds the agent lock for the whole call, so
// SettleSpin does not re-acquire it.
func (m *Manager) SettleSpin(ctx context.Context, agentID string, bet, rawWin decimal.Decimal, gameCode, playerID string) (decimal.Decimal, *store.AgentPool, error) {
	if bet.IsNegative() {
		return decimal.Zero, nil, ErrInvalidAmount
	}
	p, err := m.GetOrCreate(ctx, agentID)
	if err != nil {
		return decimal.Zero, nil, err
	}

	limits := m.EffectiveLimits(p, bet)
	cappedWin := rawWin
	if cappedWin.IsNegative() {
		cappedWin = decimal.Zero
	}
	if cappedWin.GreaterThan(limits.MaxPayout) {
		cappedWin = limits.MaxPayout
	}
	cappedWin = cappedWin.Round(2)

	records := make([]store.PoolTransaction, 0, 3)

	running := p.Balance
	if bet.IsPositive() {
		afterBet := running.Add(bet)
		records = append(records, store.PoolTransaction{
			PoolID: p.ID, Type: store.PoolTxBet, Amount: bet,
			BalanceBefore: running, BalanceAfter: afterBet,
			Note: "spin bet", GameCode: gameCode, PlayerID: playerID,
		})
		running = afterBet
	}
	afterPayout := running.Sub(cappedWin)
	records = append(records, store.PoolTransaction{
		PoolID: p.ID, Type: store.PoolTxPayout, Amount: cappedWin,
		BalanceBefore: running, BalanceAfter: afterPayout,
		Note: "spin payout", GameCode: gameCode, PlayerID: playerID,
	})
	p.Balance = afterPayout

	p.TotalBets = p.TotalBets.Add(bet)
	p.TotalPayouts = p.TotalPayouts.Add(cappedWin)
	p.TotalSpins++
	if cappedWin.IsPositive() {
		p.TotalWins++
	}
	if cappedWin.GreaterThan(p.BiggestWin) {
		p.BiggestWin = cappedWin
	}
	if loss := cappedWin.Sub(bet); loss.GreaterThan(p.BiggestLoss) {
		p.BiggestLoss = loss
	}

	// Phase transitions run after the balance and stats settle.
	if rec, changed := m.applyPhaseTransition(p); changed {
		records = append(records, rec)
	}

	if err := m.store.SavePool(ctx, p, records); err != nil {
		return decimal.Zero, nil, err
	}
	return cappedWin, p, nil
}

// applyPhaseTransition evaluates the auto-phase thresholds. Priority:
// critical forces retention even when the release condition also
// holds (retention guards solvency); then release; then the recovery
// path retention -> normal once the balance clears lowBalance.
func (m *Manager) applyPhaseTransition(p *store.AgentPool) (store.PoolTransaction, bool) {
	if !p.IsAutoPhase {
		return store.PoolTransaction{}, false
	}
	next := p.CurrentPhase
	switch {
	case p.Balance.LessThanOrEqual(p.CriticalBalance):
		next = store.PhaseRetention
	case p.Balance.GreaterThanOrEqual(p.ReleaseBalance):
		next = store.PhaseRelease
	case p.CurrentPhase == store.PhaseRetention && p.Balance.GreaterThan(p.LowBalance):
		next = store.PhaseNormal
	case p.CurrentPhase == store.PhaseRelease:
		// Fell back below the release threshold.
		next = store.PhaseNormal
	}
	if next == p.CurrentPhase {
		return store.PoolTransaction{}, false
	}
	from := p.CurrentPhase
	p.CurrentPhase = next
	log.Info().Str("agent_id", p.AgentID).
		Str("from", string(from)).Str("to", string(next)).
		Str("balance", p.Balance.String()).
		Msg("pool phase transition")
	return store.PoolTransaction{
		PoolID: p.ID, Type: store.PoolTxPhaseChange, Amount: decimal.Zero,
		BalanceBefore: p.Balance, BalanceAfter: p.Balance,
		Note: fmt.Sprintf("auto %s -> %s", from, next),
	}, true
}

func (m *Manager) Deposit(ctx context.Context, agentID string, amount decimal.Decimal, note string) (*store.AgentPool, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	var p *store.AgentPool
	err := m.withAgentLock(ctx, agentID, func() error {
		var err error
		p, err = m.GetOrCreate(ctx, agentID)
		if err != nil {
			return err
		}
		before := p.Balance
		p.Balance = p.Balance.Add(amount)
		rec := store.PoolTransaction{
			PoolID: p.ID, Type: store.PoolTxDeposit, Amount: amount,
			BalanceBefore: before, BalanceAfter: p.Balance, Note: note,
		}
		return m.store.SavePool(ctx, p, []store.PoolTransaction{rec})
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Withdraw rejects requests exceeding the balance whole; there is no
// partial withdraw.
func (m *Manager) Withdraw(ctx context.Context, agentID string, amount decimal.Decimal, note string) (*store.AgentPool, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	var p *store.AgentPool
	err := m.withAgentLock(ctx, agentID, func() error {
		var err error
		p, err = m.GetOrCreate(ctx, agentID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(p.Balance) {
			return ErrInsufficientPoolBalance
		}
		before := p.Balance
		p.Balance = p.Balance.Sub(amount)
		rec := store.PoolTransaction{
			PoolID: p.ID, Type: store.PoolTxWithdraw, Amount: amount,
			BalanceBefore: before, BalanceAfter: p.Balance, Note: note,
		}
		return m.store.SavePool(ctx, p, []store.PoolTransaction{rec})
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SetPhase is the manual override. It disables auto evaluation until
// SetAutoPhase re-enables it.
func (m *Manager) SetPhase(ctx context.Context, agentID string, phase store.PoolPhase) (*store.AgentPool, error) {
	if !validPhase(phase) {
		return nil, ErrInvalidPhase
	}
	var p *store.AgentPool
	err := m.withAgentLock(ctx, agentID, func() error {
		var err error
		p, err = m.GetOrCreate(ctx, agentID)
		if err != nil {
			return err
		}
		from := p.CurrentPhase
		p.CurrentPhase = phase
		p.IsAutoPhase = false
		rec := store.PoolTransaction{
			PoolID: p.ID, Type: store.PoolTxPhaseChange, Amount: decimal.Zero,
			BalanceBefore: p.Balance, BalanceAfter: p.Balance,
			Note: fmt.Sprintf("manual %s -> %s", from, phase),
		}
		return m.store.SavePool(ctx, p, []store.PoolTransaction{rec})
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (m *Manager) SetAutoPhase(ctx context.Context, agentID string, enabled bool) (*store.AgentPool, error) {
	var p *store.AgentPool
	err := m.withAgentLock(ctx, agentID, func() error {
		var err error
		p, err = m.GetOrCreate(ctx, agentID)
		if err != nil {
			return err
		}
		p.IsAutoPhase = enabled
		var records []store.PoolTransaction
		if enabled {
			if rec, changed := m.applyPhaseTransition(p); changed {
				records = append(records, rec)
			}
		}
		return m.store.SavePool(ctx, p, records)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
