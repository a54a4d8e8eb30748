package spin

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"spinhub/internal/cache"

	"github.com/shopspring/decimal"
)

// FreeSpinState carries a bonus sequence across otherwise-stateless
// spin calls. It lives on the cache substrate only: state that
// outlives its TTL (1h of inactivity) is treated as abandoned and
// discarded without payout.
type FreeSpinState struct {
	Remaining      int             `json:"remaining"`
	Multiplier     decimal.Decimal `json:"multiplier"`
	TotalWin       decimal.Decimal `json:"totalWin"`
	TriggerRoundID string          `json:"triggerRoundId"`
	Bet            decimal.Decimal `json:"bet"`
}

type Tracker struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewTracker(c cache.Cache, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Tracker{cache: c, ttl: ttl}
}

// Active returns the player's bonus state, or nil when no sequence is
// running. Substrate errors read as "no sequence": free spins degrade,
// settlement does not.
func (t *Tracker) Active(ctx context.Context, playerID, gameCode string) *FreeSpinState {
	b, err := t.cache.Get(ctx, cache.FreeSpinKey(playerID, gameCode))
	if err != nil {
		return nil
	}
	var st FreeSpinState
	if json.Unmarshal(b, &st) != nil || st.Remaining <= 0 {
		return nil
	}
	return &st
}

// Grant starts a bonus sequence for the round that triggered it.
func (t *Tracker) Grant(ctx context.Context, playerID, gameCode string, count int, bet decimal.Decimal, triggerRoundID string) error {
	if count <= 0 {
		return errors.New("free spin count must be positive")
	}
	st := FreeSpinState{
		Remaining:      count,
		Multiplier:     decimal.NewFromInt(1),
		TotalWin:       decimal.Zero,
		TriggerRoundID: triggerRoundID,
		Bet:            bet,
	}
	return t.save(ctx, playerID, gameCode, &st)
}

// Consume burns one unit and accumulates win. The returned finished
// flag marks the terminal spin: the caller pays out TotalWin as a
// single credit and the state is already gone.
func (t *Tracker) Consume(ctx context.Context, playerID, gameCode string, win decimal.Decimal) (*FreeSpinState, bool, error) {
	st := t.Active(ctx, playerID, gameCode)
	if st == nil {
		return nil, false, errors.New("no active free spin sequence")
	}
	st.Remaining--
	st.TotalWin = st.TotalWin.Add(win)
	if st.Remaining <= 0 {
		if err := t.cache.Delete(ctx, cache.FreeSpinKey(playerID, gameCode)); err != nil {
			return nil, false, err
		}
		return st, true, nil
	}
	if err := t.save(ctx, playerID, gameCode, st); err != nil {
		return nil, false, err
	}
	return st, false, nil
}

func (t *Tracker) save(ctx context.Context, playerID, gameCode string, st *FreeSpinState) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	// Each save restarts the inactivity window.
	return t.cache.Set(ctx, cache.FreeSpinKey(playerID, gameCode), b, t.ttl)
}
