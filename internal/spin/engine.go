// Package spin settles one spin end-to-end: idempotent replay, lock
// acquisition, bet debit, outcome generation, pool-capped payout,
// credit, durable transaction record.
package spin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spinhub/internal/cache"
	"spinhub/internal/pool"
	"spinhub/internal/store"
	"spinhub/internal/wallet"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	// ErrLockContention means another spin on the same agent holds
	// the resource; the caller should retry shortly.
	ErrLockContention = errors.New("lock contention")
	// ErrPendingCredit refuses new spins while an earlier win has not
	// been delivered yet; the reconciler clears it.
	ErrPendingCredit = errors.New("pending credit unresolved")
)

type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid spin: " + e.Reason }

// Store is the durable slice the engine needs.
type Store interface {
	InsertSpinTransaction(ctx context.Context, t *store.SpinTransaction) error
	GetSpinByIdempotencyKey(ctx context.Context, key string) (*store.SpinTransaction, error)
	HasPendingCredit(ctx context.Context, sessionToken string) (bool, error)
}

// WalletResolver picks the adapter a session settles against.
type WalletResolver interface {
	ForSession(ctx context.Context, sess *store.GameSession) (wallet.Adapter, error)
}

type Engine struct {
	store   Store
	pools   *pool.Manager
	wallets WalletResolver
	locker  *cache.Locker
	results *cache.Results
	gen     Generator
	free    *Tracker

	creditRetries int
	creditBackoff time.Duration
}

func NewEngine(st Store, pools *pool.Manager, wallets WalletResolver, locker *cache.Locker, results *cache.Results, gen Generator, free *Tracker) *Engine {
	return &Engine{
		store:         st,
		pools:         pools,
		wallets:       wallets,
		locker:        locker,
		results:       results,
		gen:           gen,
		free:          free,
		creditRetries: 2,
		creditBackoff: 100 * time.Millisecond,
	}
}

type Request struct {
	Session      *store.GameSession
	Bet          decimal.Decimal
	Lines        int
	// CoinsPerLine scales the line bet; the debited stake is
	// Bet * CoinsPerLine.
	CoinsPerLine int
	// RoundID identifies the round for idempotent retries; generated
	// when the client does not supply one.
	RoundID string
}

type Result struct {
	RoundID       string           `json:"roundId"`
	Balance       decimal.Decimal  `json:"balance"`
	Win           decimal.Decimal  `json:"win"`
	Icons         [GridSize]string `json:"icons"`
	ActiveIcons   []int            `json:"activeIcons"`
	ActiveLines   []int            `json:"activeLines"`
	FreeSpinsLeft int              `json:"freeSpinsLeft"`
	CreditPending bool             `json:"creditPending"`
	Replayed      bool             `json:"-"`
}

// IdempotencyKey derives the replay key for one round of one session.
func IdempotencyKey(sessionToken, roundID string) string {
	return sessionToken + ":" + roundID
}

// Settle runs the full pipeline. Before the debit every failure is
// side-effect-free; once the debit lands the spin runs to completion
// even if the caller disconnects.
func (e *Engine) Settle(ctx context.Context, req Request) (*Result, error) {
	sess := req.Session
	if sess == nil || sess.Status != store.SessionActive {
		return nil, &ValidationError{Reason: "session not active"}
	}
	if !req.Bet.IsPositive() {
		return nil, &ValidationError{Reason: "bet must be positive"}
	}
	if req.Lines < 1 || req.Lines > GridSize/3 {
		return nil, &ValidationError{Reason: "lines out of range"}
	}
	if req.CoinsPerLine < 1 {
		return nil, &ValidationError{Reason: "coins per line out of range"}
	}
	if req.RoundID == "" {
		req.RoundID = store.NewRoundID()
	}
	bet := req.Bet.Mul(decimal.NewFromInt(int64(req.CoinsPerLine)))
	idemKey := IdempotencyKey(sess.Token, req.RoundID)

	if res, err := e.replay(ctx, idemKey); err != nil || res != nil {
		return res, err
	}

	pending, err := e.store.HasPendingCredit(ctx, sess.Token)
	if err != nil {
		return nil, fmt.Errorf("pending credit check: %w", err)
	}
	if pending {
		return nil, ErrPendingCredit
	}

	adapter, err := e.wallets.ForSession(ctx, sess)
	if err != nil {
		return nil, err
	}

	owner := sess.AgentID
	if owner == "" {
		owner = sess.OperatorID
	}
	lock, err := e.locker.Acquire(ctx, owner)
	if errors.Is(err, cache.ErrLockHeld) {
		metricLockContentionTotal.Add(1)
		return nil, ErrLockContention
	}
	if err != nil {
		return nil, fmt.Errorf("acquire settlement lock: %w", err)
	}
	defer func() {
		if rerr := lock.Release(context.WithoutCancel(ctx)); rerr != nil {
			log.Warn().Err(rerr).Str("agent", owner).Msg("release settlement lock failed")
		}
	}()

	// A duplicate delivery of the same round may have settled while we
	// waited for the lock; only the holder's view counts.
	if res, err := e.replay(ctx, idemKey); err != nil || res != nil {
		return res, err
	}

	p, err := e.pools.GetOrCreate(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load pool: %w", err)
	}

	ref := wallet.RefFor(sess)
	fs := e.free.Active(ctx, sess.PlayerID, sess.GameCode)

	balanceBefore := sess.Balance
	balance := sess.Balance
	if fs == nil {
		balance, err = adapter.Debit(ctx, wallet.TxRequest{
			Ref:           ref,
			Amount:        bet,
			TransactionID: idemKey + ":debit",
			RoundID:       req.RoundID,
		})
		if err != nil {
			metricSpinAbortedTotal.Add(1)
			return nil, err
		}
		balanceBefore = balance.Add(bet)
	}

	// Debit landed; from here the spin must finish even if the client
	// goes away.
	ctx = context.WithoutCancel(ctx)

	limits := e.pools.EffectiveLimits(p, bet)
	out := e.gen.Generate(Params{
		Bet:           bet,
		Lines:         req.Lines,
		WinChance:     limits.WinChance,
		MaxMultiplier: limits.MaxMultiplier,
	})

	poolBet := bet
	if fs != nil {
		// Bonus rounds are pre-funded by the trigger; the pool sees
		// no new bet income.
		poolBet = decimal.Zero
	}
	cappedWin, _, err := e.pools.SettleSpin(ctx, owner, poolBet, out.Win, sess.GameCode, sess.PlayerID)
	if err != nil {
		metricSpinAbortedTotal.Add(1)
		return nil, fmt.Errorf("settle pool: %w", err)
	}

	if out.FreeSpins > 0 && fs == nil {
		if gerr := e.free.Grant(ctx, sess.PlayerID, sess.GameCode, out.FreeSpins, bet, req.RoundID); gerr != nil {
			log.Warn().Err(gerr).Str("player", sess.PlayerID).Msg("free spin grant failed")
		} else {
			metricFreeSpinGrantedTotal.Add(1)
		}
	}

	recordedWin := cappedWin
	creditAmount := cappedWin
	freeLeft := 0
	if fs != nil {
		st, finished, cerr := e.free.Consume(ctx, sess.PlayerID, sess.GameCode, cappedWin)
		switch {
		case cerr != nil:
			// Substrate lost the sequence mid-settle; pay this spin's
			// win directly rather than dropping it.
			log.Warn().Err(cerr).Str("player", sess.PlayerID).Msg("free spin consume failed")
		case finished:
			creditAmount = st.TotalWin
			recordedWin = st.TotalWin
		default:
			creditAmount = decimal.Zero
			freeLeft = st.Remaining
		}
	}

	creditState := store.CreditNone
	if creditAmount.IsPositive() {
		creditState = store.CreditDone
		after, cerr := e.creditWithRetry(ctx, adapter, wallet.TxRequest{
			Ref:           ref,
			Amount:        creditAmount,
			TransactionID: idemKey + ":credit",
			RoundID:       req.RoundID,
		})
		if cerr != nil {
			creditState = store.CreditPending
			metricCreditPendingTotal.Add(1)
			log.Error().Err(cerr).Str("round", req.RoundID).Str("amount", creditAmount.String()).
				Msg("credit failed, parked for reconciliation")
		} else {
			balance = after
		}
	}

	tx := &store.SpinTransaction{
		ID:             store.NewID(),
		SessionToken:   sess.Token,
		AgentID:        owner,
		PlayerID:       sess.PlayerID,
		GameCode:       sess.GameCode,
		RoundID:        req.RoundID,
		IdempotencyKey: idemKey,
		Bet:            bet,
		Win:            recordedWin,
		BalanceBefore:  balanceBefore,
		BalanceAfter:   balance,
		CreditState:    creditState,
	}
	if err := e.store.InsertSpinTransaction(ctx, tx); err != nil && !errors.Is(err, store.ErrDuplicate) {
		// Money already moved; failing the request here would invite a
		// client retry and a second settlement. Log and answer.
		log.Error().Err(err).Str("round", req.RoundID).Msg("persist spin transaction failed")
	}

	res := &Result{
		RoundID:       req.RoundID,
		Balance:       balance,
		Win:           recordedWin,
		Icons:         out.Icons,
		ActiveIcons:   out.ActiveIcons,
		ActiveLines:   out.ActiveLines,
		FreeSpinsLeft: freeLeft,
		CreditPending: creditState == store.CreditPending,
	}
	if serr := e.results.Save(ctx, idemKey, res); serr != nil {
		log.Warn().Err(serr).Msg("cache spin result failed")
	}
	metricSpinSettledTotal.Add(1)
	return res, nil
}

// replay answers an already-settled round: first from the cached
// response, then from the durable record once the cache forgot it.
// Returns (nil, nil) when the round has never settled.
func (e *Engine) replay(ctx context.Context, idemKey string) (*Result, error) {
	var prev Result
	if ok, err := e.results.Load(ctx, idemKey, &prev); err == nil && ok {
		metricSpinReplayedTotal.Add(1)
		prev.Replayed = true
		return &prev, nil
	}
	tx, err := e.store.GetSpinByIdempotencyKey(ctx, idemKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}
	// The durable record has no reel grid; balances and win still
	// answer the retry without settling twice.
	metricSpinReplayedTotal.Add(1)
	return &Result{
		RoundID:       tx.RoundID,
		Balance:       tx.BalanceAfter,
		Win:           tx.Win,
		CreditPending: tx.CreditState == store.CreditPending,
		Replayed:      true,
	}, nil
}

// creditWithRetry retries transient remote failures; a definitive
// rejection goes straight to the pending path.
func (e *Engine) creditWithRetry(ctx context.Context, adapter wallet.Adapter, req wallet.TxRequest) (decimal.Decimal, error) {
	var lastErr error
	for attempt := 0; attempt <= e.creditRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(e.creditBackoff * time.Duration(attempt)):
			case <-ctx.Done():
				return decimal.Zero, ctx.Err()
			}
		}
		balance, err := adapter.Credit(ctx, req)
		if err == nil {
			return balance, nil
		}
		if errors.Is(err, wallet.ErrRemoteRejected) {
			return decimal.Zero, err
		}
		lastErr = err
	}
	return decimal.Zero, lastErr
}
