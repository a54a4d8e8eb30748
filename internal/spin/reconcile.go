package spin

import (
	"context"
	"time"

	"spinhub/internal/store"
	"spinhub/internal/wallet"

	"github.com/rs/zerolog/log"
)

// ReconcilerStore is the durable slice the reconciler needs.
type ReconcilerStore interface {
	ListPendingCredits(ctx context.Context, limit int) ([]store.SpinTransaction, error)
	UpdateSpinCreditState(ctx context.Context, id string, state store.CreditState) error
	GetSession(ctx context.Context, token string) (*store.GameSession, error)
}

// Reconciler re-drives credits that could not be delivered during
// settlement. Each delivery reuses the spin's original idempotency
// key, so a credit that actually landed on the first try is a remote
// no-op.
type Reconciler struct {
	store    ReconcilerStore
	wallets  WalletResolver
	interval time.Duration
	batch    int
}

func NewReconciler(st ReconcilerStore, wallets WalletResolver, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Reconciler{store: st, wallets: wallets, interval: interval, batch: 50}
}

// Run sweeps until the context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep makes one pass over pending credits, oldest first. Returns
// how many were recovered.
func (r *Reconciler) Sweep(ctx context.Context) int {
	txs, err := r.store.ListPendingCredits(ctx, r.batch)
	if err != nil {
		log.Error().Err(err).Msg("list pending credits failed")
		return 0
	}
	recovered := 0
	for i := range txs {
		if r.redeliver(ctx, &txs[i]) {
			recovered++
		}
	}
	if recovered > 0 {
		log.Info().Int("recovered", recovered).Msg("pending credits delivered")
	}
	return recovered
}

func (r *Reconciler) redeliver(ctx context.Context, tx *store.SpinTransaction) bool {
	sess, err := r.store.GetSession(ctx, tx.SessionToken)
	if err != nil {
		log.Warn().Err(err).Str("round", tx.RoundID).Msg("pending credit session lookup failed")
		return false
	}
	adapter, err := r.wallets.ForSession(ctx, sess)
	if err != nil {
		log.Warn().Err(err).Str("round", tx.RoundID).Msg("pending credit wallet lookup failed")
		return false
	}
	_, err = adapter.Credit(ctx, wallet.TxRequest{
		Ref:           wallet.RefFor(sess),
		Amount:        tx.Win,
		TransactionID: tx.IdempotencyKey + ":credit",
		RoundID:       tx.RoundID,
	})
	if err != nil {
		log.Warn().Err(err).Str("round", tx.RoundID).Msg("pending credit redelivery failed")
		return false
	}
	if err := r.store.UpdateSpinCreditState(ctx, tx.ID, store.CreditDone); err != nil {
		log.Error().Err(err).Str("round", tx.RoundID).Msg("mark credit done failed")
		return false
	}
	metricCreditRecoveredTotal.Add(1)
	return true
}
