package wallet

import (
	"context"
	"errors"

	"spinhub/internal/store"

	"github.com/shopspring/decimal"
)

// PlayerLedger is the owned balance store behind the local variant.
// *store.Store satisfies it; tests use MemoryLedger.
type PlayerLedger interface {
	GetPlayerBalance(ctx context.Context, ownerID, playerID string) (decimal.Decimal, error)
	DebitPlayer(ctx context.Context, ownerID, playerID string, amount decimal.Decimal) (decimal.Decimal, error)
	CreditPlayer(ctx context.Context, ownerID, playerID string, amount decimal.Decimal) (decimal.Decimal, error)
}

// Local settles against the owned ledger. No network failure mode.
type Local struct {
	ledger PlayerLedger
}

func NewLocal(ledger PlayerLedger) *Local { return &Local{ledger: ledger} }

func (l *Local) Balance(ctx context.Context, ref Ref) (decimal.Decimal, error) {
	return l.ledger.GetPlayerBalance(ctx, ref.OwnerID, ref.PlayerID)
}

func (l *Local) Debit(ctx context.Context, req TxRequest) (decimal.Decimal, error) {
	bal, err := l.ledger.DebitPlayer(ctx, req.OwnerID, req.PlayerID, req.Amount)
	if errors.Is(err, store.ErrInsufficientBalance) {
		return decimal.Zero, ErrInsufficientFunds
	}
	return bal, err
}

func (l *Local) Credit(ctx context.Context, req TxRequest) (decimal.Decimal, error) {
	return l.ledger.CreditPlayer(ctx, req.OwnerID, req.PlayerID, req.Amount)
}
