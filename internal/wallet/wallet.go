// Package wallet abstracts the two balance models a session can
// settle against: a locally owned ledger, or an operator-hosted
// remote wallet reached over webhooks.
package wallet

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrRemoteTimeout means the webhook call never got a definitive
	// answer. The operation may or may not have landed remotely.
	ErrRemoteTimeout = errors.New("remote wallet timeout")
	// ErrRemoteRejected is a definitive refusal from the operator.
	ErrRemoteRejected = errors.New("remote wallet rejected")
)

// Ref identifies the player a wallet operation applies to. OwnerID is
// the agent or operator the balance lives under.
type Ref struct {
	OwnerID      string
	PlayerID     string
	SessionToken string
	Currency     string
}

// TxRequest is a debit or credit. TransactionID doubles as the
// idempotency key for remote delivery: the operator must treat a
// repeated TransactionID as a no-op and answer with the current
// balance.
type TxRequest struct {
	Ref
	Amount        decimal.Decimal
	TransactionID string
	RoundID       string
}

// Adapter is the capability the settlement engine works against.
// Every operation returns the resulting balance.
type Adapter interface {
	Balance(ctx context.Context, ref Ref) (decimal.Decimal, error)
	Debit(ctx context.Context, req TxRequest) (decimal.Decimal, error)
	Credit(ctx context.Context, req TxRequest) (decimal.Decimal, error)
}
