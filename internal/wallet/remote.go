package wallet

import (
	"context"
	"errors"
	"fmt"

	"spinhub/internal/store"
	"spinhub/internal/webhook"

	"github.com/shopspring/decimal"
)

// Remote settles against operator webhooks. Debit is its first and
// only side effect before any pool mutation, so a failed debit aborts
// the spin cleanly; credit retries ride on the TransactionID
// idempotency key.
type Remote struct {
	client *webhook.Client
	op     *store.Operator
}

func NewRemote(client *webhook.Client, op *store.Operator) *Remote {
	return &Remote{client: client, op: op}
}

type walletCallRequest struct {
	PlayerID      string `json:"playerId"`
	SessionToken  string `json:"sessionToken"`
	Currency      string `json:"currency,omitempty"`
	Amount        string `json:"amount,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
	RoundID       string `json:"roundId,omitempty"`
}

type walletCallResponse struct {
	Status  string          `json:"status"`
	Balance decimal.Decimal `json:"balance"`
	Message string          `json:"message,omitempty"`
}

func (r *Remote) Balance(ctx context.Context, ref Ref) (decimal.Decimal, error) {
	return r.call(ctx, r.op.BalanceURL, walletCallRequest{
		PlayerID: ref.PlayerID, SessionToken: ref.SessionToken, Currency: ref.Currency,
	})
}

func (r *Remote) Debit(ctx context.Context, req TxRequest) (decimal.Decimal, error) {
	return r.call(ctx, r.op.DebitURL, walletCallRequest{
		PlayerID:      req.PlayerID,
		SessionToken:  req.SessionToken,
		Currency:      req.Currency,
		Amount:        req.Amount.StringFixed(2),
		TransactionID: req.TransactionID,
		RoundID:       req.RoundID,
	})
}

func (r *Remote) Credit(ctx context.Context, req TxRequest) (decimal.Decimal, error) {
	return r.call(ctx, r.op.CreditURL, walletCallRequest{
		PlayerID:      req.PlayerID,
		SessionToken:  req.SessionToken,
		Currency:      req.Currency,
		Amount:        req.Amount.StringFixed(2),
		TransactionID: req.TransactionID,
		RoundID:       req.RoundID,
	})
}

func (r *Remote) call(ctx context.Context, url string, payload walletCallRequest) (decimal.Decimal, error) {
	var resp walletCallResponse
	err := r.client.PostJSON(ctx, url, r.op.WebhookSecret, payload, &resp)
	switch {
	case errors.Is(err, webhook.ErrTimeout):
		return decimal.Zero, fmt.Errorf("%w: %v", ErrRemoteTimeout, err)
	case errors.Is(err, webhook.ErrRejected):
		return decimal.Zero, fmt.Errorf("%w: %v", ErrRemoteRejected, err)
	case err != nil:
		return decimal.Zero, fmt.Errorf("%w: %v", ErrRemoteRejected, err)
	}
	switch resp.Status {
	case "ok":
		return resp.Balance, nil
	case "insufficient_funds":
		return decimal.Zero, ErrInsufficientFunds
	default:
		return decimal.Zero, fmt.Errorf("%w: %s", ErrRemoteRejected, resp.Status)
	}
}
