package wallet

import (
	"context"
	"fmt"

	"spinhub/internal/store"
	"spinhub/internal/webhook"
)

// Selector binds a session to its wallet variant: operators carrying
// webhook URLs get the remote adapter, everything else settles on the
// owned ledger.
type Selector struct {
	store  *store.Store
	client *webhook.Client
	local  *Local
}

func NewSelector(st *store.Store, client *webhook.Client) *Selector {
	return &Selector{store: st, client: client, local: NewLocal(st)}
}

func (s *Selector) ForSession(ctx context.Context, sess *store.GameSession) (Adapter, error) {
	if sess.OperatorID != "" {
		op, err := s.store.GetOperatorByID(ctx, sess.OperatorID)
		if err != nil {
			return nil, fmt.Errorf("load operator %s: %w", sess.OperatorID, err)
		}
		if op.Remote() {
			return NewRemote(s.client, op), nil
		}
	}
	return s.local, nil
}

// RefFor builds the wallet reference for a session.
func RefFor(sess *store.GameSession) Ref {
	owner := sess.AgentID
	if owner == "" {
		owner = sess.OperatorID
	}
	return Ref{
		OwnerID:      owner,
		PlayerID:     sess.PlayerID,
		SessionToken: sess.Token,
		Currency:     sess.Currency,
	}
}
