package wallet

import (
	"context"
	"sync"

	"spinhub/internal/store"

	"github.com/shopspring/decimal"
)

// MemoryLedger is an in-process PlayerLedger, used as a test double
// and for DEMO-mode sessions that never touch durable balances.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[string]decimal.Decimal)}
}

func ledgerKey(ownerID, playerID string) string { return ownerID + "/" + playerID }

func (m *MemoryLedger) Seed(ownerID, playerID string, balance decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[ledgerKey(ownerID, playerID)] = balance
}

func (m *MemoryLedger) GetPlayerBalance(_ context.Context, ownerID, playerID string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[ledgerKey(ownerID, playerID)]
	if !ok {
		return decimal.Zero, store.ErrNotFound
	}
	return bal, nil
}

func (m *MemoryLedger) DebitPlayer(_ context.Context, ownerID, playerID string, amount decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ledgerKey(ownerID, playerID)
	bal, ok := m.balances[key]
	if !ok {
		return decimal.Zero, store.ErrNotFound
	}
	if bal.LessThan(amount) {
		return decimal.Zero, store.ErrInsufficientBalance
	}
	bal = bal.Sub(amount)
	m.balances[key] = bal
	return bal, nil
}

func (m *MemoryLedger) CreditPlayer(_ context.Context, ownerID, playerID string, amount decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ledgerKey(ownerID, playerID)
	bal := m.balances[key].Add(amount)
	m.balances[key] = bal
	return bal, nil
}
