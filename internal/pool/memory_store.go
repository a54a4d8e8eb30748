package pool

import (
	"context"
	"sync"
	"time"

	"spinhub/internal/store"

	"github.com/shopspring/decimal"
)

// MemoryStore keeps pools and their ledgers in process. It backs
// tests and demo deployments that run without Postgres.
type MemoryStore struct {
	mu      sync.Mutex
	pools   map[string]*store.AgentPool // by agent id
	ledgers map[string][]store.PoolTransaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pools:   make(map[string]*store.AgentPool),
		ledgers: make(map[string][]store.PoolTransaction),
	}
}

func defaultPool(agentID string) *store.AgentPool {
	now := time.Now().UTC()
	return &store.AgentPool{
		ID:                     store.NewID(),
		AgentID:                agentID,
		Balance:                decimal.Zero,
		CurrentPhase:           store.PhaseNormal,
		IsAutoPhase:            true,
		LowBalance:             decimal.NewFromInt(200),
		CriticalBalance:        decimal.NewFromInt(100),
		ReleaseBalance:         decimal.NewFromInt(5000),
		MaxRiskPercent:         decimal.RequireFromString("0.10"),
		RetentionWinChance:     0.20,
		NormalWinChance:        0.30,
		ReleaseWinChance:       0.45,
		RetentionMaxMultiplier: decimal.NewFromInt(5),
		NormalMaxMultiplier:    decimal.NewFromInt(20),
		ReleaseMaxMultiplier:   decimal.NewFromInt(100),
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

func clonePool(p *store.AgentPool) *store.AgentPool {
	cp := *p
	return &cp
}

func (m *MemoryStore) GetPoolByAgent(_ context.Context, agentID string) (*store.AgentPool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pools[agentID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clonePool(p), nil
}

func (m *MemoryStore) CreatePool(_ context.Context, agentID string) (*store.AgentPool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.pools[agentID]; ok {
		return clonePool(p), nil
	}
	p := defaultPool(agentID)
	m.pools[agentID] = p
	return clonePool(p), nil
}

func (m *MemoryStore) SavePool(_ context.Context, pool *store.AgentPool, records []store.PoolTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := clonePool(pool)
	cp.UpdatedAt = time.Now().UTC()
	m.pools[pool.AgentID] = cp
	for i := range records {
		r := records[i]
		if r.ID == "" {
			r.ID = store.NewID()
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now().UTC()
		}
		m.ledgers[pool.ID] = append(m.ledgers[pool.ID], r)
	}
	return nil
}

// Transactions returns the pool's ledger in append order.
func (m *MemoryStore) Transactions(poolID string) []store.PoolTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.PoolTransaction, len(m.ledgers[poolID]))
	copy(out, m.ledgers[poolID])
	return out
}
