package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"spinhub/internal/cache"
	"spinhub/internal/config"
	"spinhub/internal/pool"
	"spinhub/internal/ratelimit"
	"spinhub/internal/session"
	"spinhub/internal/spin"
	"spinhub/internal/store"
	"spinhub/internal/wallet"

	"github.com/shopspring/decimal"
)

// memStore backs the handler tests: credential directory, session
// repository and spin repository in one in-process fake.
type memStore struct {
	mu        sync.Mutex
	agents    map[string]*store.Agent    // by raw API key
	operators map[string]*store.Operator // by raw API key
	opsByID   map[string]*store.Operator
	sessions  map[string]*store.GameSession
	spins     map[string]*store.SpinTransaction
	ledger    *wallet.MemoryLedger
	poolMS    *pool.MemoryStore
}

func newMemStore(ledger *wallet.MemoryLedger, poolMS *pool.MemoryStore) *memStore {
	return &memStore{
		agents:    make(map[string]*store.Agent),
		operators: make(map[string]*store.Operator),
		opsByID:   make(map[string]*store.Operator),
		sessions:  make(map[string]*store.GameSession),
		spins:     make(map[string]*store.SpinTransaction),
		ledger:    ledger,
		poolMS:    poolMS,
	}
}

func (m *memStore) GetAgentByAPIKey(_ context.Context, key string) (*store.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return a, nil
}

func (m *memStore) GetOperatorByAPIKey(_ context.Context, key string) (*store.Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.operators[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return op, nil
}

func (m *memStore) GetOperatorByID(_ context.Context, id string) (*store.Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.opsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return op, nil
}

func (m *memStore) InsertSession(_ context.Context, gs *store.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *gs
	cp.UpdatedAt = time.Now()
	m.sessions[gs.Token] = &cp
	return nil
}

func (m *memStore) GetSession(_ context.Context, token string) (*store.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gs, ok := m.sessions[token]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *gs
	return &cp, nil
}

func (m *memStore) TouchSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gs, ok := m.sessions[token]; ok {
		gs.UpdatedAt = time.Now()
	}
	return nil
}

func (m *memStore) UpdateSessionBalance(_ context.Context, token string, balance decimal.Decimal, stale bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gs, ok := m.sessions[token]; ok {
		gs.Balance = balance
		gs.BalanceStale = stale
	}
	return nil
}

func (m *memStore) SetSessionStatus(_ context.Context, token string, status store.SessionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	gs, ok := m.sessions[token]
	if !ok {
		return store.ErrNotFound
	}
	gs.Status = status
	return nil
}

func (m *memStore) EnsurePlayer(ctx context.Context, ownerID, playerID string, initial decimal.Decimal) error {
	if _, err := m.ledger.GetPlayerBalance(ctx, ownerID, playerID); err == nil {
		return nil
	}
	m.ledger.Seed(ownerID, playerID, initial)
	return nil
}

func (m *memStore) InsertSpinTransaction(_ context.Context, t *store.SpinTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.spins[t.IdempotencyKey]; ok {
		return store.ErrDuplicate
	}
	cp := *t
	m.spins[t.IdempotencyKey] = &cp
	return nil
}

func (m *memStore) GetSpinByIdempotencyKey(_ context.Context, key string) (*store.SpinTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.spins[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) HasPendingCredit(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.spins {
		if t.SessionToken == token && t.CreditState == store.CreditPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListPoolTransactions(_ context.Context, poolID string, f store.PoolTransactionFilter) ([]store.PoolTransaction, int, error) {
	var out []store.PoolTransaction
	for _, rec := range m.poolMS.Transactions(poolID) {
		if f.Type != "" && rec.Type != f.Type {
			continue
		}
		out = append(out, rec)
	}
	total := len(out)
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			out = nil
		} else {
			out = out[f.Offset:]
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

type testResolver struct{ adapter wallet.Adapter }

func (r testResolver) ForSession(context.Context, *store.GameSession) (wallet.Adapter, error) {
	return r.adapter, nil
}

type testEnv struct {
	app    *app
	ms     *memStore
	ledger *wallet.MemoryLedger
	pools  *pool.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	sub := cache.NewMemory()
	locker := cache.NewLocker(sub, 30*time.Second, 2*time.Second)
	ledger := wallet.NewMemoryLedger()
	poolMS := pool.NewMemoryStore()
	pools := pool.NewManager(poolMS, locker)
	ms := newMemStore(ledger, poolMS)

	ms.agents["key_agent"] = &store.Agent{
		ID:              "ag_1",
		Name:            "acme",
		UseLocalBalance: true,
		Status:          "active",
	}
	op := &store.Operator{
		ID:            "op_1",
		Name:          "telco",
		APISecretHash: store.HashAPIKey("s3cret"),
		Status:        "active",
	}
	ms.operators["key_operator"] = op
	ms.opsByID[op.ID] = op

	wallets := testResolver{adapter: wallet.NewLocal(ledger)}
	engine := spin.NewEngine(
		ms,
		pools,
		wallets,
		locker,
		cache.NewResults(sub, time.Hour),
		spin.NewSlotGenerator(1),
		spin.NewTracker(sub, time.Hour),
	)

	cfg := config.ServerConfig{
		AdminAPIKey:   "admin-key",
		LaunchBaseURL: "http://play.local",
	}
	a := &app{
		cfg:       cfg,
		sub:       sub,
		directory: ms,
		sessions:  session.NewManager(ms, sub, time.Hour),
		pools:     pools,
		poolLog:   ms,
		engine:    engine,
		wallets:   wallets,
		limiter:   ratelimit.New(sub, 100, time.Minute),
		ping:      func(context.Context) error { return nil },
	}
	return &testEnv{app: a, ms: ms, ledger: ledger, pools: pools}
}
