package store

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestHashAPIKeyStable(t *testing.T) {
	a := HashAPIKey("secret-key")
	b := HashAPIKey("secret-key")
	if a != b {
		t.Fatal("hash not deterministic")
	}
	if a == HashAPIKey("other-key") {
		t.Fatal("distinct keys collide")
	}
	if len(a) != 64 {
		t.Fatalf("hash length = %d, want 64 hex chars", len(a))
	}
}

func TestSplitJoinGames(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "empty", raw: "", want: nil},
		{name: "single", raw: "fortune-tiger", want: []string{"fortune-tiger"}},
		{name: "many with spaces", raw: "a, b ,c", want: []string{"a", "b", "c"}},
		{name: "stray commas", raw: ",a,,b,", want: []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitGames(tt.raw)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Fatalf("splitGames(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNewSessionTokenFormat(t *testing.T) {
	tok := NewSessionToken()
	if !strings.HasPrefix(tok, "sess_") {
		t.Fatalf("token %q missing sess_ prefix", tok)
	}
	if tok == NewSessionToken() {
		t.Fatal("tokens not unique")
	}
}

func TestPoolLifecycle(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	agentID, err := st.CreateAgent(ctx, "t-agent", NewID(), true, nil)
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	pool, err := st.CreatePool(ctx, agentID)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	if pool.CurrentPhase != PhaseNormal {
		t.Fatalf("default phase = %s, want normal", pool.CurrentPhase)
	}

	before := pool.Balance
	pool.Balance = pool.Balance.Add(decimal.NewFromInt(100))
	err = st.SavePool(ctx, pool, []PoolTransaction{{
		PoolID: pool.ID, Type: PoolTxDeposit, Amount: decimal.NewFromInt(100),
		BalanceBefore: before, BalanceAfter: pool.Balance, Note: "seed",
	}})
	if err != nil {
		t.Fatalf("save pool: %v", err)
	}

	txs, total, err := st.ListPoolTransactions(ctx, pool.ID, PoolTransactionFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(txs) != 1 || txs[0].Type != PoolTxDeposit {
		t.Fatalf("list = %d rows total %d", len(txs), total)
	}
}
