package store

import (
	"time"

	"github.com/shopspring/decimal"
)

type Agent struct {
	ID              string
	Name            string
	APIKeyHash      string
	UseLocalBalance bool
	// AllowedGames empty means every game is allowed.
	AllowedGames []string
	Status       string
	CreatedAt    time.Time
}

type Operator struct {
	ID            string
	Name          string
	APIKeyHash    string
	APISecretHash string
	BalanceURL    string
	DebitURL      string
	CreditURL     string
	WebhookSecret string
	Status        string
	CreatedAt     time.Time
}

// Remote reports whether sessions under this operator settle against
// an operator-hosted wallet.
func (o *Operator) Remote() bool {
	return o.BalanceURL != "" && o.DebitURL != "" && o.CreditURL != ""
}

type PoolPhase string

const (
	PhaseRetention PoolPhase = "retention"
	PhaseNormal    PoolPhase = "normal"
	PhaseRelease   PoolPhase = "release"
)

type AgentPool struct {
	ID           string          `json:"id"`
	AgentID      string          `json:"agentId"`
	Balance      decimal.Decimal `json:"balance"`
	CurrentPhase PoolPhase       `json:"currentPhase"`
	IsAutoPhase  bool            `json:"isAutoPhase"`

	LowBalance      decimal.Decimal `json:"retentionThreshold"`
	CriticalBalance decimal.Decimal `json:"criticalThreshold"`
	ReleaseBalance  decimal.Decimal `json:"releaseThreshold"`
	MaxRiskPercent  decimal.Decimal `json:"maxRiskPercent"`

	RetentionWinChance float64 `json:"retentionWinChance"`
	NormalWinChance    float64 `json:"normalWinChance"`
	ReleaseWinChance   float64 `json:"releaseWinChance"`

	RetentionMaxMultiplier decimal.Decimal `json:"retentionMaxMultiplier"`
	NormalMaxMultiplier    decimal.Decimal `json:"normalMaxMultiplier"`
	ReleaseMaxMultiplier   decimal.Decimal `json:"releaseMaxMultiplier"`

	TotalBets    decimal.Decimal `json:"totalBets"`
	TotalPayouts decimal.Decimal `json:"totalPayouts"`
	TotalSpins   int64           `json:"totalSpins"`
	TotalWins    int64           `json:"totalWins"`
	BiggestWin   decimal.Decimal `json:"biggestWin"`
	BiggestLoss  decimal.Decimal `json:"biggestLoss"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type PoolTransactionType string

const (
	PoolTxBet         PoolTransactionType = "bet"
	PoolTxPayout      PoolTransactionType = "payout"
	PoolTxDeposit     PoolTransactionType = "deposit"
	PoolTxWithdraw    PoolTransactionType = "withdraw"
	PoolTxAdjustment  PoolTransactionType = "adjustment"
	PoolTxPhaseChange PoolTransactionType = "phase_change"
)

// PoolTransaction is one append-only ledger record. Amount is always
// non-negative; the type carries the sign.
type PoolTransaction struct {
	ID            string              `json:"id"`
	PoolID        string              `json:"poolId"`
	Type          PoolTransactionType `json:"type"`
	Amount        decimal.Decimal     `json:"amount"`
	BalanceBefore decimal.Decimal     `json:"balanceBefore"`
	BalanceAfter  decimal.Decimal     `json:"balanceAfter"`
	Note          string              `json:"note"`
	GameCode      string              `json:"gameCode,omitempty"`
	PlayerID      string              `json:"playerId,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
}

type SessionMode string

const (
	ModeReal SessionMode = "REAL"
	ModeDemo SessionMode = "DEMO"
)

type SessionStatus string

const (
	SessionActive  SessionStatus = "active"
	SessionClosed  SessionStatus = "closed"
	SessionExpired SessionStatus = "expired"
)

type GameSession struct {
	Token      string          `json:"token"`
	PlayerID   string          `json:"playerId"`
	AgentID    string          `json:"agentId,omitempty"`
	OperatorID string          `json:"operatorId,omitempty"`
	GameCode   string          `json:"gameCode"`
	Currency   string          `json:"currency"`
	Mode       SessionMode     `json:"mode"`
	Balance    decimal.Decimal `json:"balance"`
	// BalanceStale marks the snapshot as a possibly outdated value
	// served while the remote wallet was unreachable.
	BalanceStale bool          `json:"balanceStale"`
	Status       SessionStatus `json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

type CreditState string

const (
	CreditNone    CreditState = "none"
	CreditPending CreditState = "pending"
	CreditDone    CreditState = "done"
)

type SpinTransaction struct {
	ID             string          `json:"id"`
	SessionToken   string          `json:"sessionToken"`
	AgentID        string          `json:"agentId"`
	PlayerID       string          `json:"playerId"`
	GameCode       string          `json:"gameCode"`
	RoundID        string          `json:"roundId"`
	IdempotencyKey string          `json:"idempotencyKey"`
	Bet            decimal.Decimal `json:"bet"`
	Win            decimal.Decimal `json:"win"`
	BalanceBefore  decimal.Decimal `json:"balanceBefore"`
	BalanceAfter   decimal.Decimal `json:"balanceAfter"`
	CreditState    CreditState     `json:"creditState"`
	CreatedAt      time.Time       `json:"createdAt"`
}
