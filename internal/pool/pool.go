// Package pool owns each agent's liquidity pool: its balance, its
// risk phase, and the payout caps derived from both. All mutation
// happens through the Manager under the agent's resource lock: the
// admin operations take it themselves, the settlement engine holds it
// across the whole spin.
package pool

import (
	"errors"

	"spinhub/internal/store"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInsufficientPoolBalance = errors.New("insufficient pool balance")
	ErrInvalidPhase            = errors.New("invalid phase")
	// ErrPoolBusy means the agent lock could not be taken within the
	// wait bound; the admin operation should be retried.
	ErrPoolBusy = errors.New("pool busy")
)

// Limits is what the settlement engine and the outcome generator are
// allowed to work with for one bet under the current phase.
type Limits struct {
	Phase         store.PoolPhase `json:"phase"`
	WinChance     float64         `json:"winChance"`
	MaxMultiplier decimal.Decimal `json:"maxMultiplier"`
	MaxPayout     decimal.Decimal `json:"maxPayout"`
	CanPay        bool            `json:"canPay"`
	Reason        string          `json:"reason,omitempty"`
}

func phaseSettings(p *store.AgentPool, phase store.PoolPhase) (float64, decimal.Decimal) {
	switch phase {
	case store.PhaseRetention:
		return p.RetentionWinChance, p.RetentionMaxMultiplier
	case store.PhaseRelease:
		return p.ReleaseWinChance, p.ReleaseMaxMultiplier
	default:
		return p.NormalWinChance, p.NormalMaxMultiplier
	}
}

func validPhase(phase store.PoolPhase) bool {
	switch phase {
	case store.PhaseRetention, store.PhaseNormal, store.PhaseRelease:
		return true
	}
	return false
}
