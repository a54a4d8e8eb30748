package spin

import (
	"github.com/shopspring/decimal"
)

// GridSize is the icon count of the 3x3 reel grid the wire format
// carries.
const GridSize = 9

// Outcome is what one generator call produced. Win is the raw,
// uncapped amount; the pool decides what actually gets paid.
type Outcome struct {
	Win         decimal.Decimal
	Icons       [GridSize]string
	ActiveIcons []int
	ActiveLines []int
	// FreeSpins is the bonus round count a scatter hit granted, zero
	// for ordinary spins.
	FreeSpins int
}

// Params carries the limits the pool allows the generator to work
// within. WinChance is the probability of any win; MaxMultiplier
// bounds the proposed payout relative to the bet.
type Params struct {
	Bet           decimal.Decimal
	Lines         int
	WinChance     float64
	MaxMultiplier decimal.Decimal
}

// Generator resolves a spin. Implementations must be side-effect-free;
// the engine treats the call as pure computation.
type Generator interface {
	Generate(p Params) Outcome
}
