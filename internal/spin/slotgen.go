package spin

import (
	"math/rand"
	"sync"

	"github.com/shopspring/decimal"
)

// SlotGenerator is the built-in 3x3 reel generator. Rows are the
// paylines: line n covers icons [3n, 3n+2]. A line pays when all
// three icons match; the scatter icon appearing on a winning line
// grants a free-spin sequence.
type SlotGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

const scatterIcon = "seven"

var slotIcons = []string{"cherry", "lemon", "orange", "melon", "bell", "star", "seven"}

// multiplier per matched icon, in slotIcons order
var iconMultipliers = map[string]string{
	"cherry": "2",
	"lemon":  "2",
	"orange": "3",
	"melon":  "3",
	"bell":   "5",
	"star":   "8",
	"seven":  "15",
}

// weights skew the fill toward low-paying icons
var iconWeights = []int{24, 24, 18, 14, 10, 7, 3}

const freeSpinGrant = 5

func NewSlotGenerator(seed int64) *SlotGenerator {
	return &SlotGenerator{rnd: rand.New(rand.NewSource(seed))}
}

func (g *SlotGenerator) Generate(p Params) Outcome {
	g.mu.Lock()
	defer g.mu.Unlock()

	lines := p.Lines
	if lines < 1 || lines > GridSize/3 {
		lines = GridSize / 3
	}

	var out Outcome
	for i := range out.Icons {
		out.Icons[i] = g.pickIcon()
	}

	if g.rnd.Float64() >= p.WinChance {
		// Losing spin: break up any accidental line matches so the
		// grid agrees with the zero payout.
		g.breakLines(&out.Icons, lines)
		out.Win = decimal.Zero
		return out
	}

	// Winning spin: force one played line to match.
	line := g.rnd.Intn(lines)
	icon := g.pickIcon()
	base := line * 3
	for i := 0; i < 3; i++ {
		out.Icons[base+i] = icon
		out.ActiveIcons = append(out.ActiveIcons, base+i)
	}
	out.ActiveLines = []int{line}

	mult := decimal.RequireFromString(iconMultipliers[icon])
	if p.MaxMultiplier.IsPositive() && mult.GreaterThan(p.MaxMultiplier) {
		mult = p.MaxMultiplier
	}
	out.Win = p.Bet.Mul(mult).Round(2)
	if icon == scatterIcon {
		out.FreeSpins = freeSpinGrant
	}
	return out
}

func (g *SlotGenerator) pickIcon() string {
	total := 0
	for _, w := range iconWeights {
		total += w
	}
	n := g.rnd.Intn(total)
	for i, w := range iconWeights {
		if n < w {
			return slotIcons[i]
		}
		n -= w
	}
	return slotIcons[0]
}

func (g *SlotGenerator) breakLines(icons *[GridSize]string, lines int) {
	for line := 0; line < lines; line++ {
		base := line * 3
		if icons[base] == icons[base+1] && icons[base+1] == icons[base+2] {
			for {
				alt := slotIcons[g.rnd.Intn(len(slotIcons))]
				if alt != icons[base] {
					icons[base+1] = alt
					break
				}
			}
		}
	}
}
