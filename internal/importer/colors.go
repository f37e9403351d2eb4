package importer

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/tillbook/tillbook/internal/database/repository"
)

// goldenAngle spaces successive hues so regenerated palettes look curated
// rather than random.
const goldenAngle = 137.50776405003785

// Base hue per domain; categories within a domain fan out from it.
var domainBaseHue = map[string]float64{
	repository.TypeExpense:    25,
	repository.TypeIncome:     140,
	repository.TypeInvestment: 260,
}

// paletteColor returns a deterministic hex color for the index-th new
// category of a domain within one import run.
func paletteColor(domain string, index int) string {
	base, ok := domainBaseHue[domain]
	if !ok {
		base = domainBaseHue[repository.TypeExpense]
	}
	hue := math.Mod(base+float64(index)*goldenAngle, 360)
	return colorful.Hsl(hue, 0.55, 0.62).Hex()
}
