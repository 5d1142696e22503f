package costing

import (
	"math"

	"github.com/Spok95/costing-engine/internal/apperr"
)

// ApplyYield inflates baseQty so that yieldPct percent of it survives the process.
// A yield <= 0 falls back to defaultPct (100 when defaultPct is itself unusable).
func ApplyYield(baseQty, yieldPct, defaultPct float64) (float64, error) {
	if math.IsNaN(baseQty) || math.IsInf(baseQty, 0) {
		return 0, apperr.Invalid("quantity", "must be a finite number")
	}
	if yieldPct <= 0 {
		yieldPct = defaultPct
		if !(yieldPct > 0) {
			yieldPct = DefaultYieldPct
		}
	}
	if math.IsNaN(yieldPct) || math.IsInf(yieldPct, 0) {
		return 0, apperr.Invalid("yield_pct", "must be a finite number")
	}
	return baseQty / (yieldPct / 100), nil
}
