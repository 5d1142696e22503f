package costing

import "math"

// LineCost prices one line. Non-finite operands count as zero and ok is false
// so the caller can flag the line instead of poisoning the total with NaN.
func LineCost(adjustedQty, costPerBaseUnit float64) (cost float64, ok bool) {
	ok = true
	if !finite(adjustedQty) {
		adjustedQty, ok = 0, false
	}
	if !finite(costPerBaseUnit) {
		costPerBaseUnit, ok = 0, false
	}
	cost = adjustedQty * costPerBaseUnit
	if !finite(cost) {
		return 0, false
	}
	return cost, ok
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
