package costing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/Spok95/costing-engine/internal/apperr"
	"github.com/Spok95/costing-engine/internal/domain/pricing"
	"github.com/Spok95/costing-engine/internal/domain/units"
)

// Engine rolls a formula up into a per-unit cost. It holds only configuration
// and is safe for concurrent use.
type Engine struct {
	opts    Options
	pricing *pricing.Analyzer
}

func NewEngine(opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		opts:    opts,
		pricing: pricing.NewAnalyzer(pricing.Options{MarkupMultiple: opts.MarkupMultiple}),
	}
}

func (e *Engine) Options() Options { return e.opts }

// RollUp prices every line of f against comps and aggregates labor, overhead and
// waste for a batch of in.BatchQty units. Lines whose unit cannot be converted are
// left out of the totals and reported in CostBreakdown.Unresolved.
func (e *Engine) RollUp(f Formula, comps Components, in RollupInput) (CostBreakdown, error) {
	for i, l := range f.Lines {
		c, ok := comps[l.ComponentID]
		if !ok {
			return CostBreakdown{}, apperr.NotFound(apperr.EntityComponent, l.ComponentID)
		}
		if err := c.validate(); err != nil {
			return CostBreakdown{}, err
		}
		if err := l.validate(i); err != nil {
			return CostBreakdown{}, err
		}
	}

	labor := f.Labor
	if in.Labor != nil {
		labor = *in.Labor
	}
	overheadPct := f.OverheadPct
	if in.OverheadPct != nil {
		overheadPct = *in.OverheadPct
	}
	if err := validateRollup(in.BatchQty, labor, overheadPct, in.WastePct); err != nil {
		return CostBreakdown{}, err
	}

	var (
		t          Totals
		lines      = make([]LineResult, 0, len(f.Lines))
		unresolved []UnresolvedLine
		lineWaste  float64
	)
	for i, l := range f.Lines {
		c := comps[l.ComponentID]
		conv := units.Convert(l.Quantity, l.Unit, c.BaseUnit, c.Density)
		if !conv.Resolved {
			unresolved = append(unresolved, UnresolvedLine{
				Index:           i,
				ComponentID:     l.ComponentID,
				Unit:            l.Unit,
				BaseUnit:        c.BaseUnit,
				RequiresDensity: conv.RequiresDensity,
				Reason:          conv.Reason,
			})
			continue
		}

		adjusted, err := ApplyYield(conv.Quantity, l.YieldPct, e.opts.DefaultYieldPct)
		if err != nil {
			return CostBreakdown{}, fmt.Errorf("line %d: %w", i, err)
		}
		cost, ok := LineCost(adjusted, c.CostPerBaseUnit)
		allowance := cost * l.WasteAllowancePct / 100

		lines = append(lines, LineResult{
			Index:          i,
			ComponentID:    l.ComponentID,
			Kind:           l.kind(),
			BaseQty:        conv.Quantity,
			AdjustedQty:    adjusted,
			Cost:           cost,
			WasteAllowance: allowance,
			Degraded:       !ok,
		})

		if l.kind() == LinePackaging {
			t.Packaging += cost
		} else {
			t.Ingredients += cost
		}
		lineWaste += allowance
	}

	t.Materials = t.Ingredients + t.Packaging
	t.Labor = labor.Rate * labor.Hours
	t.Base = t.Materials + t.Labor
	t.Overhead = t.Base * overheadPct
	t.Waste = t.Base*in.WastePct + lineWaste
	t.Total = t.Base + t.Overhead + t.Waste
	if in.BatchQty > 0 {
		t.UnitCost = t.Total / in.BatchQty
	}

	return e.present(f, in.BatchQty, t, lines, unresolved)
}

func (e *Engine) present(f Formula, batch float64, t Totals, lines []LineResult, unresolved []UnresolvedLine) (CostBreakdown, error) {
	places := e.opts.CurrencyPlaces
	money := func(v float64) decimal.Decimal { return decimal.NewFromFloat(v).Round(places) }

	unitCost := money(t.UnitCost)
	analysis, err := e.pricing.Analyze(pricing.Input{UnitCost: unitCost.InexactFloat64()})
	if err != nil {
		return CostBreakdown{}, err
	}

	return CostBreakdown{
		FormulaID:      f.ID,
		FormulaVersion: f.Version,
		BatchQty:       batch,
		Ingredients:    money(t.Ingredients),
		Packaging:      money(t.Packaging),
		Materials:      money(t.Materials),
		Labor:          money(t.Labor),
		Overhead:       money(t.Overhead),
		Waste:          money(t.Waste),
		Total:          money(t.Total),
		UnitCost:       unitCost,
		TargetPrice:    money(analysis.TargetPrice),
		GrossMarginPct: decimal.NewFromFloat(analysis.GrossMarginPct).Round(percentPlaces),
		Exact:          t,
		Lines:          lines,
		Unresolved:     unresolved,
	}, nil
}

func (l FormulaLine) kind() LineKind {
	if l.Kind == LinePackaging {
		return LinePackaging
	}
	return LineIngredient
}

func (l FormulaLine) validate(i int) error {
	if !finite(l.Quantity) || l.Quantity <= 0 {
		return apperr.Invalid(fmt.Sprintf("lines[%d].quantity", i), "must be a finite number > 0")
	}
	if math.IsNaN(l.YieldPct) || math.IsInf(l.YieldPct, 0) {
		return apperr.Invalid(fmt.Sprintf("lines[%d].yield_pct", i), "must be a finite number")
	}
	if !nonNegative(l.WasteAllowancePct) {
		return apperr.Invalid(fmt.Sprintf("lines[%d].waste_allowance_pct", i), "must be a finite number >= 0")
	}
	return nil
}

func (c ComponentMaster) validate() error {
	if !c.BaseUnit.Valid() {
		return apperr.Invalid("component "+c.ID+" base_unit", fmt.Sprintf("unknown unit kind %q", c.BaseUnit))
	}
	if c.CostPerBaseUnit < 0 {
		return apperr.Invalid("component "+c.ID+" cost_per_base_unit", "must be >= 0")
	}
	return nil
}

func validateRollup(batch float64, labor Labor, overheadPct, wastePct float64) error {
	if !nonNegative(batch) {
		return apperr.Invalid("batch_qty", "must be a finite number >= 0")
	}
	if !nonNegative(labor.Rate) {
		return apperr.Invalid("labor_rate", "must be a finite number >= 0")
	}
	if !nonNegative(labor.Hours) {
		return apperr.Invalid("labor_hours", "must be a finite number >= 0")
	}
	if !fraction(overheadPct) {
		return apperr.Invalid("overhead_pct", "must be a fraction between 0 and 1")
	}
	if !fraction(wastePct) {
		return apperr.Invalid("waste_pct", "must be a fraction between 0 and 1")
	}
	return nil
}

func nonNegative(v float64) bool { return finite(v) && v >= 0 }

func fraction(v float64) bool { return nonNegative(v) && v <= 1 }
