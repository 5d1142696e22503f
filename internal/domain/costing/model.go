package costing

import (
	"github.com/shopspring/decimal"

	"github.com/Spok95/costing-engine/internal/domain/units"
)

type LineKind string

const (
	LineIngredient LineKind = "ingredient"
	LinePackaging  LineKind = "packaging"
)

type FormulaStatus string

const (
	FormulaDraft    FormulaStatus = "draft"
	FormulaActive   FormulaStatus = "active"
	FormulaArchived FormulaStatus = "archived"
)

// ComponentMaster is the priced inventory item a formula line consumes.
type ComponentMaster struct {
	ID              string
	Name            string
	BaseUnit        units.Kind
	CostPerBaseUnit float64  // per g / ml / each
	Density         *float64 // g per ml
}

type FormulaLine struct {
	ComponentID       string
	Kind              LineKind
	Quantity          float64
	Unit              string
	YieldPct          float64 // 0 means not set
	WasteAllowancePct float64 // percent, added on top of the line cost
}

type Labor struct {
	Rate  float64
	Hours float64
}

type Formula struct {
	ID          string
	Version     int
	Status      FormulaStatus
	Lines       []FormulaLine
	Labor       Labor
	OverheadPct float64 // fraction 0..1
}

// Components resolves a component by ID.
type Components map[string]ComponentMaster

// RollupInput carries the per-call parameters. Nil pointers fall back to the formula's values.
type RollupInput struct {
	BatchQty    float64
	Labor       *Labor
	OverheadPct *float64 // fraction 0..1
	WastePct    float64  // fraction 0..1
}

// LineResult is the full-precision costing of one formula line.
type LineResult struct {
	Index          int
	ComponentID    string
	Kind           LineKind
	BaseQty        float64
	AdjustedQty    float64
	Cost           float64
	WasteAllowance float64
	// Degraded is set when a non-finite operand was replaced by zero.
	Degraded bool
}

// UnresolvedLine is a line excluded from the totals because its unit could not be
// expressed in the component's base unit.
type UnresolvedLine struct {
	Index           int
	ComponentID     string
	Unit            string
	BaseUnit        units.Kind
	RequiresDensity bool
	Reason          units.Reason
}

// Totals holds unrounded sums.
type Totals struct {
	Ingredients float64
	Packaging   float64
	Materials   float64
	Labor       float64
	Base        float64
	Overhead    float64
	Waste       float64
	Total       float64
	UnitCost    float64
}

// CostBreakdown is the presented result of a roll-up, rounded for display.
type CostBreakdown struct {
	FormulaID      string
	FormulaVersion int
	BatchQty       float64

	Ingredients    decimal.Decimal
	Packaging      decimal.Decimal
	Materials      decimal.Decimal
	Labor          decimal.Decimal
	Overhead       decimal.Decimal
	Waste          decimal.Decimal
	Total          decimal.Decimal
	UnitCost       decimal.Decimal
	TargetPrice    decimal.Decimal
	GrossMarginPct decimal.Decimal

	Exact      Totals
	Lines      []LineResult
	Unresolved []UnresolvedLine
}

// Complete reports whether every line was priced.
func (b CostBreakdown) Complete() bool {
	if len(b.Unresolved) > 0 {
		return false
	}
	for _, l := range b.Lines {
		if l.Degraded {
			return false
		}
	}
	return true
}
