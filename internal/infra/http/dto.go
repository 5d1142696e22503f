package http

import (
	"math"
	"strings"
	"time"

	"github.com/Spok95/costing-engine/internal/domain/containers"
	"github.com/Spok95/costing-engine/internal/domain/costing"
	"github.com/Spok95/costing-engine/internal/domain/pricing"
	"github.com/Spok95/costing-engine/internal/domain/units"
)

type fieldErrors map[string]string

func (f fieldErrors) add(field, reason string) {
	if _, ok := f[field]; !ok {
		f[field] = reason
	}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

/* roll-ups */

type componentDTO struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	BaseUnit        string   `json:"base_unit"`
	CostPerBaseUnit float64  `json:"cost_per_base_unit"`
	Density         *float64 `json:"density,omitempty"`
}

type lineDTO struct {
	ComponentID       string  `json:"component_id"`
	Kind              string  `json:"kind"`
	Quantity          float64 `json:"quantity"`
	Unit              string  `json:"unit"`
	YieldPct          float64 `json:"yield_pct"`
	WasteAllowancePct float64 `json:"waste_allowance_pct"`
}

type formulaDTO struct {
	ID          string    `json:"id"`
	Version     int       `json:"version"`
	Status      string    `json:"status"`
	Lines       []lineDTO `json:"lines"`
	LaborRate   float64   `json:"labor_rate"`
	LaborHours  float64   `json:"labor_hours"`
	OverheadPct float64   `json:"overhead_pct"`
}

// rollupRequest either names a stored formula or carries one inline together
// with its components.
type rollupRequest struct {
	FormulaID   string         `json:"formula_id"`
	Formula     *formulaDTO    `json:"formula"`
	Components  []componentDTO `json:"components"`
	BatchQty    *float64       `json:"batch_qty"`
	LaborRate   *float64       `json:"labor_rate"`
	LaborHours  *float64       `json:"labor_hours"`
	OverheadPct *float64       `json:"overhead_pct"`
	WastePct    float64        `json:"waste_pct"`
}

func (r rollupRequest) validate() fieldErrors {
	errs := fieldErrors{}
	switch {
	case r.FormulaID == "" && r.Formula == nil:
		errs.add("formula_id", "formula_id or formula is required")
	case r.FormulaID != "" && r.Formula != nil:
		errs.add("formula", "give either formula_id or formula, not both")
	}
	if r.BatchQty == nil {
		errs.add("batch_qty", "is required")
	}
	if (r.LaborRate == nil) != (r.LaborHours == nil) {
		errs.add("labor_rate", "labor_rate and labor_hours must be given together")
	}
	if r.Formula != nil {
		if strings.TrimSpace(r.Formula.ID) == "" {
			errs.add("formula.id", "is required")
		}
		if r.Formula.Status != "" {
			switch costing.FormulaStatus(r.Formula.Status) {
			case costing.FormulaDraft, costing.FormulaActive, costing.FormulaArchived:
			default:
				errs.add("formula.status", "must be draft, active or archived")
			}
		}
		for _, l := range r.Formula.Lines {
			if l.Kind != "" && l.Kind != string(costing.LineIngredient) && l.Kind != string(costing.LinePackaging) {
				errs.add("formula.lines.kind", "must be ingredient or packaging")
			}
		}
		seen := make(map[string]struct{}, len(r.Components))
		for _, c := range r.Components {
			if strings.TrimSpace(c.ID) == "" {
				errs.add("components.id", "is required")
			}
			if _, dup := seen[c.ID]; dup {
				errs.add("components.id", "duplicate component "+c.ID)
			}
			seen[c.ID] = struct{}{}
			if _, ok := units.Normalize(c.BaseUnit); !ok {
				errs.add("components.base_unit", "unknown unit "+c.BaseUnit)
			}
		}
	} else if len(r.Components) > 0 {
		errs.add("components", "only allowed with an inline formula")
	}
	return errs
}

func (r rollupRequest) input() costing.RollupInput {
	in := costing.RollupInput{WastePct: r.WastePct, OverheadPct: r.OverheadPct}
	if r.BatchQty != nil {
		in.BatchQty = *r.BatchQty
	}
	if r.LaborRate != nil && r.LaborHours != nil {
		in.Labor = &costing.Labor{Rate: *r.LaborRate, Hours: *r.LaborHours}
	}
	return in
}

func (f formulaDTO) toDomain() costing.Formula {
	out := costing.Formula{
		ID:          f.ID,
		Version:     f.Version,
		Status:      costing.FormulaStatus(f.Status),
		Labor:       costing.Labor{Rate: f.LaborRate, Hours: f.LaborHours},
		OverheadPct: f.OverheadPct,
		Lines:       make([]costing.FormulaLine, 0, len(f.Lines)),
	}
	for _, l := range f.Lines {
		out.Lines = append(out.Lines, costing.FormulaLine{
			ComponentID:       l.ComponentID,
			Kind:              costing.LineKind(l.Kind),
			Quantity:          l.Quantity,
			Unit:              l.Unit,
			YieldPct:          l.YieldPct,
			WasteAllowancePct: l.WasteAllowancePct,
		})
	}
	return out
}

func componentsToDomain(in []componentDTO) costing.Components {
	out := make(costing.Components, len(in))
	for _, c := range in {
		kind, _ := units.Normalize(c.BaseUnit)
		out[c.ID] = costing.ComponentMaster{
			ID:              c.ID,
			Name:            c.Name,
			BaseUnit:        kind,
			CostPerBaseUnit: c.CostPerBaseUnit,
			Density:         c.Density,
		}
	}
	return out
}

type batchRollupRequest struct {
	Items []rollupRequest `json:"items"`
}

func (r batchRollupRequest) validate() fieldErrors {
	errs := fieldErrors{}
	if len(r.Items) == 0 {
		errs.add("items", "at least one item is required")
	}
	for _, it := range r.Items {
		if it.Formula != nil {
			errs.add("items.formula", "batch roll-ups take formula_id only")
			continue
		}
		for k, v := range it.validate() {
			errs.add("items."+k, v)
		}
	}
	return errs
}

type lineResultDTO struct {
	Index          int     `json:"index"`
	ComponentID    string  `json:"component_id"`
	Kind           string  `json:"kind"`
	BaseQty        float64 `json:"base_qty"`
	AdjustedQty    float64 `json:"adjusted_qty"`
	Cost           float64 `json:"cost"`
	WasteAllowance float64 `json:"waste_allowance"`
	Degraded       bool    `json:"degraded,omitempty"`
}

type unresolvedDTO struct {
	Index           int    `json:"index"`
	ComponentID     string `json:"component_id"`
	Unit            string `json:"unit"`
	BaseUnit        string `json:"base_unit"`
	RequiresDensity bool   `json:"requires_density"`
	Reason          string `json:"reason"`
}

type breakdownDTO struct {
	FormulaID      string          `json:"formula_id"`
	FormulaVersion int             `json:"formula_version"`
	BatchQty       float64         `json:"batch_qty"`
	Ingredients    string          `json:"ingredients"`
	Packaging      string          `json:"packaging"`
	Materials      string          `json:"materials"`
	Labor          string          `json:"labor"`
	Overhead       string          `json:"overhead"`
	Waste          string          `json:"waste"`
	Total          string          `json:"total"`
	UnitCost       string          `json:"unit_cost"`
	TargetPrice    string          `json:"target_price"`
	GrossMarginPct string          `json:"gross_margin_pct"`
	Complete       bool            `json:"complete"`
	Lines          []lineResultDTO `json:"lines"`
	Unresolved     []unresolvedDTO `json:"unresolved"`
}

func newBreakdownDTO(b costing.CostBreakdown, places int32) breakdownDTO {
	out := breakdownDTO{
		FormulaID:      b.FormulaID,
		FormulaVersion: b.FormulaVersion,
		BatchQty:       b.BatchQty,
		Ingredients:    b.Ingredients.StringFixed(places),
		Packaging:      b.Packaging.StringFixed(places),
		Materials:      b.Materials.StringFixed(places),
		Labor:          b.Labor.StringFixed(places),
		Overhead:       b.Overhead.StringFixed(places),
		Waste:          b.Waste.StringFixed(places),
		Total:          b.Total.StringFixed(places),
		UnitCost:       b.UnitCost.StringFixed(places),
		TargetPrice:    b.TargetPrice.StringFixed(places),
		GrossMarginPct: b.GrossMarginPct.StringFixed(2),
		Complete:       b.Complete(),
		Lines:          make([]lineResultDTO, 0, len(b.Lines)),
		Unresolved:     make([]unresolvedDTO, 0, len(b.Unresolved)),
	}
	for _, l := range b.Lines {
		out.Lines = append(out.Lines, lineResultDTO{
			Index: l.Index, ComponentID: l.ComponentID, Kind: string(l.Kind),
			BaseQty: l.BaseQty, AdjustedQty: l.AdjustedQty, Cost: l.Cost,
			WasteAllowance: l.WasteAllowance, Degraded: l.Degraded,
		})
	}
	for _, u := range b.Unresolved {
		out.Unresolved = append(out.Unresolved, unresolvedDTO{
			Index: u.Index, ComponentID: u.ComponentID, Unit: u.Unit, BaseUnit: string(u.BaseUnit),
			RequiresDensity: u.RequiresDensity, Reason: string(u.Reason),
		})
	}
	return out
}

/* pricing */

type pricingRequest struct {
	UnitCost       *float64 `json:"unit_cost"`
	MarkupMultiple float64  `json:"markup_multiple"`
	ExplicitPrice  *float64 `json:"explicit_price"`
	FixedCosts     float64  `json:"fixed_costs"`
	ChannelFeesPct float64  `json:"channel_fees_pct"`
}

func (r pricingRequest) validate() fieldErrors {
	errs := fieldErrors{}
	if r.UnitCost == nil {
		errs.add("unit_cost", "is required")
	}
	return errs
}

func (r pricingRequest) input() pricing.Input {
	in := pricing.Input{
		MarkupMultiple: r.MarkupMultiple,
		ExplicitPrice:  r.ExplicitPrice,
		FixedCosts:     r.FixedCosts,
		ChannelFeesPct: r.ChannelFeesPct,
	}
	if r.UnitCost != nil {
		in.UnitCost = *r.UnitCost
	}
	return in
}

/* containers */

type captureRequest struct {
	GrossWeight     *float64 `json:"gross_weight"`
	MeasurementType string   `json:"measurement_type"`
	MeasuredBy      string   `json:"measured_by"`
	Notes           string   `json:"notes"`
}

func (r captureRequest) validate() fieldErrors {
	errs := fieldErrors{}
	if r.GrossWeight == nil {
		errs.add("gross_weight", "is required")
	} else if !finite(*r.GrossWeight) || *r.GrossWeight < 0 {
		errs.add("gross_weight", "must be a finite number >= 0")
	}
	if !containers.MeasurementType(r.MeasurementType).Valid() {
		errs.add("measurement_type", "must be inventory_count, production_use, adjustment or refill")
	}
	if strings.TrimSpace(r.MeasuredBy) == "" {
		errs.add("measured_by", "is required")
	}
	return errs
}

type statusRequest struct {
	Status string `json:"status"`
	Actor  string `json:"actor"`
}

func (r statusRequest) validate() fieldErrors {
	errs := fieldErrors{}
	if !containers.Status(r.Status).Valid() {
		errs.add("status", "must be active, backstock, quarantine, empty or archived")
	}
	if strings.TrimSpace(r.Actor) == "" {
		errs.add("actor", "is required")
	}
	return errs
}

type tareRequest struct {
	RefinedTareWeight *float64 `json:"refined_tare_weight"`
	Actor             string   `json:"actor"`
}

func (r tareRequest) validate() fieldErrors {
	errs := fieldErrors{}
	if t := r.RefinedTareWeight; t != nil && (!finite(*t) || *t < 0) {
		errs.add("refined_tare_weight", "must be a finite number >= 0")
	}
	if strings.TrimSpace(r.Actor) == "" {
		errs.add("actor", "is required")
	}
	return errs
}

type containerDTO struct {
	ID                   string    `json:"id"`
	CalculatedTareWeight *float64  `json:"calculated_tare_weight"`
	RefinedTareWeight    *float64  `json:"refined_tare_weight"`
	TareWeight           float64   `json:"tare_weight"`
	CurrentGrossWeight   float64   `json:"current_gross_weight"`
	CurrentNetWeight     float64   `json:"current_net_weight"`
	WeightUnit           string    `json:"weight_unit"`
	Status               string    `json:"status"`
	Version              int64     `json:"version"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func newContainerDTO(c containers.Container) containerDTO {
	return containerDTO{
		ID:                   c.ID,
		CalculatedTareWeight: c.CalculatedTare,
		RefinedTareWeight:    c.RefinedTare,
		TareWeight:           containers.ResolveTare(c),
		CurrentGrossWeight:   c.CurrentGross,
		CurrentNetWeight:     c.CurrentNet,
		WeightUnit:           c.WeightUnit,
		Status:               string(c.Status),
		Version:              c.Version,
		UpdatedAt:            c.UpdatedAt,
	}
}

type measurementDTO struct {
	ID              string    `json:"id"`
	ContainerID     string    `json:"container_id"`
	GrossWeight     float64   `json:"gross_weight"`
	TareWeightUsed  float64   `json:"tare_weight_used"`
	NetWeight       float64   `json:"net_weight"`
	MeasurementType string    `json:"measurement_type"`
	MeasuredBy      string    `json:"measured_by"`
	Notes           string    `json:"notes,omitempty"`
	MeasuredAt      time.Time `json:"measured_at"`
}

func newMeasurementDTO(m containers.WeightMeasurement) measurementDTO {
	return measurementDTO{
		ID:              m.ID,
		ContainerID:     m.ContainerID,
		GrossWeight:     m.Gross,
		TareWeightUsed:  m.TareUsed,
		NetWeight:       m.Net,
		MeasurementType: string(m.Type),
		MeasuredBy:      m.MeasuredBy,
		Notes:           m.Notes,
		MeasuredAt:      m.Timestamp,
	}
}

type captureResponse struct {
	Container   containerDTO   `json:"container"`
	Measurement measurementDTO `json:"measurement"`
}
