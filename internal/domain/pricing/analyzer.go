// Package pricing derives selling-price metrics from a manufacturing unit cost.
package pricing

import (
	"encoding/json"
	"math"

	"github.com/shopspring/decimal"

	"github.com/Spok95/costing-engine/internal/apperr"
)

const DefaultMarkupMultiple = 4.0

// Options is the explicit pricing configuration.
type Options struct {
	MarkupMultiple float64
}

type Input struct {
	UnitCost float64
	// MarkupMultiple overrides Options.MarkupMultiple when > 0.
	MarkupMultiple float64
	// ExplicitPrice, when set, is used instead of the markup.
	ExplicitPrice  *float64
	FixedCosts     float64
	ChannelFeesPct float64 // 0..100
}

// BreakEven is a unit count; +Inf means break-even cannot be reached.
type BreakEven float64

var Unreachable = BreakEven(math.Inf(1))

// maxBreakEven is the first unit count that no longer fits an int64 (2^63).
const maxBreakEven = float64(1 << 63)

func (b BreakEven) Reachable() bool { return float64(b) < maxBreakEven }

func (b BreakEven) MarshalJSON() ([]byte, error) {
	if !b.Reachable() {
		return json.Marshal("unreachable")
	}
	return json.Marshal(int64(b))
}

type Analysis struct {
	TargetPrice        float64
	GrossMarginPct     float64
	ContributionMargin float64
	BreakEvenUnits     BreakEven
}

type Analyzer struct {
	opts Options
}

func NewAnalyzer(opts Options) *Analyzer {
	if !(opts.MarkupMultiple > 0) || math.IsInf(opts.MarkupMultiple, 0) {
		opts.MarkupMultiple = DefaultMarkupMultiple
	}
	return &Analyzer{opts: opts}
}

func (a *Analyzer) Analyze(in Input) (Analysis, error) {
	if err := in.validate(); err != nil {
		return Analysis{}, err
	}

	var price float64
	if in.ExplicitPrice != nil {
		price = *in.ExplicitPrice
	} else {
		markup := a.opts.MarkupMultiple
		if in.MarkupMultiple > 0 {
			markup = in.MarkupMultiple
		}
		price = in.UnitCost * markup
	}

	var out Analysis
	out.TargetPrice = price
	if price > 0 {
		out.GrossMarginPct = (price - in.UnitCost) / price * 100
	}
	out.ContributionMargin = price - in.UnitCost - price*(in.ChannelFeesPct/100)
	out.BreakEvenUnits = breakEven(in.FixedCosts, out.ContributionMargin)
	return out, nil
}

func breakEven(fixed, contribution float64) BreakEven {
	if !(contribution > 0) {
		return Unreachable
	}
	units := math.Ceil(fixed / contribution)
	if math.IsNaN(units) || units >= maxBreakEven {
		return Unreachable
	}
	return BreakEven(units)
}

func (in Input) validate() error {
	if !nonNegative(in.UnitCost) {
		return apperr.Invalid("unit_cost", "must be a finite number >= 0")
	}
	if math.IsNaN(in.MarkupMultiple) || math.IsInf(in.MarkupMultiple, 0) || in.MarkupMultiple < 0 {
		return apperr.Invalid("markup_multiple", "must be a finite number > 0")
	}
	if in.ExplicitPrice != nil && !nonNegative(*in.ExplicitPrice) {
		return apperr.Invalid("price", "must be a finite number >= 0")
	}
	if !nonNegative(in.FixedCosts) {
		return apperr.Invalid("fixed_costs", "must be a finite number >= 0")
	}
	if !nonNegative(in.ChannelFeesPct) || in.ChannelFeesPct > 100 {
		return apperr.Invalid("channel_fees_pct", "must be between 0 and 100")
	}
	return nil
}

func nonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

const percentPlaces = 2

// Rounded is Analysis prepared for display. Its JSON form renders money with
// exactly the currency places and percentages with two places.
type Rounded struct {
	TargetPrice        decimal.Decimal
	GrossMarginPct     decimal.Decimal
	ContributionMargin decimal.Decimal
	BreakEvenUnits     BreakEven

	places int32
}

func (a Analysis) Round(currencyPlaces int32) Rounded {
	return Rounded{
		TargetPrice:        decimal.NewFromFloat(a.TargetPrice).Round(currencyPlaces),
		GrossMarginPct:     decimal.NewFromFloat(a.GrossMarginPct).Round(percentPlaces),
		ContributionMargin: decimal.NewFromFloat(a.ContributionMargin).Round(currencyPlaces),
		BreakEvenUnits:     a.BreakEvenUnits,
		places:             currencyPlaces,
	}
}

func (r Rounded) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TargetPrice        string    `json:"target_price"`
		GrossMarginPct     string    `json:"gross_margin_pct"`
		ContributionMargin string    `json:"contribution_margin"`
		BreakEvenUnits     BreakEven `json:"break_even_units"`
	}{
		TargetPrice:        r.TargetPrice.StringFixed(r.places),
		GrossMarginPct:     r.GrossMarginPct.StringFixed(percentPlaces),
		ContributionMargin: r.ContributionMargin.StringFixed(r.places),
		BreakEvenUnits:     r.BreakEvenUnits,
	})
}
