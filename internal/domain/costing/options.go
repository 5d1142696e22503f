package costing

import "math"

const (
	DefaultYieldPct       = 100.0
	DefaultMarkupMultiple = 4.0
	DefaultCurrencyPlaces = 2
	percentPlaces         = 2
)

// Options is the explicit configuration of a roll-up.
type Options struct {
	MarkupMultiple  float64
	DefaultYieldPct float64
	CurrencyPlaces  int32
}

func DefaultOptions() Options {
	return Options{
		MarkupMultiple:  DefaultMarkupMultiple,
		DefaultYieldPct: DefaultYieldPct,
		CurrencyPlaces:  DefaultCurrencyPlaces,
	}
}

func (o Options) withDefaults() Options {
	if !(o.MarkupMultiple > 0) || math.IsInf(o.MarkupMultiple, 0) {
		o.MarkupMultiple = DefaultMarkupMultiple
	}
	if !(o.DefaultYieldPct > 0) || math.IsInf(o.DefaultYieldPct, 0) {
		o.DefaultYieldPct = DefaultYieldPct
	}
	if o.CurrencyPlaces <= 0 {
		o.CurrencyPlaces = DefaultCurrencyPlaces
	}
	return o
}
