package units

// Kind is the base unit family a quantity or a component price is expressed in.
type Kind string

const (
	KindMass   Kind = "mass"
	KindVolume Kind = "volume"
	KindCount  Kind = "count"
)

// Reason explains why a conversion produced no quantity.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonInvalidQuantity Reason = "invalid_quantity"
	ReasonUnknownUnit     Reason = "unknown_unit"
	ReasonRequiresDensity Reason = "requires_density"
	ReasonUnsupported     Reason = "unsupported_conversion"
)

// Conversion is the outcome of Convert. Quantity is meaningful only when Resolved is true.
type Conversion struct {
	Quantity        float64
	Resolved        bool
	RequiresDensity bool
	Reason          Reason
}

func (k Kind) Valid() bool {
	switch k {
	case KindMass, KindVolume, KindCount:
		return true
	}
	return false
}
