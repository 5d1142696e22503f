package units

import (
	"math"
	"strings"
)

// synonyms maps every accepted unit token (lower-cased) to its kind.
// Scaled units (kg, l, oz) are not accepted; a same-kind conversion never rescales.
var synonyms = map[string]Kind{
	"g":       KindMass,
	"gr":      KindMass,
	"gram":    KindMass,
	"grams":   KindMass,
	"gramme":  KindMass,
	"grammes": KindMass,

	"ml":          KindVolume,
	"cc":          KindVolume,
	"milliliter":  KindVolume,
	"milliliters": KindVolume,
	"millilitre":  KindVolume,
	"millilitres": KindVolume,

	"each":   KindCount,
	"ea":     KindCount,
	"unit":   KindCount,
	"units":  KindCount,
	"pc":     KindCount,
	"pcs":    KindCount,
	"piece":  KindCount,
	"pieces": KindCount,
	"ct":     KindCount,
	"count":  KindCount,
}

// Normalize resolves a unit token (or a kind name) to its Kind.
func Normalize(token string) (Kind, bool) {
	t := strings.ToLower(strings.TrimSpace(token))
	if k := Kind(t); k.Valid() {
		return k, true
	}
	k, ok := synonyms[t]
	return k, ok
}

// Convert expresses qty, given in fromUnit, in the toBase kind.
// density is mass per unit volume (g/ml) and is only consulted for mass<->volume.
func Convert(qty float64, fromUnit string, toBase Kind, density *float64) Conversion {
	if math.IsNaN(qty) || math.IsInf(qty, 0) {
		return Conversion{Reason: ReasonInvalidQuantity}
	}
	from, ok := Normalize(fromUnit)
	if !ok || !toBase.Valid() {
		return Conversion{Reason: ReasonUnknownUnit}
	}
	if from == toBase {
		return Conversion{Quantity: qty, Resolved: true}
	}
	if from == KindCount || toBase == KindCount {
		return Conversion{Reason: ReasonUnsupported}
	}

	if density == nil || !(*density > 0) || math.IsInf(*density, 0) {
		return Conversion{RequiresDensity: true, Reason: ReasonRequiresDensity}
	}
	d := *density
	if from == KindMass {
		return Conversion{Quantity: qty / d, Resolved: true}
	}
	return Conversion{Quantity: qty * d, Resolved: true}
}
