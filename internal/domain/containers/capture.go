package containers

import (
	"math"
	"strings"
	"time"

	"github.com/Spok95/costing-engine/internal/apperr"
)

// ResolveTare returns the refined tare when present, else the calculated tare, else 0.
func ResolveTare(c Container) float64 {
	if c.RefinedTare != nil {
		return *c.RefinedTare
	}
	if c.CalculatedTare != nil {
		return *c.CalculatedTare
	}
	return 0
}

// CaptureWeight applies a gross reading to c and builds the ledger row for it.
// It does not touch storage; on error c is returned unchanged.
func CaptureWeight(c Container, req CaptureRequest, measurementID string, now time.Time) (Container, WeightMeasurement, error) {
	if err := req.validate(); err != nil {
		return c, WeightMeasurement{}, err
	}

	tare := ResolveTare(c)
	next, net, err := applyReading(c, req.Gross, tare)
	if err != nil {
		return c, WeightMeasurement{}, err
	}
	next.Version = c.Version + 1
	next.UpdatedAt = now

	m := WeightMeasurement{
		ID:          measurementID,
		ContainerID: c.ID,
		Gross:       req.Gross,
		TareUsed:    tare,
		Net:         net,
		Type:        req.Type,
		MeasuredBy:  req.Actor,
		Notes:       req.Notes,
		Timestamp:   now,
	}
	return next, m, nil
}

// applyReading sets gross and net on c. A net weight <= 0 empties the container
// unless it is archived; archived containers never change status automatically.
func applyReading(c Container, gross, tare float64) (Container, float64, error) {
	net := gross - tare
	if net < 0 {
		return c, net, NegativeNetWeightError{ContainerID: c.ID, Gross: gross, Tare: tare, Net: net}
	}
	c.CurrentGross = gross
	c.CurrentNet = net
	if net <= 0 && c.Status != StatusArchived {
		c.Status = StatusEmpty
	}
	return c, net, nil
}

func (r CaptureRequest) validate() error {
	if math.IsNaN(r.Gross) || math.IsInf(r.Gross, 0) || r.Gross < 0 {
		return apperr.Invalid("gross_weight", "must be a finite number >= 0")
	}
	if !r.Type.Valid() {
		return apperr.Invalid("measurement_type", "unknown measurement type "+string(r.Type))
	}
	if strings.TrimSpace(r.Actor) == "" {
		return apperr.Invalid("measured_by", "is required")
	}
	return nil
}
