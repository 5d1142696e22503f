package containers

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/costing-engine/internal/apperr"
)

func f64(v float64) *float64 { return &v }

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func jar(status Status) Container {
	return Container{
		ID:             "jar-1",
		CalculatedTare: f64(120),
		CurrentGross:   900,
		CurrentNet:     780,
		WeightUnit:     "g",
		Status:         status,
		Version:        4,
	}
}

func reading(gross float64) CaptureRequest {
	return CaptureRequest{ContainerID: "jar-1", Gross: gross, Type: MeasureInventoryCount, Actor: "ana"}
}

func TestResolveTare(t *testing.T) {
	assert.Equal(t, 0.0, ResolveTare(Container{}))
	assert.Equal(t, 120.0, ResolveTare(Container{CalculatedTare: f64(120)}))
	assert.Equal(t, 118.0, ResolveTare(Container{CalculatedTare: f64(120), RefinedTare: f64(118)}))
	assert.Equal(t, 0.0, ResolveTare(Container{CalculatedTare: f64(120), RefinedTare: f64(0)}))
}

func TestCaptureWeight(t *testing.T) {
	t.Run("partial container keeps status", func(t *testing.T) {
		next, m, err := CaptureWeight(jar(StatusActive), reading(825), "m-1", fixedNow)
		require.NoError(t, err)
		assert.Equal(t, 705.0, next.CurrentNet)
		assert.Equal(t, 825.0, next.CurrentGross)
		assert.Equal(t, StatusActive, next.Status)
		assert.Equal(t, int64(5), next.Version)
		assert.Equal(t, fixedNow, next.UpdatedAt)

		assert.Equal(t, WeightMeasurement{
			ID:          "m-1",
			ContainerID: "jar-1",
			Gross:       825,
			TareUsed:    120,
			Net:         705,
			Type:        MeasureInventoryCount,
			MeasuredBy:  "ana",
			Timestamp:   fixedNow,
		}, m)
	})

	t.Run("gross below tare is rejected", func(t *testing.T) {
		before := jar(StatusActive)
		next, m, err := CaptureWeight(before, reading(100), "m-1", fixedNow)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNegativeNetWeight))

		var neg NegativeNetWeightError
		require.ErrorAs(t, err, &neg)
		assert.Equal(t, -20.0, neg.Net)
		assert.Equal(t, 120.0, neg.Tare)
		assert.Equal(t, before, next)
		assert.Empty(t, m.ID)
	})

	t.Run("gross equal to tare empties the container", func(t *testing.T) {
		next, m, err := CaptureWeight(jar(StatusBackstock), reading(120), "m-1", fixedNow)
		require.NoError(t, err)
		assert.Equal(t, 0.0, next.CurrentNet)
		assert.Equal(t, 0.0, m.Net)
		assert.Equal(t, StatusEmpty, next.Status)
	})

	t.Run("refined tare wins over calculated", func(t *testing.T) {
		c := jar(StatusActive)
		c.RefinedTare = f64(118)
		next, m, err := CaptureWeight(c, reading(825), "m-1", fixedNow)
		require.NoError(t, err)
		assert.Equal(t, 118.0, m.TareUsed)
		assert.Equal(t, 707.0, next.CurrentNet)
	})

	t.Run("no tare at all uses zero", func(t *testing.T) {
		c := jar(StatusActive)
		c.CalculatedTare = nil
		next, _, err := CaptureWeight(c, reading(50), "m-1", fixedNow)
		require.NoError(t, err)
		assert.Equal(t, 50.0, next.CurrentNet)
	})

	t.Run("archived container stays archived when empty", func(t *testing.T) {
		next, m, err := CaptureWeight(jar(StatusArchived), reading(120), "m-1", fixedNow)
		require.NoError(t, err)
		assert.Equal(t, StatusArchived, next.Status)
		assert.Equal(t, 0.0, m.Net)
	})

	t.Run("refill on an empty container does not reactivate it", func(t *testing.T) {
		req := reading(800)
		req.Type = MeasureRefill
		next, _, err := CaptureWeight(jar(StatusEmpty), req, "m-1", fixedNow)
		require.NoError(t, err)
		assert.Equal(t, StatusEmpty, next.Status)
		assert.Equal(t, 680.0, next.CurrentNet)
	})
}

func TestCaptureWeightValidation(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*CaptureRequest)
		field string
	}{
		{"negative gross", func(r *CaptureRequest) { r.Gross = -1 }, "gross_weight"},
		{"nan gross", func(r *CaptureRequest) { r.Gross = math.NaN() }, "gross_weight"},
		{"inf gross", func(r *CaptureRequest) { r.Gross = math.Inf(1) }, "gross_weight"},
		{"unknown type", func(r *CaptureRequest) { r.Type = "spill" }, "measurement_type"},
		{"missing actor", func(r *CaptureRequest) { r.Actor = "  " }, "measured_by"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := reading(500)
			tt.mut(&req)
			_, _, err := CaptureWeight(jar(StatusActive), req, "m-1", fixedNow)
			require.ErrorIs(t, err, apperr.ErrInvalidInput)

			var inv apperr.InvalidInputError
			require.ErrorAs(t, err, &inv)
			assert.Equal(t, tt.field, inv.Field)
		})
	}
}
