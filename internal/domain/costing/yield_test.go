package costing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/costing-engine/internal/apperr"
)

func TestApplyYield(t *testing.T) {
	cases := []struct {
		name  string
		qty   float64
		yield float64
		want  float64
	}{
		{"full yield is identity", 42, 100, 42},
		{"half yield doubles", 42, 50, 84},
		{"zero yield falls back to default", 42, 0, 42},
		{"negative yield falls back to default", 42, -5, 42},
		{"over-recovery shrinks requirement", 120, 120, 100},
		{"typical loss", 500, 95, 526.3157894736842},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ApplyYield(tc.qty, tc.yield, DefaultYieldPct)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestApplyYieldConfiguredDefault(t *testing.T) {
	got, err := ApplyYield(90, 0, 90)
	require.NoError(t, err)
	assert.InDelta(t, 100, got, 1e-9)

	got, err = ApplyYield(90, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 90.0, got)
}

func TestApplyYieldRejectsNonFinite(t *testing.T) {
	_, err := ApplyYield(10, math.NaN(), DefaultYieldPct)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = ApplyYield(10, math.Inf(1), DefaultYieldPct)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = ApplyYield(math.NaN(), 100, DefaultYieldPct)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestLineCost(t *testing.T) {
	cost, ok := LineCost(526.3157894736842, 0.023)
	assert.True(t, ok)
	assert.InDelta(t, 12.105263, cost, 1e-6)

	cost, ok = LineCost(math.NaN(), 0.023)
	assert.False(t, ok)
	assert.Zero(t, cost)

	cost, ok = LineCost(10, math.Inf(1))
	assert.False(t, ok)
	assert.Zero(t, cost)

	cost, ok = LineCost(0, 5)
	assert.True(t, ok)
	assert.Zero(t, cost)
}
