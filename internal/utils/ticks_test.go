package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceToTickRoundTrip(t *testing.T) {
	for _, price := range []float64{0.001, 0.45, 1.0, 42.5, 3000.0} {
		tick, err := PriceToTick(price)
		require.NoError(t, err)

		back := TickToPrice(tick)
		// A single tick is a 1bp price step, so the round trip lands
		// within half a tick of the input.
		assert.InEpsilon(t, price, back, 0.0001, "price %v", price)
	}
}

func TestPriceToTickRejectsBadInput(t *testing.T) {
	_, err := PriceToTick(0)
	assert.ErrorIs(t, err, ErrNonPositivePrice)

	_, err = PriceToTick(-1.5)
	assert.ErrorIs(t, err, ErrNonPositivePrice)

	_, err = PriceToTick(math.NaN())
	assert.ErrorIs(t, err, ErrNotFinite)

	_, err = PriceToTick(math.Inf(1))
	assert.ErrorIs(t, err, ErrNotFinite)
}

func TestFloorTickToSpacing(t *testing.T) {
	tests := []struct {
		name     string
		tick     int
		spacing  int
		expected int
	}{
		{"exact multiple", 120, 60, 120},
		{"rounds down", 119, 60, 60},
		{"just above multiple", 61, 60, 60},
		{"negative tick floors toward -inf", -1, 60, -60},
		{"negative exact multiple", -120, 60, -120},
		{"negative mid-interval", -90, 60, -120},
		{"zero tick", 0, 60, 0},
		{"spacing one is identity", 7919, 1, 7919},
		{"non-positive spacing is identity", 123, 0, 123},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FloorTickToSpacing(tt.tick, tt.spacing))
		})
	}
}

func TestAlignPriceToTickSpacing(t *testing.T) {
	aligned := AlignPriceToTickSpacing(0.45, 60)

	// Aligned price never exceeds the input and sits on a spacing multiple.
	assert.LessOrEqual(t, aligned, 0.45)
	tick, err := PriceToTick(aligned)
	require.NoError(t, err)
	assert.Zero(t, tick%60)

	// One spacing step below at most.
	assert.Greater(t, aligned, 0.45*math.Pow(1.0001, -60))
}

func TestAlignPriceToTickSpacingIdempotent(t *testing.T) {
	for _, price := range []float64{0.45, 1.0, 1234.56} {
		once := AlignPriceToTickSpacing(price, 60)
		twice := AlignPriceToTickSpacing(once, 60)
		assert.InDelta(t, once, twice, 1e-12, "price %v", price)
	}
}

func TestAlignPriceToTickSpacingDegenerateInputs(t *testing.T) {
	// Non-positive and non-finite prices come back unchanged.
	assert.Equal(t, 0.0, AlignPriceToTickSpacing(0, 60))
	assert.Equal(t, -3.0, AlignPriceToTickSpacing(-3, 60))
	assert.True(t, math.IsNaN(AlignPriceToTickSpacing(math.NaN(), 60)))

	// Tiny prices are floored at the epsilon.
	assert.Equal(t, 0.001, AlignPriceToTickSpacing(1e-9, 60))
}
