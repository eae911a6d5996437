package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decs(values ...float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}

// -----------------------------------------------------------------------------

func TestAverageAfterIQR_FiltersOutlier(t *testing.T) {
	// Q1=2, Q3=4, IQR=2, fences [-1, 7]: 100 is dropped.
	got := AverageAfterIQR(decs(1, 2, 3, 4, 100))
	assert.Equal(t, "2.5", got.String())
	assert.Equal(t, "2.50000000", got.StringFixed(8))
}

func TestAverageAfterIQR_OrderIndependent(t *testing.T) {
	a := AverageAfterIQR(decs(1, 2, 3, 4, 100))
	b := AverageAfterIQR(decs(100, 4, 1, 3, 2))
	c := AverageAfterIQR(decs(3, 100, 2, 4, 1))

	assert.True(t, a.Equal(b))
	assert.True(t, a.Equal(c))
}

func TestAverageAfterIQR_InputNotMutated(t *testing.T) {
	samples := decs(100, 4, 1, 3, 2)
	_ = AverageAfterIQR(samples)
	assert.Equal(t, "100", samples[0].String())
}

func TestAverageAfterIQR_SmallSetUsesUnfilteredMean(t *testing.T) {
	// Two samples can never retain three; the unfiltered mean applies.
	got := AverageAfterIQR(decs(1, 100))
	assert.Equal(t, "50.5", got.String())
}

func TestAverageAfterIQR_Empty(t *testing.T) {
	got := AverageAfterIQR(nil)
	assert.True(t, got.IsZero())
}

func TestAverageAfterIQR_AllEqual(t *testing.T) {
	got := AverageAfterIQR(decs(5, 5, 5, 5))
	assert.Equal(t, "5", got.String())
}

func TestAverageAfterIQR_RoundsHalfUp(t *testing.T) {
	// 1/3 = 0.333... rounds to 8 digits.
	third := decimal.NewFromInt(1).Div(decimal.NewFromInt(3))
	got := AverageAfterIQR([]decimal.Decimal{third, third, third})
	assert.Equal(t, "0.33333333", got.StringFixed(8))
}

// -----------------------------------------------------------------------------

func TestQuartiles(t *testing.T) {
	q1, q3 := Quartiles(decs(1, 2, 3, 4, 100))
	assert.Equal(t, "2", q1.String())
	assert.Equal(t, "4", q3.String())
}

func TestQuartiles_SingleSample(t *testing.T) {
	q1, q3 := Quartiles(decs(7))
	assert.Equal(t, "7", q1.String())
	assert.Equal(t, "7", q3.String())
}

func TestQuartiles_Empty(t *testing.T) {
	q1, q3 := Quartiles(nil)
	assert.True(t, q1.IsZero())
	assert.True(t, q3.IsZero())
}

// -----------------------------------------------------------------------------

func TestMean(t *testing.T) {
	got := Mean(decs(1, 2, 3))
	require.Equal(t, "2", got.String())
}
