package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDecayCoefficient_Bounds(t *testing.T) {
	assert.Equal(t, "1", DecayCoefficient(30, 30, 55).String())
	assert.Equal(t, "0.5", DecayCoefficient(55, 30, 55).String())
}

func TestDecayCoefficient_ClampsOutsideWindow(t *testing.T) {
	assert.Equal(t, "1", DecayCoefficient(0, 30, 55).String())
	assert.Equal(t, "0.5", DecayCoefficient(200, 30, 55).String())
}

func TestDecayCoefficient_Midpoint(t *testing.T) {
	// Halfway through [0, 10] the coefficient is 0.75.
	got := DecayCoefficient(5, 0, 10)
	assert.Equal(t, "0.75", got.String())
}

func TestDecayCoefficient_Monotonic(t *testing.T) {
	prev := DecayCoefficient(30, 30, 55)
	for offset := int64(31); offset <= 55; offset++ {
		cur := DecayCoefficient(offset, 30, 55)
		assert.True(t, cur.LessThanOrEqual(prev), "coefficient rose at offset %d", offset)
		prev = cur
	}
}

func TestDecayCoefficient_DegenerateWindow(t *testing.T) {
	// Zero-length window keeps the full coefficient.
	assert.Equal(t, "1", DecayCoefficient(10, 10, 10).String())
}

// -----------------------------------------------------------------------------

func TestEffectiveThreshold(t *testing.T) {
	base := decimal.NewFromFloat(2.4)

	// Window start: full baseline.
	assert.Equal(t, "2.4", EffectiveThreshold(base, 0, 0, 10).String())

	// Window end: half the baseline.
	assert.Equal(t, "1.2", EffectiveThreshold(base, 10, 0, 10).String())

	// Midpoint: 2.4 * 0.75.
	assert.Equal(t, "1.8", EffectiveThreshold(base, 5, 0, 10).String())
}
