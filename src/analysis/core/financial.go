package core

import "github.com/shopspring/decimal"

// -----------------------------------------------------------------------------

var (
	coeffStart = decimal.NewFromInt(1)              // 100% at window start
	coeffEnd   = decimal.NewFromFloat(0.5)          // 50% at window end
	coeffSpan  = coeffStart.Sub(coeffEnd)           // decayed linearly in between
)

// -----------------------------------------------------------------------------

// DecayCoefficient returns the dynamic-spread coefficient for offset t inside
// the trigger window [windowStart, windowEnd]: 1.0 at the window start,
// decaying linearly to 0.5 at the window end. Offsets outside the window are
// clamped.
func DecayCoefficient(t, windowStart, windowEnd int64) decimal.Decimal {
	if windowEnd <= windowStart {
		return coeffStart
	}
	if t <= windowStart {
		return coeffStart
	}
	if t >= windowEnd {
		return coeffEnd
	}

	elapsed := decimal.NewFromInt(t - windowStart)
	span := decimal.NewFromInt(windowEnd - windowStart)
	fraction := elapsed.Div(span)

	return coeffStart.Sub(coeffSpan.Mul(fraction))
}

// -----------------------------------------------------------------------------

// EffectiveThreshold scales a baseline value by the decay coefficient for the
// given window offset, rounded to the baseline precision.
func EffectiveThreshold(base decimal.Decimal, t, windowStart, windowEnd int64) decimal.Decimal {
	return base.Mul(DecayCoefficient(t, windowStart, windowEnd)).Round(BaselinePrecision)
}
