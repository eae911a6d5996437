package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------

// BaselinePrecision is the fixed number of fractional digits baseline values
// are rounded to (round-half-up).
const BaselinePrecision = 8

// Minimum samples that must survive IQR filtering; below this the filter is
// discarded and the full sample set is used.
const minRetainedSamples = 3

// -----------------------------------------------------------------------------

// Quartiles returns Q1 and Q3 of an ascending-sorted sample set using
// index-based quartiles: Q1 = v[floor(0.25*n)], Q3 = v[floor(0.75*n)],
// clamped to the valid range.
func Quartiles(sorted []decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	n := len(sorted)
	if n == 0 {
		return decimal.Zero, decimal.Zero
	}

	q1Idx := n / 4
	q3Idx := (3 * n) / 4
	if q3Idx >= n {
		q3Idx = n - 1
	}

	return sorted[q1Idx], sorted[q3Idx]
}

// -----------------------------------------------------------------------------

// AverageAfterIQR computes the arithmetic mean of the sample set after
// removing outliers outside [Q1-1.5*IQR, Q3+1.5*IQR]. If fewer than three
// samples survive the filter, the mean of the unfiltered set is used instead.
// The result is rounded half-up to BaselinePrecision digits. An empty sample
// set yields 0. The function is order-independent: the input is copied and
// sorted internally.
func AverageAfterIQR(samples []decimal.Decimal) decimal.Decimal {
	if len(samples) == 0 {
		return decimal.Zero
	}

	sorted := make([]decimal.Decimal, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LessThan(sorted[j])
	})

	q1, q3 := Quartiles(sorted)
	iqr := q3.Sub(q1)
	fence := iqr.Mul(decimal.NewFromFloat(1.5))
	low := q1.Sub(fence)
	high := q3.Add(fence)

	retained := make([]decimal.Decimal, 0, len(sorted))
	for _, v := range sorted {
		if v.GreaterThanOrEqual(low) && v.LessThanOrEqual(high) {
			retained = append(retained, v)
		}
	}

	if len(retained) < minRetainedSamples {
		retained = sorted
	}

	return Mean(retained).Round(BaselinePrecision)
}

// -----------------------------------------------------------------------------

// Mean computes the arithmetic mean of the sample set. Empty input yields 0.
func Mean(samples []decimal.Decimal) decimal.Decimal {
	if len(samples) == 0 {
		return decimal.Zero
	}

	sum := decimal.Zero
	for _, v := range samples {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(samples))))
}
