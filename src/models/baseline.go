package models

import "github.com/shopspring/decimal"

// MBaselineKey identifies one baseline computation. Symbol is part of the
// key: strategies on different instruments never share a baseline, even at
// the same resolution and period.
type MBaselineKey struct {
	Symbol            string
	ResolutionSeconds int
	PeriodStartUnix   int64
}

// MBaseline holds the outlier-filtered average swing for a period, one value
// per outcome direction. Immutable once computed.
type MBaseline struct {
	BaseUp   decimal.Decimal `json:"base_up"`
	BaseDown decimal.Decimal `json:"base_down"`
}
