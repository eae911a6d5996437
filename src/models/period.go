package models

import "github.com/shopspring/decimal"

// -----------------------------------------------------------------------------
// Period State (written by stream connections, read by baseline/trigger logic)
// -----------------------------------------------------------------------------

// MPeriodKey identifies one fixed-length time bucket of one resolution.
// Used as a map key everywhere, so it must stay comparable.
type MPeriodKey struct {
	ResolutionSeconds int   `json:"resolution_seconds"`
	PeriodStartUnix   int64 `json:"period_start_unix"`
}

// MPeriodState holds the latest open/close observed for a period.
// Last-write-wins while the period is live.
type MPeriodState struct {
	Open  decimal.Decimal `json:"open"`
	Close decimal.Decimal `json:"close"`
}

// -----------------------------------------------------------------------------

// Spread returns the magnitude of the open->close move for the given
// direction: close-open for up, open-close for down.
func (p MPeriodState) Spread(direction string) decimal.Decimal {
	if direction == DirectionDown {
		return p.Open.Sub(p.Close)
	}
	return p.Close.Sub(p.Open)
}
