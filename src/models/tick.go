package models

import "github.com/shopspring/decimal"

// MTick is the parsed form of one upstream feed message.
// PeriodStartMs is the period bucket start in milliseconds.
type MTick struct {
	Topic             string          `json:"topic"`
	Symbol            string          `json:"symbol"`
	ResolutionSeconds int             `json:"resolution"`
	PeriodStartMs     int64           `json:"ts"`
	Open              decimal.Decimal `json:"open"`
	Close             decimal.Decimal `json:"close"`
}
