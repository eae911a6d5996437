package models

import "github.com/shopspring/decimal"

// MBar is one fully-closed history bar returned by the historical-data
// collaborator.
type MBar struct {
	StartTime int64           `json:"start_time"`
	Open      decimal.Decimal `json:"open"`
	Close     decimal.Decimal `json:"close"`
}
