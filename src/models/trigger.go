package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Trigger records (persisted by the trigger-record store collaborator)
// -----------------------------------------------------------------------------

// Trigger record statuses. There is no "duplicate" status: a lost claim
// produces no record at all.
const (
	TriggerStatusFired   = "fired"
	TriggerStatusFailed  = "failed"
	TriggerStatusSettled = "settled"
)

// MTriggerRecord is uniquely identified by (StrategyID, PeriodStartUnix).
// At most one record exists per strategy per period.
type MTriggerRecord struct {
	StrategyID      string          `json:"strategy_id"`
	PeriodStartUnix int64           `json:"period_start_unix"`
	Symbol          string          `json:"symbol"`
	Direction       string          `json:"direction"`
	Price           decimal.Decimal `json:"price"`
	Spread          decimal.Decimal `json:"spread"`
	Threshold       decimal.Decimal `json:"threshold"`
	Status          string          `json:"status"`
	FailReason      string          `json:"fail_reason,omitempty"`
	OrderID         string          `json:"order_id,omitempty"`
	FiredAt         time.Time       `json:"fired_at"`

	// Settlement fields, written later by the settlement sweep.
	RealizedPnl   decimal.Decimal `json:"realized_pnl"`
	WinnerOutcome string          `json:"winner_outcome,omitempty"`
}
