package models

// -----------------------------------------------------------------------------
// Strategy configuration (read-only to the core, owned by external CRUD)
// -----------------------------------------------------------------------------

// Outcome directions
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// Minimum-spread gate modes
const (
	SpreadModeNone  = "NONE"
	SpreadModeFixed = "FIXED"
	SpreadModeAuto  = "AUTO"
)

// MStrategyConfig describes one automated strategy.
// Window offsets are relative to the period start.
type MStrategyConfig struct {
	ID                 string  `yaml:"id" json:"id"`
	Symbol             string  `yaml:"symbol" json:"symbol"`
	Direction          string  `yaml:"direction" json:"direction"`
	IntervalSeconds    int     `yaml:"interval_seconds" json:"interval_seconds"`
	WindowStartSeconds int64   `yaml:"window_start_seconds" json:"window_start_seconds"`
	WindowEndSeconds   int64   `yaml:"window_end_seconds" json:"window_end_seconds"`
	MinPrice           float64 `yaml:"min_price" json:"min_price"`
	MaxPrice           float64 `yaml:"max_price" json:"max_price"`
	MinSpreadMode      string  `yaml:"min_spread_mode" json:"min_spread_mode"`
	MinSpreadValue     float64 `yaml:"min_spread_value" json:"min_spread_value"`
	Amount             float64 `yaml:"amount" json:"amount"`
	Enabled            bool    `yaml:"enabled" json:"enabled"`
}
