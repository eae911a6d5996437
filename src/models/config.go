package models

// MConfig Structure
type MConfig struct {
	Name       string            `yaml:"name"`
	Host       string            `yaml:"host"`
	Port       int               `yaml:"port"`
	LogLevel   string            `yaml:"log_level"`
	Storage    MStorageConfig    `yaml:"storage"`
	Network    MNetworkConfig    `yaml:"network"`
	Feed       MFeedConfig       `yaml:"feed"`
	History    MHistoryConfig    `yaml:"history"`
	Order      MOrderConfig      `yaml:"order"`
	Session    MSessionConfig    `yaml:"session"`
	Trigger    MTriggerConfig    `yaml:"trigger"`
	Strategies []MStrategyConfig `yaml:"strategies"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionDays      int    `yaml:"retention_days"`
}

type MNetworkConfig struct {
	Enabled            bool     `yaml:"enabled"`
	Proxies            []string `yaml:"proxies"`
	RequestTimeout     int      `yaml:"timeout"`
	MaxRetries         int      `yaml:"retries"`
	ConcurrentRequests int      `yaml:"concurrent_requests"`
	UserAgent          string   `yaml:"user_agent"`
}

// MFeedConfig describes the upstream real-time feed endpoints.
type MFeedConfig struct {
	WsURL                  string          `yaml:"ws_url"`
	ReconnectDelaySeconds  int             `yaml:"reconnect_delay_seconds"`
	Streams                []MStreamConfig `yaml:"streams"`
	PeriodRetentionPeriods int             `yaml:"period_retention_periods"`
}

// MStreamConfig identifies one upstream stream (one instrument at one resolution).
type MStreamConfig struct {
	Symbol            string `yaml:"symbol"`
	ResolutionSeconds int    `yaml:"resolution_seconds"`
}

// MHistoryConfig configures the historical-data collaborator.
type MHistoryConfig struct {
	BaseURL        string `yaml:"base_url"`
	BarsLimit      int    `yaml:"bars_limit"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// MOrderConfig configures the order-submission collaborator.
type MOrderConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// MSessionConfig configures client session liveness.
type MSessionConfig struct {
	TimeoutSeconds       int `yaml:"timeout_seconds"`
	SweepIntervalSeconds int `yaml:"sweep_interval_seconds"`
}

// MTriggerConfig configures the strategy evaluation sweep.
type MTriggerConfig struct {
	SweepIntervalSeconds int `yaml:"sweep_interval_seconds"`
	BaselineBars         int `yaml:"baseline_bars"`
}
