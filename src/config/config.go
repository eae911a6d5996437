package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"trade-automator/src/models"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Storage configuration
	if c.Storage.DBType == "" {
		return fmt.Errorf("database type cannot be empty")
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		return fmt.Errorf("database path cannot be empty for sqlite")
	}
	if c.Storage.DBType == "postgres" && c.Storage.DBConnectionString == "" {
		return fmt.Errorf("connection string cannot be empty for postgres")
	}

	// Validate Network configuration
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.Network.ConcurrentRequests <= 0 {
		return fmt.Errorf("concurrent requests must be greater than 0")
	}

	// Validate Feed configuration
	if c.Feed.WsURL == "" {
		return fmt.Errorf("feed websocket url cannot be empty")
	}
	if len(c.Feed.Streams) == 0 {
		return fmt.Errorf("at least one stream must be configured")
	}
	for i, s := range c.Feed.Streams {
		if s.Symbol == "" {
			return fmt.Errorf("stream %d must have a symbol", i)
		}
		if s.ResolutionSeconds <= 0 {
			return fmt.Errorf("stream '%s' must have a positive resolution", s.Symbol)
		}
	}

	// Validate History configuration
	if c.History.BaseURL == "" {
		return fmt.Errorf("history base url cannot be empty")
	}

	// Validate Order configuration
	if c.Order.BaseURL == "" {
		return fmt.Errorf("order base url cannot be empty")
	}

	// Validate Strategies
	for i, s := range c.Strategies {
		if err := validateStrategy(i, s); err != nil {
			return err
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

func validateStrategy(i int, s models.MStrategyConfig) error {
	if s.ID == "" {
		return fmt.Errorf("strategy %d must have an id", i)
	}
	if s.Symbol == "" {
		return fmt.Errorf("strategy '%s' must have a symbol", s.ID)
	}
	if s.Direction != models.DirectionUp && s.Direction != models.DirectionDown {
		return fmt.Errorf("strategy '%s' has invalid direction '%s'", s.ID, s.Direction)
	}
	if s.IntervalSeconds <= 0 {
		return fmt.Errorf("strategy '%s' must have a positive interval", s.ID)
	}
	if s.WindowStartSeconds < 0 {
		return fmt.Errorf("strategy '%s' window start cannot be negative", s.ID)
	}
	if s.WindowEndSeconds < s.WindowStartSeconds {
		return fmt.Errorf("strategy '%s' window end must be >= window start", s.ID)
	}
	if s.WindowEndSeconds >= int64(s.IntervalSeconds) {
		return fmt.Errorf("strategy '%s' window end must fall inside the period", s.ID)
	}
	switch s.MinSpreadMode {
	case models.SpreadModeNone, models.SpreadModeFixed, models.SpreadModeAuto:
	default:
		return fmt.Errorf("strategy '%s' has invalid min spread mode '%s'", s.ID, s.MinSpreadMode)
	}
	if s.MinSpreadMode == models.SpreadModeFixed && s.MinSpreadValue <= 0 {
		return fmt.Errorf("strategy '%s' needs a positive min spread value in FIXED mode", s.ID)
	}
	if s.MinPrice < 0 || s.MaxPrice < 0 {
		return fmt.Errorf("strategy '%s' price bounds cannot be negative", s.ID)
	}
	if s.MaxPrice > 0 && s.MinPrice > s.MaxPrice {
		return fmt.Errorf("strategy '%s' min price exceeds max price", s.ID)
	}
	if s.Amount <= 0 {
		return fmt.Errorf("strategy '%s' must have a positive amount", s.ID)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
