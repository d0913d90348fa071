package config

import "time"

// DefaultStreamHistorySize mirrors registry.DefaultHistorySize; kept
// as a separate constant here so pkg/config has no import on
// pkg/registry.
const DefaultStreamHistorySize = 100

// applyDefaults fills in the documented defaults for any zero-valued
// fields.
func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = LogLevelOff
	}
	if c.ReconnectDebounce <= 0 {
		c.ReconnectDebounce = 3 * time.Second
	}
	if c.KeepAliveTimeout <= 0 {
		c.KeepAliveTimeout = 5 * time.Second
	}
	if c.StreamHistorySize <= 0 {
		c.StreamHistorySize = DefaultStreamHistorySize
	}
	if len(c.MediaMaskRaw) == 0 {
		c.MediaMaskRaw = []string{"all"}
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = 10
	}
	if c.Adapters.SummariserTimeout <= 0 {
		c.Adapters.SummariserTimeout = 30 * time.Second
	}
}
