package config

import "strings"

// Defaults applied by Normalize to omitted fields.
const (
	DefaultWorkers    = 4
	DefaultIntervalMs = 5000
	DefaultCapacity   = 1024
	DefaultLogLevel   = "info"
)

// Normalize fills zero-valued fields with defaults and canonicalizes strings.
// Explicit values, valid or not, are left for Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Serial.Port = strings.TrimSpace(cfg.Serial.Port)

	if cfg.Dispatcher.Workers == 0 {
		cfg.Dispatcher.Workers = DefaultWorkers
	}
	if cfg.Poller.IntervalMs == 0 {
		cfg.Poller.IntervalMs = DefaultIntervalMs
	}
	if cfg.Store.Capacity == 0 {
		cfg.Store.Capacity = DefaultCapacity
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
}
