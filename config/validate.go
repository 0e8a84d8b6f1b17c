package config

import (
	"fmt"

	"github.com/arloliu/go-pldlink/logger"
)

// Limits enforced by Validate.
const (
	MinWorkers    = 1
	MaxWorkers    = 64
	MinIntervalMs = 100
)

// Validate checks configuration correctness.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}

	if w := cfg.Dispatcher.Workers; w < MinWorkers || w > MaxWorkers {
		return fmt.Errorf("config: dispatcher.workers %d out of range [%d, %d]", w, MinWorkers, MaxWorkers)
	}

	if cfg.Poller.IntervalMs < MinIntervalMs {
		return fmt.Errorf("config: poller.interval_ms %d below minimum %d", cfg.Poller.IntervalMs, MinIntervalMs)
	}

	if cfg.Store.Capacity < 1 {
		return fmt.Errorf("config: store.capacity %d must be positive", cfg.Store.Capacity)
	}

	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}

	return nil
}
