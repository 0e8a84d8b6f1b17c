// Package config loads the YAML configuration of the pldconsole binary.
//
// Load reads and decodes a file, Normalize fills defaults for omitted fields, and
// Validate checks ranges without mutating anything. Library packages do not read
// configuration themselves; the console translates it into their options.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root of the pldconsole configuration file.
type Config struct {
	Serial     SerialConfig     `yaml:"serial"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Poller     PollerConfig     `yaml:"poller"`
	Store      StoreConfig      `yaml:"store"`
	Log        LogConfig        `yaml:"log"`
}

// ---- SERIAL ----

// SerialConfig selects the serial port. Link parameters are fixed.
type SerialConfig struct {
	// Port is the device name, e.g. /dev/ttyUSB0 or COM3. Empty selects the first listed port.
	Port string `yaml:"port"`
}

// ---- DISPATCHER ----

// DispatcherConfig sizes the dispatcher worker pool.
type DispatcherConfig struct {
	Workers int `yaml:"workers"`
}

// ---- POLLER ----

// PollerConfig is the auto-poll policy.
type PollerConfig struct {
	Enabled    bool `yaml:"enabled"`
	IntervalMs int  `yaml:"interval_ms"`
}

// Interval returns the poll interval as a duration.
func (p PollerConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMs) * time.Millisecond
}

// ---- STORE ----

// StoreConfig bounds the packet store.
type StoreConfig struct {
	Capacity int `yaml:"capacity"`
}

// ---- LOG ----

// LogConfig configures the console logger and the optional frame log.
type LogConfig struct {
	Level     string `yaml:"level"`
	AddSource bool   `yaml:"add_source"`
	// FrameLog is an optional file receiving one line per frame and failure.
	FrameLog string `yaml:"frame_log"`
}

// Default returns a normalized configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	Normalize(cfg)

	return cfg
}

// Load reads, decodes and normalizes the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return Parse(data)
}

// Parse decodes and normalizes YAML data. Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	Normalize(cfg)

	return cfg, nil
}
