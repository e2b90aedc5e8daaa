// Package config loads the runtime configuration for the strobe CLI.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/strobelab/strobe/internal/timebase"
)

// Config holds emitter construction parameters and CLI wiring.
type Config struct {
	// Rate is the nominal sample rate in Hz. Required, must be positive.
	Rate float64 `yaml:"rate"`

	// LoopGain is the drift tracking loop gain.
	// Defaults to timebase.DefaultLoopGain.
	LoopGain float64 `yaml:"loop_gain"`

	// DropLate discards requests whose target has already passed instead
	// of emitting them with a positive late delta.
	DropLate bool `yaml:"drop_late"`

	// Debug enables verbose diagnostics for every anchor update and
	// trigger evaluation.
	Debug bool `yaml:"debug"`

	// Journal is an optional SQLite path; when set, every terminal
	// disposition is recorded there.
	Journal string `yaml:"journal"`
}

// Default returns a Config with documented defaults applied.
func Default() Config {
	return Config{
		Rate:     1_000_000,
		LoopGain: timebase.DefaultLoopGain,
	}
}

// Load reads a YAML config file and validates it.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the construction contract: rate positive, gain finite.
// The gain's stability bound is the caller's tuning responsibility and is
// deliberately not checked.
func (c Config) Validate() error {
	if c.Rate <= 0 || math.IsNaN(c.Rate) {
		return fmt.Errorf("config: rate must be positive, got %v", c.Rate)
	}
	if math.IsNaN(c.LoopGain) || math.IsInf(c.LoopGain, 0) {
		return fmt.Errorf("config: loop_gain must be finite, got %v", c.LoopGain)
	}
	return nil
}
