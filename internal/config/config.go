// Package config provides configuration types and defaults for prfkit.
package config

import (
	"fmt"
	"time"

	"github.com/npratt/prfkit/internal/block"
)

// Config holds all configuration for prfkit.
type Config struct {
	Engine      EngineConfig      `yaml:"engine" mapstructure:"engine"`
	Stepper     StepperConfig     `yaml:"stepper" mapstructure:"stepper"`
	Paths       PathsConfig       `yaml:"paths" mapstructure:"paths"`
	LogRotation LogRotationConfig `yaml:"log_rotation" mapstructure:"log_rotation"`
}

// EngineConfig holds evaluator settings.
type EngineConfig struct {
	MinimizationLimit int `yaml:"minimization_limit" mapstructure:"minimization_limit"` // Candidates tried before a minimization gives up
}

// StepperConfig holds step controller settings.
type StepperConfig struct {
	Speed             string        `yaml:"speed" mapstructure:"speed"`                           // "none", "fast" or "slow"
	FastDelay         time.Duration `yaml:"fast_delay" mapstructure:"fast_delay"`                 // Delay between steps at "fast"
	SlowDelay         time.Duration `yaml:"slow_delay" mapstructure:"slow_delay"`                 // Delay between steps at "slow"
	IgnoreBreakpoints bool          `yaml:"ignore_breakpoints" mapstructure:"ignore_breakpoints"` // Run through breakpoints
	EventBuffer       int           `yaml:"event_buffer" mapstructure:"event_buffer"`             // Subscriber buffer for step events
}

// PathsConfig holds file paths for the run trace, debug log and the control
// socket of a listening step session.
type PathsConfig struct {
	Trace  string `yaml:"trace" mapstructure:"trace"`
	Log    string `yaml:"log" mapstructure:"log"`
	Socket string `yaml:"socket" mapstructure:"socket"`
}

// LogRotationConfig holds settings for log file rotation.
// Used for the TUI debug log (lumberjack-based automatic rotation).
type LogRotationConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `yaml:"compress" mapstructure:"compress"`
}

// Default returns a Config with the built-in defaults.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			MinimizationLimit: block.DefaultMinimizationLimit,
		},
		Stepper: StepperConfig{
			Speed:       "none",
			FastDelay:   150 * time.Millisecond,
			SlowDelay:   750 * time.Millisecond,
			EventBuffer: 10000,
		},
		Paths: PathsConfig{
			Trace:  "",
			Log:    ".prfkit/prfkit-debug.log",
			Socket: ".prfkit/prfkit.sock",
		},
		LogRotation: LogRotationConfig{
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}

// Validate rejects settings the engine and controller cannot run with.
func (c *Config) Validate() error {
	if c.Engine.MinimizationLimit < 1 {
		return fmt.Errorf("engine.minimization_limit must be positive, got %d", c.Engine.MinimizationLimit)
	}
	switch c.Stepper.Speed {
	case "none", "fast", "slow":
	default:
		return fmt.Errorf("stepper.speed must be none, fast or slow, got %q", c.Stepper.Speed)
	}
	if c.Stepper.FastDelay < 0 || c.Stepper.SlowDelay < 0 {
		return fmt.Errorf("stepper delays must not be negative")
	}
	if c.Stepper.EventBuffer < 1 {
		return fmt.Errorf("stepper.event_buffer must be positive, got %d", c.Stepper.EventBuffer)
	}
	return nil
}
