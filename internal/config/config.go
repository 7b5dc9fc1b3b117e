// Package config provides functionality for loading configuration
// parameters from a config file using the Viper library.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Terminal holds readline/REPL settings and the descriptor-leak check
// cadence, kept from the teacher's internal/ebash boot sequence.
type Terminal struct {
	HistoryFile     string `mapstructure:"history_file"`
	HistoryLimit    int    `mapstructure:"history_limit"`
	InterruptPrompt string `mapstructure:"interrupt_prompt"`
	EOFPrompt       string `mapstructure:"exit_message"`

	// CheckInterval is the number of input lines between descriptor-leak
	// checks; 0 disables the check.
	CheckInterval uint `mapstructure:"check_interval"`
}

// Prompt holds prompt color theming, kept from the teacher's
// internal/painter.
type Prompt struct {
	Theme               string `mapstructure:"theme"`
	PathColour          string `mapstructure:"path_colour"`
	PathColourBold      bool   `mapstructure:"path_colour_bold"`
	GitStatusColour     string `mapstructure:"git_status_colour"`
	GitStatusColourBold bool   `mapstructure:"git_status_colour_bold"`
}

// Engine holds execution-engine tuning absent from the teacher, added
// for the job table and PATH-resolution cache.
type Engine struct {
	// JobsVerboseKill, when true, prints a diagnostic when `kill`
	// targets an unknown job id instead of silently no-op'ing.
	JobsVerboseKill bool `mapstructure:"jobs_verbose_kill"`

	// PathCacheTTL bounds how long environment.Facade.ResolveOnPath may
	// cache a PATH lookup; 0 disables caching.
	PathCacheTTL time.Duration `mapstructure:"path_cache_ttl"`
}

// Config holds user-configurable settings for the shell.
type Config struct {
	Terminal Terminal `mapstructure:"terminal"`
	Prompt   Prompt   `mapstructure:"prompt"`
	Engine   Engine   `mapstructure:"engine"`
}

// Load reads configuration from a file named "config" in the current
// directory using Viper and unmarshals it into a Config instance. If
// reading or unmarshaling fails an error is returned along with a partial
// Config (which may be zero-valued).
func Load() (*Config, error) {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	cfg := new(Config)
	if err := viper.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("quash: boot: failed to load config: %w", err)
	}
	if err := viper.Unmarshal(cfg); err != nil {
		return cfg, fmt.Errorf("quash: boot: failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config populated with sensible defaults. This is used
// as a fallback when loading the configuration file fails.
func Default() *Config {
	return &Config{
		Terminal: Terminal{
			HistoryFile:     filepath.Join(os.Getenv("HOME"), ".quash_history"),
			HistoryLimit:    1000,
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
			CheckInterval:   0,
		},
		Prompt: Prompt{
			Theme: "quash",
		},
		Engine: Engine{
			JobsVerboseKill: false,
			PathCacheTTL:    0,
		},
	}
}
