// Package config loads reelcap's runtime configuration from an optional
// JSON config file plus REELCAP_-prefixed environment variables.
// Environment variables take precedence over the config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application's configuration structure.
type Config struct {
	OutputDir         string `json:"output-dir" mapstructure:"output-dir"`
	MaxCaptureSeconds int    `json:"max-capture-seconds" mapstructure:"max-capture-seconds"`
	ViewportWidth     int    `json:"viewport-width" mapstructure:"viewport-width"`
	ViewportHeight    int    `json:"viewport-height" mapstructure:"viewport-height"`
	FPS               int    `json:"fps" mapstructure:"fps"`
	Headless          bool   `json:"headless" mapstructure:"headless"`
	BrowserBin        string `json:"browser-bin" mapstructure:"browser-bin"`
	LogLevel          string `json:"log-level" mapstructure:"log-level"`
}

// field: default value
var defaults = map[string]interface{}{
	"max-capture-seconds": 600,
	"viewport-width":      1280,
	"viewport-height":     720,
	"fps":                 15,
	"headless":            true,
	"browser-bin":         "",
	"log-level":           "INFO",
}

// Load reads configuration from the given JSON file (optional — an empty
// path or a missing file is fine) and environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	for field, value := range defaults {
		v.SetDefault(field, value)
	}
	v.SetDefault("output-dir", defaultOutputDir())

	v.SetEnvPrefix("REELCAP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("could not read config: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	if config.MaxCaptureSeconds <= 0 {
		return nil, fmt.Errorf("max-capture-seconds must be positive, got %d", config.MaxCaptureSeconds)
	}

	// Clamp fps to the range the capture backend supports.
	if config.FPS < 5 {
		config.FPS = 5
	}
	if config.FPS > 60 {
		config.FPS = 60
	}

	return &config, nil
}

// MaxDuration returns the watchdog limit as a duration.
func (c *Config) MaxDuration() time.Duration {
	return time.Duration(c.MaxCaptureSeconds) * time.Second
}

// defaultOutputDir returns ~/.reelcap/recordings, falling back to a
// relative directory when the home directory cannot be determined.
func defaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "recordings"
	}
	return filepath.Join(home, ".reelcap", "recordings")
}
