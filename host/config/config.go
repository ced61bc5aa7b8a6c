// Package config loads and persists the host tool settings
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"sigs.k8s.io/yaml"
)

var ErrInvalidConfig = errors.New("invalid config")

type ErrConfigFileExists struct {
	Path string
}

func (e ErrConfigFileExists) Error() string {
	return fmt.Sprintf("config file %s already exists", e.Path)
}

type SerialConfig struct {
	Device string `json:"device"`
	Baud   int    `json:"baud"`
	// ReadTimeout in milliseconds
	ReadTimeout int `json:"readTimeout"`
}

type Config struct {
	Serial *SerialConfig `json:"serial"`
	// BulkSize is the number of bytes the bulk command reads
	BulkSize int `json:"bulkSize"`
	// Frequency is the PWM frequency the firmware is expected to run at
	Frequency uint32 `json:"frequency"`
	LogLevel  string `json:"logLevel,omitempty"`
	filepath  string
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, ConfigFile)
}

func NewDefaultConfig() *Config {
	return &Config{
		Serial: &SerialConfig{
			Device:      DefaultDevice,
			Baud:        DefaultBaud,
			ReadTimeout: DefaultReadTimeout,
		},
		BulkSize:  DefaultBulkSize,
		Frequency: DefaultFrequency,
		LogLevel:  DefaultLogLevel,
		filepath:  DefaultConfigPath(),
	}
}

// Path returns the file Load and Persist use
func (c *Config) Path() string {
	return c.filepath
}

func (c *Config) SetPath(path string) {
	c.filepath = path
}

// Load overlays the file contents onto c. A missing file leaves c unchanged.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.filepath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", c.filepath, err)
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	switch {
	case c.Serial == nil || c.Serial.Device == "":
		return fmt.Errorf("%w: serial device not set", ErrInvalidConfig)
	case c.Serial.Baud <= 0:
		return fmt.Errorf("%w: baud %d", ErrInvalidConfig, c.Serial.Baud)
	case c.BulkSize <= 0 || c.BulkSize%4 != 0:
		return fmt.Errorf("%w: bulk size %d is not a positive multiple of 4", ErrInvalidConfig, c.BulkSize)
	case c.Frequency == 0:
		return fmt.Errorf("%w: frequency must be non-zero", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.filepath), 0755); err != nil {
		return err
	}
	return os.WriteFile(c.filepath, data, 0644)
}
