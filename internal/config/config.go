package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
)

// Report formats.
const (
	FormatHTML = "html"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

var (
	validFormats   = []string{FormatHTML, FormatJSON, FormatCSV}
	validLogLevels = []string{"debug", "info", "warn", "error"}
)

// Config represents ~/.waforensic/config.toml.
type Config struct {
	OutputDir   string        `toml:"output_dir"`
	LogLevel    string        `toml:"log_level"`
	Formats     []string      `toml:"formats"`
	DefaultCase string        `toml:"default_case,omitempty"`
	Case        CaseInfo      `toml:"case"`
	Parse       ParseConfig   `toml:"parse"`
	Acquire     AcquireConfig `toml:"acquire"`
}

// CaseInfo is printed in report headers.
type CaseInfo struct {
	Company  string `toml:"company"`
	Examiner string `toml:"examiner"`
	Unit     string `toml:"unit"`
}

// ParseConfig bounds extraction. Zero means no limit.
type ParseConfig struct {
	ChatLimit    int `toml:"chat_limit"`
	MessageLimit int `toml:"message_limit"`
}

// AcquireConfig configures device acquisition.
type AcquireConfig struct {
	ADBPath    string   `toml:"adb_path"`
	ADBTimeout Duration `toml:"adb_timeout"`
}

// Duration is a time.Duration written as a string such as "5m".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		OutputDir: "output",
		LogLevel:  "info",
		Formats:   []string{FormatHTML, FormatJSON},
		Case: CaseInfo{
			Company:  "WhatsApp Forensics Report",
			Examiner: "Forensics Tool",
			Unit:     "Forensics Unit",
		},
		Parse: ParseConfig{
			MessageLimit: 1000,
		},
		Acquire: AcquireConfig{
			ADBPath:    "adb",
			ADBTimeout: Duration{5 * time.Minute},
		},
	}
}

// Load reads config from the given path on top of Default. Returns an error
// if the file is missing or invalid.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log_level %q: want one of %v", c.LogLevel, validLogLevels)
	}
	for _, f := range c.Formats {
		if !slices.Contains(validFormats, f) {
			return fmt.Errorf("invalid format %q: want one of %v", f, validFormats)
		}
	}
	if c.Parse.ChatLimit < 0 || c.Parse.MessageLimit < 0 {
		return errors.New("parse limits must not be negative")
	}
	return nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
