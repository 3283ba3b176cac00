package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/lexandro/promptattach/ignore"
	"github.com/lexandro/promptattach/materialize"
	"github.com/lexandro/promptattach/optimize"
	"github.com/lexandro/promptattach/security"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the working directory when --config is not given.
const DefaultFileName = ".promptattach.yaml"

// Config holds the settings that can come from the config file. CLI flags are
// applied on top by the caller.
type Config struct {
	Security  Security  `yaml:"security"`
	Collect   Collect   `yaml:"collect"`
	Limits    Limits    `yaml:"limits"`
	Optimizer Optimizer `yaml:"optimizer"`
}

// Security configures the path policy.
type Security struct {
	// Mode is permissive, warn or strict (default permissive).
	Mode       string   `yaml:"mode"`
	AllowDirs  []string `yaml:"allowDirs"`
	AllowFiles []string `yaml:"allowFiles"`
	// AllowCwd adds the working directory to AllowDirs (default true).
	AllowCwd *bool `yaml:"allowCwd"`
}

// Collect configures directory walking.
type Collect struct {
	// IgnoreFile is the per-directory pattern file name (default ".gitignore").
	IgnoreFile string   `yaml:"ignoreFile"`
	Exclude    []string `yaml:"exclude"`
	// DefaultIgnores skips VCS metadata and editor droppings (default true).
	DefaultIgnores *bool `yaml:"defaultIgnores"`
}

// Limits bounds template-only content and read concurrency. A negative size
// disables that limit.
type Limits struct {
	MaxFileSize  int64 `yaml:"maxFileSize"`
	MaxTotalSize int64 `yaml:"maxTotalSize"`
	Workers      int   `yaml:"workers"`
}

// Optimizer configures appendix relocation.
type Optimizer struct {
	Enabled           *bool `yaml:"enabled"`
	InlineThreshold   int   `yaml:"inlineThreshold"`
	AlwaysInlineFloor int   `yaml:"alwaysInlineFloor"`
}

// Defaults returns the configuration used when no file is present.
func Defaults() Config {
	var c Config
	c.applyDefaults()
	return c
}

func boolPtr(b bool) *bool { return &b }

func (c *Config) applyDefaults() {
	if c.Security.Mode == "" {
		c.Security.Mode = security.Permissive.String()
	}
	if c.Security.AllowCwd == nil {
		c.Security.AllowCwd = boolPtr(true)
	}
	if c.Collect.IgnoreFile == "" {
		c.Collect.IgnoreFile = ignore.DefaultFileName
	}
	if c.Collect.DefaultIgnores == nil {
		c.Collect.DefaultIgnores = boolPtr(true)
	}
	if c.Limits.MaxFileSize == 0 {
		c.Limits.MaxFileSize = materialize.DefaultMaxFileSize
	}
	if c.Limits.MaxTotalSize == 0 {
		c.Limits.MaxTotalSize = materialize.DefaultMaxTotalSize
	}
	if c.Limits.Workers == 0 {
		c.Limits.Workers = materialize.DefaultWorkers
	}
	if c.Optimizer.Enabled == nil {
		c.Optimizer.Enabled = boolPtr(true)
	}
	if c.Optimizer.InlineThreshold == 0 {
		c.Optimizer.InlineThreshold = optimize.DefaultInlineThreshold
	}
	if c.Optimizer.AlwaysInlineFloor == 0 {
		c.Optimizer.AlwaysInlineFloor = optimize.DefaultAlwaysInlineFloor
	}
}

// Load reads a YAML config file and fills in defaults. A missing file is not
// an error unless required is set.
func Load(path string, required bool) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return Defaults(), nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values no component can work with.
func (c Config) Validate() error {
	if _, err := security.ParseMode(c.Security.Mode); err != nil {
		return err
	}
	if c.Limits.MaxFileSize == 0 || c.Limits.MaxTotalSize == 0 {
		return fmt.Errorf("size limits must not be zero; use a negative value for unlimited")
	}
	if c.Limits.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if c.Optimizer.InlineThreshold < 0 || c.Optimizer.AlwaysInlineFloor < 0 {
		return fmt.Errorf("optimizer thresholds must not be negative")
	}
	if c.Optimizer.AlwaysInlineFloor > c.Optimizer.InlineThreshold {
		return fmt.Errorf("optimizer alwaysInlineFloor (%d) exceeds inlineThreshold (%d)",
			c.Optimizer.AlwaysInlineFloor, c.Optimizer.InlineThreshold)
	}
	return nil
}

// AllowCwd reports whether the working directory is implicitly allowed.
func (c Config) AllowCwd() bool { return c.Security.AllowCwd == nil || *c.Security.AllowCwd }

// DefaultIgnores reports whether built-in ignore patterns apply.
func (c Config) DefaultIgnores() bool {
	return c.Collect.DefaultIgnores == nil || *c.Collect.DefaultIgnores
}

// OptimizerOptions converts the optimizer section.
func (c Config) OptimizerOptions() optimize.Options {
	return optimize.Options{
		Enabled:           c.Optimizer.Enabled == nil || *c.Optimizer.Enabled,
		InlineThreshold:   c.Optimizer.InlineThreshold,
		AlwaysInlineFloor: c.Optimizer.AlwaysInlineFloor,
	}
}

// MaterializeLimits converts the limits section.
func (c Config) MaterializeLimits() materialize.Limits {
	return materialize.Limits{MaxFileSize: c.Limits.MaxFileSize, MaxTotalSize: c.Limits.MaxTotalSize}
}
