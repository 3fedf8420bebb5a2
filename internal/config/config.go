package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultFormat lets the CLI pick text or json from the terminal
	DefaultFormat = "auto"
	// DefaultIdleTimeout is how long replay waits for the next event
	DefaultIdleTimeout = 5 * time.Minute
)

// Config holds the settings shared by every command
type Config struct {
	Debug             bool
	Format            string
	Verbose           bool
	Markdown          bool
	IdleTimeout       time.Duration
	DebugKeywords     []string
	StrictToolResults bool

	SentryDSN         string
	SentryEnvironment string

	// Path is the config file that was read, empty if none
	Path string
}

// fileConfig mirrors config.yaml
type fileConfig struct {
	Debug             *bool    `yaml:"debug"`
	Format            string   `yaml:"format"`
	Verbose           *bool    `yaml:"verbose"`
	Markdown          *bool    `yaml:"markdown"`
	IdleTimeout       string   `yaml:"idle_timeout"`
	DebugKeywords     []string `yaml:"debug_keywords"`
	StrictToolResults *bool    `yaml:"strict_tool_results"`
	Sentry            struct {
		DSN         string `yaml:"dsn"`
		Environment string `yaml:"environment"`
	} `yaml:"sentry"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Format:      DefaultFormat,
		IdleTimeout: DefaultIdleTimeout,
	}
}

// DefaultPath returns the config file location, honouring TIMELINE_CONFIG
// and XDG_CONFIG_HOME
func DefaultPath() string {
	if p := os.Getenv("TIMELINE_CONFIG"); p != "" {
		return p
	}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "timeline", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "timeline", "config.yaml")
}

// Load reads the configuration from the OS filesystem and environment
func Load() (*Config, error) {
	return LoadFrom(afero.NewOsFs(), DefaultPath())
}

// LoadFrom applies defaults, then the YAML file at path (if it exists), then
// environment overrides
func LoadFrom(fs afero.Fs, path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(fs, path); err != nil {
			return nil, err
		}
	}

	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) mergeFile(fs afero.Fs, path string) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.Debug != nil {
		c.Debug = *fc.Debug
	}
	if fc.Format != "" {
		c.Format = fc.Format
	}
	if fc.Verbose != nil {
		c.Verbose = *fc.Verbose
	}
	if fc.Markdown != nil {
		c.Markdown = *fc.Markdown
	}
	if fc.IdleTimeout != "" {
		d, err := time.ParseDuration(fc.IdleTimeout)
		if err != nil {
			return fmt.Errorf("invalid idle_timeout %q in %s: %w", fc.IdleTimeout, path, err)
		}
		c.IdleTimeout = d
	}
	if len(fc.DebugKeywords) > 0 {
		c.DebugKeywords = fc.DebugKeywords
	}
	if fc.StrictToolResults != nil {
		c.StrictToolResults = *fc.StrictToolResults
	}
	if fc.Sentry.DSN != "" {
		c.SentryDSN = fc.Sentry.DSN
	}
	if fc.Sentry.Environment != "" {
		c.SentryEnvironment = fc.Sentry.Environment
	}

	c.Path = path
	return nil
}

func (c *Config) mergeEnv() error {
	if v := os.Getenv("TIMELINE_DEBUG"); v != "" {
		c.Debug = v == "true" || v == "1"
	}
	if v := os.Getenv("TIMELINE_FORMAT"); v != "" {
		c.Format = v
	}
	if v := os.Getenv("TIMELINE_VERBOSE"); v != "" {
		c.Verbose = v == "true" || v == "1"
	}
	if v := os.Getenv("TIMELINE_MARKDOWN"); v != "" {
		c.Markdown = v == "true" || v == "1"
	}
	if v := os.Getenv("TIMELINE_IDLE_TIMEOUT"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TIMELINE_IDLE_TIMEOUT %q: %w", v, err)
		}
		c.IdleTimeout = d
	}
	if v := os.Getenv("TIMELINE_DEBUG_KEYWORDS"); v != "" {
		c.DebugKeywords = splitList(v)
	}
	if v := os.Getenv("TIMELINE_STRICT_TOOL_RESULTS"); v != "" {
		c.StrictToolResults = v == "true" || v == "1"
	}
	if v := os.Getenv("SENTRY_DSN"); v != "" {
		c.SentryDSN = v
	}
	if v := os.Getenv("SENTRY_ENVIRONMENT"); v != "" {
		c.SentryEnvironment = v
	}
	return nil
}

// Validate checks option values
func (c *Config) Validate() error {
	switch c.Format {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("invalid format %q: must be one of auto, text, json", c.Format)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("idle timeout must not be negative, got %s", c.IdleTimeout)
	}
	return nil
}

// parseDuration accepts Go durations or a plain number of seconds
func parseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
