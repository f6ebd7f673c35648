// Package config holds the gubanews YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up in the workspace.
const DefaultFileName = "gubanews.yaml"

// Config holds all gubanews configuration.
type Config struct {
	// Browser automation
	Browser BrowserConfig `yaml:"browser"`

	// List/detail fetching
	Fetch FetchConfig `yaml:"fetch"`

	// SQLite archive
	Storage StorageConfig `yaml:"storage"`

	// CSV/Markdown output
	Export ExportConfig `yaml:"export"`

	// Categorized file logging
	Logging LoggingConfig `yaml:"logging"`
}

// BrowserConfig configures the Chrome instance driven through rod.
type BrowserConfig struct {
	// Attach to an already-running Chrome instead of launching one.
	DebuggerURL string `yaml:"debugger_url"`

	// Chrome binary followed by extra launch flags.
	Launch []string `yaml:"launch"`

	Headless            bool   `yaml:"headless"`
	UserAgent           string `yaml:"user_agent"`
	ViewportWidth       int    `yaml:"viewport_width"`
	ViewportHeight      int    `yaml:"viewport_height"`
	NavigationTimeoutMs int    `yaml:"navigation_timeout_ms"`
	SessionStore        string `yaml:"session_store"`
}

// FetchConfig configures the harvest pipeline.
type FetchConfig struct {
	BaseURL string `yaml:"base_url"`

	// Detail-page worker pool size.
	Workers int `yaml:"workers"`

	// Retries for the initial index load.
	Retries int `yaml:"retries"`

	// Pages added on each side of the located window.
	WindowMargin int `yaml:"window_margin"`

	// Pause between page loads, to stay under the site's rate limits.
	PageDelayMs int `yaml:"page_delay_ms"`
}

// StorageConfig configures the SQLite archive.
type StorageConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

// ExportConfig configures file output.
type ExportConfig struct {
	OutputDir string `yaml:"output_dir"`
	Format    string `yaml:"format"` // csv, markdown, both
}

// LoggingConfig configures the categorized file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
}

// DefaultConfig returns the defaults used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:            true,
			UserAgent:           "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
			ViewportWidth:       1920,
			ViewportHeight:      1080,
			NavigationTimeoutMs: 30000,
		},
		Fetch: FetchConfig{
			Workers:      4,
			Retries:      3,
			WindowMargin: 1,
			PageDelayMs:  200,
		},
		Storage: StorageConfig{
			Enabled:      true,
			DatabasePath: filepath.Join(".gubanews", "articles.db"),
		},
		Export: ExportConfig{
			OutputDir: "out",
			Format:    "csv",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config file and applies environment overrides. A
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// Save writes the config as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnvOverrides lets GUBANEWS_* variables override file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GUBANEWS_BASE_URL"); v != "" {
		cfg.Fetch.BaseURL = v
	}
	if v := os.Getenv("GUBANEWS_DEBUGGER_URL"); v != "" {
		cfg.Browser.DebuggerURL = v
	}
	if v := os.Getenv("GUBANEWS_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Browser.Headless = b
		}
	}
	if v := os.Getenv("GUBANEWS_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Fetch.Workers = n
		}
	}
	if v := os.Getenv("GUBANEWS_DB_PATH"); v != "" {
		cfg.Storage.DatabasePath = v
	}
	if v := os.Getenv("GUBANEWS_OUTPUT_DIR"); v != "" {
		cfg.Export.OutputDir = v
	}
}

// NavigationTimeout returns the browser navigation timeout.
func (c BrowserConfig) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// GetViewportWidth returns viewport width.
func (c BrowserConfig) GetViewportWidth() int {
	if c.ViewportWidth <= 0 {
		return 1920
	}
	return c.ViewportWidth
}

// GetViewportHeight returns viewport height.
func (c BrowserConfig) GetViewportHeight() int {
	if c.ViewportHeight <= 0 {
		return 1080
	}
	return c.ViewportHeight
}

// GetWorkers returns the worker pool size.
func (c FetchConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 4
	}
	return c.Workers
}

// GetRetries returns the index-load retry count.
func (c FetchConfig) GetRetries() int {
	if c.Retries <= 0 {
		return 3
	}
	return c.Retries
}

// GetWindowMargin returns the window margin, never negative.
func (c FetchConfig) GetWindowMargin() int {
	if c.WindowMargin < 0 {
		return 0
	}
	return c.WindowMargin
}

// PageDelay returns the pause between page loads.
func (c FetchConfig) PageDelay() time.Duration {
	if c.PageDelayMs < 0 {
		return 0
	}
	return time.Duration(c.PageDelayMs) * time.Millisecond
}
