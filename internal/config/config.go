package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/fund-breakdown/internal/common"
	"github.com/bobmcallan/fund-breakdown/internal/models"
)

// Config represents the application configuration.
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Analysis    AnalysisConfig `toml:"analysis"`
	Chart       ChartConfig    `toml:"chart"`
	Display     DisplayConfig  `toml:"display"`
	Session     SessionConfig  `toml:"session"`
	Logging     LoggingConfig  `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// AnalysisConfig describes the remote analysis endpoint.
type AnalysisConfig struct {
	URL          string `toml:"url"`
	HealthURL    string `toml:"health_url"`
	Encoding     string `toml:"encoding"` // multipart, csv or json
	Timeout      string `toml:"timeout"`  // empty: no timeout
	RateLimit    int    `toml:"rate_limit"`
	HoldingsPath string `toml:"holdings_path"`
	SectorsPath  string `toml:"sectors_path"`
	// RequireFullAllocation rejects weight totals other than 100% before the
	// request is sent.
	RequireFullAllocation bool `toml:"require_full_allocation"`
}

// GetTimeout parses the timeout. Zero means the request may wait forever.
func (c *AnalysisConfig) GetTimeout() time.Duration {
	if c.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// ChartConfig controls server-side chart drawing.
type ChartConfig struct {
	FontPath string `toml:"font_path"`
	Width    int    `toml:"width"`
	Height   int    `toml:"height"`
}

// DisplayConfig controls how results are presented.
type DisplayConfig struct {
	Currency        string `toml:"currency"`
	Layout          string `toml:"layout"` // table or cards
	ErrorAutoHide   string `toml:"error_autohide"`
	DefaultViewport int    `toml:"default_viewport"`
}

// GetErrorAutoHide parses the status auto-hide delay.
func (c *DisplayConfig) GetErrorAutoHide() time.Duration {
	d, err := time.ParseDuration(c.ErrorAutoHide)
	if err != nil {
		return 3 * time.Second
	}
	return d
}

// SessionConfig bounds the in-memory per-browser view state.
type SessionConfig struct {
	TTL        string `toml:"ttl"`
	MaxEntries int    `toml:"max_entries"`
}

// GetTTL parses the session TTL.
func (c *SessionConfig) GetTTL() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// ToCommon converts the TOML section to the logger's config.
func (c LoggingConfig) ToCommon() common.LoggingConfig {
	return common.LoggingConfig{
		Level:      c.Level,
		Outputs:    c.Outputs,
		FilePath:   c.FilePath,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
	}
}

// IsDevMode reports whether the environment is "dev".
func (c *Config) IsDevMode() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "dev")
}

// BaseURL returns the portal's own URL.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
}

// Validate returns the list of configuration problems. Empty means valid.
func (c *Config) Validate() []string {
	var issues []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port must be 1-65535 (got %d)", c.Server.Port))
	}

	if c.Analysis.URL == "" {
		issues = append(issues, "analysis.url is required (FUND_ANALYSIS_URL)")
	} else if u, err := url.Parse(c.Analysis.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		issues = append(issues, fmt.Sprintf("analysis.url must be an absolute http(s) URL (got %q)", c.Analysis.URL))
	}

	if _, err := models.ParseEncoding(c.Analysis.Encoding); err != nil {
		issues = append(issues, "analysis.encoding: "+err.Error())
	}

	if c.Analysis.Timeout != "" {
		if _, err := time.ParseDuration(c.Analysis.Timeout); err != nil {
			issues = append(issues, fmt.Sprintf("analysis.timeout is not a duration (got %q)", c.Analysis.Timeout))
		}
	}

	switch c.Display.Layout {
	case "table", "cards":
	default:
		issues = append(issues, fmt.Sprintf("display.layout must be table or cards (got %q)", c.Display.Layout))
	}

	return issues
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies FUND_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FUND_ENV"); env != "" {
		config.Environment = env
	}
	if port := os.Getenv("FUND_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("FUND_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if u := os.Getenv("FUND_ANALYSIS_URL"); u != "" {
		config.Analysis.URL = u
	}
	if enc := os.Getenv("FUND_ANALYSIS_ENCODING"); enc != "" {
		config.Analysis.Encoding = enc
	}
	if timeout := os.Getenv("FUND_ANALYSIS_TIMEOUT"); timeout != "" {
		config.Analysis.Timeout = timeout
	}
	if font := os.Getenv("FUND_CHART_FONT_PATH"); font != "" {
		config.Chart.FontPath = font
	}
	if cur := os.Getenv("FUND_DISPLAY_CURRENCY"); cur != "" {
		config.Display.Currency = cur
	}
	if level := os.Getenv("FUND_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}
