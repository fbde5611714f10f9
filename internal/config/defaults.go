package config

import "github.com/bobmcallan/fund-breakdown/internal/models"

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "prod",
		Server: ServerConfig{
			Port: 8500,
			Host: "localhost",
		},
		Analysis: AnalysisConfig{
			URL:          "http://localhost:8000/analyze",
			Encoding:     string(models.EncodingMultipart),
			RateLimit:    5,
			HoldingsPath: "$.holdings",
			SectorsPath:  "$.sectors",
		},
		Chart: ChartConfig{
			Width:  640,
			Height: 400,
		},
		Display: DisplayConfig{
			Currency:        "USD",
			Layout:          "table",
			ErrorAutoHide:   "3s",
			DefaultViewport: 1024,
		},
		Session: SessionConfig{
			TTL:        "30m",
			MaxEntries: 1000,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Outputs: []string{"console", "file"},
		},
	}
}
