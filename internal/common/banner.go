package common

import (
	"fmt"
	"io"
	"strings"

	"github.com/ternarybob/banner"
)

// BannerInfo is what the startup banner prints below the title.
type BannerInfo struct {
	Version     string
	Build       string
	Commit      string
	Environment string
	ServiceURL  string
	AnalysisURL string
}

// PrintBanner writes the startup banner to w and logs the same facts.
func PrintBanner(w io.Writer, info BannerInfo, logger *Logger) {
	line := banner.ColorCyan + strings.Repeat("═", 60) + banner.ColorReset
	text := banner.ColorBold + banner.ColorWhite

	fmt.Fprintf(w, "\n%s\n\n", line)
	fmt.Fprintf(w, "%s  FUND BREAKDOWN%s\n", text, banner.ColorReset)
	fmt.Fprintf(w, "%s  Portfolio look-through and sector analysis%s\n\n", text, banner.ColorReset)
	fmt.Fprintf(w, "%s\n\n", line)

	rows := [][2]string{
		{"Version", info.Version},
		{"Build", info.Build},
		{"Commit", info.Commit},
		{"Environment", info.Environment},
		{"Service URL", info.ServiceURL},
		{"Analysis URL", info.AnalysisURL},
	}
	for _, kv := range rows {
		fmt.Fprintf(w, "%s  %-14s %s%s\n", text, kv[0], kv[1], banner.ColorReset)
	}
	fmt.Fprintf(w, "\n%s\n\n", line)

	if logger != nil {
		logger.Info().
			Str("version", info.Version).
			Str("environment", info.Environment).
			Str("service_url", info.ServiceURL).
			Str("analysis_url", info.AnalysisURL).
			Msg("application started")
	}
}

// PrintShutdownBanner writes the shutdown notice to w.
func PrintShutdownBanner(w io.Writer, logger *Logger) {
	line := banner.ColorCyan + strings.Repeat("═", 36) + banner.ColorReset
	fmt.Fprintf(w, "\n%s\n%s  FUND BREAKDOWN - SHUTTING DOWN%s\n%s\n\n",
		line, banner.ColorBold+banner.ColorWhite, banner.ColorReset, line)
	if logger != nil {
		logger.Info().Msg("application shutting down")
	}
}
