package common

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintBanner_IncludesInfo(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, BannerInfo{
		Version:     "1.2.3",
		Environment: "dev",
		ServiceURL:  "http://localhost:8500",
		AnalysisURL: "http://analysis:8000/analyze",
	}, NewSilentLogger())

	out := buf.String()
	for _, want := range []string{"FUND BREAKDOWN", "1.2.3", "http://localhost:8500", "http://analysis:8000/analyze"} {
		if !strings.Contains(out, want) {
			t.Errorf("banner missing %q", want)
		}
	}
}

func TestPrintShutdownBanner_NilLogger(t *testing.T) {
	var buf bytes.Buffer
	PrintShutdownBanner(&buf, nil)
	if !strings.Contains(buf.String(), "SHUTTING DOWN") {
		t.Errorf("unexpected shutdown banner: %q", buf.String())
	}
}
