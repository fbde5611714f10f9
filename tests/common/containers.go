package common

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bobmcallan/fund-breakdown/internal/app"
	applog "github.com/bobmcallan/fund-breakdown/internal/common"
	"github.com/bobmcallan/fund-breakdown/internal/config"
	"github.com/bobmcallan/fund-breakdown/internal/server"
)

// RejectedTicker makes the stub answer 400 with a detail message.
const RejectedTicker = "ZZZZ"

// stubMappings are WireMock stubs standing in for the analysis service. The
// rejection mapping has a higher priority so it wins over the catch-all.
var stubMappings = map[string]string{
	"analyze.json": `{
  "priority": 5,
  "request": {"method": "POST", "url": "/analyze"},
  "response": {
    "status": 200,
    "headers": {"Content-Type": "application/json"},
    "jsonBody": {
      "holdings": [
        {"name": "Apple Inc", "ticker": "AAPL", "sector": "Technology", "nation": "US", "weighting": 40, "price": 190.5, "value": 3810},
        {"name": "Exxon Mobil", "ticker": "XOM", "sector": "Energy", "nation": "US", "weighting": 35},
        {"name": "JPMorgan Chase", "ticker": "JPM", "sector": "Financials", "nation": "US", "weighting": 25}
      ],
      "sectors": {"Technology": 40, "Energy": 35, "Financials": 25}
    }
  }
}`,
	"reject.json": `{
  "priority": 1,
  "request": {
    "method": "POST",
    "url": "/analyze",
    "bodyPatterns": [{"contains": "` + RejectedTicker + `"}]
  },
  "response": {
    "status": 400,
    "headers": {"Content-Type": "application/json"},
    "jsonBody": {"detail": "Unknown ticker: ` + RejectedTicker + `"}
  }
}`,
	"health.json": `{
  "request": {"method": "GET", "url": "/"},
  "response": {"status": 200, "body": "ok"}
}`,
}

// AnalysisStub is a WireMock container serving canned analysis responses.
type AnalysisStub struct {
	container testcontainers.Container
	url       string
}

// URL returns the stub's analyze endpoint.
func (s *AnalysisStub) URL() string {
	return s.url + "/analyze"
}

// CollectLogs saves the container output to dir.
func (s *AnalysisStub) CollectLogs(dir string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reader, err := s.container.Logs(ctx)
	if err != nil {
		return
	}
	defer reader.Close()

	logs, err := io.ReadAll(reader)
	if err != nil {
		return
	}
	os.MkdirAll(dir, 0755)
	os.WriteFile(filepath.Join(dir, "analysis-stub.log"), logs, 0644)
}

// StartAnalysisStub starts the stub container, skipping the test when no
// Docker provider is available. The container is removed on cleanup.
func StartAnalysisStub(t *testing.T) *AnalysisStub {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	files := make([]testcontainers.ContainerFile, 0, len(stubMappings))
	for name, body := range stubMappings {
		files = append(files, testcontainers.ContainerFile{
			Reader:            strings.NewReader(body),
			ContainerFilePath: "/home/wiremock/mappings/" + name,
			FileMode:          0644,
		})
	}

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        LoadTestConfig().Stub.Image,
			ExposedPorts: []string{"8080/tcp"},
			Files:        files,
			WaitingFor: wait.ForHTTP("/__admin/mappings").
				WithPort("8080/tcp").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start analysis stub: %v", err)
	}

	stub := &AnalysisStub{container: ctr}
	t.Cleanup(func() {
		if t.Failed() {
			stub.CollectLogs(GetScreenshotDir("logs"))
		}
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cleanupCancel()
		ctr.Terminate(cleanupCtx)
	})

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("get stub host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "8080/tcp")
	if err != nil {
		t.Fatalf("get stub port: %v", err)
	}
	stub.url = fmt.Sprintf("http://%s:%s", host, port.Port())
	return stub
}

// StartPortal runs the service in-process against analysisURL and returns its
// base URL. edit may adjust the config before the app is built.
func StartPortal(t *testing.T, analysisURL string, edit func(*config.Config)) string {
	t.Helper()

	cfg := config.NewDefaultConfig()
	cfg.Environment = "dev"
	cfg.Analysis.URL = analysisURL
	cfg.Logging.Outputs = []string{"console"}
	cfg.Logging.Level = "warn"
	if edit != nil {
		edit(cfg)
	}

	application, err := app.New(cfg, applog.NewLoggerFromConfig(cfg.Logging.ToCommon()))
	if err != nil {
		t.Fatalf("create app: %v", err)
	}

	ts := httptest.NewServer(server.New(application).Handler())
	t.Cleanup(func() {
		ts.Close()
		application.Close()
	})
	return ts.URL
}
