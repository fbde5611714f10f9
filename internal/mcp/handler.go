// Package mcp exposes portfolio analysis as MCP tools over streamable HTTP.
package mcp

import (
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/fund-breakdown/internal/common"
	"github.com/bobmcallan/fund-breakdown/internal/config"
	"github.com/bobmcallan/fund-breakdown/internal/controller"
	"github.com/bobmcallan/fund-breakdown/internal/portfolio"
	"github.com/bobmcallan/fund-breakdown/internal/render"
)

// Service is what the MCP tools need from the analysis client.
type Service interface {
	controller.Analyzer
	HealthChecker
}

// Handler is the HTTP handler for the MCP endpoint.
// It wraps mcp-go's StreamableHTTPServer and delegates to it.
type Handler struct {
	server     *mcpserver.MCPServer
	streamable *mcpserver.StreamableHTTPServer
	logger     *common.Logger
}

// NewHandler creates the MCP handler with the analyze_portfolio and
// get_version tools registered.
func NewHandler(svc Service, rules portfolio.Rules, f *render.Formatter, logger *common.Logger) *Handler {
	mcpSrv := mcpserver.NewMCPServer(
		"fund-breakdown",
		config.GetVersion(),
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(AnalyzeTool(rules), AnalyzeToolHandler(svc, rules, f))
	mcpSrv.AddTool(VersionTool(), VersionToolHandler(svc))

	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithStateLess(true),
	)

	logger.Info().Int("tools", 2).Msg("MCP handler initialized")

	return &Handler{
		server:     mcpSrv,
		streamable: streamable,
		logger:     logger,
	}
}

// MCPServer returns the underlying server for in-process calls.
func (h *Handler) MCPServer() *mcpserver.MCPServer { return h.server }

// ServeHTTP delegates to the mcp-go StreamableHTTPServer.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.streamable.ServeHTTP(w, r)
}
