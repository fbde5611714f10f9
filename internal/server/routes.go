package server

import "net/http"

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// UI page routes (HTML templates)
	mux.HandleFunc("/", s.app.PortfolioHandler.ServeIndex)
	mux.HandleFunc("/holdings", s.app.PortfolioHandler.ServeHoldings)

	// Form actions; each returns a fragment when X-Fragment is set
	mux.HandleFunc("/rows/add", s.app.PortfolioHandler.AddRow)
	mux.HandleFunc("/rows/remove", s.app.PortfolioHandler.RemoveRow)
	mux.HandleFunc("/analyze", s.app.PortfolioHandler.Analyze)
	mux.HandleFunc("/status/dismiss", s.app.PortfolioHandler.Dismiss)

	mux.HandleFunc("/chart.svg", s.app.ChartHandler.ServeSVG)

	// Static files (CSS, JS)
	mux.HandleFunc("/static/", s.app.PageHandler.StaticFileHandler)

	// MCP endpoint (JSON-RPC over HTTP)
	if s.app.MCPHandler != nil {
		mux.Handle("/mcp", s.app.MCPHandler)
	}

	// API routes
	mux.HandleFunc("/api/health", s.app.HealthHandler.ServeHTTP)
	mux.HandleFunc("/api/version", s.app.VersionHandler.ServeHTTP)
	mux.HandleFunc("/api/server-health", s.app.ServerHealthHandler.ServeHTTP)
	mux.HandleFunc("/api/chart-config", s.app.ChartHandler.ServeConfig)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.handleNotFound)

	return mux
}

// handleNotFound returns a JSON 404 for unmatched API routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":"Not Found","message":"The requested endpoint does not exist"}`))
}
