package app

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/fund-breakdown/internal/cache"
	"github.com/bobmcallan/fund-breakdown/internal/chart"
	"github.com/bobmcallan/fund-breakdown/internal/client"
	"github.com/bobmcallan/fund-breakdown/internal/common"
	"github.com/bobmcallan/fund-breakdown/internal/config"
	"github.com/bobmcallan/fund-breakdown/internal/controller"
	"github.com/bobmcallan/fund-breakdown/internal/handlers"
	"github.com/bobmcallan/fund-breakdown/internal/mcp"
	"github.com/bobmcallan/fund-breakdown/internal/models"
	"github.com/bobmcallan/fund-breakdown/internal/portfolio"
	"github.com/bobmcallan/fund-breakdown/internal/render"
)

// sweepInterval is how often expired sessions are dropped.
const sweepInterval = time.Minute

// App holds all application components and dependencies.
type App struct {
	Config *config.Config
	Logger *common.Logger

	Client    *client.AnalysisClient
	FontCache *chart.Loader
	Sessions  *handlers.Sessions

	// HTTP handlers
	PageHandler         *handlers.PageHandler
	PortfolioHandler    *handlers.PortfolioHandler
	ChartHandler        *handlers.ChartHandler
	HealthHandler       *handlers.HealthHandler
	VersionHandler      *handlers.VersionHandler
	ServerHealthHandler *handlers.ServerHealthHandler
	MCPHandler          *mcp.Handler

	stop      chan struct{}
	closeOnce sync.Once
}

// New initializes the application with all dependencies.
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	if issues := cfg.Validate(); len(issues) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(issues, "; "))
	}

	enc, err := models.ParseEncoding(cfg.Analysis.Encoding)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		Logger: logger,
		stop:   make(chan struct{}),
	}

	env := strings.ToLower(strings.TrimSpace(cfg.Environment))
	if env != "prod" && env != "dev" && env != "" {
		logger.Warn().
			Str("environment", cfg.Environment).
			Msg("unrecognized environment value, defaulting to prod behavior")
	}

	a.Client = client.NewAnalysisClient(cfg.Analysis.URL,
		client.WithEncoding(enc),
		client.WithTimeout(cfg.Analysis.GetTimeout()),
		client.WithRateLimit(cfg.Analysis.RateLimit),
		client.WithPaths(cfg.Analysis.HoldingsPath, cfg.Analysis.SectorsPath),
		client.WithHealthURL(cfg.Analysis.HealthURL),
		client.WithLogger(logger),
	)
	a.FontCache = chart.NewLoader(cfg.Chart.FontPath)

	rules := portfolio.Rules{
		WeightMode:            enc.WeightMode(),
		RequireFullAllocation: cfg.Analysis.RequireFullAllocation,
	}
	a.initHandlers(rules)

	go a.sweepSessions()

	logger.Info().
		Str("analysis_url", cfg.Analysis.URL).
		Str("encoding", string(enc)).
		Msg("application initialization complete")

	return a, nil
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers(rules portfolio.Rules) {
	formatter := render.NewFormatter(a.Config.Display.Currency)

	store := cache.New[*controller.Controller](a.Config.Session.GetTTL(), a.Config.Session.MaxEntries)
	a.Sessions = handlers.NewSessions(store, func() *controller.Controller {
		renderer := chart.NewRenderer(a.FontCache, a.Config.Chart.Width, a.Config.Chart.Height)
		return controller.New(a.Client, renderer, rules, a.Logger)
	}, a.Logger, strings.HasPrefix(a.Config.BaseURL(), "https://"))

	a.PageHandler = handlers.NewPageHandler(a.Logger)
	a.PortfolioHandler = handlers.NewPortfolioHandler(a.Logger, a.PageHandler, a.Sessions, formatter, handlers.PortfolioOptions{
		Layout:          render.ParseLayout(a.Config.Display.Layout, render.LayoutTable),
		ErrorAutoHide:   a.Config.Display.GetErrorAutoHide(),
		DefaultViewport: a.Config.Display.DefaultViewport,
		WeightMode:      rules.WeightMode,
	})
	a.ChartHandler = handlers.NewChartHandler(a.Logger, a.Sessions, a.Config.Display.DefaultViewport)
	a.HealthHandler = handlers.NewHealthHandler(a.Logger)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.ServerHealthHandler = handlers.NewServerHealthHandler(a.Logger, a.Client)
	a.MCPHandler = mcp.NewHandler(a.Client, rules, formatter, a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

func (a *App) sweepSessions() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
			if n := a.Sessions.Sweep(); n > 0 {
				a.Logger.Debug().Int("expired", n).Msg("sessions swept")
			}
		}
	}
}

// Close stops background work.
func (a *App) Close() error {
	a.closeOnce.Do(func() { close(a.stop) })
	return nil
}
