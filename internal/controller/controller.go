// Package controller drives one browser session's portfolio form through a
// submission and keeps the view state the pages render from.
package controller

//go:generate mockgen -source=controller.go -destination=mock_analyzer.go -package=controller

import (
	"context"
	"errors"
	"sync"

	"github.com/bobmcallan/fund-breakdown/internal/chart"
	"github.com/bobmcallan/fund-breakdown/internal/client"
	"github.com/bobmcallan/fund-breakdown/internal/common"
	"github.com/bobmcallan/fund-breakdown/internal/models"
	"github.com/bobmcallan/fund-breakdown/internal/portfolio"
)

// Analyzer submits a portfolio for analysis.
type Analyzer interface {
	Analyze(ctx context.Context, lines models.Lines) (*models.Result, error)
}

// ViewState is what the portal shows for a session.
type ViewState struct {
	ErrorVisible   bool
	ErrorMessage   string
	Loading        bool
	ResultsVisible bool
	Result         *models.Result
	Chart          *chart.Instance
}

// errClosed is returned by a submission that finished after Close.
var errClosed = errors.New("session closed")

// Controller owns a session's form and view state. Submissions from the same
// session run one at a time; each successful one replaces the result.
type Controller struct {
	submitMu sync.Mutex
	mu       sync.Mutex
	closed   bool
	analyzer Analyzer
	renderer *chart.Renderer
	rules    portfolio.Rules
	logger   *common.Logger
	form     *portfolio.Form
	state    ViewState
	onChange func(ViewState)
}

// New creates a controller with an empty one-row form.
func New(analyzer Analyzer, renderer *chart.Renderer, rules portfolio.Rules, logger *common.Logger) *Controller {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Controller{
		analyzer: analyzer,
		renderer: renderer,
		rules:    rules,
		logger:   logger,
		form:     portfolio.NewForm(),
	}
}

// OnChange registers fn to receive the state after every transition.
func (c *Controller) OnChange(fn func(ViewState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// State returns a snapshot of the view state.
func (c *Controller) State() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Rules returns the validation rules applied on submit.
func (c *Controller) Rules() portfolio.Rules { return c.rules }

// Form returns a copy of the session's form.
func (c *Controller) Form() portfolio.Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyForm(c.form)
}

// UpdateForm replaces the form with f, applies edit to it and returns the
// result. edit may be nil.
func (c *Controller) UpdateForm(f *portfolio.Form, edit func(*portfolio.Form)) portfolio.Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f != nil {
		c.form = f
	}
	if edit != nil {
		edit(c.form)
	}
	return copyForm(c.form)
}

// Submit validates lines, sends them to the analyzer and updates the view.
// A failure leaves the previous result and chart in place and shows a
// message. The returned state is the one after loading has cleared.
//
// The state lock is released while the analyzer runs so readers see the
// loading state. Submissions from one session still run one at a time.
func (c *Controller) Submit(ctx context.Context, lines models.Lines, viewportWidth int) (ViewState, error) {
	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	c.mu.Lock()
	if err := portfolio.Validate(lines, c.rules); err != nil {
		c.state.ErrorVisible = true
		c.state.ErrorMessage = err.Error()
		c.emit()
		state := c.state
		c.mu.Unlock()
		return state, err
	}

	c.state.ErrorVisible = false
	c.state.ErrorMessage = ""
	c.emit()
	c.state.Loading = true
	c.emit()
	c.state.ResultsVisible = false
	c.emit()
	c.mu.Unlock()

	result, in, err := c.run(ctx, lines, viewportWidth)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil && c.closed {
		c.renderer.Destroy()
		err = errClosed
	}
	if err == nil {
		c.state.Result = result
		c.state.Chart = in
		c.state.ResultsVisible = true
		c.emit()

		c.logger.Info().
			Int("lines", len(lines)).
			Int("holdings", len(result.Holdings)).
			Int("sectors", len(result.Sectors)).
			Msg("Analysis complete")
	} else {
		c.state.ErrorVisible = true
		c.state.ErrorMessage = client.UserMessage(err)
		c.state.ResultsVisible = c.state.Result != nil
		c.emit()

		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			c.logger.Warn().Int("status", apiErr.StatusCode).Str("message", apiErr.Message).Msg("Analysis rejected")
		} else {
			c.logger.Error().Err(err).Msg("Analysis failed")
		}
	}

	c.state.Loading = false
	c.emit()
	return c.state, err
}

// run calls the analyzer and draws the chart. It must not hold mu.
func (c *Controller) run(ctx context.Context, lines models.Lines, viewportWidth int) (*models.Result, *chart.Instance, error) {
	result, err := c.analyzer.Analyze(ctx, lines)
	if err != nil {
		return nil, nil, err
	}
	in, err := c.renderer.Draw(ctx, result.Sectors, viewportWidth)
	if err != nil {
		return nil, nil, err
	}
	return result, in, nil
}

// Dismiss hides the current error message.
func (c *Controller) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.ErrorVisible {
		return
	}
	c.state.ErrorVisible = false
	c.state.ErrorMessage = ""
	c.emit()
}

// Close releases the session's chart.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.renderer.Destroy()
	c.state.Chart = nil
}

// emit reports the state to the change hook. Must be called with mu held.
func (c *Controller) emit() {
	if c.onChange != nil {
		c.onChange(c.state)
	}
}

func copyForm(f *portfolio.Form) portfolio.Form {
	out := portfolio.Form{NextLabel: f.NextLabel}
	out.Lines = append(models.Lines(nil), f.Lines...)
	return out
}
