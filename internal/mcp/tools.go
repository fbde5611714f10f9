package mcp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/fund-breakdown/internal/client"
	"github.com/bobmcallan/fund-breakdown/internal/controller"
	"github.com/bobmcallan/fund-breakdown/internal/models"
	"github.com/bobmcallan/fund-breakdown/internal/portfolio"
	"github.com/bobmcallan/fund-breakdown/internal/render"
)

// AnalyzeTool returns the mcp.Tool definition for analyze_portfolio.
func AnalyzeTool(rules portfolio.Rules) mcp.Tool {
	weightDesc := "Weight percentage per ticker, in the same order (e.g. [40, 60])"
	if !rules.WeightMode {
		weightDesc = "Share count per ticker, in the same order (e.g. [10, 25])"
	}
	return mcp.NewTool("analyze_portfolio",
		mcp.WithDescription("Break a portfolio of funds and securities down into its underlying holdings and sector weights."),
		mcp.WithArray("tickers", mcp.WithStringItems(), mcp.Required(), mcp.Description("Security tickers (e.g. ['VTI', 'AAPL'])")),
		mcp.WithArray("weights", mcp.Required(), mcp.Description(weightDesc)),
	)
}

// AnalyzeToolHandler validates the arguments, submits them and renders the
// result as markdown tables.
func AnalyzeToolHandler(analyzer controller.Analyzer, rules portfolio.Rules, f *render.Formatter) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		lines, err := linesFromRequest(r)
		if err != nil {
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}
		if err := portfolio.Validate(lines, rules); err != nil {
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}

		result, err := analyzer.Analyze(ctx, lines)
		if err != nil {
			return errorResult(fmt.Sprintf("Analysis error: %s", client.UserMessage(err))), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("# Portfolio breakdown\n\n%d holdings across %d sectors.\n\n", len(result.Holdings), len(result.Sectors)))
		sb.WriteString("## Holdings\n\n")
		sb.WriteString(f.HoldingsMarkdown(result.Holdings))
		sb.WriteString("\n## Sectors\n\n")
		sb.WriteString(f.SectorsMarkdown(result.Sectors))
		return textResult(sb.String()), nil
	}
}

// linesFromRequest pairs the tickers and weights arguments into form lines
// labelled from 1.
func linesFromRequest(r mcp.CallToolRequest) (models.Lines, error) {
	tickers := r.GetStringSlice("tickers", nil)
	if len(tickers) == 0 {
		return nil, fmt.Errorf("tickers parameter is required")
	}

	var raw []any
	if args := r.GetArguments(); args != nil {
		raw, _ = args["weights"].([]any)
	}
	if len(raw) != len(tickers) {
		return nil, fmt.Errorf("expected %d weights, got %d", len(tickers), len(raw))
	}

	lines := make(models.Lines, len(tickers))
	for i, t := range tickers {
		w, err := weightString(raw[i])
		if err != nil {
			return nil, fmt.Errorf("weight %d: %w", i+1, err)
		}
		lines[i] = models.Line{Label: i + 1, Ticker: strings.TrimSpace(t), Weight: w}
	}
	return lines, nil
}

func weightString(v any) (string, error) {
	switch w := v.(type) {
	case float64:
		return strconv.FormatFloat(w, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(w), nil
	case string:
		return strings.TrimSpace(w), nil
	}
	return "", fmt.Errorf("unsupported value %v", v)
}
