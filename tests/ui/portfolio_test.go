package ui

import (
	"context"
	"strings"
	"testing"

	"github.com/chromedp/chromedp"

	"github.com/bobmcallan/fund-breakdown/tests/common"
)

const (
	addButton     = `button[formaction="/rows/add"]`
	analyzeButton = `#portfolio-form button.primary`
)

func startUI(t *testing.T) (context.Context, string) {
	t.Helper()
	stub := common.StartAnalysisStub(t)
	base := common.StartPortal(t, stub.URL(), nil)

	ctx, cancel := common.NewBrowser(t)
	t.Cleanup(cancel)
	return ctx, base
}

func waitCount(ctx context.Context, selector string, want int) error {
	return common.WaitFor(ctx, func() (bool, error) {
		n, err := common.ElementCount(ctx, selector)
		return n == want, err
	})
}

func fillRow(ctx context.Context, label, ticker, weight string) error {
	return chromedp.Run(ctx,
		chromedp.SetValue(`input[name="ticker_`+label+`"]`, "", chromedp.ByQuery),
		chromedp.SendKeys(`input[name="ticker_`+label+`"]`, ticker, chromedp.ByQuery),
		chromedp.SetValue(`input[name="weight_`+label+`"]`, "", chromedp.ByQuery),
		chromedp.SendKeys(`input[name="weight_`+label+`"]`, weight, chromedp.ByQuery),
	)
}

func TestPortfolio_RowsAddAndRemoveByLabel(t *testing.T) {
	ctx, base := startUI(t)

	errs := common.NewJSErrorCollector(ctx)
	if err := common.NavigateAndWait(ctx, base+"/"); err != nil {
		t.Fatal(err)
	}
	if err := waitCount(ctx, ".security-row", 1); err != nil {
		t.Fatalf("expected one initial row: %v", err)
	}

	if err := fillRow(ctx, "1", "AAPL", "50"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := chromedp.Run(ctx, chromedp.Click(addButton, chromedp.ByQuery)); err != nil {
			t.Fatal(err)
		}
		if err := waitCount(ctx, ".security-row", i+2); err != nil {
			t.Fatalf("expected %d rows: %v", i+2, err)
		}
	}

	if err := chromedp.Run(ctx, chromedp.Click(`button.remove-row[value="2"]`, chromedp.ByQuery)); err != nil {
		t.Fatal(err)
	}
	if err := waitCount(ctx, ".security-row", 2); err != nil {
		t.Fatalf("expected two rows after remove: %v", err)
	}
	common.Screenshot(t, ctx, "portfolio", "rows-after-remove.png")

	var ticker string
	if err := chromedp.Run(ctx, chromedp.Value(`input[name="ticker_1"]`, &ticker, chromedp.ByQuery)); err != nil {
		t.Fatal(err)
	}
	if ticker != "AAPL" {
		t.Errorf("row 1 ticker = %q, want AAPL", ticker)
	}
	if n, _ := common.ElementCount(ctx, `input[aria-label="Security Ticker 3"]`); n != 1 {
		t.Error("expected row 3 to keep its label")
	}

	if jsErrs := errs.Errors(); len(jsErrs) > 0 {
		t.Errorf("JS errors:\n  %s", strings.Join(jsErrs, "\n  "))
	}
}

func TestPortfolio_AnalyzeThenRejection(t *testing.T) {
	ctx, base := startUI(t)

	if err := common.NavigateAndWait(ctx, base+"/"); err != nil {
		t.Fatal(err)
	}
	if err := fillRow(ctx, "1", "AAPL", "60"); err != nil {
		t.Fatal(err)
	}
	if err := chromedp.Run(ctx, chromedp.Click(addButton, chromedp.ByQuery)); err != nil {
		t.Fatal(err)
	}
	if err := waitCount(ctx, ".security-row", 2); err != nil {
		t.Fatal(err)
	}
	if err := fillRow(ctx, "2", "XOM", "40"); err != nil {
		t.Fatal(err)
	}

	if err := chromedp.Run(ctx,
		chromedp.Click(analyzeButton, chromedp.ByQuery),
		chromedp.WaitVisible(`#sector-table`, chromedp.ByQuery),
	); err != nil {
		t.Fatalf("results never shown: %v", err)
	}
	common.Screenshot(t, ctx, "portfolio", "analysis-results.png")

	if hidden, _ := common.IsHidden(ctx, "#loading"); !hidden {
		t.Error("loading indicator still visible after success")
	}
	if hidden, _ := common.IsHidden(ctx, "#status"); !hidden {
		t.Error("status visible after success")
	}
	if n, _ := common.ElementCount(ctx, "#holdings tbody tr"); n != 3 {
		t.Errorf("expected 3 holdings rows, got %d", n)
	}

	if err := fillRow(ctx, "2", common.RejectedTicker, "40"); err != nil {
		t.Fatal(err)
	}
	if err := chromedp.Run(ctx,
		chromedp.Click(analyzeButton, chromedp.ByQuery),
		chromedp.WaitVisible(`#status`, chromedp.ByQuery),
	); err != nil {
		t.Fatalf("error never shown: %v", err)
	}
	common.Screenshot(t, ctx, "portfolio", "analysis-rejected.png")

	msg, err := common.TextContent(ctx, "#status .status-message")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(msg, "Unknown ticker: "+common.RejectedTicker) {
		t.Errorf("status message = %q", msg)
	}
	if hidden, _ := common.IsHidden(ctx, "#results"); hidden {
		t.Error("previous results hidden after rejection")
	}
}

func TestPortfolio_NarrowViewportLayout(t *testing.T) {
	ctx, base := startUI(t)

	if err := common.SetViewport(ctx, 400, 800); err != nil {
		t.Fatal(err)
	}
	if err := common.NavigateAndWait(ctx, base+"/"); err != nil {
		t.Fatal(err)
	}
	common.Screenshot(t, ctx, "portfolio", "narrow.png")

	if hidden, _ := common.IsHidden(ctx, "#drawer"); !hidden {
		t.Error("expected drawer closed on narrow viewport")
	}
	if err := chromedp.Run(ctx, chromedp.Click(".drawer-toggle", chromedp.ByQuery)); err != nil {
		t.Fatal(err)
	}
	var expanded string
	var ok bool
	if err := chromedp.Run(ctx, chromedp.AttributeValue(".drawer-toggle", "aria-expanded", &expanded, &ok, chromedp.ByQuery)); err != nil {
		t.Fatal(err)
	}
	if expanded != "true" {
		t.Errorf("aria-expanded = %q after toggle", expanded)
	}
}
