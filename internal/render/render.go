// Package render projects analysis results into display rows for the
// holdings table, the holdings cards and the sector table.
package render

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/fund-breakdown/internal/models"
)

// Layout selects how holdings are displayed.
type Layout string

const (
	LayoutTable Layout = "table"
	LayoutCards Layout = "cards"
)

// ParseLayout maps a config or query value to a Layout, falling back to def.
func ParseLayout(s string, def Layout) Layout {
	switch Layout(strings.ToLower(strings.TrimSpace(s))) {
	case LayoutTable:
		return LayoutTable
	case LayoutCards:
		return LayoutCards
	}
	return def
}

// HoldingRow is one displayed holding with every number preformatted.
type HoldingRow struct {
	Name        string
	Ticker      string
	Sector      string
	Nation      string
	Type        string
	Direct      bool
	Weight      string
	WeightLabel string
	Price       string
	Value       string
}

// SectorRow is one line of the sector table.
type SectorRow struct {
	Name    string
	Weight  string
	Color   string
	Tooltip string
}

// Formatter formats numbers for one display currency.
type Formatter struct {
	currency string
}

// NewFormatter returns a formatter for an ISO 4217 currency code. Unknown
// codes fall back to USD.
func NewFormatter(currency string) *Formatter {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if money.GetCurrency(code) == nil {
		code = money.USD
	}
	return &Formatter{currency: code}
}

// Currency returns the active currency code.
func (f *Formatter) Currency() string { return f.currency }

// Percent prints a weighting with exactly two decimals.
func (f *Formatter) Percent(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Money prints an amount in the display currency, e.g. "$1,234.50".
func (f *Formatter) Money(v float64) string {
	cur := money.GetCurrency(f.currency)
	factor := decimal.NewFromInt(10).Pow(decimal.NewFromInt(int64(cur.Fraction)))
	minor := decimal.NewFromFloat(v).Mul(factor).Round(0).IntPart()
	return money.New(minor, f.currency).Display()
}

// Holdings maps each holding to a row in input order.
func (f *Formatter) Holdings(holdings []models.Holding) []HoldingRow {
	rows := make([]HoldingRow, len(holdings))
	for i, h := range holdings {
		weight := f.Percent(h.Weighting)
		rows[i] = HoldingRow{
			Name:        h.Name,
			Ticker:      h.Ticker,
			Sector:      h.Sector,
			Nation:      h.Nation,
			Type:        h.Type,
			Direct:      h.Direct,
			Weight:      weight,
			WeightLabel: fmt.Sprintf("Weight %s percent", weight),
			Price:       f.Money(h.Price),
			Value:       f.Money(h.Value),
		}
	}
	return rows
}

// Sectors maps a breakdown to table rows in breakdown order. Colors match
// the chart slice for the same index.
func (f *Formatter) Sectors(sectors models.Sectors, color func(int) string) []SectorRow {
	rows := make([]SectorRow, len(sectors))
	for i, s := range sectors {
		pct := f.Percent(s.Weight)
		rows[i] = SectorRow{Name: s.Name, Weight: pct, Tooltip: s.Name + ": " + pct + "%"}
		if color != nil {
			rows[i].Color = color(i)
		}
	}
	return rows
}

// HoldingsMarkdown renders holdings as a markdown table.
func (f *Formatter) HoldingsMarkdown(holdings []models.Holding) string {
	var sb strings.Builder
	sb.WriteString("| Name | Ticker | Sector | Nation | Weight |\n")
	sb.WriteString("|------|--------|--------|--------|-------:|\n")
	for _, r := range f.Holdings(holdings) {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s%% |\n",
			escapeCell(r.Name), escapeCell(r.Ticker), escapeCell(r.Sector), escapeCell(r.Nation), r.Weight))
	}
	return sb.String()
}

// SectorsMarkdown renders a sector breakdown as a markdown table.
func (f *Formatter) SectorsMarkdown(sectors models.Sectors) string {
	var sb strings.Builder
	sb.WriteString("| Sector | Weight |\n")
	sb.WriteString("|--------|-------:|\n")
	for _, r := range f.Sectors(sectors, nil) {
		sb.WriteString(fmt.Sprintf("| %s | %s%% |\n", escapeCell(r.Name), r.Weight))
	}
	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
