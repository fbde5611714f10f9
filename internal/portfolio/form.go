// Package portfolio holds the entry form state: the ordered security rows a
// user edits before submitting them for analysis.
package portfolio

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/bobmcallan/fund-breakdown/internal/models"
)

// Form is the entry form. NextLabel is the highest label ever issued, so a
// removed row's label is never handed out again.
type Form struct {
	Lines     models.Lines
	NextLabel int
}

// NewForm returns the initial form: a single blank row labelled 1.
func NewForm() *Form {
	return &Form{
		Lines:     models.Lines{{Label: 1}},
		NextLabel: 1,
	}
}

// Add appends a blank row with the next label and returns it.
func (f *Form) Add() models.Line {
	f.NextLabel = max(f.NextLabel, maxLabel(f.Lines)) + 1
	line := models.Line{Label: f.NextLabel}
	f.Lines = append(f.Lines, line)
	return line
}

// Remove deletes the row carrying label. Rows are identified by label, never
// by position, so other rows keep their labels and values.
func (f *Form) Remove(label int) bool {
	for i, l := range f.Lines {
		if l.Label == label {
			f.Lines = append(f.Lines[:i:i], f.Lines[i+1:]...)
			return true
		}
	}
	return false
}

// Filled returns the rows that have at least one field set.
func (f *Form) Filled() models.Lines {
	out := make(models.Lines, 0, len(f.Lines))
	for _, l := range f.Lines {
		if !l.IsBlank() {
			out = append(out, l)
		}
	}
	return out
}

// ParseForm reads the rows posted by the entry form. Three layouts are
// accepted:
//
//   - repeated ticker/weight fields with optional label fields
//     (symbol/shares are accepted as aliases)
//   - indexed ticker_<n>/weight_<n> fields
//   - comma-separated symbols and shares fields
//
// Rows without a usable label are numbered after the highest one seen.
func ParseForm(v url.Values) *Form {
	f := &Form{}
	if n, err := strconv.Atoi(v.Get("next_label")); err == nil && n > 0 {
		f.NextLabel = n
	}

	switch {
	case len(v["ticker"]) > 0 || len(v["symbol"]) > 0:
		f.Lines = parseRepeated(v)
	case v.Get("symbols") != "":
		f.Lines = parseCSV(v.Get("symbols"), v.Get("shares"))
	default:
		f.Lines = parseIndexed(v)
	}

	f.assignLabels()
	f.NextLabel = max(f.NextLabel, maxLabel(f.Lines))
	return f
}

func parseRepeated(v url.Values) models.Lines {
	tickers := firstNonEmpty(v["ticker"], v["symbol"])
	weights := firstNonEmpty(v["weight"], v["shares"])
	labels := v["label"]

	lines := make(models.Lines, len(tickers))
	for i, t := range tickers {
		lines[i].Ticker = strings.TrimSpace(t)
		if i < len(weights) {
			lines[i].Weight = strings.TrimSpace(weights[i])
		}
		if i < len(labels) {
			lines[i].Label, _ = strconv.Atoi(labels[i])
		}
	}
	return lines
}

func parseIndexed(v url.Values) models.Lines {
	seen := make(map[int]bool)
	for key := range v {
		for _, prefix := range []string{"ticker_", "weight_"} {
			if n, ok := strings.CutPrefix(key, prefix); ok {
				if label, err := strconv.Atoi(n); err == nil && label > 0 {
					seen[label] = true
				}
			}
		}
	}

	labels := make([]int, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	lines := make(models.Lines, len(labels))
	for i, label := range labels {
		suffix := strconv.Itoa(label)
		lines[i] = models.Line{
			Label:  label,
			Ticker: strings.TrimSpace(v.Get("ticker_" + suffix)),
			Weight: strings.TrimSpace(v.Get("weight_" + suffix)),
		}
	}
	return lines
}

func parseCSV(symbols, shares string) models.Lines {
	syms := strings.Split(symbols, ",")
	counts := strings.Split(shares, ",")
	lines := make(models.Lines, len(syms))
	for i, s := range syms {
		lines[i].Ticker = strings.TrimSpace(s)
		if i < len(counts) {
			lines[i].Weight = strings.TrimSpace(counts[i])
		}
	}
	return lines
}

// assignLabels numbers rows whose label is missing or already taken.
func (f *Form) assignLabels() {
	used := make(map[int]bool, len(f.Lines))
	next := max(f.NextLabel, maxLabel(f.Lines))
	for i := range f.Lines {
		l := f.Lines[i].Label
		if l <= 0 || used[l] {
			next++
			f.Lines[i].Label = next
			l = next
		}
		used[l] = true
	}
}

func maxLabel(lines models.Lines) int {
	m := 0
	for _, l := range lines {
		m = max(m, l.Label)
	}
	return m
}

func firstNonEmpty(a, b []string) []string {
	if len(a) > 0 {
		return a
	}
	return b
}
