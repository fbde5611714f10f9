package portfolio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/fund-breakdown/internal/models"
)

var (
	hundred       = decimal.NewFromInt(100)
	allocationTol = decimal.RequireFromString("0.01")
)

// Problem is one invalid field.
type Problem struct {
	Label   int
	Field   string
	Message string
}

// ValidationError lists every problem found in a form.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Message
	}
	return strings.Join(msgs, "; ")
}

// Rules selects the checks Validate applies.
type Rules struct {
	WeightMode            bool
	RequireFullAllocation bool
}

// Validate applies the same constraints the browser enforces on the form
// inputs: both fields required, weights numeric in [0,100] with at most two
// decimals, share counts positive integers. With RequireFullAllocation the
// weights must also total 100%.
func Validate(lines models.Lines, rules Rules) error {
	if len(lines) == 0 {
		return &ValidationError{Problems: []Problem{{Field: "portfolio", Message: "Portfolio is empty"}}}
	}

	var problems []Problem
	total := decimal.Zero
	for _, l := range lines {
		if l.Ticker == "" {
			problems = append(problems, Problem{l.Label, "ticker", fmt.Sprintf("Security Ticker %d is required", l.Label)})
		}
		if l.Weight == "" {
			problems = append(problems, Problem{l.Label, "weight", fmt.Sprintf("%s %d is required", weightName(rules), l.Label)})
			continue
		}

		if !rules.WeightMode {
			n, err := strconv.Atoi(l.Weight)
			if err != nil || n <= 0 {
				problems = append(problems, Problem{l.Label, "weight", fmt.Sprintf("Shares %d must be a positive whole number", l.Label)})
			}
			continue
		}

		d, err := decimal.NewFromString(l.Weight)
		switch {
		case err != nil:
			problems = append(problems, Problem{l.Label, "weight", fmt.Sprintf("Weight Percentage %d must be a number", l.Label)})
		case d.IsNegative() || d.GreaterThan(hundred):
			problems = append(problems, Problem{l.Label, "weight", fmt.Sprintf("Weight Percentage %d must be between 0 and 100", l.Label)})
		case !d.Round(2).Equal(d):
			problems = append(problems, Problem{l.Label, "weight", fmt.Sprintf("Weight Percentage %d allows at most two decimals", l.Label)})
		default:
			total = total.Add(d)
		}
	}

	if len(problems) == 0 && rules.WeightMode && rules.RequireFullAllocation {
		if total.Sub(hundred).Abs().GreaterThan(allocationTol) {
			problems = append(problems, Problem{
				Field:   "portfolio",
				Message: fmt.Sprintf("Portfolio weights must sum to 100%% (currently %s%%)", total.StringFixed(2)),
			})
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func weightName(r Rules) string {
	if r.WeightMode {
		return "Weight Percentage"
	}
	return "Shares"
}
