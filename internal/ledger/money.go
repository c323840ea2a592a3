// Package ledger records transactions, manages categories and evaluates budget rules
// over a model.Wallet.
package ledger

import (
	"fmt"
	"strings"

	"github.com/Veraticus/purse/internal/common"
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the precision amounts are rounded to when they enter the ledger.
const MoneyPlaces = 2

var (
	tenPercent    = decimal.New(1, -1)
	eightyPercent = decimal.New(8, -1)
	hundred       = decimal.NewFromInt(100)
)

// ParseAmount converts user input to a positive amount.
// It accepts both dot (12.34) and comma (12,34) decimal separators.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", common.ErrInvalidAmount)
	}
	s = strings.ReplaceAll(s, ",", ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", common.ErrInvalidAmount, s)
	}
	return NormalizeAmount(d)
}

// ParseLimit converts user input to a budget limit; zero means unlimited.
func ParseLimit(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: limit %q", common.ErrInvalidAmount, s)
	}
	return normalizeLimit(d)
}

// NormalizeAmount rounds d to MoneyPlaces and rejects results that are not positive.
func NormalizeAmount(d decimal.Decimal) (decimal.Decimal, error) {
	rounded := d.Round(MoneyPlaces)
	if !rounded.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s must be positive", common.ErrInvalidAmount, d.String())
	}
	return rounded, nil
}

func normalizeLimit(d decimal.Decimal) (decimal.Decimal, error) {
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: limit %s must not be negative", common.ErrInvalidAmount, d.String())
	}
	return d.Round(MoneyPlaces), nil
}

// UsagePercent returns spent as a percentage of limit, or zero for an unlimited limit.
func UsagePercent(limit, spent decimal.Decimal) decimal.Decimal {
	if !limit.IsPositive() {
		return decimal.Zero
	}
	return spent.Mul(hundred).Div(limit)
}
