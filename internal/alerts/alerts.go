// Package alerts evaluates the on-demand budget and balance alerts for a wallet.
package alerts

import (
	"fmt"

	"github.com/Veraticus/purse/internal/ledger"
	"github.com/Veraticus/purse/internal/model"
	"github.com/shopspring/decimal"
)

var (
	usageWarnFrom = decimal.NewFromInt(80)
	usageWarnTo   = decimal.NewFromInt(100)
	lowBalanceCut = decimal.New(1, -1)
)

// Check is read-only and stateless. Categories are visited in registry order,
// followed by the zero-balance and low-balance checks. When nothing fires the
// result is a single no_alerts advisory.
//
// Category usage is only flagged in the [80%, 100%) band; spending at or above
// the limit is reported by the recorder's budget rule instead.
func Check(w *model.Wallet) []model.Advisory {
	var out []model.Advisory

	for _, cat := range w.Categories.All() {
		if !cat.HasLimit() {
			continue
		}
		spent := ledger.ExpenseByCategory(w, cat.Name)
		usage := ledger.UsagePercent(cat.BudgetLimit, spent)
		if usage.GreaterThanOrEqual(usageWarnFrom) && usage.LessThan(usageWarnTo) {
			out = append(out, model.Advisory{
				Code:     model.AdvisoryCategoryUsageHigh,
				Severity: model.SeverityWarning,
				Category: cat.Name,
				Message: fmt.Sprintf("%q has used %s%% of its budget (%s of %s)",
					cat.Name, usage.StringFixed(1), model.FormatAmount(spent), model.FormatAmount(cat.BudgetLimit)),
			})
		}
	}

	if w.Balance.IsZero() {
		out = append(out, model.Advisory{
			Code:     model.AdvisoryZeroBalance,
			Severity: model.SeverityInfo,
			Message:  "balance is zero",
		})
	}

	expense := ledger.TotalExpense(w)
	if expense.IsPositive() && w.Balance.LessThan(expense.Mul(lowBalanceCut)) {
		out = append(out, model.Advisory{
			Code:     model.AdvisoryLowBalance,
			Severity: model.SeverityWarning,
			Message: fmt.Sprintf("low balance: %s is under 10%% of total expenses %s",
				model.FormatAmount(w.Balance), model.FormatAmount(expense)),
		})
	}

	if len(out) == 0 {
		out = append(out, model.Advisory{
			Code:     model.AdvisoryNoAlerts,
			Severity: model.SeverityInfo,
			Message:  "no alerts",
		})
	}
	return out
}
