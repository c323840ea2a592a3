package ledger

import (
	"fmt"

	"github.com/Veraticus/purse/internal/model"
	"github.com/shopspring/decimal"
)

// BudgetStatus classifies spending against a category limit.
type BudgetStatus string

// Budget statuses.
const (
	BudgetUnlimited BudgetStatus = "unlimited"
	BudgetOK        BudgetStatus = "ok"
	BudgetNearLimit BudgetStatus = "near_limit"
	BudgetExceeded  BudgetStatus = "exceeded"
)

// EvaluateBudget compares spent with limit: exceeded when the remainder is negative,
// near the limit when less than ten percent of it remains.
func EvaluateBudget(limit, spent decimal.Decimal) (BudgetStatus, decimal.Decimal) {
	remaining := limit.Sub(spent)
	switch {
	case !limit.IsPositive():
		return BudgetUnlimited, remaining
	case remaining.IsNegative():
		return BudgetExceeded, remaining
	case remaining.LessThan(limit.Mul(tenPercent)):
		return BudgetNearLimit, remaining
	default:
		return BudgetOK, remaining
	}
}

// BudgetCheck evaluates the budget-exceeded rule for one category.
func BudgetCheck(w *model.Wallet, category string) []model.Advisory {
	cat, ok := w.Categories.Get(category)
	if !ok || !cat.HasLimit() {
		return nil
	}

	spent := ExpenseByCategory(w, category)
	status, remaining := EvaluateBudget(cat.BudgetLimit, spent)

	switch status {
	case BudgetExceeded:
		return []model.Advisory{{
			Code:     model.AdvisoryBudgetExceeded,
			Severity: model.SeverityCritical,
			Category: category,
			Message: fmt.Sprintf("budget exceeded in %q: limit %s, spent %s, over by %s",
				category, model.FormatAmount(cat.BudgetLimit), model.FormatAmount(spent),
				model.FormatAmount(remaining.Abs())),
		}}
	case BudgetNearLimit:
		return []model.Advisory{{
			Code:     model.AdvisoryBudgetNearLimit,
			Severity: model.SeverityWarning,
			Category: category,
			Message: fmt.Sprintf("less than 10%% of the %q budget left: limit %s, spent %s, remaining %s",
				category, model.FormatAmount(cat.BudgetLimit), model.FormatAmount(spent),
				model.FormatAmount(remaining)),
		}}
	default:
		return nil
	}
}

// HealthCheck evaluates the financial-health rule over the whole wallet.
// The income/expense comparison and the balance comparison fire independently.
func HealthCheck(w *model.Wallet) []model.Advisory {
	income := TotalIncome(w)
	expense := TotalExpense(w)

	var advisories []model.Advisory

	switch {
	case expense.GreaterThan(income):
		advisories = append(advisories, model.Advisory{
			Code:     model.AdvisoryExpensesExceedIncome,
			Severity: model.SeverityCritical,
			Message: fmt.Sprintf("expenses exceed income: income %s, expenses %s",
				model.FormatAmount(income), model.FormatAmount(expense)),
		})
	case expense.GreaterThan(income.Mul(eightyPercent)):
		advisories = append(advisories, model.Advisory{
			Code:     model.AdvisoryExpensesHigh,
			Severity: model.SeverityWarning,
			Message:  "expenses are above 80% of income",
		})
	}

	switch {
	case w.Balance.IsNegative():
		advisories = append(advisories, model.Advisory{
			Code:     model.AdvisoryNegativeBalance,
			Severity: model.SeverityCritical,
			Message:  fmt.Sprintf("negative balance: %s", model.FormatAmount(w.Balance)),
		})
	case w.Balance.LessThan(expense):
		advisories = append(advisories, model.Advisory{
			Code:     model.AdvisoryLowReserve,
			Severity: model.SeverityWarning,
			Message: fmt.Sprintf("small reserve: balance %s is below total expenses %s",
				model.FormatAmount(w.Balance), model.FormatAmount(expense)),
		})
	}

	return advisories
}
