package ledger

import (
	"fmt"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
	"github.com/shopspring/decimal"
)

func sum(w *model.Wallet, keep func(model.Transaction) bool) decimal.Decimal {
	total := decimal.Zero
	for _, t := range w.Transactions {
		if keep(t) {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// TotalIncome sums all income.
func TotalIncome(w *model.Wallet) decimal.Decimal {
	return sum(w, func(t model.Transaction) bool { return t.Kind == model.KindIncome })
}

// TotalExpense sums all expenses.
func TotalExpense(w *model.Wallet) decimal.Decimal {
	return sum(w, func(t model.Transaction) bool { return t.Kind == model.KindExpense })
}

// IncomeByCategory sums income recorded under category.
func IncomeByCategory(w *model.Wallet, category string) decimal.Decimal {
	return sum(w, func(t model.Transaction) bool {
		return t.Kind == model.KindIncome && t.Category == category
	})
}

// ExpenseByCategory sums expenses recorded under category.
func ExpenseByCategory(w *model.Wallet, category string) decimal.Decimal {
	return sum(w, func(t model.Transaction) bool {
		return t.Kind == model.KindExpense && t.Category == category
	})
}

// ExpenseByCategories sums expenses over several categories.
// It fails without a partial result if any name is not registered.
func ExpenseByCategories(w *model.Wallet, categories []string) (decimal.Decimal, error) {
	if err := RequireCategories(w, categories); err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, name := range categories {
		total = total.Add(ExpenseByCategory(w, name))
	}
	return total, nil
}

// RequireCategories checks that every name is registered in w.
func RequireCategories(w *model.Wallet, categories []string) error {
	for _, name := range categories {
		if !w.Categories.Has(name) {
			return fmt.Errorf("%w: %q", common.ErrCategoryNotFound, name)
		}
	}
	return nil
}
