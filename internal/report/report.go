// Package report builds statistics over a wallet and renders them as text or CSV.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/ledger"
	"github.com/Veraticus/purse/internal/model"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format accepted by ForRange.
const DateLayout = "2006-01-02"

// Summary holds the wallet totals and the financial-health advisories.
type Summary struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Balance decimal.Decimal
	Health  []model.Advisory
}

// IncomeLine is the income recorded under one category.
type IncomeLine struct {
	Category string
	Amount   decimal.Decimal
}

// BudgetLine compares spending with the limit of one category.
type BudgetLine struct {
	Category  string
	Status    ledger.BudgetStatus
	Spent     decimal.Decimal
	Limit     decimal.Decimal
	Remaining decimal.Decimal
}

// Detailed extends Summary with per-category lines in registry order.
type Detailed struct {
	Summary
	IncomeLines []IncomeLine
	Budgets     []BudgetLine
}

// CategoryLine is one row of a category selection.
type CategoryLine struct {
	Category  string
	Income    decimal.Decimal
	Expense   decimal.Decimal
	Limit     decimal.Decimal
	Remaining decimal.Decimal
}

// Selection reports on an explicit list of categories.
type Selection struct {
	Lines   []CategoryLine
	Income  decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
}

// Period reports on the transactions inside a date window.
// Empty is set when the window holds no transactions.
type Period struct {
	Start   time.Time
	End     time.Time
	Income  decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
	Count   int
	Empty   bool
}

// Summarize returns totals plus the financial-health advisories.
func Summarize(w *model.Wallet) Summary {
	return Summary{
		Income:  ledger.TotalIncome(w),
		Expense: ledger.TotalExpense(w),
		Balance: w.Balance,
		Health:  ledger.HealthCheck(w),
	}
}

// Detail lists income per category (only categories with income) and budget lines
// for categories that have a limit or any spending.
func Detail(w *model.Wallet) Detailed {
	d := Detailed{Summary: Summarize(w)}

	for _, cat := range w.Categories.All() {
		if income := ledger.IncomeByCategory(w, cat.Name); income.IsPositive() {
			d.IncomeLines = append(d.IncomeLines, IncomeLine{Category: cat.Name, Amount: income})
		}

		spent := ledger.ExpenseByCategory(w, cat.Name)
		if !cat.HasLimit() && !spent.IsPositive() {
			continue
		}
		status, remaining := ledger.EvaluateBudget(cat.BudgetLimit, spent)
		d.Budgets = append(d.Budgets, BudgetLine{
			Category:  cat.Name,
			Status:    status,
			Spent:     spent,
			Limit:     cat.BudgetLimit,
			Remaining: remaining,
		})
	}
	return d
}

// ForCategories reports on the named categories in the order given.
// Unknown names fail the whole report.
func ForCategories(w *model.Wallet, names []string) (Selection, error) {
	if err := ledger.RequireCategories(w, names); err != nil {
		return Selection{}, err
	}

	var s Selection
	for _, name := range names {
		cat, _ := w.Categories.Get(name)
		line := CategoryLine{
			Category: name,
			Income:   ledger.IncomeByCategory(w, name),
			Expense:  ledger.ExpenseByCategory(w, name),
			Limit:    cat.BudgetLimit,
		}
		line.Remaining = line.Limit.Sub(line.Expense)
		s.Lines = append(s.Lines, line)
		s.Income = s.Income.Add(line.Income)
		s.Expense = s.Expense.Add(line.Expense)
	}
	s.Net = s.Income.Sub(s.Expense)
	return s, nil
}

// ForRange reports on transactions between start 00:00:00 and end 23:59:59 inclusive.
// Dates use DateLayout and are compared as naive local date-times.
func ForRange(w *model.Wallet, start, end string) (Period, error) {
	from, err := time.Parse(DateLayout, strings.TrimSpace(start))
	if err != nil {
		return Period{}, fmt.Errorf("%w: start %q", common.ErrDateParse, start)
	}
	day, err := time.Parse(DateLayout, strings.TrimSpace(end))
	if err != nil {
		return Period{}, fmt.Errorf("%w: end %q", common.ErrDateParse, end)
	}
	to := day.Add(23*time.Hour + 59*time.Minute + 59*time.Second)

	p := Period{Start: from, End: to}
	for _, t := range w.Transactions {
		ts := model.Naive(t.Timestamp)
		if ts.Before(from) || ts.After(to) {
			continue
		}
		p.Count++
		if t.Kind == model.KindIncome {
			p.Income = p.Income.Add(t.Amount)
		} else {
			p.Expense = p.Expense.Add(t.Amount)
		}
	}
	p.Net = p.Income.Sub(p.Expense)
	p.Empty = p.Count == 0
	return p, nil
}
