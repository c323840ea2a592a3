package cli

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/purse/internal/ledger"
	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/report"
)

const noLimit = "-"

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(SubtleStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		})
}

func limitText(limit decimal.Decimal) string {
	if !limit.IsPositive() {
		return noLimit
	}
	return model.FormatAmount(limit)
}

// RenderCategories lists categories in registry order with their limits and usage.
func RenderCategories(w *model.Wallet) string {
	t := newTable("Category", "Limit", "Spent", "Transactions")
	for _, cat := range w.Categories.All() {
		t.Row(
			cat.Name,
			limitText(cat.BudgetLimit),
			model.FormatAmount(ledger.ExpenseByCategory(w, cat.Name)),
			strconv.Itoa(w.CountInCategory(cat.Name)),
		)
	}
	return t.String()
}

// RenderTransactions lists transactions oldest first.
func RenderTransactions(txns []model.Transaction) string {
	t := newTable("Date", "Type", "Amount", "Category", "Description")
	for _, txn := range txns {
		t.Row(
			txn.Timestamp.Format("2006-01-02 15:04"),
			string(txn.Kind),
			model.FormatAmount(txn.Amount),
			txn.Category,
			txn.Description,
		)
	}
	return t.String()
}

// RenderTransfers lists transfers from the point of view of username.
func RenderTransfers(username string, transfers []model.TransferRecord) string {
	t := newTable("Date", "Direction", "Counterparty", "Amount", "Description")
	for _, tr := range transfers {
		direction, other := "out", tr.Target
		if tr.Target == username {
			direction, other = "in", tr.Source
		}
		t.Row(
			tr.CreatedAt.Format("2006-01-02 15:04"),
			direction,
			other,
			model.FormatAmount(tr.Amount),
			tr.Description,
		)
	}
	return t.String()
}

// RenderSummary renders the totals box.
func RenderSummary(username string, s report.Summary) string {
	t := newTable("Total income", "Total expenses", "Balance").
		Row(model.FormatAmount(s.Income), model.FormatAmount(s.Expense), model.FormatAmount(s.Balance))
	return RenderBox(ChartIcon+" "+username, t.String())
}

// RenderDetail renders income by category and the budget table.
func RenderDetail(d report.Detailed) string {
	income := newTable("Category", "Income")
	for _, line := range d.IncomeLines {
		income.Row(line.Category, model.FormatAmount(line.Amount))
	}

	budgets := newTable("Category", "Limit", "Spent", "Remaining", "Status")
	for _, line := range d.Budgets {
		budgets.Row(
			line.Category,
			limitText(line.Limit),
			model.FormatAmount(line.Spent),
			model.FormatAmount(line.Remaining),
			budgetStatusText(line.Status),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		BoldStyle.Render("Income by category"),
		income.String(),
		"",
		BoldStyle.Render("Expenses and budgets"),
		budgets.String(),
	)
}

// RenderSelection renders a category selection with its totals row.
func RenderSelection(s report.Selection) string {
	t := newTable("Category", "Income", "Expense", "Limit", "Remaining")
	for _, line := range s.Lines {
		t.Row(
			line.Category,
			model.FormatAmount(line.Income),
			model.FormatAmount(line.Expense),
			limitText(line.Limit),
			model.FormatAmount(line.Remaining),
		)
	}
	t.Row("Total", model.FormatAmount(s.Income), model.FormatAmount(s.Expense), "", "Net "+model.FormatAmount(s.Net))
	return t.String()
}

// RenderPeriod renders totals for a date window.
func RenderPeriod(p report.Period) string {
	t := newTable("From", "To", "Transactions", "Income", "Expense", "Net").
		Row(
			p.Start.Format(report.DateLayout),
			p.End.Format(report.DateLayout),
			strconv.Itoa(p.Count),
			model.FormatAmount(p.Income),
			model.FormatAmount(p.Expense),
			model.FormatAmount(p.Net),
		)
	return t.String()
}

func budgetStatusText(s ledger.BudgetStatus) string {
	switch s {
	case ledger.BudgetExceeded:
		return ErrorStyle.Render("exceeded")
	case ledger.BudgetNearLimit:
		return WarningStyle.Render("near limit")
	case ledger.BudgetOK:
		return SuccessStyle.Render("ok")
	default:
		return SubtleStyle.Render("no limit")
	}
}
