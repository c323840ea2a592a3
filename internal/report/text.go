package report

import (
	"fmt"
	"strings"

	"github.com/Veraticus/purse/internal/model"
)

// FormatText renders a detailed report as plain text for export.
func FormatText(username string, d Detailed) string {
	var b strings.Builder

	b.WriteString("=== STATISTICS EXPORT ===\n")
	fmt.Fprintf(&b, "User: %s\n", username)
	fmt.Fprintf(&b, "Total income: %s\n", model.FormatAmount(d.Income))
	fmt.Fprintf(&b, "Total expenses: %s\n", model.FormatAmount(d.Expense))
	fmt.Fprintf(&b, "Current balance: %s\n", model.FormatAmount(d.Balance))

	b.WriteString("\n--- INCOME BY CATEGORY ---\n")
	for _, line := range d.IncomeLines {
		fmt.Fprintf(&b, "%s: %s\n", line.Category, model.FormatAmount(line.Amount))
	}

	b.WriteString("\n--- EXPENSES AND BUDGETS ---\n")
	for _, line := range d.Budgets {
		fmt.Fprintf(&b, "%s: Limit: %s, Spent: %s, Remaining: %s\n",
			line.Category, model.FormatAmount(line.Limit), model.FormatAmount(line.Spent),
			model.FormatAmount(line.Remaining))
	}

	if len(d.Health) > 0 {
		b.WriteString("\n--- WARNINGS ---\n")
		for _, a := range d.Health {
			fmt.Fprintf(&b, "[%s] %s\n", a.Severity, a.Message)
		}
	}
	return b.String()
}
