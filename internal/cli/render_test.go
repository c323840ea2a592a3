package cli

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/report"
)

func sampleWallet(t *testing.T) *model.Wallet {
	t.Helper()
	w := model.NewWallet()
	w.Categories.Put(model.Category{Name: "Food", BudgetLimit: decimal.RequireFromString("100")})
	ts := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	w.Apply(model.Transaction{ID: "1", Kind: model.KindIncome, Amount: decimal.RequireFromString("500"), Category: "Salary", Timestamp: ts})
	w.Apply(model.Transaction{ID: "2", Kind: model.KindExpense, Amount: decimal.RequireFromString("95"), Category: "Food", Description: "groceries", Timestamp: ts})
	require.NoError(t, w.VerifyBalance())
	return w
}

func TestRenderCategories(t *testing.T) {
	out := RenderCategories(sampleWallet(t))
	assert.Contains(t, out, "Food")
	assert.Contains(t, out, "100.00")
	assert.Contains(t, out, "95.00")
	assert.Contains(t, out, noLimit)
}

func TestRenderTransactions(t *testing.T) {
	out := RenderTransactions(sampleWallet(t).Transactions)
	assert.Contains(t, out, "2024-03-01 09:30")
	assert.Contains(t, out, "EXPENSE")
	assert.Contains(t, out, "groceries")
}

func TestRenderTransfers(t *testing.T) {
	transfers := []model.TransferRecord{
		{ID: "a", Source: "alice", Target: "bob", Amount: decimal.RequireFromString("5")},
		{ID: "b", Source: "carol", Target: "alice", Amount: decimal.RequireFromString("7.5")},
	}
	out := RenderTransfers("alice", transfers)
	assert.Contains(t, out, "bob")
	assert.Contains(t, out, "carol")
	assert.Contains(t, out, "7.50")
	assert.Contains(t, out, "out")
	assert.Contains(t, out, "in")
}

func TestRenderReports(t *testing.T) {
	w := sampleWallet(t)

	assert.Contains(t, RenderSummary("alice", report.Summarize(w)), "405.00")

	detail := RenderDetail(report.Detail(w))
	assert.Contains(t, detail, "Salary")
	assert.Contains(t, detail, "near limit")

	sel, err := report.ForCategories(w, []string{"Food"})
	require.NoError(t, err)
	assert.Contains(t, RenderSelection(sel), "Net -95.00")

	period, err := report.ForRange(w, "2024-03-01", "2024-03-31")
	require.NoError(t, err)
	out := RenderPeriod(period)
	assert.Contains(t, out, "2024-03-31")
	assert.Contains(t, out, "405.00")
}

func TestFormatAdvisory(t *testing.T) {
	tests := []struct {
		name     string
		severity model.Severity
		icon     string
	}{
		{name: "critical", severity: model.SeverityCritical, icon: CriticalIcon},
		{name: "warning", severity: model.SeverityWarning, icon: WarningIcon},
		{name: "info", severity: model.SeverityInfo, icon: InfoIcon},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := FormatAdvisory(model.Advisory{Severity: tt.severity, Message: "Food budget"})
			assert.Contains(t, out, tt.icon)
			assert.Contains(t, out, "Food budget")
		})
	}
}
