package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWallet_DefaultCategories(t *testing.T) {
	w := NewWallet()

	assert.True(t, w.Balance.IsZero())
	assert.Empty(t, w.Transactions)
	assert.Equal(t, DefaultCategoryNames, w.Categories.Names())
	assert.Equal(t, 11, w.Categories.Len())

	for _, c := range w.Categories.All() {
		assert.False(t, c.HasLimit(), "default category %q should be unlimited", c.Name)
	}
	assert.True(t, w.Categories.Has(FallbackCategory))
	assert.True(t, w.Categories.Has(TransfersCategory))
}

func TestWallet_ApplyKeepsBalanceInvariant(t *testing.T) {
	w := NewWallet()
	steps := []struct {
		kind   TransactionKind
		amount string
		want   string
	}{
		{KindIncome, "1000", "1000.00"},
		{KindExpense, "250.50", "749.50"},
		{KindIncome, "0.25", "749.75"},
		{KindExpense, "749.75", "0.00"},
	}

	for i, s := range steps {
		w.Apply(Transaction{
			ID:       string(rune('a' + i)),
			Kind:     s.kind,
			Amount:   decimal.RequireFromString(s.amount),
			Category: "Food",
		})
		assert.Equal(t, s.want, FormatAmount(w.Balance))
		require.NoError(t, w.VerifyBalance())
	}
}

func TestWallet_VerifyBalanceDetectsDrift(t *testing.T) {
	w := NewWallet()
	w.Apply(Transaction{ID: "1", Kind: KindIncome, Amount: decimal.NewFromInt(10), Category: "Salary"})
	w.Balance = decimal.NewFromInt(11)

	err := w.VerifyBalance()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "11.00")
}

func TestWallet_CloneIsIndependent(t *testing.T) {
	w := NewWallet()
	w.Apply(Transaction{ID: "1", Kind: KindIncome, Amount: decimal.NewFromInt(10), Category: "Food"})

	c := w.Clone()
	c.Apply(Transaction{ID: "2", Kind: KindExpense, Amount: decimal.NewFromInt(3), Category: "Food"})
	c.Transactions[0].Category = "Other"
	c.Categories.Delete("Food")

	assert.Len(t, w.Transactions, 1)
	assert.Equal(t, "Food", w.Transactions[0].Category)
	assert.Equal(t, "10.00", FormatAmount(w.Balance))
	assert.True(t, w.Categories.Has("Food"))
}

func TestWallet_ReassignCategory(t *testing.T) {
	w := NewWallet()
	w.Apply(Transaction{ID: "1", Kind: KindIncome, Amount: decimal.NewFromInt(10), Category: "Food"})
	w.Apply(Transaction{ID: "2", Kind: KindIncome, Amount: decimal.NewFromInt(10), Category: "Salary"})
	w.Apply(Transaction{ID: "3", Kind: KindExpense, Amount: decimal.NewFromInt(5), Category: "Food"})

	assert.Equal(t, 2, w.CountInCategory("Food"))
	assert.Equal(t, 2, w.ReassignCategory("Food", "Groceries"))
	assert.Equal(t, 0, w.CountInCategory("Food"))
	assert.Equal(t, "Salary", w.Transactions[1].Category)
}

func TestTimestampRoundTrip(t *testing.T) {
	local := time.Date(2024, 3, 9, 18, 5, 7, 120000000, time.FixedZone("X", 5*3600))

	s := FormatTimestamp(local)
	assert.Equal(t, "2024-03-09T18:05:07.12", s)

	parsed, err := ParseTimestamp(s)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(Naive(local)))

	whole, err := ParseTimestamp("2024-03-09T18:05:07")
	require.NoError(t, err)
	assert.Equal(t, 7, whole.Second())

	_, err = ParseTimestamp("09.03.2024")
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("income")
	require.NoError(t, err)
	assert.Equal(t, KindIncome, k)

	k, err = ParseKind(" EXPENSE ")
	require.NoError(t, err)
	assert.Equal(t, KindExpense, k)

	_, err = ParseKind("refund")
	assert.Error(t, err)
}
