package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/Veraticus/purse/internal/model"
	"github.com/shopspring/decimal"
)

// BaseTime is the timestamp of the first transaction a WalletBuilder creates.
var BaseTime = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

// WalletBuilder provides a fluent interface for constructing test wallets.
// Transactions get sequential IDs and timestamps one hour apart.
//
// Example:
//
//	w := testutil.NewWalletBuilder(t).
//		WithIncome("1000", "Salary").
//		WithLimit("Food", "100").
//		WithExpense("95", "Food").
//		Build()
type WalletBuilder struct {
	t      *testing.T
	wallet *model.Wallet
	seq    int
}

// NewWalletBuilder starts from a default wallet.
func NewWalletBuilder(t *testing.T) *WalletBuilder {
	t.Helper()
	return &WalletBuilder{t: t, wallet: model.NewWallet()}
}

// Dec parses s or fails the test.
func Dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", s, err)
	}
	return d
}

// WithIncome appends an income transaction.
func (b *WalletBuilder) WithIncome(amount, category string) *WalletBuilder {
	return b.with(model.KindIncome, amount, category, "")
}

// WithExpense appends an expense transaction. It does not check the balance.
func (b *WalletBuilder) WithExpense(amount, category string) *WalletBuilder {
	return b.with(model.KindExpense, amount, category, "")
}

// WithDescribed appends a transaction with a description.
func (b *WalletBuilder) WithDescribed(kind model.TransactionKind, amount, category, description string) *WalletBuilder {
	return b.with(kind, amount, category, description)
}

// WithCategory registers a category with the given limit.
func (b *WalletBuilder) WithCategory(name, limit string) *WalletBuilder {
	b.t.Helper()
	b.wallet.Categories.Put(model.Category{Name: name, BudgetLimit: Dec(b.t, limit)})
	return b
}

// WithLimit sets the limit of an existing category.
func (b *WalletBuilder) WithLimit(name, limit string) *WalletBuilder {
	b.t.Helper()
	cat, ok := b.wallet.Categories.Get(name)
	if !ok {
		b.t.Fatalf("category %q not registered", name)
	}
	cat.BudgetLimit = Dec(b.t, limit)
	b.wallet.Categories.Put(cat)
	return b
}

func (b *WalletBuilder) with(kind model.TransactionKind, amount, category, description string) *WalletBuilder {
	b.t.Helper()
	if !b.wallet.Categories.Has(category) {
		b.t.Fatalf("category %q not registered", category)
	}
	b.seq++
	prefix := "INC_"
	if kind == model.KindExpense {
		prefix = "EXP_"
	}
	b.wallet.Apply(model.Transaction{
		ID:          fmt.Sprintf("%stest-%03d", prefix, b.seq),
		Kind:        kind,
		Amount:      Dec(b.t, amount),
		Category:    category,
		Description: description,
		Timestamp:   BaseTime.Add(time.Duration(b.seq-1) * time.Hour),
	})
	return b
}

// Build returns the wallet after checking the balance invariant.
func (b *WalletBuilder) Build() *model.Wallet {
	b.t.Helper()
	if err := b.wallet.VerifyBalance(); err != nil {
		b.t.Fatalf("built wallet is inconsistent: %v", err)
	}
	return b.wallet
}
