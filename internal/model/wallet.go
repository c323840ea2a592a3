// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Wallet is a per-user ledger: balance, ordered transactions and categories.
//
// Balance always equals the income sum minus the expense sum over Transactions.
// It is maintained incrementally by Apply and never recomputed except by VerifyBalance.
type Wallet struct {
	Categories   CategoryRegistry
	Balance      decimal.Decimal
	Transactions []Transaction
}

// NewWallet returns an empty wallet holding the default category set.
func NewWallet() *Wallet {
	w := &Wallet{}
	for _, name := range DefaultCategoryNames {
		w.Categories.Put(Category{Name: name})
	}
	return w
}

// Apply appends t and moves the balance by its signed amount.
// Callers validate t first; Apply performs no checks.
func (w *Wallet) Apply(t Transaction) {
	w.Transactions = append(w.Transactions, t)
	w.Balance = w.Balance.Add(t.Signed())
}

// ComputedBalance sums the transactions from scratch.
func (w *Wallet) ComputedBalance() decimal.Decimal {
	total := decimal.Zero
	for _, t := range w.Transactions {
		total = total.Add(t.Signed())
	}
	return total
}

// VerifyBalance checks the balance invariant.
func (w *Wallet) VerifyBalance() error {
	computed := w.ComputedBalance()
	if !computed.Equal(w.Balance) {
		return fmt.Errorf("balance %s does not match transactions total %s",
			FormatAmount(w.Balance), FormatAmount(computed))
	}
	return nil
}

// Clone returns a deep copy that shares no mutable state with w.
func (w *Wallet) Clone() *Wallet {
	txns := make([]Transaction, len(w.Transactions))
	copy(txns, w.Transactions)
	return &Wallet{
		Balance:      w.Balance,
		Transactions: txns,
		Categories:   w.Categories.Clone(),
	}
}

// ReassignCategory rewrites every transaction under from to to and returns how many moved.
func (w *Wallet) ReassignCategory(from, to string) int {
	moved := 0
	for i := range w.Transactions {
		if w.Transactions[i].Category == from {
			w.Transactions[i].Category = to
			moved++
		}
	}
	return moved
}

// CountInCategory returns how many transactions reference name.
func (w *Wallet) CountInCategory(name string) int {
	n := 0
	for _, t := range w.Transactions {
		if t.Category == name {
			n++
		}
	}
	return n
}
