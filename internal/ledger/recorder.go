package ledger

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction ID prefixes.
const (
	IncomePrefix  = "INC_"
	ExpensePrefix = "EXP_"
)

// Recorder appends transactions to a wallet and evaluates the budget and health rules.
// IDs and clock are injectable so tests stay deterministic.
type Recorder struct {
	NewID  func() string
	Now    func() time.Time
	logger *slog.Logger
}

// NewRecorder returns a recorder that uses random UUIDs and the wall clock.
func NewRecorder() *Recorder {
	return &Recorder{
		NewID:  uuid.NewString,
		Now:    time.Now,
		logger: slog.Default(),
	}
}

// WithLogger sets the logger used for debug output.
func (r *Recorder) WithLogger(logger *slog.Logger) *Recorder {
	r.logger = logger
	return r
}

// RecordIncome records income under category, stamped with the recorder clock.
func (r *Recorder) RecordIncome(w *model.Wallet, amount decimal.Decimal, category, description string) (model.Transaction, []model.Advisory, error) {
	return r.RecordAt(w, model.KindIncome, amount, category, description, r.now())
}

// RecordExpense records an expense under category, stamped with the recorder clock.
// The expense is refused when it would take the balance below zero.
func (r *Recorder) RecordExpense(w *model.Wallet, amount decimal.Decimal, category, description string) (model.Transaction, []model.Advisory, error) {
	return r.RecordAt(w, model.KindExpense, amount, category, description, r.now())
}

// RecordAt records a transaction with an explicit timestamp.
// On error the wallet is left untouched.
func (r *Recorder) RecordAt(w *model.Wallet, kind model.TransactionKind, amount decimal.Decimal, category, description string, at time.Time) (model.Transaction, []model.Advisory, error) {
	amount, err := NormalizeAmount(amount)
	if err != nil {
		return model.Transaction{}, nil, err
	}
	if !w.Categories.Has(category) {
		return model.Transaction{}, nil, fmt.Errorf("%w: %q", common.ErrCategoryNotFound, category)
	}
	if kind == model.KindExpense && amount.GreaterThan(w.Balance) {
		return model.Transaction{}, nil, fmt.Errorf("%w: balance %s, requested %s",
			common.ErrInsufficientFunds, model.FormatAmount(w.Balance), model.FormatAmount(amount))
	}

	txn := model.Transaction{
		ID:          r.nextID(kind),
		Kind:        kind,
		Amount:      amount,
		Category:    category,
		Description: strings.TrimSpace(description),
		Timestamp:   model.Naive(at),
	}
	w.Apply(txn)

	r.log().Debug("Recorded transaction",
		slog.String(common.FieldTxnID, txn.ID),
		slog.String(common.FieldCategory, category),
		slog.String(common.FieldAmount, model.FormatAmount(amount)),
		slog.String(common.FieldBalance, model.FormatAmount(w.Balance)))

	var advisories []model.Advisory
	if kind == model.KindExpense {
		advisories = append(advisories, BudgetCheck(w, category)...)
	}
	advisories = append(advisories, HealthCheck(w)...)

	return txn, advisories, nil
}

func (r *Recorder) nextID(kind model.TransactionKind) string {
	gen := r.NewID
	if gen == nil {
		gen = uuid.NewString
	}
	prefix := IncomePrefix
	if kind == model.KindExpense {
		prefix = ExpensePrefix
	}
	return prefix + gen()
}

func (r *Recorder) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Recorder) log() *slog.Logger {
	if r.logger == nil {
		return slog.Default()
	}
	return r.logger
}
