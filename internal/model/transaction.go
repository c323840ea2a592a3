package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind tells income and expense apart.
type TransactionKind string

const (
	// KindIncome increases the wallet balance.
	KindIncome TransactionKind = "INCOME"
	// KindExpense decreases the wallet balance.
	KindExpense TransactionKind = "EXPENSE"
)

// TimestampLayout is the zone-less ISO-8601 local date-time used on disk and in CSV.
const TimestampLayout = "2006-01-02T15:04:05.999999999"

// Transaction is a single recorded income or expense event.
// Only Category may change after creation, when its category is renamed or deleted.
type Transaction struct {
	Timestamp   time.Time
	Amount      decimal.Decimal
	ID          string
	Category    string
	Description string
	Kind        TransactionKind
}

// Signed returns the amount with the sign it contributes to the balance.
func (t Transaction) Signed() decimal.Decimal {
	if t.Kind == KindExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// ParseKind converts the serialized kind, accepting any letter case.
func ParseKind(s string) (TransactionKind, error) {
	switch TransactionKind(strings.ToUpper(strings.TrimSpace(s))) {
	case KindIncome:
		return KindIncome, nil
	case KindExpense:
		return KindExpense, nil
	default:
		return "", fmt.Errorf("unknown transaction kind %q", s)
	}
}

// Naive strips the location from t, keeping its wall clock reading.
// Timestamps are compared as naive local date-times and never converted.
func Naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// FormatTimestamp renders t with TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return Naive(t).Format(TimestampLayout)
}

// ParseTimestamp reads a zone-less date-time with optional fractional seconds.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

// FormatAmount renders money with two decimal places.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
