// Package importer loads transactions from the CSV export format into a wallet.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/purse/internal/ledger"
	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/report"
	"github.com/shopspring/decimal"
)

// ErrBadHeader is returned when the first row is not the export header.
var ErrBadHeader = errors.New("csv header does not match export format")

// SkippedRow explains why one input line was not imported.
type SkippedRow struct {
	Err  error
	Line int
}

// Result summarizes an import.
type Result struct {
	Imported []model.Transaction
	Skipped  []SkippedRow
	Income   decimal.Decimal
	Expense  decimal.Decimal
}

// Importer records CSV rows through a ledger.Recorder.
// Imported transactions get fresh IDs; the ID column is ignored.
type Importer struct {
	recorder *ledger.Recorder
}

// New creates an importer using recorder for IDs and validation.
func New(recorder *ledger.Recorder) *Importer {
	return &Importer{recorder: recorder}
}

// Import reads r and records every valid row into w, in file order.
// Rows with a bad amount, type, date, unknown category or insufficient funds
// are skipped and reported. onRow, when set, is called once per data row.
func (im *Importer) Import(r io.Reader, w *model.Wallet, onRow func()) (Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Result{}, ErrBadHeader
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to read csv header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return Result{}, err
	}

	var res Result
	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if onRow != nil {
			onRow()
		}
		if err != nil {
			res.Skipped = append(res.Skipped, SkippedRow{Line: line, Err: err})
			continue
		}

		txn, err := im.importRow(record, w)
		if err != nil {
			res.Skipped = append(res.Skipped, SkippedRow{Line: line, Err: err})
			continue
		}
		res.Imported = append(res.Imported, txn)
		if txn.Kind == model.KindIncome {
			res.Income = res.Income.Add(txn.Amount)
		} else {
			res.Expense = res.Expense.Add(txn.Amount)
		}
	}
	return res, nil
}

func (im *Importer) importRow(record []string, w *model.Wallet) (model.Transaction, error) {
	if len(record) < len(report.CSVHeader) {
		return model.Transaction{}, fmt.Errorf("expected %d columns, got %d", len(report.CSVHeader), len(record))
	}

	ts, err := model.ParseTimestamp(strings.TrimSpace(record[1]))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("invalid date %q: %w", record[1], err)
	}
	kind, err := model.ParseKind(record[2])
	if err != nil {
		return model.Transaction{}, err
	}
	amount, err := ledger.ParseAmount(record[4])
	if err != nil {
		return model.Transaction{}, err
	}

	txn, _, err := im.recorder.RecordAt(w, kind, amount, strings.TrimSpace(record[3]), record[5], ts)
	return txn, err
}

func checkHeader(header []string) error {
	if len(header) < len(report.CSVHeader) {
		return ErrBadHeader
	}
	for i, want := range report.CSVHeader {
		got := strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
		if !strings.EqualFold(got, want) {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrBadHeader, i+1, header[i], want)
		}
	}
	return nil
}
