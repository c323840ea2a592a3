package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/purse/internal/model"
)

// CSVHeader is the column layout shared by export and import.
var CSVHeader = []string{"ID", "Date", "Type", "Category", "Amount", "Description"}

// WriteCSV writes one row per transaction in ledger order.
// Fields containing the delimiter or quotes are quoted.
func WriteCSV(out io.Writer, w *model.Wallet) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, t := range w.Transactions {
		row := []string{
			t.ID,
			model.FormatTimestamp(t.Timestamp),
			string(t.Kind),
			t.Category,
			model.FormatAmount(t.Amount),
			t.Description,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row %s: %w", t.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSV renders the transactions as a CSV document.
func CSV(w *model.Wallet) (string, error) {
	var b strings.Builder
	if err := WriteCSV(&b, w); err != nil {
		return "", err
	}
	return b.String(), nil
}
