package importer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/importer"
	"github.com/Veraticus/purse/internal/ledger"
	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/report"
	"github.com/Veraticus/purse/internal/testutil"
)

func TestImportRoundTripsExport(t *testing.T) {
	src := testutil.NewWalletBuilder(t).
		WithDescribed(model.KindIncome, "500", "Salary", "pay, March").
		WithDescribed(model.KindExpense, "12.30", "Food", "lunch").
		Build()
	exported, err := report.CSV(src)
	require.NoError(t, err)

	dst := model.NewWallet()
	rows := 0
	res, err := importer.New(ledger.NewRecorder()).Import(strings.NewReader(exported), dst, func() { rows++ })
	require.NoError(t, err)

	assert.Equal(t, 2, rows)
	assert.Empty(t, res.Skipped)
	require.Len(t, res.Imported, 2)
	assert.Equal(t, "500.00", model.FormatAmount(res.Income))
	assert.Equal(t, "12.30", model.FormatAmount(res.Expense))

	assert.Equal(t, "487.70", model.FormatAmount(dst.Balance))
	assert.Equal(t, "pay, March", dst.Transactions[0].Description)
	assert.Equal(t, src.Transactions[1].Timestamp, dst.Transactions[1].Timestamp)
	assert.NotEqual(t, src.Transactions[0].ID, dst.Transactions[0].ID)
	require.NoError(t, dst.VerifyBalance())
}

func TestImportSkipsBadRows(t *testing.T) {
	input := strings.Join([]string{
		"id,date,type,category,amount,description",
		"x,2024-01-01T10:00:00,INCOME,Salary,100.00,ok",
		"x,not-a-date,INCOME,Salary,1.00,bad date",
		"x,2024-01-02T10:00:00,TRANSFER,Salary,1.00,bad type",
		"x,2024-01-02T10:00:00,EXPENSE,Food,abc,bad amount",
		"x,2024-01-02T10:00:00,EXPENSE,Yachts,1.00,unknown category",
		"x,2024-01-02T10:00:00,EXPENSE,Food,500.00,overdraft",
		"x,2024-01-03T10:00:00,expense,Food,40,lower-case kind",
		"short,row",
	}, "\n")

	w := model.NewWallet()
	res, err := importer.New(ledger.NewRecorder()).Import(strings.NewReader(input), w, nil)
	require.NoError(t, err)

	require.Len(t, res.Imported, 2)
	assert.Equal(t, "60.00", model.FormatAmount(w.Balance))

	lines := make([]int, 0, len(res.Skipped))
	for _, s := range res.Skipped {
		lines = append(lines, s.Line)
	}
	assert.Equal(t, []int{3, 4, 5, 6, 7, 9}, lines)
	assert.ErrorIs(t, res.Skipped[2].Err, common.ErrInvalidAmount)
	assert.ErrorIs(t, res.Skipped[3].Err, common.ErrCategoryNotFound)
	assert.ErrorIs(t, res.Skipped[4].Err, common.ErrInsufficientFunds)
}

func TestImportRejectsWrongHeader(t *testing.T) {
	w := model.NewWallet()
	im := importer.New(ledger.NewRecorder())

	_, err := im.Import(strings.NewReader("when,what\n1,2\n"), w, nil)
	require.ErrorIs(t, err, importer.ErrBadHeader)

	_, err = im.Import(strings.NewReader(""), w, nil)
	require.ErrorIs(t, err, importer.ErrBadHeader)
	assert.Empty(t, w.Transactions)
}

func TestImportAcceptsByteOrderMark(t *testing.T) {
	input := "\ufeffID,Date,Type,Category,Amount,Description\nx,2024-01-01T10:00:00,INCOME,Salary,1,\n"
	res, err := importer.New(ledger.NewRecorder()).Import(strings.NewReader(input), model.NewWallet(), nil)
	require.NoError(t, err)
	assert.Len(t, res.Imported, 1)
}
