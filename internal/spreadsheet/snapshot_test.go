package spreadsheet

import (
	"path/filepath"
	"testing"
	"time"

	"ChurchLedger/internal/ledger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleLedger() ([]ledger.Transaction, []ledger.Category) {
	day := func(d int) time.Time { return time.Date(2026, 10, d, 0, 0, 0, 0, time.UTC) }
	catID := "c1"
	cats := []ledger.Category{{ID: catID, Name: "Remonty", Type: ledger.Expense}}
	txs := []ledger.Transaction{
		{Type: ledger.Expense, Amount: decimal.RequireFromString("40.25"), Currency: "PLN", CategoryID: &catID, Description: "Farba", Date: day(3), IssuedTo: "Jan", AmountInWords: "czterdzieści złotych 25/100"},
		{Type: ledger.Income, Amount: decimal.RequireFromString("100"), Currency: "PLN", Description: "Taca", Date: day(1)},
		{Type: ledger.Income, Amount: decimal.RequireFromString("20"), Currency: "EUR", Description: "Ofiara", Date: day(2)},
		{Type: ledger.Expense, Amount: decimal.RequireFromString("0.1"), Currency: "PLN", Description: "Znaczek", Date: day(4)},
		{Type: ledger.Expense, Amount: decimal.RequireFromString("0.2"), Currency: "PLN", Description: "Koperta", Date: day(4)},
	}
	return txs, cats
}

func TestSummarize_DecimalTotals(t *testing.T) {
	txs, _ := sampleLedger()
	got := Summarize(txs)
	require.Len(t, got, 2)

	assert.Equal(t, "EUR", got[0].Currency)
	assert.Equal(t, "20", got[0].Balance().String())

	assert.Equal(t, "PLN", got[1].Currency)
	assert.Equal(t, "100", got[1].Income.String())
	assert.Equal(t, "40.55", got[1].Expense.String())
	assert.Equal(t, "59.45", got[1].Balance().String())
}

func TestWriteFile_ReadBack(t *testing.T) {
	txs, cats := sampleLedger()
	path := filepath.Join(t.TempDir(), "nested", "ledger.xlsx")
	require.NoError(t, WriteFile(path, txs, cats))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetTransactions, SheetSummary}, f.GetSheetList())

	rows, err := f.GetRows(SheetTransactions)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, "Data", rows[0][0])
	assert.Equal(t, "2026-10-01", rows[1][0], "sorted by date")
	assert.Equal(t, []string{"2026-10-03", "expense", "40.25", "PLN", "Remonty", "Farba", "Jan", "czterdzieści złotych 25/100"}, rows[3])

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, []string{"PLN", "100", "40.55", "59.45"}, summary[2])
}

func TestBuild_EmptyLedger(t *testing.T) {
	f, err := Build(nil, nil)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetTransactions)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
