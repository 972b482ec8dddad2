package spreadsheet

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"ChurchLedger/api/constants"
	"ChurchLedger/internal/ledger"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	SheetTransactions = "Transakcje"
	SheetSummary      = "Podsumowanie"
)

var (
	transactionHeader = []interface{}{"Data", "Typ", "Kwota", "Waluta", "Kategoria", "Opis", "Komu", "Słownie"}
	summaryHeader     = []interface{}{"Waluta", "Przychody", "Wydatki", "Saldo"}
)

// Totals are the income and expense sums for one currency.
type Totals struct {
	Currency string
	Income   decimal.Decimal
	Expense  decimal.Decimal
}

func (t Totals) Balance() decimal.Decimal { return t.Income.Sub(t.Expense) }

// Summarize groups txs per currency, ordered by currency code.
func Summarize(txs []ledger.Transaction) []Totals {
	byCurrency := map[string]*Totals{}
	for _, tx := range txs {
		t, ok := byCurrency[tx.Currency]
		if !ok {
			t = &Totals{Currency: tx.Currency}
			byCurrency[tx.Currency] = t
		}
		switch tx.Type {
		case ledger.Income:
			t.Income = t.Income.Add(tx.Amount)
		case ledger.Expense:
			t.Expense = t.Expense.Add(tx.Amount)
		}
	}
	out := make([]Totals, 0, len(byCurrency))
	for _, t := range byCurrency {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out
}

// Build renders the ledger into a workbook with a transaction sheet and a
// per-currency summary sheet. The caller closes the returned file.
func Build(txs []ledger.Transaction, categories []ledger.Category) (*excelize.File, error) {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	rows := make([]ledger.Transaction, len(txs))
	copy(rows, txs)
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetTransactions); err != nil {
		f.Close()
		return nil, fmt.Errorf("spreadsheet: rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetTransactions, "A1", &transactionHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("spreadsheet: header: %w", err)
	}
	for i, tx := range rows {
		category := ""
		if tx.CategoryID != nil {
			category = names[*tx.CategoryID]
		}
		row := []interface{}{
			tx.Date.Format(constants.DateFormat),
			string(tx.Type),
			tx.Amount.InexactFloat64(),
			tx.Currency,
			category,
			tx.Description,
			tx.IssuedTo,
			tx.AmountInWords,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetTransactions, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("spreadsheet: row %d: %w", i+2, err)
		}
	}

	if _, err := f.NewSheet(SheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("spreadsheet: summary sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetSummary, "A1", &summaryHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("spreadsheet: summary header: %w", err)
	}
	for i, t := range Summarize(rows) {
		row := []interface{}{
			t.Currency,
			t.Income.InexactFloat64(),
			t.Expense.InexactFloat64(),
			t.Balance().InexactFloat64(),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetSummary, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("spreadsheet: summary row %d: %w", i+2, err)
		}
	}
	return f, nil
}

// WriteFile builds the workbook and saves it at path.
func WriteFile(path string, txs []ledger.Transaction, categories []ledger.Category) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("spreadsheet: create directory: %w", err)
	}
	f, err := Build(txs, categories)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("spreadsheet: save %s: %w", path, err)
	}
	return nil
}
