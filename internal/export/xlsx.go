package export

import (
	"fmt"

	"github.com/Keratosis/Budget-tracker-application/internal/core"

	"github.com/xuri/excelize/v2"
)

const (
	sheetTransactions = "Transactions"
	sheetSummary      = "Summary"
)

// WriteXLSX writes the report as a workbook: a transactions sheet, and a
// summary sheet with per-category spending next to a bar chart of it.
func WriteXLSX(path string, rep core.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetTransactions); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	if err := writeTransactions(f, rep); err != nil {
		return err
	}
	if err := writeSummary(f, rep); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeTransactions(f *excelize.File, rep core.Report) error {
	headers := []any{"ID", "Type", "Category", "Amount", "Date"}
	if err := f.SetSheetRow(sheetTransactions, "A1", &headers); err != nil {
		return fmt.Errorf("write transaction header: %w", err)
	}

	for i, tx := range rep.Transactions {
		row := []any{tx.ID, string(tx.Type), tx.Category, centsToUnits(tx.Amount), tx.Date.String()}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheetTransactions, cell, &row); err != nil {
			return fmt.Errorf("write transaction row: %w", err)
		}
	}

	totalsStart := len(rep.Transactions) + 3
	totals := [][]any{
		{"", "", "Income", centsToUnits(rep.Income)},
		{"", "", "Expenses", centsToUnits(rep.Expenses)},
		{"", "", "Balance", centsToUnits(rep.Balance)},
	}
	for i, row := range totals {
		cell := fmt.Sprintf("A%d", totalsStart+i)
		r := row
		if err := f.SetSheetRow(sheetTransactions, cell, &r); err != nil {
			return fmt.Errorf("write totals row: %w", err)
		}
	}
	return nil
}

func writeSummary(f *excelize.File, rep core.Report) error {
	header := []any{"Category", "Spent", "Budget"}
	if err := f.SetSheetRow(sheetSummary, "A1", &header); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}

	budgets := make(map[string]core.Money, len(rep.Budgets))
	for _, b := range rep.Budgets {
		budgets[b.Category] = b.Amount
	}

	for i, ca := range rep.ByCategory {
		row := []any{ca.Category, centsToUnits(ca.Amount)}
		if budget, ok := budgets[ca.Category]; ok {
			row = append(row, centsToUnits(budget))
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheetSummary, cell, &row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}

	// No categories, no chart: excelize rejects empty series ranges.
	if len(rep.ByCategory) == 0 {
		return nil
	}

	last := len(rep.ByCategory) + 1
	err := f.AddChart(sheetSummary, "E2", &excelize.Chart{
		Type: excelize.Bar,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("%s!$B$1", sheetSummary),
			Categories: fmt.Sprintf("%s!$A$2:$A$%d", sheetSummary, last),
			Values:     fmt.Sprintf("%s!$B$2:$B$%d", sheetSummary, last),
		}},
		Title: []excelize.RichTextRun{{Text: "Spending by category"}},
	})
	if err != nil {
		return fmt.Errorf("add category chart: %w", err)
	}
	return nil
}

func centsToUnits(m core.Money) float64 {
	return float64(m.Cents) / 100.0
}
