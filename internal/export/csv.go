// Package export renders ledger reports to files the user can keep or
// open elsewhere. The core stays free of any rendering concerns.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/Keratosis/Budget-tracker-application/internal/core"
)

// WriteCSV writes the report's transactions followed by the computed
// totals.
func WriteCSV(w io.Writer, rep core.Report) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"ID", "Type", "Category", "Amount", "Date"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, tx := range rep.Transactions {
		row := []string{
			fmt.Sprintf("%d", tx.ID),
			string(tx.Type),
			tx.Category,
			tx.Amount.String(),
			tx.Date.String(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	footer := [][]string{
		{},
		{"", "", "Income", rep.Income.String(), ""},
		{"", "", "Expenses", rep.Expenses.String(), ""},
		{"", "", "Balance", rep.Balance.String(), ""},
	}
	for _, row := range footer {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv footer: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
