package worker

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Keratosis/Budget-tracker-application/internal/core"
)

// Archive appends transactions to a local CSV file. The file is opened
// per append so a crash never leaves a dangling handle.
type Archive struct {
	path string
}

func NewArchive(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create archive directory: %w", err)
		}
	}
	return &Archive{path: path}, nil
}

// Append writes one transaction as a CSV line, creating the file with a
// header on first use.
func (a *Archive) Append(tx core.Transaction) error {
	_, statErr := os.Stat(a.path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write([]string{"ID", "UserID", "Type", "Category", "Amount", "Date"}); err != nil {
			return fmt.Errorf("write archive header: %w", err)
		}
	}

	row := []string{
		fmt.Sprintf("%d", tx.ID),
		fmt.Sprintf("%d", tx.UserID),
		string(tx.Type),
		tx.Category,
		tx.Amount.String(),
		tx.Date.String(),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write archive row: %w", err)
	}

	w.Flush()
	return w.Error()
}
