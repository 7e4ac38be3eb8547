package jobs

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"spendsage-server/src/access"
	"spendsage-server/src/models"
	"spendsage-server/src/store"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const resultsDir = "task_results"

var exportHeader = []string{"id", "created_at", "transaction_type", "amount", "category", "raw_description", "is_anomaly"}

// Export writes the owner's transactions to task_results/<taskID>.csv under
// the export directory.
func (j *Runner) Export(ctx context.Context, p access.Principal, taskID string) (*string, error) {
	var txs []models.Transaction
	err := j.store.View(ctx, func(r store.Repository) error {
		var err error
		txs, err = r.ListTransactions(ctx, access.Scope(p))
		return err
	})
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(j.exportDir, resultsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}

	name := taskID + ".csv"
	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeTransactionsCSV(tmp, txs); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return nil, fmt.Errorf("publish export file: %w", err)
	}

	j.log.Info("exported transactions", zap.Int64("user_id", p.UserID), zap.Int("rows", len(txs)))
	ref := path.Join(resultsDir, name)
	return &ref, nil
}

func writeTransactionsCSV(f *os.File, txs []models.Transaction) error {
	w := csv.NewWriter(f)
	if err := w.Write(exportHeader); err != nil {
		return err
	}
	for _, t := range txs {
		category := ""
		if t.CategoryName != nil {
			category = *t.CategoryName
		}
		if err := w.Write([]string{
			strconv.FormatInt(t.ID, 10),
			t.CreatedAt.UTC().Format(time.RFC3339),
			string(t.TransactionType),
			t.Amount.String(),
			category,
			t.RawDescription,
			strconv.FormatBool(t.IsAnomaly),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
