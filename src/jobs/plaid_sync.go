package jobs

import (
	"context"
	"errors"
	"fmt"
	"spendsage-server/src/access"
	"spendsage-server/src/models"
	"spendsage-server/src/plaid"
	"spendsage-server/src/store"

	"go.uber.org/zap"
)

var ErrSyncUnavailable = errors.New("plaid sync is not configured")

// maxSyncPages bounds a single run against a misbehaving cursor.
const maxSyncPages = 100

const maxDescription = 255

// SyncPlaid imports new transactions from each of the owner's linked items.
// Every page is stored together with the cursor that follows it, so a failed
// run resumes where it stopped. Rows already imported are skipped.
func (j *Runner) SyncPlaid(ctx context.Context, p access.Principal) (int, error) {
	if j.syncer == nil {
		return 0, ErrSyncUnavailable
	}

	var items []models.PlaidItem
	err := j.store.View(ctx, func(r store.Repository) error {
		var err error
		items, err = r.ListPlaidItems(ctx, access.Scope(p))
		return err
	})
	if err != nil {
		return 0, err
	}

	imported := 0
	for _, item := range items {
		n, err := j.syncItem(ctx, p, item)
		imported += n
		if err != nil {
			return imported, fmt.Errorf("sync item %s: %w", item.ItemID, err)
		}
	}
	j.log.Info("synced plaid items",
		zap.Int64("user_id", p.UserID),
		zap.Int("items", len(items)),
		zap.Int("imported", imported))
	return imported, nil
}

func (j *Runner) syncItem(ctx context.Context, p access.Principal, item models.PlaidItem) (int, error) {
	cursor := item.SyncCursor
	imported := 0
	for page := 0; page < maxSyncPages; page++ {
		resp, err := j.syncer.SyncTransactions(ctx, item.AccessToken, cursor)
		if err != nil {
			return imported, err
		}

		var written int
		err = j.store.Update(ctx, func(r store.Repository) error {
			written = 0
			for _, pt := range resp.Added {
				ok, err := r.ImportTransaction(ctx, access.Scope(p), importedTransaction(pt))
				if err != nil {
					return err
				}
				if ok {
					written++
				}
			}
			return r.UpdatePlaidCursor(ctx, access.Scope(p).ByID(item.ID), resp.NextCursor)
		})
		if err != nil {
			return imported, err
		}
		imported += written

		cursor = resp.NextCursor
		if !resp.HasMore {
			return imported, nil
		}
	}
	j.log.Warn("plaid sync stopped at page limit", zap.String("item_id", item.ItemID))
	return imported, nil
}

// importedTransaction maps a Plaid transaction, where outflows are positive,
// to an unsigned amount and a type. The posting date becomes created_at.
func importedTransaction(pt plaid.Transaction) *models.Transaction {
	kind := models.TransactionExpense
	amount := pt.Amount
	if amount.IsNegative() {
		kind = models.TransactionIncome
		amount = amount.Neg()
	}
	description := pt.Name
	if r := []rune(description); len(r) > maxDescription {
		description = string(r[:maxDescription])
	}
	externalID := pt.ID
	t := &models.Transaction{
		Amount:          models.NewMoney(amount.Round(2)),
		TransactionType: kind,
		RawDescription:  description,
		ExternalID:      &externalID,
	}
	if posted, err := models.ParseDate(pt.Date); err == nil {
		t.CreatedAt = posted.Time
	}
	return t
}
