package jobs

import (
	"context"
	"spendsage-server/src/access"
	"spendsage-server/src/models"
	"spendsage-server/src/store"
	"strings"

	"go.uber.org/zap"
)

// Categorize assigns each uncategorized transaction to the first category,
// by id, with a keyword found in its description. Matching ignores case.
func (j *Runner) Categorize(ctx context.Context, p access.Principal) (int, error) {
	assigned := 0
	err := j.store.Update(ctx, func(r store.Repository) error {
		categories, err := r.ListCategories(ctx, access.Scope(p))
		if err != nil {
			return err
		}
		txs, err := r.ListTransactions(ctx, access.Scope(p))
		if err != nil {
			return err
		}

		for _, t := range txs {
			if t.CategoryID != nil {
				continue
			}
			id, ok := matchCategory(categories, t.RawDescription)
			if !ok {
				continue
			}
			if err := r.SetTransactionCategory(ctx, access.Scope(p).ByID(t.ID), &id); err != nil {
				return err
			}
			assigned++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	j.log.Info("categorized transactions", zap.Int64("user_id", p.UserID), zap.Int("assigned", assigned))
	return assigned, nil
}

func matchCategory(categories []models.Category, description string) (int64, bool) {
	description = strings.ToLower(description)
	for _, c := range categories {
		for _, k := range c.KeywordList() {
			if strings.Contains(description, strings.ToLower(k)) {
				return c.ID, true
			}
		}
	}
	return 0, false
}
