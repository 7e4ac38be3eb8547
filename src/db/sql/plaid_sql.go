package db

import (
	"context"
	"errors"
	"spendsage-server/src/access"
	"spendsage-server/src/models"
	"spendsage-server/src/store"
)

const plaidItemColumns = `id, user_id, item_id, access_token, institution_name, sync_cursor, created_at`

func scanPlaidItem(row interface{ Scan(...any) error }) (*models.PlaidItem, error) {
	var item models.PlaidItem
	err := row.Scan(&item.ID, &item.UserID, &item.ItemID, &item.AccessToken, &item.InstitutionName, &item.SyncCursor, &item.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &item, nil
}

// SavePlaidItem upserts on item_id. An item linked by another user matches no
// row in the conflict branch and surfaces as ErrConflict.
func (r *Repo) SavePlaidItem(ctx context.Context, f access.Filter, item *models.PlaidItem) (*models.PlaidItem, error) {
	query := `
		INSERT INTO plaid_items (user_id, item_id, access_token, institution_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (item_id) DO UPDATE
		SET access_token = EXCLUDED.access_token, institution_name = EXCLUDED.institution_name
		WHERE plaid_items.user_id = EXCLUDED.user_id
		RETURNING ` + plaidItemColumns
	saved, err := scanPlaidItem(r.q.QueryRow(ctx, query, f.OwnerID, item.ItemID, item.AccessToken, item.InstitutionName))
	if errors.Is(err, store.ErrNotFound) {
		return nil, store.ErrConflict
	}
	return saved, err
}

func (r *Repo) ListPlaidItems(ctx context.Context, f access.Filter) ([]models.PlaidItem, error) {
	where, args := f.SQL(1)
	rows, err := r.q.Query(ctx, `SELECT `+plaidItemColumns+` FROM plaid_items WHERE `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.PlaidItem{}
	for rows.Next() {
		item, err := scanPlaidItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (r *Repo) GetPlaidItemByItemID(ctx context.Context, itemID string) (*models.PlaidItem, error) {
	return scanPlaidItem(r.q.QueryRow(ctx, `SELECT `+plaidItemColumns+` FROM plaid_items WHERE item_id = $1`, itemID))
}

func (r *Repo) UpdatePlaidCursor(ctx context.Context, f access.Filter, cursor string) error {
	if f.ID == nil {
		return store.ErrNotFound
	}
	where, args := f.SQL(2)
	return expectOne(r.q.Exec(ctx, `UPDATE plaid_items SET sync_cursor = $1 WHERE `+where, append([]any{cursor}, args...)...))
}
