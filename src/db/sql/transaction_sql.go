package db

import (
	"context"
	"fmt"
	"spendsage-server/src/access"
	"spendsage-server/src/models"
	"spendsage-server/src/store"
	"time"
)

const transactionSelect = `
	SELECT t.id, t.user_id, t.category_id, c.name, t.amount, t.transaction_type,
	       t.raw_description, t.is_anomaly, t.external_id, t.created_at, t.updated_at
	FROM transactions t
	LEFT JOIN categories c ON c.id = t.category_id`

func scanTransaction(row interface{ Scan(...any) error }) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.CategoryID,
		&t.CategoryName,
		&t.Amount.Decimal,
		&t.TransactionType,
		&t.RawDescription,
		&t.IsAnomaly,
		&t.ExternalID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (r *Repo) ListTransactions(ctx context.Context, f access.Filter) ([]models.Transaction, error) {
	where, args := f.Qualified("t", 1)
	query := transactionSelect + ` WHERE ` + where + ` ORDER BY t.created_at DESC, t.id DESC`
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}

func (r *Repo) GetTransaction(ctx context.Context, f access.Filter) (*models.Transaction, error) {
	if f.ID == nil {
		return nil, store.ErrNotFound
	}
	where, args := f.Qualified("t", 1)
	return scanTransaction(r.q.QueryRow(ctx, transactionSelect+` WHERE `+where+forUpdate(f, "t"), args...))
}

// reloadTransaction re-reads a written row so the category name comes from the join.
func (r *Repo) reloadTransaction(ctx context.Context, f access.Filter, id int64, err error) (*models.Transaction, error) {
	if err != nil {
		return nil, mapErr(err)
	}
	return r.GetTransaction(ctx, access.Filter{OwnerID: f.OwnerID}.ByID(id))
}

func (r *Repo) CreateTransaction(ctx context.Context, f access.Filter, t *models.Transaction) (*models.Transaction, error) {
	query := `
		INSERT INTO transactions (user_id, category_id, amount, transaction_type, raw_description, is_anomaly, external_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	var id int64
	err := r.q.QueryRow(ctx, query,
		f.OwnerID,
		t.CategoryID,
		t.Amount.Decimal,
		t.TransactionType,
		t.RawDescription,
		t.IsAnomaly,
		t.ExternalID,
	).Scan(&id)
	return r.reloadTransaction(ctx, f, id, err)
}

func (r *Repo) UpdateTransaction(ctx context.Context, f access.Filter, t *models.Transaction) (*models.Transaction, error) {
	if f.ID == nil {
		return nil, store.ErrNotFound
	}
	where, args := f.SQL(5)
	query := fmt.Sprintf(`
		UPDATE transactions
		SET category_id = $1, amount = $2, transaction_type = $3, raw_description = $4, updated_at = NOW()
		WHERE %s
		RETURNING id`, where)
	var id int64
	err := r.q.QueryRow(ctx, query, append([]any{
		t.CategoryID,
		t.Amount.Decimal,
		t.TransactionType,
		t.RawDescription,
	}, args...)...).Scan(&id)
	return r.reloadTransaction(ctx, f, id, err)
}

func (r *Repo) DeleteTransaction(ctx context.Context, f access.Filter) error {
	if f.ID == nil {
		return store.ErrNotFound
	}
	where, args := f.SQL(1)
	return expectOne(r.q.Exec(ctx, `DELETE FROM transactions WHERE `+where, args...))
}

func (r *Repo) ImportTransaction(ctx context.Context, f access.Filter, t *models.Transaction) (bool, error) {
	if t.ExternalID == nil {
		return false, fmt.Errorf("imported transaction has no external id")
	}
	query := `
		INSERT INTO transactions (user_id, category_id, amount, transaction_type, raw_description, external_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7::timestamptz, NOW()))
		ON CONFLICT (user_id, external_id) WHERE external_id IS NOT NULL DO NOTHING`
	var createdAt *time.Time
	if !t.CreatedAt.IsZero() {
		createdAt = &t.CreatedAt
	}
	tag, err := r.q.Exec(ctx, query,
		f.OwnerID,
		t.CategoryID,
		t.Amount.Decimal,
		t.TransactionType,
		t.RawDescription,
		t.ExternalID,
		createdAt,
	)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repo) SetTransactionAnomaly(ctx context.Context, f access.Filter, anomaly bool) error {
	if f.ID == nil {
		return store.ErrNotFound
	}
	where, args := f.SQL(2)
	query := `UPDATE transactions SET is_anomaly = $1, updated_at = NOW() WHERE ` + where
	return expectOne(r.q.Exec(ctx, query, append([]any{anomaly}, args...)...))
}

func (r *Repo) SetTransactionCategory(ctx context.Context, f access.Filter, categoryID *int64) error {
	if f.ID == nil {
		return store.ErrNotFound
	}
	where, args := f.SQL(2)
	query := `UPDATE transactions SET category_id = $1, updated_at = NOW() WHERE ` + where
	return expectOne(r.q.Exec(ctx, query, append([]any{categoryID}, args...)...))
}
