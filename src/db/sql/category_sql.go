package db

import (
	"context"
	"fmt"
	"spendsage-server/src/access"
	"spendsage-server/src/models"
	"spendsage-server/src/store"
)

const categoryColumns = `id, user_id, name, keywords, created_at, updated_at`

func scanCategory(row interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Keywords, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (r *Repo) ListCategories(ctx context.Context, f access.Filter) ([]models.Category, error) {
	where, args := f.SQL(1)
	rows, err := r.q.Query(ctx, `SELECT `+categoryColumns+` FROM categories WHERE `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func (r *Repo) GetCategory(ctx context.Context, f access.Filter) (*models.Category, error) {
	if f.ID == nil {
		return nil, store.ErrNotFound
	}
	where, args := f.SQL(1)
	return scanCategory(r.q.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE `+where+forUpdate(f), args...))
}

func (r *Repo) CreateCategory(ctx context.Context, f access.Filter, c *models.Category) (*models.Category, error) {
	query := `
		INSERT INTO categories (user_id, name, keywords)
		VALUES ($1, $2, $3)
		RETURNING ` + categoryColumns
	return scanCategory(r.q.QueryRow(ctx, query, f.OwnerID, c.Name, c.Keywords))
}

func (r *Repo) UpdateCategory(ctx context.Context, f access.Filter, c *models.Category) (*models.Category, error) {
	if f.ID == nil {
		return nil, store.ErrNotFound
	}
	where, args := f.SQL(3)
	query := fmt.Sprintf(`
		UPDATE categories
		SET name = $1, keywords = $2, updated_at = NOW()
		WHERE %s
		RETURNING %s`, where, categoryColumns)
	return scanCategory(r.q.QueryRow(ctx, query, append([]any{c.Name, c.Keywords}, args...)...))
}

// DeleteCategory relies on the foreign keys: transactions keep the row with
// a NULL category and budgets for the category are removed.
func (r *Repo) DeleteCategory(ctx context.Context, f access.Filter) error {
	if f.ID == nil {
		return store.ErrNotFound
	}
	where, args := f.SQL(1)
	return expectOne(r.q.Exec(ctx, `DELETE FROM categories WHERE `+where, args...))
}

func (r *Repo) CategoryNameExists(ctx context.Context, f access.Filter, name string, excludeID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM categories WHERE user_id = $1 AND name = $2 AND id <> $3)`
	var exists bool
	if err := r.q.QueryRow(ctx, query, f.OwnerID, name, excludeID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
