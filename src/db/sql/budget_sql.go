package db

import (
	"context"
	"fmt"
	"spendsage-server/src/access"
	"spendsage-server/src/models"
	"spendsage-server/src/store"
	"time"

	"github.com/shopspring/decimal"
)

const budgetColumns = `id, user_id, category_id, period_start_date, period_end_date, limit_amount, ml_prediction_amount, status, created_at, updated_at`

func scanBudget(row interface{ Scan(...any) error }) (*models.Budget, error) {
	var (
		b          models.Budget
		start, end time.Time
		prediction decimal.NullDecimal
	)
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.CategoryID,
		&start,
		&end,
		&b.LimitAmount.Decimal,
		&prediction,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	b.PeriodStartDate = models.DateOf(start)
	b.PeriodEndDate = models.DateOf(end)
	if prediction.Valid {
		m := models.NewMoney(prediction.Decimal)
		b.MLPredictionAmount = &m
	}
	return &b, nil
}

func (r *Repo) ListBudgets(ctx context.Context, f access.Filter) ([]models.Budget, error) {
	where, args := f.SQL(1)
	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE ` + where + `
		ORDER BY user_id, category_id, period_start_date, id`
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	budgets := []models.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, *b)
	}
	return budgets, rows.Err()
}

func (r *Repo) GetBudget(ctx context.Context, f access.Filter) (*models.Budget, error) {
	if f.ID == nil {
		return nil, store.ErrNotFound
	}
	where, args := f.SQL(1)
	return scanBudget(r.q.QueryRow(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE `+where+forUpdate(f), args...))
}

func (r *Repo) CreateBudget(ctx context.Context, f access.Filter, b *models.Budget) (*models.Budget, error) {
	query := `
		INSERT INTO budgets (user_id, category_id, period_start_date, period_end_date, limit_amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + budgetColumns
	return scanBudget(r.q.QueryRow(ctx, query,
		f.OwnerID,
		b.CategoryID,
		b.PeriodStartDate.Time,
		b.PeriodEndDate.Time,
		b.LimitAmount.Decimal,
	))
}

func (r *Repo) UpdateBudget(ctx context.Context, f access.Filter, b *models.Budget) (*models.Budget, error) {
	if f.ID == nil {
		return nil, store.ErrNotFound
	}
	where, args := f.SQL(5)
	query := fmt.Sprintf(`
		UPDATE budgets
		SET category_id = $1, period_start_date = $2, period_end_date = $3, limit_amount = $4, updated_at = NOW()
		WHERE %s
		RETURNING %s`, where, budgetColumns)
	return scanBudget(r.q.QueryRow(ctx, query, append([]any{
		b.CategoryID,
		b.PeriodStartDate.Time,
		b.PeriodEndDate.Time,
		b.LimitAmount.Decimal,
	}, args...)...))
}

func (r *Repo) DeleteBudget(ctx context.Context, f access.Filter) error {
	if f.ID == nil {
		return store.ErrNotFound
	}
	where, args := f.SQL(1)
	return expectOne(r.q.Exec(ctx, `DELETE FROM budgets WHERE `+where, args...))
}

func (r *Repo) SetBudgetForecast(ctx context.Context, f access.Filter, prediction models.Money, status models.BudgetStatus) error {
	if f.ID == nil {
		return store.ErrNotFound
	}
	where, args := f.SQL(3)
	query := `UPDATE budgets SET ml_prediction_amount = $1, status = $2, updated_at = NOW() WHERE ` + where
	return expectOne(r.q.Exec(ctx, query, append([]any{prediction.Decimal, status}, args...)...))
}
