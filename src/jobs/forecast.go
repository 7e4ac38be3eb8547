package jobs

import (
	"context"
	"spendsage-server/src/access"
	"spendsage-server/src/models"
	"spendsage-server/src/store"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Forecast is the projected spend for one budget period.
type Forecast struct {
	Spent      decimal.Decimal
	Projection decimal.Decimal
	Status     models.BudgetStatus
}

// ForecastBudgets recomputes ml_prediction_amount and status for each of the
// owner's budgets as of today.
func (j *Runner) ForecastBudgets(ctx context.Context, p access.Principal) (int, error) {
	today := models.DateOf(j.now())
	updated := 0
	err := j.store.Update(ctx, func(r store.Repository) error {
		budgets, err := r.ListBudgets(ctx, access.Scope(p))
		if err != nil {
			return err
		}
		txs, err := r.ListTransactions(ctx, access.Scope(p))
		if err != nil {
			return err
		}

		for _, b := range budgets {
			fc := forecastBudget(b, txs, today)
			if err := r.SetBudgetForecast(ctx, access.Scope(p).ByID(b.ID), models.NewMoney(fc.Projection), fc.Status); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	j.log.Info("forecast budgets", zap.Int64("user_id", p.UserID), zap.Int("budgets", updated))
	return updated, nil
}

// forecastBudget projects the budget category's expense total over the
// whole period from the daily burn rate so far.
func forecastBudget(b models.Budget, txs []models.Transaction, today models.Date) Forecast {
	spent := decimal.Zero
	for _, t := range txs {
		if t.TransactionType != models.TransactionExpense || t.CategoryID == nil || *t.CategoryID != b.CategoryID {
			continue
		}
		day := models.DateOf(t.CreatedAt.UTC())
		if day.Before(b.PeriodStartDate.Time) || day.After(b.PeriodEndDate.Time) {
			continue
		}
		spent = spent.Add(t.Amount.Decimal)
	}

	totalDays := days(b.PeriodStartDate, b.PeriodEndDate)
	elapsed := totalDays
	if today.Before(b.PeriodEndDate.Time) {
		elapsed = days(b.PeriodStartDate, today)
	}

	projection := spent
	if elapsed > 0 && elapsed < totalDays {
		projection = spent.Div(decimal.NewFromInt(elapsed)).Mul(decimal.NewFromInt(totalDays))
	}
	projection = projection.Round(2)
	if projection.GreaterThan(models.MaxMoney) {
		projection = models.MaxMoney
	}

	limit := b.LimitAmount.Decimal
	status := models.BudgetOnTrack
	switch {
	case spent.GreaterThan(limit):
		status = models.BudgetOver
	case projection.GreaterThan(limit):
		status = models.BudgetAtRisk
	}
	return Forecast{Spent: spent, Projection: projection, Status: status}
}

// days counts the calendar days from start through end inclusive, or zero
// when end precedes start.
func days(start, end models.Date) int64 {
	n := int64(end.Sub(start.Time)/(24*time.Hour)) + 1
	if n < 0 {
		return 0
	}
	return n
}
