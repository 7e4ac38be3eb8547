package services

import (
	"context"
	"spendsage-server/src/access"
	"spendsage-server/src/models"
	"spendsage-server/src/store"

	"go.uber.org/zap"
)

const msgPeriodOrder = "Ensure period_end_date is on or after period_start_date."

type BudgetService struct {
	store store.Store
	log   *zap.Logger
}

func NewBudgetService(s store.Store, log *zap.Logger) *BudgetService {
	return &BudgetService{store: s, log: log.Named("budgets")}
}

func (s *BudgetService) List(ctx context.Context, p access.Principal) ([]models.Budget, error) {
	var out []models.Budget
	err := s.store.View(ctx, func(r store.Repository) error {
		var err error
		out, err = r.ListBudgets(ctx, access.Scope(p))
		return err
	})
	return out, err
}

func (s *BudgetService) Get(ctx context.Context, p access.Principal, id int64) (*models.Budget, error) {
	var out *models.Budget
	err := s.store.View(ctx, func(r store.Repository) error {
		var err error
		out, err = r.GetBudget(ctx, access.Scope(p).ByID(id))
		return err
	})
	return out, err
}

func validatePeriod(b *models.Budget) error {
	if b.PeriodEndDate.Before(b.PeriodStartDate.Time) {
		return fieldError("period_end_date", msgPeriodOrder)
	}
	return nil
}

func (s *BudgetService) Create(ctx context.Context, p access.Principal, in BudgetInput) (*models.Budget, error) {
	errs := &ValidationError{}
	if !in.Category.Valid {
		errs.Add("category", msgRequired)
	}
	if in.PeriodStartDate == nil {
		errs.Add("period_start_date", msgRequired)
	}
	if in.PeriodEndDate == nil {
		errs.Add("period_end_date", msgRequired)
	}
	if in.LimitAmount == nil {
		errs.Add("limit_amount", msgRequired)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	b := &models.Budget{
		CategoryID:      in.Category.Value,
		PeriodStartDate: *in.PeriodStartDate,
		PeriodEndDate:   *in.PeriodEndDate,
		LimitAmount:     models.NewMoney(*in.LimitAmount),
	}
	if err := validatePeriod(b); err != nil {
		return nil, err
	}

	var out *models.Budget
	err := s.store.Update(ctx, func(r store.Repository) error {
		if err := checkCategory(ctx, r, p, &b.CategoryID); err != nil {
			return err
		}
		var err error
		out, err = r.CreateBudget(ctx, access.Scope(p), b)
		return err
	})
	if err != nil {
		return nil, constraintError(err, &b.CategoryID)
	}
	s.log.Info("created budget", zap.Int64("user_id", p.UserID), zap.Int64("budget_id", out.ID))
	return out, nil
}

func (s *BudgetService) Update(ctx context.Context, p access.Principal, id int64, in BudgetInput) (*models.Budget, error) {
	var out *models.Budget
	var categoryID int64
	err := s.store.Update(ctx, func(r store.Repository) error {
		scope := access.Scope(p).ByID(id)
		b, err := r.GetBudget(ctx, scope.Locked())
		if err != nil {
			return err
		}
		if in.Category.Valid {
			b.CategoryID = in.Category.Value
		}
		if in.PeriodStartDate != nil {
			b.PeriodStartDate = *in.PeriodStartDate
		}
		if in.PeriodEndDate != nil {
			b.PeriodEndDate = *in.PeriodEndDate
		}
		if in.LimitAmount != nil {
			b.LimitAmount = models.NewMoney(*in.LimitAmount)
		}
		categoryID = b.CategoryID
		if err := validatePeriod(b); err != nil {
			return err
		}
		if err := checkCategory(ctx, r, p, &b.CategoryID); err != nil {
			return err
		}
		out, err = r.UpdateBudget(ctx, scope, b)
		return err
	})
	if err != nil {
		return nil, constraintError(err, &categoryID)
	}
	return out, nil
}

func (s *BudgetService) Delete(ctx context.Context, p access.Principal, id int64) error {
	return s.store.Update(ctx, func(r store.Repository) error {
		return r.DeleteBudget(ctx, access.Scope(p).ByID(id))
	})
}
