package services

import (
	"context"
	"errors"
	"spendsage-server/src/access"
	"spendsage-server/src/models"
	"spendsage-server/src/store"

	"go.uber.org/zap"
)

type TransactionService struct {
	store store.Store
	log   *zap.Logger
}

func NewTransactionService(s store.Store, log *zap.Logger) *TransactionService {
	return &TransactionService{store: s, log: log.Named("transactions")}
}

func (s *TransactionService) List(ctx context.Context, p access.Principal) ([]models.Transaction, error) {
	var out []models.Transaction
	err := s.store.View(ctx, func(r store.Repository) error {
		var err error
		out, err = r.ListTransactions(ctx, access.Scope(p))
		return err
	})
	return out, err
}

func (s *TransactionService) Get(ctx context.Context, p access.Principal, id int64) (*models.Transaction, error) {
	var out *models.Transaction
	err := s.store.View(ctx, func(r store.Repository) error {
		var err error
		out, err = r.GetTransaction(ctx, access.Scope(p).ByID(id))
		return err
	})
	return out, err
}

// checkCategory rejects a category the principal does not own. The lookup
// is scoped, so another user's category reads as nonexistent.
func checkCategory(ctx context.Context, r store.Repository, p access.Principal, id *int64) error {
	if id == nil {
		return nil
	}
	_, err := r.GetCategory(ctx, access.Scope(p).ByID(*id))
	if errors.Is(err, store.ErrNotFound) {
		return fieldError("category", invalidPK(*id))
	}
	return err
}

func validateTransaction(t *models.Transaction) error {
	errs := &ValidationError{}
	if t.RawDescription == "" {
		errs.Add("raw_description", msgBlank)
	}
	maxLength(errs, "raw_description", &t.RawDescription, 255)
	if !t.TransactionType.Valid() {
		errs.Add("transaction_type", "\""+string(t.TransactionType)+"\" is not a valid choice.")
	}
	return errs.Err()
}

func (s *TransactionService) Create(ctx context.Context, p access.Principal, in TransactionInput) (*models.Transaction, error) {
	errs := &ValidationError{}
	if in.Amount == nil {
		errs.Add("amount", msgRequired)
	}
	if in.RawDescription == nil {
		errs.Add("raw_description", msgRequired)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	t := &models.Transaction{
		Amount:          models.NewMoney(*in.Amount),
		RawDescription:  *in.RawDescription,
		TransactionType: models.TransactionExpense,
	}
	if in.TransactionType != nil {
		t.TransactionType = models.TransactionType(*in.TransactionType)
	}
	if in.Category.Valid {
		t.CategoryID = &in.Category.Value
	}
	if err := validateTransaction(t); err != nil {
		return nil, err
	}

	var out *models.Transaction
	err := s.store.Update(ctx, func(r store.Repository) error {
		if err := checkCategory(ctx, r, p, t.CategoryID); err != nil {
			return err
		}
		var err error
		out, err = r.CreateTransaction(ctx, access.Scope(p), t)
		return err
	})
	if err != nil {
		return nil, constraintError(err, t.CategoryID)
	}
	s.log.Info("created transaction", zap.Int64("user_id", p.UserID), zap.Int64("transaction_id", out.ID))
	return out, nil
}

func (s *TransactionService) Update(ctx context.Context, p access.Principal, id int64, in TransactionInput) (*models.Transaction, error) {
	var out *models.Transaction
	var categoryID *int64
	err := s.store.Update(ctx, func(r store.Repository) error {
		scope := access.Scope(p).ByID(id)
		t, err := r.GetTransaction(ctx, scope.Locked())
		if err != nil {
			return err
		}
		if in.Amount != nil {
			t.Amount = models.NewMoney(*in.Amount)
		}
		if in.RawDescription != nil {
			t.RawDescription = *in.RawDescription
		}
		if in.TransactionType != nil {
			t.TransactionType = models.TransactionType(*in.TransactionType)
		}
		if in.Category.Set {
			t.CategoryID = nil
			if in.Category.Valid {
				t.CategoryID = &in.Category.Value
			}
		}
		categoryID = t.CategoryID
		if err := validateTransaction(t); err != nil {
			return err
		}
		if err := checkCategory(ctx, r, p, t.CategoryID); err != nil {
			return err
		}
		out, err = r.UpdateTransaction(ctx, scope, t)
		return err
	})
	if err != nil {
		return nil, constraintError(err, categoryID)
	}
	return out, nil
}

func (s *TransactionService) Delete(ctx context.Context, p access.Principal, id int64) error {
	return s.store.Update(ctx, func(r store.Repository) error {
		return r.DeleteTransaction(ctx, access.Scope(p).ByID(id))
	})
}

// constraintError turns storage-level rejections into the validation errors
// the pre-checks produce.
func constraintError(err error, categoryID *int64) error {
	switch {
	case errors.Is(err, store.ErrInvalidReference) && categoryID != nil:
		return fieldError("category", invalidPK(*categoryID))
	case errors.Is(err, store.ErrCheckViolation):
		return fieldError(nonFieldErrors, "Invalid data.")
	}
	return err
}
