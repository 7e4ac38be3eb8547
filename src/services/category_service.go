package services

import (
	"context"
	"errors"
	"spendsage-server/src/access"
	"spendsage-server/src/models"
	"spendsage-server/src/store"

	"go.uber.org/zap"
)

const msgCategoryExists = "Category with this name already exists."

type CategoryService struct {
	store store.Store
	log   *zap.Logger
}

func NewCategoryService(s store.Store, log *zap.Logger) *CategoryService {
	return &CategoryService{store: s, log: log.Named("categories")}
}

func (s *CategoryService) List(ctx context.Context, p access.Principal) ([]models.Category, error) {
	var out []models.Category
	err := s.store.View(ctx, func(r store.Repository) error {
		var err error
		out, err = r.ListCategories(ctx, access.Scope(p))
		return err
	})
	return out, err
}

func (s *CategoryService) Get(ctx context.Context, p access.Principal, id int64) (*models.Category, error) {
	var out *models.Category
	err := s.store.View(ctx, func(r store.Repository) error {
		var err error
		out, err = r.GetCategory(ctx, access.Scope(p).ByID(id))
		return err
	})
	return out, err
}

func validateCategory(c *models.Category) error {
	errs := &ValidationError{}
	if c.Name == "" {
		errs.Add("name", msgBlank)
	}
	maxLength(errs, "name", &c.Name, 100)
	return errs.Err()
}

func (s *CategoryService) Create(ctx context.Context, p access.Principal, in CategoryInput) (*models.Category, error) {
	if in.Name == nil {
		return nil, fieldError("name", msgRequired)
	}
	c := &models.Category{Name: *in.Name}
	if in.Keywords != nil {
		c.Keywords = *in.Keywords
	}
	if err := validateCategory(c); err != nil {
		return nil, err
	}

	var out *models.Category
	err := s.store.Update(ctx, func(r store.Repository) error {
		scope := access.Scope(p)
		taken, err := r.CategoryNameExists(ctx, scope, c.Name, 0)
		if err != nil {
			return err
		}
		if taken {
			return fieldError("name", msgCategoryExists)
		}
		out, err = r.CreateCategory(ctx, scope, c)
		return err
	})
	if errors.Is(err, store.ErrConflict) {
		return nil, fieldError("name", msgCategoryExists)
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("created category", zap.Int64("user_id", p.UserID), zap.Int64("category_id", out.ID))
	return out, nil
}

func (s *CategoryService) Update(ctx context.Context, p access.Principal, id int64, in CategoryInput) (*models.Category, error) {
	var out *models.Category
	err := s.store.Update(ctx, func(r store.Repository) error {
		scope := access.Scope(p).ByID(id)
		c, err := r.GetCategory(ctx, scope.Locked())
		if err != nil {
			return err
		}
		if in.Name != nil {
			c.Name = *in.Name
		}
		if in.Keywords != nil {
			c.Keywords = *in.Keywords
		}
		if err := validateCategory(c); err != nil {
			return err
		}
		taken, err := r.CategoryNameExists(ctx, scope, c.Name, c.ID)
		if err != nil {
			return err
		}
		if taken {
			return fieldError("name", msgCategoryExists)
		}
		out, err = r.UpdateCategory(ctx, scope, c)
		return err
	})
	if errors.Is(err, store.ErrConflict) {
		return nil, fieldError("name", msgCategoryExists)
	}
	return out, err
}

// Delete removes the category. Transactions in it become uncategorized and
// budgets for it are removed.
func (s *CategoryService) Delete(ctx context.Context, p access.Principal, id int64) error {
	err := s.store.Update(ctx, func(r store.Repository) error {
		return r.DeleteCategory(ctx, access.Scope(p).ByID(id))
	})
	if err == nil {
		s.log.Info("deleted category", zap.Int64("user_id", p.UserID), zap.Int64("category_id", id))
	}
	return err
}
