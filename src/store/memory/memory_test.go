package memory

import (
	"context"
	"errors"
	"spendsage-server/src/access"
	"spendsage-server/src/models"
	"spendsage-server/src/store"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = access.Principal{UserID: 1}
	bob   = access.Principal{UserID: 2}
)

func tickingClock() func() time.Time {
	var n atomic.Int64
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		return base.Add(time.Duration(n.Add(1)) * time.Second)
	}
}

func createCategory(t *testing.T, s *Store, p access.Principal, name string) *models.Category {
	t.Helper()
	var c *models.Category
	err := s.Update(context.Background(), func(r store.Repository) error {
		var err error
		c, err = r.CreateCategory(context.Background(), access.Scope(p), &models.Category{Name: name, UserID: 99})
		return err
	})
	require.NoError(t, err)
	return c
}

func TestUpdateRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Update(ctx, func(r store.Repository) error {
		if _, err := r.CreateCategory(ctx, access.Scope(alice), &models.Category{Name: "Food"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_ = s.View(ctx, func(r store.Repository) error {
		cats, err := r.ListCategories(ctx, access.Scope(alice))
		require.NoError(t, err)
		assert.Empty(t, cats)
		return nil
	})
}

func TestViewRejectsWrites(t *testing.T) {
	s := New()
	ctx := context.Background()
	err := s.View(ctx, func(r store.Repository) error {
		_, err := r.CreateCategory(ctx, access.Scope(alice), &models.Category{Name: "Food"})
		return err
	})
	assert.ErrorIs(t, err, errReadOnly)
}

func TestCreateForcesOwnerAndScopesReads(t *testing.T) {
	s := New()
	ctx := context.Background()
	c := createCategory(t, s, alice, "Food")
	assert.Equal(t, alice.UserID, c.UserID)

	_ = s.View(ctx, func(r store.Repository) error {
		_, err := r.GetCategory(ctx, access.Scope(bob).ByID(c.ID))
		assert.ErrorIs(t, err, store.ErrNotFound)

		_, err = r.GetCategory(ctx, access.Scope(alice).ByID(c.ID+100))
		assert.ErrorIs(t, err, store.ErrNotFound)

		cats, err := r.ListCategories(ctx, access.Scope(bob))
		require.NoError(t, err)
		assert.Empty(t, cats)
		return nil
	})
}

func TestCategoryNameUniquePerUser(t *testing.T) {
	s := New()
	ctx := context.Background()
	createCategory(t, s, alice, "Food")
	createCategory(t, s, bob, "Food")

	err := s.Update(ctx, func(r store.Repository) error {
		_, err := r.CreateCategory(ctx, access.Scope(alice), &models.Category{Name: "Food"})
		return err
	})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestTransactionRejectsForeignCategory(t *testing.T) {
	s := New()
	ctx := context.Background()
	bobs := createCategory(t, s, bob, "Rent")

	err := s.Update(ctx, func(r store.Repository) error {
		_, err := r.CreateTransaction(ctx, access.Scope(alice), &models.Transaction{
			CategoryID:      &bobs.ID,
			Amount:          models.MustMoney("10"),
			TransactionType: models.TransactionExpense,
			RawDescription:  "rent",
		})
		return err
	})
	assert.ErrorIs(t, err, store.ErrInvalidReference)
}

func TestDeleteCategoryNullsTransactionsAndDropsBudgets(t *testing.T) {
	s := New()
	ctx := context.Background()
	food := createCategory(t, s, alice, "Food")

	var tx *models.Transaction
	require.NoError(t, s.Update(ctx, func(r store.Repository) error {
		var err error
		tx, err = r.CreateTransaction(ctx, access.Scope(alice), &models.Transaction{
			CategoryID:      &food.ID,
			Amount:          models.MustMoney("3.20"),
			TransactionType: models.TransactionExpense,
			RawDescription:  "tea",
		})
		if err != nil {
			return err
		}
		_, err = r.CreateBudget(ctx, access.Scope(alice), &models.Budget{
			CategoryID:      food.ID,
			PeriodStartDate: models.NewDate(2024, 1, 1),
			PeriodEndDate:   models.NewDate(2024, 1, 31),
			LimitAmount:     models.MustMoney("100"),
		})
		return err
	}))

	require.NoError(t, s.Update(ctx, func(r store.Repository) error {
		return r.DeleteCategory(ctx, access.Scope(alice).ByID(food.ID))
	}))

	_ = s.View(ctx, func(r store.Repository) error {
		got, err := r.GetTransaction(ctx, access.Scope(alice).ByID(tx.ID))
		require.NoError(t, err)
		assert.Nil(t, got.CategoryID)
		assert.Nil(t, got.CategoryName)

		budgets, err := r.ListBudgets(ctx, access.Scope(alice))
		require.NoError(t, err)
		assert.Empty(t, budgets)
		return nil
	})
}

func TestListTransactionsNewestFirst(t *testing.T) {
	s := New().WithClock(tickingClock())
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, func(r store.Repository) error {
		for _, d := range []string{"first", "second", "third"} {
			if _, err := r.CreateTransaction(ctx, access.Scope(alice), &models.Transaction{
				Amount:          models.MustMoney("1"),
				TransactionType: models.TransactionExpense,
				RawDescription:  d,
			}); err != nil {
				return err
			}
		}
		return nil
	}))

	_ = s.View(ctx, func(r store.Repository) error {
		txs, err := r.ListTransactions(ctx, access.Scope(alice))
		require.NoError(t, err)
		require.Len(t, txs, 3)
		assert.Equal(t, "third", txs[0].RawDescription)
		assert.Equal(t, "first", txs[2].RawDescription)
		return nil
	})
}

func TestImportTransactionDeduplicates(t *testing.T) {
	s := New()
	ctx := context.Background()
	ext := "plaid-tx-1"
	tx := &models.Transaction{
		Amount:          models.MustMoney("4"),
		TransactionType: models.TransactionExpense,
		RawDescription:  "Coffee",
		ExternalID:      &ext,
	}

	var first, second bool
	require.NoError(t, s.Update(ctx, func(r store.Repository) error {
		var err error
		if first, err = r.ImportTransaction(ctx, access.Scope(alice), tx); err != nil {
			return err
		}
		second, err = r.ImportTransaction(ctx, access.Scope(alice), tx)
		return err
	}))
	assert.True(t, first)
	assert.False(t, second)
}

func TestCompleteTaskOnlyOnce(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, func(r store.Repository) error {
		_, err := r.CreateTask(ctx, access.Scope(alice), &models.BackgroundTask{TaskID: "t-1", TaskType: models.TaskTypeExport})
		return err
	}))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := models.TaskSuccess
			if i%2 == 1 {
				status = models.TaskFailed
			}
			_ = s.Update(ctx, func(r store.Repository) error {
				applied, err := r.CompleteTask(ctx, "t-1", status, nil, time.Now())
				if applied {
					wins.Add(1)
				}
				return err
			})
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	_ = s.View(ctx, func(r store.Repository) error {
		task, err := r.GetTaskByTaskID(ctx, "t-1")
		require.NoError(t, err)
		assert.True(t, task.Status.Terminal())
		assert.NotNil(t, task.CompletedAt)
		return nil
	})
}

func TestCreateTaskRejectsDuplicateTaskID(t *testing.T) {
	s := New()
	ctx := context.Background()
	err := s.Update(ctx, func(r store.Repository) error {
		if _, err := r.CreateTask(ctx, access.Scope(alice), &models.BackgroundTask{TaskID: "dup", TaskType: models.TaskTypeExport}); err != nil {
			return err
		}
		_, err := r.CreateTask(ctx, access.Scope(bob), &models.BackgroundTask{TaskID: "dup", TaskType: models.TaskTypeExport})
		return err
	})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestConstraintErrorsMatchPostgres(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, func(r store.Repository) error {
		_, err := r.CreateUser(ctx, &models.User{Email: "a@x.com", Username: "alice"})
		return err
	}))

	err := s.Update(ctx, func(r store.Repository) error {
		_, err := r.CreateUser(ctx, &models.User{Email: "A@X.com", Username: "other"})
		return err
	})
	assert.ErrorIs(t, err, store.ErrEmailTaken)
	assert.ErrorIs(t, err, store.ErrConflict)

	err = s.Update(ctx, func(r store.Repository) error {
		_, err := r.CreateUser(ctx, &models.User{Email: "b@x.com", Username: "alice"})
		return err
	})
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.False(t, errors.Is(err, store.ErrEmailTaken))

	food := createCategory(t, s, alice, "Food")
	err = s.Update(ctx, func(r store.Repository) error {
		_, err := r.CreateBudget(ctx, access.Scope(alice), &models.Budget{
			CategoryID:      food.ID,
			PeriodStartDate: models.NewDate(2024, 2, 1),
			PeriodEndDate:   models.NewDate(2024, 1, 1),
			LimitAmount:     models.MustMoney("100"),
		})
		return err
	})
	assert.ErrorIs(t, err, store.ErrCheckViolation)
}
