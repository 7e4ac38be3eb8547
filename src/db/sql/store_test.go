package db

import (
	"context"
	"os"
	"spendsage-server/src/access"
	pgdb "spendsage-server/src/db"
	"spendsage-server/src/models"
	"spendsage-server/src/store"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore connects to TEST_DATABASE_URL, migrates and truncates. The
// tests are skipped when the variable is unset.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgdb.Connect(ctx, url)
	require.NoError(t, err)
	_, err = pgdb.Migrate(pool)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `TRUNCATE users, categories, transactions, budgets, background_tasks, plaid_items RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	s := NewStore(pool)
	t.Cleanup(s.Close)
	return s
}

func seedUser(t *testing.T, s *Store, email string) access.Principal {
	t.Helper()
	var u *models.User
	require.NoError(t, s.Update(context.Background(), func(r store.Repository) error {
		var err error
		u, err = r.CreateUser(context.Background(), &models.User{
			Email:              email,
			Username:           email,
			PasswordHash:       []byte("x"),
			CurrencyPreference: models.DefaultCurrency,
		})
		return err
	}))
	return access.Principal{UserID: u.ID, Email: u.Email}
}

func TestPostgresOwnershipScoping(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedUser(t, s, "a@x.com")
	b := seedUser(t, s, "b@x.com")

	var tx *models.Transaction
	require.NoError(t, s.Update(ctx, func(r store.Repository) error {
		food, err := r.CreateCategory(ctx, access.Scope(a), &models.Category{Name: "Food"})
		if err != nil {
			return err
		}
		tx, err = r.CreateTransaction(ctx, access.Scope(a), &models.Transaction{
			CategoryID:      &food.ID,
			Amount:          models.MustMoney("12.50"),
			TransactionType: models.TransactionExpense,
			RawDescription:  "Coffee",
		})
		return err
	}))
	require.NotNil(t, tx.CategoryName)
	assert.Equal(t, "Food", *tx.CategoryName)
	assert.Equal(t, "12.50", tx.Amount.String())

	_ = s.View(ctx, func(r store.Repository) error {
		_, err := r.GetTransaction(ctx, access.Scope(b).ByID(tx.ID))
		assert.ErrorIs(t, err, store.ErrNotFound)
		list, err := r.ListTransactions(ctx, access.Scope(b))
		require.NoError(t, err)
		assert.Empty(t, list)
		return nil
	})

	err := s.Update(ctx, func(r store.Repository) error {
		return r.DeleteTransaction(ctx, access.Scope(b).ByID(tx.ID))
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPostgresRejectsForeignCategory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedUser(t, s, "a@x.com")
	b := seedUser(t, s, "b@x.com")

	err := s.Update(ctx, func(r store.Repository) error {
		rent, err := r.CreateCategory(ctx, access.Scope(b), &models.Category{Name: "Rent"})
		if err != nil {
			return err
		}
		_, err = r.CreateBudget(ctx, access.Scope(a), &models.Budget{
			CategoryID:      rent.ID,
			PeriodStartDate: models.NewDate(2024, 1, 1),
			PeriodEndDate:   models.NewDate(2024, 1, 31),
			LimitAmount:     models.MustMoney("100"),
		})
		return err
	})
	assert.ErrorIs(t, err, store.ErrInvalidReference)
}

func TestPostgresCompleteTaskCompareAndSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedUser(t, s, "a@x.com")
	require.NoError(t, s.Update(ctx, func(r store.Repository) error {
		_, err := r.CreateTask(ctx, access.Scope(a), &models.BackgroundTask{TaskID: "task-1", TaskType: models.TaskTypeExport})
		return err
	}))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Update(ctx, func(r store.Repository) error {
				ok, err := r.CompleteTask(ctx, "task-1", models.TaskSuccess, nil, time.Now())
				if ok {
					wins.Add(1)
				}
				return err
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func seedBudget(t *testing.T, s *Store, p access.Principal) *models.Budget {
	t.Helper()
	ctx := context.Background()
	var b *models.Budget
	require.NoError(t, s.Update(ctx, func(r store.Repository) error {
		food, err := r.CreateCategory(ctx, access.Scope(p), &models.Category{Name: "Food"})
		if err != nil {
			return err
		}
		b, err = r.CreateBudget(ctx, access.Scope(p), &models.Budget{
			CategoryID:      food.ID,
			PeriodStartDate: models.NewDate(2024, 1, 1),
			PeriodEndDate:   models.NewDate(2024, 1, 31),
			LimitAmount:     models.MustMoney("100"),
		})
		return err
	}))
	return b
}

func TestPostgresLockedReadSerializesPartialUpdates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedUser(t, s, "a@x.com")
	b := seedBudget(t, s, a)
	scope := access.Scope(a).ByID(b.ID)

	locked := make(chan struct{})
	release := make(chan struct{})
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- s.Update(ctx, func(r store.Repository) error {
			row, err := r.GetBudget(ctx, scope.Locked())
			if err != nil {
				return err
			}
			close(locked)
			<-release
			row.LimitAmount = models.MustMoney("200")
			_, err = r.UpdateBudget(ctx, scope, row)
			return err
		})
	}()
	<-locked

	secondDone := make(chan error, 1)
	go func() {
		secondDone <- s.Update(ctx, func(r store.Repository) error {
			row, err := r.GetBudget(ctx, scope.Locked())
			if err != nil {
				return err
			}
			row.PeriodStartDate = models.NewDate(2024, 1, 5)
			_, err = r.UpdateBudget(ctx, scope, row)
			return err
		})
	}()

	select {
	case err := <-secondDone:
		t.Fatalf("second update finished while the row was locked: %v", err)
	case <-time.After(200 * time.Millisecond):
	}
	close(release)
	require.NoError(t, <-firstDone)
	require.NoError(t, <-secondDone)

	require.NoError(t, s.View(ctx, func(r store.Repository) error {
		got, err := r.GetBudget(ctx, scope)
		require.NoError(t, err)
		assert.Equal(t, "200.00", got.LimitAmount.String())
		assert.Equal(t, "2024-01-05", got.PeriodStartDate.String())
		return nil
	}))
}

func TestPostgresConstraintErrors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedUser(t, s, "a@x.com")
	b := seedBudget(t, s, a)

	err := s.Update(ctx, func(r store.Repository) error {
		b.PeriodEndDate = models.NewDate(2023, 12, 1)
		_, err := r.UpdateBudget(ctx, access.Scope(a).ByID(b.ID), b)
		return err
	})
	assert.ErrorIs(t, err, store.ErrCheckViolation)

	err = s.Update(ctx, func(r store.Repository) error {
		_, err := r.CreateUser(ctx, &models.User{Email: "A@X.com", Username: "other", PasswordHash: []byte("x")})
		return err
	})
	assert.ErrorIs(t, err, store.ErrEmailTaken)
	assert.ErrorIs(t, err, store.ErrConflict)

	err = s.Update(ctx, func(r store.Repository) error {
		_, err := r.CreateUser(ctx, &models.User{Email: "c@x.com", Username: "a@x.com", PasswordHash: []byte("x")})
		return err
	})
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.NotErrorIs(t, err, store.ErrEmailTaken)
}
