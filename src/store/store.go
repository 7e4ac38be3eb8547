// Package store declares the persistence contracts shared by the PostgreSQL
// and in-memory backends.
package store

import (
	"context"
	"errors"
	"fmt"
	"spendsage-server/src/access"
	"spendsage-server/src/models"
	"time"
)

var (
	// ErrNotFound is returned for any scoped lookup miss. A row owned by
	// another user is reported the same way as a row that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a uniqueness constraint rejects a write.
	ErrConflict = errors.New("conflict")
	// ErrInvalidReference is returned when a write points at a category the
	// owner does not have.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrEmailTaken is the ErrConflict raised by the case-insensitive email
	// uniqueness rule.
	ErrEmailTaken = fmt.Errorf("email taken: %w", ErrConflict)
	// ErrCheckViolation is returned when a value breaks a storage-level
	// range or ordering rule.
	ErrCheckViolation = errors.New("check violation")
)

// Store runs units of work. Everything fn does through the Repository is
// committed together when fn returns nil and discarded otherwise.
type Store interface {
	View(ctx context.Context, fn func(Repository) error) error
	Update(ctx context.Context, fn func(Repository) error) error
	Close()
}

// Repository is the set of row operations available inside a unit of work.
// Methods taking an access.Filter only see rows it matches; create methods
// take the owner from the filter and ignore any UserID already set.
type Repository interface {
	UserRepository
	CategoryRepository
	TransactionRepository
	BudgetRepository
	TaskRepository
	PlaidRepository
}

type UserRepository interface {
	CreateUser(ctx context.Context, u *models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) (*models.User, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

type CategoryRepository interface {
	ListCategories(ctx context.Context, f access.Filter) ([]models.Category, error)
	GetCategory(ctx context.Context, f access.Filter) (*models.Category, error)
	CreateCategory(ctx context.Context, f access.Filter, c *models.Category) (*models.Category, error)
	UpdateCategory(ctx context.Context, f access.Filter, c *models.Category) (*models.Category, error)
	// DeleteCategory nulls the category on the owner's transactions and
	// removes the owner's budgets for it.
	DeleteCategory(ctx context.Context, f access.Filter) error
	CategoryNameExists(ctx context.Context, f access.Filter, name string, excludeID int64) (bool, error)
}

type TransactionRepository interface {
	// ListTransactions returns rows newest first, ties broken by id descending.
	ListTransactions(ctx context.Context, f access.Filter) ([]models.Transaction, error)
	GetTransaction(ctx context.Context, f access.Filter) (*models.Transaction, error)
	CreateTransaction(ctx context.Context, f access.Filter, t *models.Transaction) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, f access.Filter, t *models.Transaction) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, f access.Filter) error
	// ImportTransaction inserts t unless the owner already has a row with the
	// same ExternalID, reporting whether a row was written. A non-zero
	// CreatedAt is kept as the row's timestamp.
	ImportTransaction(ctx context.Context, f access.Filter, t *models.Transaction) (bool, error)
	SetTransactionAnomaly(ctx context.Context, f access.Filter, anomaly bool) error
	SetTransactionCategory(ctx context.Context, f access.Filter, categoryID *int64) error
}

type BudgetRepository interface {
	// ListBudgets orders by category, then period start ascending.
	ListBudgets(ctx context.Context, f access.Filter) ([]models.Budget, error)
	GetBudget(ctx context.Context, f access.Filter) (*models.Budget, error)
	CreateBudget(ctx context.Context, f access.Filter, b *models.Budget) (*models.Budget, error)
	UpdateBudget(ctx context.Context, f access.Filter, b *models.Budget) (*models.Budget, error)
	DeleteBudget(ctx context.Context, f access.Filter) error
	SetBudgetForecast(ctx context.Context, f access.Filter, prediction models.Money, status models.BudgetStatus) error
}

type TaskRepository interface {
	// CreateTask returns ErrConflict when the task id is already taken.
	CreateTask(ctx context.Context, f access.Filter, t *models.BackgroundTask) (*models.BackgroundTask, error)
	ListTasks(ctx context.Context, f access.Filter) ([]models.BackgroundTask, error)
	GetTask(ctx context.Context, f access.Filter) (*models.BackgroundTask, error)
	// GetTaskByTaskID is the unscoped lookup used by the worker.
	GetTaskByTaskID(ctx context.Context, taskID string) (*models.BackgroundTask, error)
	// CompleteTask moves a PENDING task to status. It reports false, with no
	// error, when the task is missing or already terminal.
	CompleteTask(ctx context.Context, taskID string, status models.TaskStatus, resultFile *string, at time.Time) (bool, error)
}

type PlaidRepository interface {
	// SavePlaidItem inserts the item or refreshes its access token if the
	// owner already linked it.
	SavePlaidItem(ctx context.Context, f access.Filter, item *models.PlaidItem) (*models.PlaidItem, error)
	ListPlaidItems(ctx context.Context, f access.Filter) ([]models.PlaidItem, error)
	// GetPlaidItemByItemID is the unscoped lookup used for webhooks, which
	// identify the item but not its owner.
	GetPlaidItemByItemID(ctx context.Context, itemID string) (*models.PlaidItem, error)
	UpdatePlaidCursor(ctx context.Context, f access.Filter, cursor string) error
}
