package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"spendsage-server/src/access"
	"spendsage-server/src/models"
	"spendsage-server/src/store"
	"strings"
	"time"
)

type repo struct {
	st       *state
	now      func() time.Time
	readOnly bool
}

func (r *repo) writable() error {
	if r.readOnly {
		return errReadOnly
	}
	return nil
}

// Users

func (r *repo) CreateUser(_ context.Context, u *models.User) (*models.User, error) {
	if err := r.writable(); err != nil {
		return nil, err
	}
	for _, existing := range r.st.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, store.ErrEmailTaken
		}
		if existing.Username == u.Username {
			return nil, store.ErrConflict
		}
	}
	r.st.seq.users++
	row := *u
	row.ID = r.st.seq.users
	row.DateJoined = r.now()
	row.LastLogin = nil
	r.st.users[row.ID] = row
	return &row, nil
}

func (r *repo) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := r.st.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (r *repo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.st.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *repo) UpdateUser(_ context.Context, u *models.User) (*models.User, error) {
	if err := r.writable(); err != nil {
		return nil, err
	}
	existing, ok := r.st.users[u.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	for id, other := range r.st.users {
		if id != u.ID && other.Username == u.Username {
			return nil, store.ErrConflict
		}
	}
	existing.Username = u.Username
	existing.Name = u.Name
	existing.PhoneNumber = u.PhoneNumber
	existing.CurrencyPreference = u.CurrencyPreference
	r.st.users[u.ID] = existing
	return &existing, nil
}

func (r *repo) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	if err := r.writable(); err != nil {
		return err
	}
	u, ok := r.st.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.LastLogin = &at
	r.st.users[id] = u
	return nil
}

// Categories

func (r *repo) ListCategories(_ context.Context, f access.Filter) ([]models.Category, error) {
	out := []models.Category{}
	for _, c := range r.st.categories {
		if f.Matches(c.UserID, c.ID) {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b models.Category) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *repo) GetCategory(_ context.Context, f access.Filter) (*models.Category, error) {
	c, ok := r.category(f)
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (r *repo) category(f access.Filter) (models.Category, bool) {
	if f.ID == nil {
		return models.Category{}, false
	}
	c, ok := r.st.categories[*f.ID]
	if !ok || !f.Matches(c.UserID, c.ID) {
		return models.Category{}, false
	}
	return c, true
}

func (r *repo) CreateCategory(ctx context.Context, f access.Filter, c *models.Category) (*models.Category, error) {
	if err := r.writable(); err != nil {
		return nil, err
	}
	if taken, _ := r.CategoryNameExists(ctx, f, c.Name, 0); taken {
		return nil, store.ErrConflict
	}
	now := r.now()
	r.st.seq.categories++
	row := models.Category{
		ID:        r.st.seq.categories,
		UserID:    f.OwnerID,
		Name:      c.Name,
		Keywords:  c.Keywords,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.st.categories[row.ID] = row
	return &row, nil
}

func (r *repo) UpdateCategory(ctx context.Context, f access.Filter, c *models.Category) (*models.Category, error) {
	if err := r.writable(); err != nil {
		return nil, err
	}
	row, ok := r.category(f)
	if !ok {
		return nil, store.ErrNotFound
	}
	if taken, _ := r.CategoryNameExists(ctx, access.Filter{OwnerID: f.OwnerID}, c.Name, row.ID); taken {
		return nil, store.ErrConflict
	}
	row.Name = c.Name
	row.Keywords = c.Keywords
	row.UpdatedAt = r.now()
	r.st.categories[row.ID] = row
	return &row, nil
}

func (r *repo) DeleteCategory(_ context.Context, f access.Filter) error {
	if err := r.writable(); err != nil {
		return err
	}
	row, ok := r.category(f)
	if !ok {
		return store.ErrNotFound
	}
	delete(r.st.categories, row.ID)
	for id, t := range r.st.transactions {
		if t.UserID == row.UserID && t.CategoryID != nil && *t.CategoryID == row.ID {
			t.CategoryID = nil
			r.st.transactions[id] = t
		}
	}
	for id, b := range r.st.budgets {
		if b.UserID == row.UserID && b.CategoryID == row.ID {
			delete(r.st.budgets, id)
		}
	}
	return nil
}

func (r *repo) CategoryNameExists(_ context.Context, f access.Filter, name string, excludeID int64) (bool, error) {
	for _, c := range r.st.categories {
		if c.UserID == f.OwnerID && c.ID != excludeID && c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// ownsCategory mirrors the composite (category_id, user_id) foreign key.
func (r *repo) ownsCategory(owner int64, categoryID *int64) bool {
	if categoryID == nil {
		return true
	}
	c, ok := r.st.categories[*categoryID]
	return ok && c.UserID == owner
}

// Transactions

func (r *repo) withCategoryName(t models.Transaction) models.Transaction {
	t.CategoryName = nil
	if t.CategoryID != nil {
		if c, ok := r.st.categories[*t.CategoryID]; ok {
			t.CategoryName = ptr(c.Name)
		}
	}
	return t
}

func (r *repo) transaction(f access.Filter) (models.Transaction, bool) {
	if f.ID == nil {
		return models.Transaction{}, false
	}
	t, ok := r.st.transactions[*f.ID]
	if !ok || !f.Matches(t.UserID, t.ID) {
		return models.Transaction{}, false
	}
	return t, true
}

func (r *repo) ListTransactions(_ context.Context, f access.Filter) ([]models.Transaction, error) {
	out := []models.Transaction{}
	for _, t := range r.st.transactions {
		if f.Matches(t.UserID, t.ID) {
			out = append(out, r.withCategoryName(t))
		}
	}
	slices.SortFunc(out, func(a, b models.Transaction) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (r *repo) GetTransaction(_ context.Context, f access.Filter) (*models.Transaction, error) {
	t, ok := r.transaction(f)
	if !ok {
		return nil, store.ErrNotFound
	}
	t = r.withCategoryName(t)
	return &t, nil
}

func (r *repo) CreateTransaction(_ context.Context, f access.Filter, t *models.Transaction) (*models.Transaction, error) {
	if err := r.writable(); err != nil {
		return nil, err
	}
	if !r.ownsCategory(f.OwnerID, t.CategoryID) {
		return nil, store.ErrInvalidReference
	}
	now := r.now()
	r.st.seq.transactions++
	row := models.Transaction{
		ID:              r.st.seq.transactions,
		UserID:          f.OwnerID,
		CategoryID:      clonePtr(t.CategoryID),
		Amount:          t.Amount,
		TransactionType: t.TransactionType,
		RawDescription:  t.RawDescription,
		IsAnomaly:       t.IsAnomaly,
		ExternalID:      clonePtr(t.ExternalID),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	r.st.transactions[row.ID] = row
	row = r.withCategoryName(row)
	return &row, nil
}

func (r *repo) UpdateTransaction(_ context.Context, f access.Filter, t *models.Transaction) (*models.Transaction, error) {
	if err := r.writable(); err != nil {
		return nil, err
	}
	row, ok := r.transaction(f)
	if !ok {
		return nil, store.ErrNotFound
	}
	if !r.ownsCategory(f.OwnerID, t.CategoryID) {
		return nil, store.ErrInvalidReference
	}
	row.CategoryID = clonePtr(t.CategoryID)
	row.Amount = t.Amount
	row.TransactionType = t.TransactionType
	row.RawDescription = t.RawDescription
	row.UpdatedAt = r.now()
	r.st.transactions[row.ID] = row
	row = r.withCategoryName(row)
	return &row, nil
}

func (r *repo) DeleteTransaction(_ context.Context, f access.Filter) error {
	if err := r.writable(); err != nil {
		return err
	}
	row, ok := r.transaction(f)
	if !ok {
		return store.ErrNotFound
	}
	delete(r.st.transactions, row.ID)
	return nil
}

func (r *repo) ImportTransaction(ctx context.Context, f access.Filter, t *models.Transaction) (bool, error) {
	if t.ExternalID == nil {
		return false, fmt.Errorf("memory: imported transaction has no external id")
	}
	for _, existing := range r.st.transactions {
		if existing.UserID == f.OwnerID && existing.ExternalID != nil && *existing.ExternalID == *t.ExternalID {
			return false, nil
		}
	}
	row, err := r.CreateTransaction(ctx, f, t)
	if err != nil {
		return false, err
	}
	if !t.CreatedAt.IsZero() {
		stored := r.st.transactions[row.ID]
		stored.CreatedAt = t.CreatedAt
		r.st.transactions[row.ID] = stored
	}
	return true, nil
}

func (r *repo) SetTransactionAnomaly(_ context.Context, f access.Filter, anomaly bool) error {
	if err := r.writable(); err != nil {
		return err
	}
	row, ok := r.transaction(f)
	if !ok {
		return store.ErrNotFound
	}
	row.IsAnomaly = anomaly
	row.UpdatedAt = r.now()
	r.st.transactions[row.ID] = row
	return nil
}

func (r *repo) SetTransactionCategory(_ context.Context, f access.Filter, categoryID *int64) error {
	if err := r.writable(); err != nil {
		return err
	}
	row, ok := r.transaction(f)
	if !ok {
		return store.ErrNotFound
	}
	if !r.ownsCategory(f.OwnerID, categoryID) {
		return store.ErrInvalidReference
	}
	row.CategoryID = clonePtr(categoryID)
	row.UpdatedAt = r.now()
	r.st.transactions[row.ID] = row
	return nil
}

// Budgets

func (r *repo) budget(f access.Filter) (models.Budget, bool) {
	if f.ID == nil {
		return models.Budget{}, false
	}
	b, ok := r.st.budgets[*f.ID]
	if !ok || !f.Matches(b.UserID, b.ID) {
		return models.Budget{}, false
	}
	return b, true
}

func (r *repo) ListBudgets(_ context.Context, f access.Filter) ([]models.Budget, error) {
	out := []models.Budget{}
	for _, b := range r.st.budgets {
		if f.Matches(b.UserID, b.ID) {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b models.Budget) int {
		if c := cmp.Compare(a.CategoryID, b.CategoryID); c != 0 {
			return c
		}
		if c := a.PeriodStartDate.Compare(b.PeriodStartDate.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r *repo) GetBudget(_ context.Context, f access.Filter) (*models.Budget, error) {
	b, ok := r.budget(f)
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (r *repo) CreateBudget(_ context.Context, f access.Filter, b *models.Budget) (*models.Budget, error) {
	if err := r.writable(); err != nil {
		return nil, err
	}
	if !r.ownsCategory(f.OwnerID, &b.CategoryID) {
		return nil, store.ErrInvalidReference
	}
	if err := checkPeriod(b); err != nil {
		return nil, err
	}
	now := r.now()
	r.st.seq.budgets++
	row := models.Budget{
		ID:              r.st.seq.budgets,
		UserID:          f.OwnerID,
		CategoryID:      b.CategoryID,
		PeriodStartDate: b.PeriodStartDate,
		PeriodEndDate:   b.PeriodEndDate,
		LimitAmount:     b.LimitAmount,
		Status:          models.BudgetOnTrack,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	r.st.budgets[row.ID] = row
	return &row, nil
}

func (r *repo) UpdateBudget(_ context.Context, f access.Filter, b *models.Budget) (*models.Budget, error) {
	if err := r.writable(); err != nil {
		return nil, err
	}
	row, ok := r.budget(f)
	if !ok {
		return nil, store.ErrNotFound
	}
	if !r.ownsCategory(f.OwnerID, &b.CategoryID) {
		return nil, store.ErrInvalidReference
	}
	if err := checkPeriod(b); err != nil {
		return nil, err
	}
	row.CategoryID = b.CategoryID
	row.PeriodStartDate = b.PeriodStartDate
	row.PeriodEndDate = b.PeriodEndDate
	row.LimitAmount = b.LimitAmount
	row.UpdatedAt = r.now()
	r.st.budgets[row.ID] = row
	return &row, nil
}

func (r *repo) DeleteBudget(_ context.Context, f access.Filter) error {
	if err := r.writable(); err != nil {
		return err
	}
	row, ok := r.budget(f)
	if !ok {
		return store.ErrNotFound
	}
	delete(r.st.budgets, row.ID)
	return nil
}

func (r *repo) SetBudgetForecast(_ context.Context, f access.Filter, prediction models.Money, status models.BudgetStatus) error {
	if err := r.writable(); err != nil {
		return err
	}
	row, ok := r.budget(f)
	if !ok {
		return store.ErrNotFound
	}
	row.MLPredictionAmount = &prediction
	row.Status = status
	row.UpdatedAt = r.now()
	r.st.budgets[row.ID] = row
	return nil
}

func checkPeriod(b *models.Budget) error {
	if b.PeriodStartDate.After(b.PeriodEndDate.Time) {
		return fmt.Errorf("memory: budget period starts after it ends: %w", store.ErrCheckViolation)
	}
	return nil
}

// Tasks

func (r *repo) CreateTask(_ context.Context, f access.Filter, t *models.BackgroundTask) (*models.BackgroundTask, error) {
	if err := r.writable(); err != nil {
		return nil, err
	}
	for _, existing := range r.st.tasks {
		if existing.TaskID == t.TaskID {
			return nil, store.ErrConflict
		}
	}
	r.st.seq.tasks++
	row := models.BackgroundTask{
		ID:        r.st.seq.tasks,
		UserID:    f.OwnerID,
		TaskID:    t.TaskID,
		TaskType:  t.TaskType,
		Status:    models.TaskPending,
		CreatedAt: r.now(),
	}
	r.st.tasks[row.ID] = row
	return &row, nil
}

func (r *repo) ListTasks(_ context.Context, f access.Filter) ([]models.BackgroundTask, error) {
	out := []models.BackgroundTask{}
	for _, t := range r.st.tasks {
		if f.Matches(t.UserID, t.ID) {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b models.BackgroundTask) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (r *repo) GetTask(_ context.Context, f access.Filter) (*models.BackgroundTask, error) {
	if f.ID == nil {
		return nil, store.ErrNotFound
	}
	t, ok := r.st.tasks[*f.ID]
	if !ok || !f.Matches(t.UserID, t.ID) {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (r *repo) GetTaskByTaskID(_ context.Context, taskID string) (*models.BackgroundTask, error) {
	for _, t := range r.st.tasks {
		if t.TaskID == taskID {
			return &t, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *repo) CompleteTask(_ context.Context, taskID string, status models.TaskStatus, resultFile *string, at time.Time) (bool, error) {
	if err := r.writable(); err != nil {
		return false, err
	}
	for id, t := range r.st.tasks {
		if t.TaskID != taskID {
			continue
		}
		if t.Status != models.TaskPending {
			return false, nil
		}
		t.Status = status
		t.ResultFile = clonePtr(resultFile)
		t.CompletedAt = &at
		r.st.tasks[id] = t
		return true, nil
	}
	return false, nil
}

// Plaid items

func (r *repo) SavePlaidItem(_ context.Context, f access.Filter, item *models.PlaidItem) (*models.PlaidItem, error) {
	if err := r.writable(); err != nil {
		return nil, err
	}
	for id, existing := range r.st.plaidItems {
		if existing.ItemID != item.ItemID {
			continue
		}
		if existing.UserID != f.OwnerID {
			return nil, store.ErrConflict
		}
		existing.AccessToken = item.AccessToken
		existing.InstitutionName = item.InstitutionName
		r.st.plaidItems[id] = existing
		return &existing, nil
	}
	r.st.seq.plaidItems++
	row := models.PlaidItem{
		ID:              r.st.seq.plaidItems,
		UserID:          f.OwnerID,
		ItemID:          item.ItemID,
		AccessToken:     item.AccessToken,
		InstitutionName: item.InstitutionName,
		CreatedAt:       r.now(),
	}
	r.st.plaidItems[row.ID] = row
	return &row, nil
}

func (r *repo) ListPlaidItems(_ context.Context, f access.Filter) ([]models.PlaidItem, error) {
	out := []models.PlaidItem{}
	for _, it := range r.st.plaidItems {
		if f.Matches(it.UserID, it.ID) {
			out = append(out, it)
		}
	}
	slices.SortFunc(out, func(a, b models.PlaidItem) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *repo) GetPlaidItemByItemID(_ context.Context, itemID string) (*models.PlaidItem, error) {
	for _, it := range r.st.plaidItems {
		if it.ItemID == itemID {
			return &it, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *repo) UpdatePlaidCursor(_ context.Context, f access.Filter, cursor string) error {
	if err := r.writable(); err != nil {
		return err
	}
	if f.ID == nil {
		return store.ErrNotFound
	}
	it, ok := r.st.plaidItems[*f.ID]
	if !ok || !f.Matches(it.UserID, it.ID) {
		return store.ErrNotFound
	}
	it.SyncCursor = cursor
	r.st.plaidItems[it.ID] = it
	return nil
}
