package memory

import (
	"maps"
	"spendsage-server/src/models"
)

// state holds one snapshot of every table. Stored values are never mutated
// in place; writers replace the map entry, so snapshots can share pointers.
type state struct {
	users        map[int64]models.User
	categories   map[int64]models.Category
	transactions map[int64]models.Transaction
	budgets      map[int64]models.Budget
	tasks        map[int64]models.BackgroundTask
	plaidItems   map[int64]models.PlaidItem
	seq          sequences
}

type sequences struct {
	users, categories, transactions, budgets, tasks, plaidItems int64
}

func newState() *state {
	return &state{
		users:        map[int64]models.User{},
		categories:   map[int64]models.Category{},
		transactions: map[int64]models.Transaction{},
		budgets:      map[int64]models.Budget{},
		tasks:        map[int64]models.BackgroundTask{},
		plaidItems:   map[int64]models.PlaidItem{},
	}
}

func (s *state) clone() *state {
	return &state{
		users:        maps.Clone(s.users),
		categories:   maps.Clone(s.categories),
		transactions: maps.Clone(s.transactions),
		budgets:      maps.Clone(s.budgets),
		tasks:        maps.Clone(s.tasks),
		plaidItems:   maps.Clone(s.plaidItems),
		seq:          s.seq,
	}
}

func ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	return ptr(*p)
}
