package services_test

import (
	"encoding/json"
	"spendsage-server/src/access"
	"spendsage-server/src/services"
	"spendsage-server/src/store/memory"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	alice = access.Principal{UserID: 1, Email: "a@x.com"}
	bob   = access.Principal{UserID: 2, Email: "b@x.com"}
)

func payload(t *testing.T, body string) services.Payload {
	t.Helper()
	var p services.Payload
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	return p
}

func requireFieldError(t *testing.T, err error, field string) *services.ValidationError {
	t.Helper()
	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, field)
	return verr
}

type fixture struct {
	store        *memory.Store
	categories   *services.CategoryService
	transactions *services.TransactionService
	budgets      *services.BudgetService
}

func newFixture() *fixture {
	s := memory.New()
	log := zap.NewNop()
	return &fixture{
		store:        s,
		categories:   services.NewCategoryService(s, log),
		transactions: services.NewTransactionService(s, log),
		budgets:      services.NewBudgetService(s, log),
	}
}
