package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"spendsage-server/src/auth"
	"spendsage-server/src/jobs"
	"spendsage-server/src/queue"
	"spendsage-server/src/services"
	"spendsage-server/src/store/memory"
	"spendsage-server/src/worker"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const password = "Str0ng!pass"

// outbox holds published task messages until the test runs them.
type outbox struct {
	mu   sync.Mutex
	msgs []queue.TaskMessage
	fail error
}

func (o *outbox) PublishTask(_ context.Context, msg queue.TaskMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail != nil {
		return o.fail
	}
	o.msgs = append(o.msgs, msg)
	return nil
}

func (o *outbox) drain() []queue.TaskMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	msgs := o.msgs
	o.msgs = nil
	return msgs
}

type testServer struct {
	*httptest.Server
	outbox *outbox
	worker *worker.Processor
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	log := zap.NewNop()
	s := memory.New()
	box := &outbox{}
	exportDir := t.TempDir()
	tokens := auth.NewTokenManager("0123456789abcdef0123456789abcdef", 5*time.Minute, time.Hour)
	tasks := services.NewTaskService(s, box, exportDir, log)
	svc := Services{
		Users:        services.NewUserService(s, tokens, nil, log),
		Categories:   services.NewCategoryService(s, log),
		Transactions: services.NewTransactionService(s, log),
		Budgets:      services.NewBudgetService(s, log),
		Tasks:        tasks,
		Plaid:        services.NewPlaidService(s, nil, nil, tasks, log),
	}
	ts := &testServer{
		Server: httptest.NewServer(NewRouter(svc, opts, log)),
		outbox: box,
		worker: worker.NewProcessor(tasks, jobs.NewRunner(s, nil, exportDir, log), log),
	}
	t.Cleanup(ts.Close)
	return ts
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

// signUp registers and logs in a user, returning the access token.
func (ts *testServer) signUp(t *testing.T, email, username string) string {
	t.Helper()
	code, env := ts.do(t, http.MethodPost, "/auth/register/", "", map[string]any{
		"email": email, "username": username, "password": password,
	})
	require.Equal(t, http.StatusCreated, code, string(env.Error))

	code, env = ts.do(t, http.MethodPost, "/auth/login/", "", map[string]any{"email": email, "password": password})
	require.Equal(t, http.StatusOK, code)
	var pair struct {
		Access string `json:"access"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &pair))
	return pair.Access
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type row map[string]any

func (r row) id() int64 { return int64(r["id"].(float64)) }

func TestExpenseVisibleOnlyToOwner(t *testing.T) {
	ts := newTestServer(t, Options{})
	alice := ts.signUp(t, "a@x.com", "alice")
	bob := ts.signUp(t, "b@x.com", "bob")

	code, env := ts.do(t, http.MethodPost, "/categories/", alice, map[string]any{"name": "Food"})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Category created successfully", env.Message)
	food := decode[row](t, env.Data)

	code, env = ts.do(t, http.MethodPost, "/expenses/", alice, map[string]any{
		"amount": 12.50, "transaction_type": "expense", "category": food.id(), "raw_description": "Coffee",
	})
	require.Equal(t, http.StatusCreated, code, string(env.Error))

	code, env = ts.do(t, http.MethodGet, "/expenses/", alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Status)
	assert.Equal(t, "Transactions retrieved successfully", env.Message)
	list := decode[[]row](t, env.Data)
	require.Len(t, list, 1)
	assert.Equal(t, "Food", list[0]["category_name"])
	assert.Equal(t, "12.50", list[0]["amount"])
	assert.Equal(t, "Coffee", list[0]["raw_description"])
	assert.NotContains(t, list[0], "user")

	code, env = ts.do(t, http.MethodGet, "/expenses/", bob, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestOtherUsersRowsAreNotFound(t *testing.T) {
	ts := newTestServer(t, Options{})
	alice := ts.signUp(t, "a@x.com", "alice")
	bob := ts.signUp(t, "b@x.com", "bob")

	_, env := ts.do(t, http.MethodPost, "/categories/", alice, map[string]any{"name": "Food"})
	path := fmt.Sprintf("/categories/%d/", decode[row](t, env.Data).id())

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		code, env := ts.do(t, method, path, bob, map[string]any{"name": "Mine"})
		assert.Equal(t, http.StatusNotFound, code, method)
		assert.False(t, env.Status)
		assert.Equal(t, "Category not found", env.Message)
	}

	code, env := ts.do(t, http.MethodGet, path, alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Food", decode[row](t, env.Data)["name"])

	code, _ = ts.do(t, http.MethodGet, "/expenses/abc/", alice, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestClientCannotSetOwnerOrSystemFields(t *testing.T) {
	ts := newTestServer(t, Options{})
	alice := ts.signUp(t, "a@x.com", "alice")
	bob := ts.signUp(t, "b@x.com", "bob")

	code, env := ts.do(t, http.MethodPost, "/expenses/", alice, map[string]any{
		"amount": "5.00", "raw_description": "Snack", "user": 2, "is_anomaly": true,
	})
	require.Equal(t, http.StatusCreated, code)
	tx := decode[row](t, env.Data)
	assert.Equal(t, false, tx["is_anomaly"])
	assert.Equal(t, "expense", tx["transaction_type"])

	code, _ = ts.do(t, http.MethodGet, fmt.Sprintf("/expenses/%d/", tx.id()), bob, nil)
	assert.Equal(t, http.StatusNotFound, code)

	_, env = ts.do(t, http.MethodPost, "/categories/", alice, map[string]any{"name": "Food"})
	food := decode[row](t, env.Data)
	code, env = ts.do(t, http.MethodPost, "/budgets/", alice, map[string]any{
		"category": food.id(), "period_start_date": "2024-01-01", "period_end_date": "2024-01-31",
		"limit_amount": "300", "status": "OVER", "ml_prediction_amount": "1",
	})
	require.Equal(t, http.StatusCreated, code, string(env.Error))
	budget := decode[row](t, env.Data)
	assert.Equal(t, "ON_TRACK", budget["status"])
	assert.Nil(t, budget["ml_prediction_amount"])
}

func TestForeignCategoryIsAValidationError(t *testing.T) {
	ts := newTestServer(t, Options{})
	alice := ts.signUp(t, "a@x.com", "alice")
	bob := ts.signUp(t, "b@x.com", "bob")

	_, env := ts.do(t, http.MethodPost, "/categories/", bob, map[string]any{"name": "Rent"})
	rent := decode[row](t, env.Data)

	code, env := ts.do(t, http.MethodPost, "/expenses/", alice, map[string]any{
		"amount": "10", "raw_description": "rent", "category": rent.id(),
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Failed to create transaction", env.Message)
	fields := decode[map[string][]string](t, env.Error)
	assert.Equal(t, []string{fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", rent.id())}, fields["category"])

	_, env = ts.do(t, http.MethodGet, "/expenses/", alice, nil)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestBudgetEndBeforeStartRejected(t *testing.T) {
	ts := newTestServer(t, Options{})
	alice := ts.signUp(t, "a@x.com", "alice")
	_, env := ts.do(t, http.MethodPost, "/categories/", alice, map[string]any{"name": "Food"})
	food := decode[row](t, env.Data)

	code, env := ts.do(t, http.MethodPost, "/budgets/", alice, map[string]any{
		"category": food.id(), "period_start_date": "2024-01-01", "period_end_date": "2023-12-31", "limit_amount": "100",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Failed to create budget", env.Message)
	assert.Contains(t, decode[map[string][]string](t, env.Error), "period_end_date")

	_, env = ts.do(t, http.MethodGet, "/budgets/", alice, nil)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestExportTaskLifecycle(t *testing.T) {
	ts := newTestServer(t, Options{})
	alice := ts.signUp(t, "a@x.com", "alice")
	bob := ts.signUp(t, "b@x.com", "bob")
	ts.do(t, http.MethodPost, "/expenses/", alice, map[string]any{"amount": "3", "raw_description": "Tea"})

	code, env := ts.do(t, http.MethodPost, "/reports/export/", alice, nil)
	require.Equal(t, http.StatusAccepted, code)
	task := decode[row](t, env.Data)
	assert.Equal(t, "PENDING", task["status"])
	assert.Equal(t, "export", task["task_type"])
	path := fmt.Sprintf("/tasks/%d/", task.id())

	msgs := ts.outbox.drain()
	require.Len(t, msgs, 1)
	require.NoError(t, ts.worker.Handle(context.Background(), &msgs[0]))
	// A duplicate delivery changes nothing.
	require.NoError(t, ts.worker.Handle(context.Background(), &msgs[0]))

	code, env = ts.do(t, http.MethodGet, path, alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Background task retrieved successfully", env.Message)
	done := decode[row](t, env.Data)
	assert.Equal(t, "SUCCESS", done["status"])
	assert.Equal(t, "task_results/"+task["task_id"].(string)+".csv", done["result_file"])
	assert.NotNil(t, done["completed_at"])

	code, env = ts.do(t, http.MethodGet, path, bob, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Background task not found", env.Message)

	req, err := http.NewRequest(http.MethodGet, ts.URL+path+"result/", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+alice)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Tea")

	code, _ = ts.do(t, http.MethodGet, path+"result/", bob, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestEnqueueDispatchFailure(t *testing.T) {
	ts := newTestServer(t, Options{})
	alice := ts.signUp(t, "a@x.com", "alice")
	ts.outbox.fail = errors.New("broker unavailable")

	code, env := ts.do(t, http.MethodPost, "/expenses/scan-anomalies/", alice, nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.False(t, env.Status)

	_, env = ts.do(t, http.MethodGet, "/tasks/", alice, nil)
	list := decode[[]row](t, env.Data)
	require.Len(t, list, 1)
	assert.Equal(t, "FAILED", list[0]["status"])
}

func TestAuthentication(t *testing.T) {
	ts := newTestServer(t, Options{})

	code, env := ts.do(t, http.MethodGet, "/categories/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Status)
	code, _ = ts.do(t, http.MethodGet, "/categories/", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = ts.do(t, http.MethodPost, "/auth/register/", "", map[string]any{"email": "bad", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "User registration failed", env.Message)

	ts.signUp(t, "a@x.com", "alice")
	code, env = ts.do(t, http.MethodPost, "/auth/login/", "", map[string]any{"email": "a@x.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Status)

	_, env = ts.do(t, http.MethodPost, "/auth/login/", "", map[string]any{"email": "a@x.com", "password": password})
	pair := decode[map[string]any](t, env.Data)
	refresh := pair["refresh"].(string)

	code, _ = ts.do(t, http.MethodGet, "/categories/", refresh, nil)
	assert.Equal(t, http.StatusUnauthorized, code, "refresh tokens are not access tokens")

	code, env = ts.do(t, http.MethodPost, "/auth/refresh/", "", map[string]any{"refresh": refresh})
	require.Equal(t, http.StatusOK, code)
	access := decode[map[string]string](t, env.Data)["access"]

	code, env = ts.do(t, http.MethodGet, "/auth/profile/", access, nil)
	require.Equal(t, http.StatusOK, code)
	profile := decode[row](t, env.Data)
	assert.Equal(t, "a@x.com", profile["email"])
	assert.Equal(t, "INR", profile["currency_preference"])
	assert.NotContains(t, profile, "password")

	code, env = ts.do(t, http.MethodPut, "/auth/profile/", access, map[string]any{"currency_preference": "USD", "email": "z@x.com"})
	require.Equal(t, http.StatusOK, code)
	profile = decode[row](t, env.Data)
	assert.Equal(t, "USD", profile["currency_preference"])
	assert.Equal(t, "a@x.com", profile["email"])
}

func TestMalformedBody(t *testing.T) {
	ts := newTestServer(t, Options{})
	alice := ts.signUp(t, "a@x.com", "alice")

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/categories/", bytes.NewReader([]byte(`{"name":`)))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+alice)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDemoModeBlocksWrites(t *testing.T) {
	ts := newTestServer(t, Options{DemoMode: true})
	alice := ts.signUp(t, "a@x.com", "alice")

	code, env := ts.do(t, http.MethodPost, "/categories/", alice, map[string]any{"name": "Food"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.False(t, env.Status)

	code, _ = ts.do(t, http.MethodGet, "/categories/", alice, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestPlaidDisabled(t *testing.T) {
	ts := newTestServer(t, Options{})
	alice := ts.signUp(t, "a@x.com", "alice")

	for _, path := range []string{"/plaid/link-token/", "/plaid/exchange/", "/plaid/sync/"} {
		code, env := ts.do(t, http.MethodPost, path, alice, map[string]any{"public_token": "public-sandbox"})
		assert.Equal(t, http.StatusServiceUnavailable, code, path)
		assert.False(t, env.Status)
	}
	code, _ := ts.do(t, http.MethodPost, "/plaid/webhook/", "", map[string]any{"webhook_type": "TRANSACTIONS"})
	assert.Equal(t, http.StatusServiceUnavailable, code)
}
