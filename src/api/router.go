package api

import (
	"net/http"
	"spendsage-server/src/handlers"
	"spendsage-server/src/middleware"
	"spendsage-server/src/models"
	"spendsage-server/src/services"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Services are the operations the HTTP surface exposes.
type Services struct {
	Users        *services.UserService
	Categories   *services.CategoryService
	Transactions *services.TransactionService
	Budgets      *services.BudgetService
	Tasks        *services.TaskService
	Plaid        *services.PlaidService
}

type Options struct {
	CORSOrigins    []string
	DemoMode       bool
	RequestTimeout time.Duration
}

func NewRouter(svc Services, opts Options, log *zap.Logger) *chi.Mux {
	log = log.Named("http")
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(chimw.StripSlashes)
	r.Use(middleware.CORSMiddleware(opts.CORSOrigins))
	r.Use(middleware.DemoModeMiddleware(opts.DemoMode))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(opts.RequestTimeout))

		r.Post("/auth/register", handlers.Register(svc.Users, log))
		r.Post("/auth/login", handlers.Login(svc.Users, log))
		r.Post("/auth/refresh", handlers.Refresh(svc.Users, log))
		r.Post("/plaid/webhook", handlers.PlaidWebhook(svc.Plaid, log))

		// Protected routes
		r.With(middleware.JWTAuthMiddleware(svc.Users, log)).Group(func(r chi.Router) {
			// User
			r.Get("/auth/profile", handlers.GetProfile(svc.Users, log))
			r.Put("/auth/profile", handlers.UpdateProfile(svc.Users, log))

			// Categories
			r.Get("/categories", handlers.ListCategories(svc.Categories, log))
			r.Post("/categories", handlers.CreateCategory(svc.Categories, log))
			r.Get("/categories/{id}", handlers.GetCategory(svc.Categories, log))
			r.Put("/categories/{id}", handlers.UpdateCategory(svc.Categories, log))
			r.Delete("/categories/{id}", handlers.DeleteCategory(svc.Categories, log))

			// Transactions
			r.Get("/expenses", handlers.ListTransactions(svc.Transactions, log))
			r.Post("/expenses", handlers.CreateTransaction(svc.Transactions, log))
			r.Post("/expenses/scan-anomalies", handlers.EnqueueTask(svc.Tasks, models.TaskTypeAnomalyScan, "Anomaly scan started", log))
			r.Post("/expenses/categorize", handlers.EnqueueTask(svc.Tasks, models.TaskTypeCategorize, "Categorization started", log))
			r.Get("/expenses/{id}", handlers.GetTransaction(svc.Transactions, log))
			r.Put("/expenses/{id}", handlers.UpdateTransaction(svc.Transactions, log))
			r.Delete("/expenses/{id}", handlers.DeleteTransaction(svc.Transactions, log))

			// Budgets
			r.Get("/budgets", handlers.ListBudgets(svc.Budgets, log))
			r.Post("/budgets", handlers.CreateBudget(svc.Budgets, log))
			r.Post("/budgets/forecast", handlers.EnqueueTask(svc.Tasks, models.TaskTypeBudgetForecast, "Budget forecast started", log))
			r.Get("/budgets/{id}", handlers.GetBudget(svc.Budgets, log))
			r.Put("/budgets/{id}", handlers.UpdateBudget(svc.Budgets, log))
			r.Delete("/budgets/{id}", handlers.DeleteBudget(svc.Budgets, log))

			// Background tasks
			r.Get("/tasks", handlers.ListTasks(svc.Tasks, log))
			r.Get("/tasks/{id}", handlers.GetTask(svc.Tasks, log))
			r.Get("/tasks/{id}/result", handlers.GetTaskResult(svc.Tasks, log))
			r.Post("/reports/export", handlers.EnqueueTask(svc.Tasks, models.TaskTypeExport, "Export started", log))

			// Plaid
			r.Post("/plaid/link-token", handlers.CreateLinkToken(svc.Plaid, log))
			r.Post("/plaid/exchange", handlers.ExchangePublicToken(svc.Plaid, log))
			r.Get("/plaid/items", handlers.ListPlaidItems(svc.Plaid, log))
			r.Post("/plaid/sync", handlers.SyncPlaidItems(svc.Plaid, svc.Tasks, log))
		})
	})

	return r
}
