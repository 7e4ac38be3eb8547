package main

import (
	"context"
	"fmt"
	"spendsage-server/src/api"
	"spendsage-server/src/auth"
	"spendsage-server/src/config"
	"spendsage-server/src/db"
	dbsql "spendsage-server/src/db/sql"
	"spendsage-server/src/jobs"
	"spendsage-server/src/logger"
	"spendsage-server/src/plaid"
	"spendsage-server/src/queue"
	"spendsage-server/src/services"
	"spendsage-server/src/store"
	"spendsage-server/src/store/memory"
	"spendsage-server/src/worker"

	"go.uber.org/zap"
)

const localQueueBuffer = 1024

// app holds the wired dependencies shared by the serve and worker commands.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	store    store.Store
	queue    queue.Queue
	services api.Services
	worker   *worker.Processor

	closers []func()
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (a *app, err error) {
	a = &app{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	switch cfg.DataBackend {
	case config.BackendMemory:
		log.Warn("using the in-memory backend; data is lost on exit")
		a.store = memory.New()
	default:
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.store = dbsql.NewStore(pool)
		a.closers = append(a.closers, a.store.Close)
	}

	if cfg.UseAMQP() {
		client, err := queue.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.WorkerConcurrency, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.queue = client
	} else {
		a.queue = queue.NewLocal(localQueueBuffer, cfg.WorkerConcurrency, log)
	}

	cache, err := db.NewUserCache(cfg.UserCacheTTL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, cache.Close)

	var (
		gateway  services.PlaidGateway
		verifier services.WebhookVerifier
		syncer   jobs.TransactionSyncer
	)
	if cfg.PlaidEnabled() {
		client, err := plaid.NewClient(cfg.PlaidClientID, cfg.PlaidSecret, cfg.PlaidEnv)
		if err != nil {
			return nil, err
		}
		gateway, verifier, syncer = client, plaid.NewVerifier(client), client
	} else {
		log.Info("plaid credentials not set; bank linking disabled")
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	tasks := services.NewTaskService(a.store, a.queue, cfg.ExportDir, log)
	a.services = api.Services{
		Users:        services.NewUserService(a.store, tokens, cache, log),
		Categories:   services.NewCategoryService(a.store, log),
		Transactions: services.NewTransactionService(a.store, log),
		Budgets:      services.NewBudgetService(a.store, log),
		Tasks:        tasks,
		Plaid:        services.NewPlaidService(a.store, gateway, verifier, tasks, log),
	}
	a.worker = worker.NewProcessor(tasks, jobs.NewRunner(a.store, syncer, cfg.ExportDir, log), log)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	_ = a.log.Sync()
}

func (a *app) consume(ctx context.Context) error {
	a.log.Info("worker consuming tasks", zap.Int("concurrency", a.cfg.WorkerConcurrency), zap.Bool("amqp", a.cfg.UseAMQP()))
	if err := a.queue.ConsumeTasks(ctx, a.worker.Handle); err != nil && ctx.Err() == nil {
		return fmt.Errorf("consume tasks: %w", err)
	}
	return nil
}
