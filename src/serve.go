package main

import (
	"context"
	"errors"
	"net/http"
	"spendsage-server/src/api"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	var withWorker bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API. Without AMQP_URL the task queue is in-process and
the worker always runs inside the server; with it, --with-worker also
consumes from the broker.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			router := api.NewRouter(a.services, api.Options{
				CORSOrigins: cfg.CORSOrigins,
				DemoMode:    cfg.DemoMode,
			}, log)
			server := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info("API server running", zap.String("port", cfg.Port))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				log.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})
			if withWorker || !cfg.UseAMQP() {
				g.Go(func() error { return a.consume(ctx) })
			}
			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&withWorker, "with-worker", false, "also consume background tasks from AMQP")
	return cmd
}
