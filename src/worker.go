package main

import (
	"errors"

	"github.com/spf13/cobra"
)

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume background tasks from AMQP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.UseAMQP() {
				return errors.New("the worker command needs AMQP_URL; without it tasks run inside serve")
			}
			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.consume(cmd.Context())
		},
	}
}
