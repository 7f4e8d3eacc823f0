package main

import (
	"github.com/smallbiznis/eventledger/internal/feerate"
	"github.com/smallbiznis/eventledger/internal/scheduler"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the background jobs and rate file watcher until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				fx.NopLogger,
				infraModules(),
				domainModules(),
				feerate.WatchModule,
				scheduler.Module,
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}
