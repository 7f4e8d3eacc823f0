package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/eventledger/internal/config"
	"github.com/smallbiznis/eventledger/internal/migration"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errVersionedOnly = errors.New("versioned migrations need DATABASE_TYPE=postgres")

func migrateCmd() *cobra.Command {
	var (
		down   int
		status bool
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back or inspect the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out string
			app := fx.New(
				fx.NopLogger,
				infraModules(),
				fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
					if down == 0 && !status {
						out = "schema up to date"
						return migration.Apply(conn, cfg, log)
					}
					if !strings.EqualFold(cfg.DBType, "postgres") {
						return errVersionedOnly
					}
					sqlDB, err := conn.DB()
					if err != nil {
						return err
					}
					if down > 0 {
						out = fmt.Sprintf("rolled back %d migration(s)", down)
						return migration.Rollback(sqlDB, down)
					}
					st, err := migration.CurrentStatus(sqlDB)
					if err != nil {
						return err
					}
					out = fmt.Sprintf("version=%d dirty=%t applied=%t", st.Version, st.Dirty, st.Applied)
					return nil
				}),
			)
			if err := app.Err(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), startTimeout)
			defer cancel()
			if err := app.Start(ctx); err != nil {
				return err
			}
			_ = app.Stop(context.Background())
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().IntVar(&down, "down", 0, "roll back this many migrations")
	cmd.Flags().BoolVar(&status, "status", false, "print the applied schema version")
	cmd.MarkFlagsMutuallyExclusive("down", "status")
	return cmd
}
