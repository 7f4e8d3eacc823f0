package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/smallbiznis/eventledger/internal/feerate"
	feeratedomain "github.com/smallbiznis/eventledger/internal/feerate/domain"
	"github.com/smallbiznis/eventledger/internal/feerate/ratefile"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func ratesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Publish and inspect fee rate versions",
	}
	cmd.AddCommand(
		ratesImportCmd(),
		ratesShowCmd(),
		ratesListCmd(),
		ratesWatchCmd(),
	)
	return cmd
}

func ratesImportCmd() *cobra.Command {
	var actor, note string
	cmd := &cobra.Command{
		Use:   "import [file.yaml]",
		Short: "Publish a rate table from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := ratefile.Load(args[0])
			if err != nil {
				return err
			}
			if note == "" {
				note = filepath.Base(args[0])
			}
			return run(cmd, func(ctx context.Context, s services) error {
				snap, created, err := s.Rates.Publish(ctx, feeratedomain.PublishRequest{
					Table:     table,
					Source:    feeratedomain.SourceImport,
					Note:      note,
					CreatedBy: actor,
				})
				if err != nil {
					return err
				}
				if !created {
					fmt.Fprintf(cmd.OutOrStdout(), "rates unchanged, version %d stays current\n", snap.Version)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "published rate version %d\n", snap.Version)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "operator publishing the rates")
	cmd.Flags().StringVar(&note, "note", "", "version note (defaults to the file name)")
	return cmd
}

func ratesShowCmd() *cobra.Command {
	var version int64
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a rate version as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s services) error {
				snap, err := s.Rates.Resolve(ctx, version)
				if err != nil {
					return err
				}
				data, err := feeratedomain.EncodeYAML(snap.Table)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "# version %d (%s) checksum %s\n", snap.Version, snap.Source, snap.Checksum)
				_, err = out.Write(data)
				return err
			})
		},
	}
	cmd.Flags().Int64Var(&version, "version", 0, "rate version (defaults to current)")
	return cmd
}

func ratesListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List published rate versions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s services) error {
				snaps, err := s.Rates.List(ctx, limit)
				if err != nil {
					return err
				}
				type row struct {
					Version   int64  `json:"version"`
					Source    string `json:"source"`
					Note      string `json:"note,omitempty"`
					CreatedBy string `json:"created_by,omitempty"`
					CreatedAt string `json:"created_at"`
					Checksum  string `json:"checksum"`
				}
				rows := make([]row, 0, len(snaps))
				for _, snap := range snaps {
					rows = append(rows, row{
						Version:   snap.Version,
						Source:    snap.Source,
						Note:      snap.Note,
						CreatedBy: snap.CreatedBy,
						CreatedAt: snap.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
						Checksum:  snap.Checksum,
					})
				}
				return printJSON(cmd.OutOrStdout(), rows)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum versions to list")
	return cmd
}

func ratesWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Publish FEE_RATES_FILE on every change until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				fx.NopLogger,
				infraModules(),
				feerate.Module,
				feerate.WatchModule,
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}
