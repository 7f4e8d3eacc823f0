package main

import (
	"context"
	"strings"

	"github.com/smallbiznis/eventledger/internal/observability/metrics"
	regdomain "github.com/smallbiznis/eventledger/internal/registration/domain"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func registrationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "registration",
		Aliases: []string{"reg"},
		Short:   "Open and reconcile registrations",
	}
	cmd.AddCommand(
		registrationOpenCmd(),
		registrationShowCmd(),
		registrationRepriceCmd(),
		registrationRecomputeCmd(),
		registrationExpireCmd(),
	)
	return cmd
}

func registrationOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open [order-code]",
		Short: "Open a registration from catalog pricing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s services) error {
				reg, err := s.Registrations.Open(ctx, regdomain.OpenRequest{OrderCode: args[0]})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), reg)
			})
		},
	}
}

func registrationShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id|order-code]",
		Short: "Show a registration and its payments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s services) error {
				reg, err := lookupRegistration(ctx, s, args[0])
				if err != nil {
					return err
				}
				payments, err := s.Ledger.List(ctx, reg.ID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"registration": reg,
					"payments":     payments,
				})
			})
		},
	}
}

func registrationRepriceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reprice [id]",
		Short: "Pull current catalog pricing into a registration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "registration id")
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, s services) error {
				res, err := s.Ledger.Reprice(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func registrationRecomputeCmd() *cobra.Command {
	var reopen bool
	cmd := &cobra.Command{
		Use:   "recompute [id]",
		Short: "Re-derive status and paid total from the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "registration id")
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, s services) error {
				res, err := s.Ledger.Recompute(ctx, id, reopen)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().BoolVar(&reopen, "reopen", false, "move an expired registration back into the ledger flow")
	return cmd
}

func registrationExpireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire",
		Short: "Expire unpaid registrations past the checkout window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s services) error {
				return job(s, "registration_expire", func(jr *metrics.JobRun) error {
					n, err := s.Ledger.ExpireStale(ctx)
					jr.Processed(n)
					s.Log.Info("expire sweep finished", zap.Int("expired", n), zap.Error(err))
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), map[string]int{"expired": n})
				})
			})
		},
	}
}

// lookupRegistration accepts either a snowflake id or an order code.
func lookupRegistration(ctx context.Context, s services, key string) (*regdomain.Registration, error) {
	key = strings.TrimSpace(key)
	if id, err := parseID(key, "registration id"); err == nil {
		reg, err := s.Registrations.Get(ctx, id)
		if err == nil {
			return reg, nil
		}
	}
	return s.Registrations.GetByOrderCode(ctx, key)
}
