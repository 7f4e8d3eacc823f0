package main

import (
	"context"
	"errors"

	cancellationdomain "github.com/smallbiznis/eventledger/internal/cancellation/domain"
	"github.com/spf13/cobra"
)

func cancelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel registrations and drive their refunds",
	}
	cmd.AddCommand(
		cancelEvaluateCmd(),
		cancelConfirmCmd(),
		cancelRetryCmd(),
		cancelManualCmd(),
		cancelAttemptsCmd(),
	)
	return cmd
}

func cancelEvaluateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate [registration-id]",
		Short: "Show what a cancellation would refund and retain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "registration id")
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, s services) error {
				plan, err := s.Cancellations.Evaluate(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), plan)
			})
		},
	}
}

// printResult prints the cancellation state even when refunds are still
// outstanding, then returns the error.
func printResult(cmd *cobra.Command, res *cancellationdomain.Result, err error) error {
	if res != nil && (err == nil || errors.Is(err, cancellationdomain.ErrRefundFailed)) {
		if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
			return perr
		}
	}
	return err
}

func cancelConfirmCmd() *cobra.Command {
	var actor string
	cmd := &cobra.Command{
		Use:   "confirm [registration-id]",
		Short: "Cancel a registration and refund its gateway payments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "registration id")
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, s services) error {
				res, err := s.Cancellations.Confirm(ctx, id, actor)
				return printResult(cmd, res, err)
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "operator confirming the cancellation")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func cancelRetryCmd() *cobra.Command {
	var actor string
	cmd := &cobra.Command{
		Use:   "retry [registration-id]",
		Short: "Retry refunds that failed or timed out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "registration id")
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, s services) error {
				res, err := s.Cancellations.RetryRefunds(ctx, id, actor)
				return printResult(cmd, res, err)
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "operator retrying the refunds")
	return cmd
}

func cancelManualCmd() *cobra.Command {
	var actor, note string
	cmd := &cobra.Command{
		Use:   "manual [payment-id]",
		Short: "Resolve a refund outside the gateway",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "payment id")
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, s services) error {
				res, err := s.Cancellations.MarkManualFollowUp(ctx, id, actor, note)
				return printResult(cmd, res, err)
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "operator taking over the refund")
	cmd.Flags().StringVar(&note, "note", "", "how the refund is being handled")
	_ = cmd.MarkFlagRequired("actor")
	_ = cmd.MarkFlagRequired("note")
	return cmd
}

func cancelAttemptsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attempts [registration-id]",
		Short: "List refund attempts for a registration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "registration id")
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, s services) error {
				attempts, err := s.Cancellations.ListAttempts(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), attempts)
			})
		},
	}
}
