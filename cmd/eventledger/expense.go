package main

import (
	"context"
	"errors"

	expensedomain "github.com/smallbiznis/eventledger/internal/expense/domain"
	"github.com/smallbiznis/eventledger/pkg/money"
	"github.com/spf13/cobra"
)

func expenseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expense",
		Short: "Track event expenses",
	}
	cmd.AddCommand(
		expenseCreateCmd(),
		expenseListCmd(),
		expenseSettleCmd(),
	)
	return cmd
}

func expenseCreateCmd() *cobra.Command {
	var event, description, amount, method, date, actor string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record an expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := expensedomain.CreateExpenseRequest{
				Description:   description,
				PaymentMethod: method,
				Actor:         actor,
			}
			if event != "" {
				id, err := parseID(event, "event id")
				if err != nil {
					return err
				}
				req.EventID = id
			}
			value, err := money.Parse(amount)
			if err != nil {
				return err
			}
			req.Amount = value
			when, err := parseTime(date)
			if err != nil {
				return err
			}
			if when == nil {
				return errors.New("--date is required")
			}
			req.ExpenseDate = *when

			return run(cmd, func(ctx context.Context, s services) error {
				item, err := s.Expenses.Create(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), item)
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&event, "event", "", "event id")
	flags.StringVarP(&description, "description", "d", "", "what was paid for")
	flags.StringVarP(&amount, "amount", "a", "", "amount with at most two decimals")
	flags.StringVarP(&method, "method", "m", "", "how it was paid")
	flags.StringVar(&date, "date", "", "expense date (YYYY-MM-DD)")
	flags.StringVar(&actor, "actor", "", "staff member recording the expense")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("method")
	return cmd
}

func expenseListCmd() *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := q.query()
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, s services) error {
				res, err := s.Finance.ListExpenses(ctx, query)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	q.bind(cmd.Flags(), false, true)
	return cmd
}

func expenseSettleCmd() *cobra.Command {
	var actor string
	cmd := &cobra.Command{
		Use:   "settle [expense-id]",
		Short: "Mark an expense as paid out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "expense id")
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, s services) error {
				item, err := s.Expenses.Settle(ctx, id, actor)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), item)
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "staff member settling the expense")
	return cmd
}
