package main

import (
	"context"
	"fmt"
	"strings"

	paymentdomain "github.com/smallbiznis/eventledger/internal/payment/domain"
	"github.com/smallbiznis/eventledger/pkg/money"
	"github.com/spf13/cobra"
)

func paymentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Record and correct ledger entries",
	}
	cmd.AddCommand(
		paymentRecordCmd(),
		paymentListCmd(),
		paymentDeleteCmd(),
		paymentNoteCmd(),
	)
	return cmd
}

func paymentRecordCmd() *cobra.Command {
	var (
		registration string
		channel      string
		method       string
		status       string
		amount       string
		installments int
		brand        string
		reference    string
		actor        string
		note         string
		reopen       bool
	)
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a payment attempt against a registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(registration, "registration id")
			if err != nil {
				return err
			}
			value, err := money.Parse(amount)
			if err != nil {
				return err
			}
			attempt := paymentdomain.Attempt{
				RegistrationID:    id,
				Channel:           paymentdomain.Channel(strings.ToUpper(strings.TrimSpace(channel))),
				Method:            paymentdomain.Method(method),
				Status:            paymentdomain.Status(strings.ToLower(strings.TrimSpace(status))),
				Amount:            value,
				Installments:      installments,
				CardBrand:         brand,
				ExternalReference: reference,
				Actor:             actor,
				Note:              note,
				Reopen:            reopen,
			}
			return run(cmd, func(ctx context.Context, s services) error {
				res, err := s.Ledger.Record(ctx, attempt)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&registration, "registration", "r", "", "registration id")
	flags.StringVar(&channel, "channel", string(paymentdomain.ChannelOffline), "ONLINE or OFFLINE")
	flags.StringVarP(&method, "method", "m", "", "pix, credit_card, cash, pos, transfer, ...")
	flags.StringVar(&status, "status", "", "payment status; offline entries default to the configured policy")
	flags.StringVarP(&amount, "amount", "a", "", "amount with at most two decimals")
	flags.IntVar(&installments, "installments", 1, "card installments")
	flags.StringVar(&brand, "brand", "", "card brand")
	flags.StringVar(&reference, "reference", "", "gateway payment id (online only)")
	flags.StringVar(&actor, "actor", "", "staff member recording the entry")
	flags.StringVar(&note, "note", "", "free-form note")
	flags.BoolVar(&reopen, "reopen", false, "reopen an expired registration")
	_ = cmd.MarkFlagRequired("registration")
	_ = cmd.MarkFlagRequired("method")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func paymentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [registration-id]",
		Short: "List a registration's ledger entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "registration id")
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, s services) error {
				payments, err := s.Ledger.List(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), payments)
			})
		},
	}
}

func paymentDeleteCmd() *cobra.Command {
	var actor string
	cmd := &cobra.Command{
		Use:   "delete [payment-id]",
		Short: "Delete a pending offline entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "payment id")
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, s services) error {
				if err := s.Ledger.Delete(ctx, id, actor); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "payment %s deleted\n", id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "staff member deleting the entry")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func paymentNoteCmd() *cobra.Command {
	var actor, text string
	cmd := &cobra.Command{
		Use:   "note [payment-id]",
		Short: "Append a note to a payment's audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "payment id")
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, s services) error {
				if err := s.Ledger.AddNote(ctx, id, actor, text); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "note added to payment %s\n", id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "staff member writing the note")
	cmd.Flags().StringVar(&text, "text", "", "note text")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}
