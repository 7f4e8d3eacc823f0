package main

import (
	"context"

	auditdomain "github.com/smallbiznis/eventledger/internal/audit/domain"
	"github.com/smallbiznis/eventledger/pkg/db/pagination"
	"github.com/spf13/cobra"
)

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Read the audit trail",
	}
	cmd.AddCommand(auditListCmd())
	return cmd
}

func auditListCmd() *cobra.Command {
	var (
		targetType string
		targetID   string
		action     string
		actorType  string
		from, to   string
		pageToken  string
		pageSize   int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audit entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseTime(from)
			if err != nil {
				return err
			}
			end, err := parseTime(to)
			if err != nil {
				return err
			}
			req := auditdomain.ListAuditLogRequest{
				Pagination: pagination.Pagination{PageToken: pageToken, PageSize: pageSize},
				Action:     action,
				TargetType: targetType,
				TargetID:   targetID,
				ActorType:  actorType,
				StartAt:    start,
				EndAt:      end,
			}
			return run(cmd, func(ctx context.Context, s services) error {
				res, err := s.Audit.List(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&targetType, "target-type", "", "registration, payment, expense or fee_rate_version")
	flags.StringVar(&targetID, "target-id", "", "target id")
	flags.StringVar(&action, "action", "", "action, e.g. payment.recorded")
	flags.StringVar(&actorType, "actor-type", "", "staff, gateway or system")
	flags.StringVar(&from, "from", "", "start time")
	flags.StringVar(&to, "to", "", "end time")
	flags.StringVar(&pageToken, "page-token", "", "cursor from a previous page")
	flags.IntVar(&pageSize, "page-size", 50, "entries per page")
	return cmd
}
