package main

import (
	"context"
	"fmt"
	"io"
	"os"

	financedomain "github.com/smallbiznis/eventledger/internal/finance/domain"
	"github.com/smallbiznis/eventledger/internal/finance/filter"
	"github.com/smallbiznis/eventledger/internal/finance/report"
	"github.com/smallbiznis/eventledger/pkg/db/pagination"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// queryFlags are the reporting filters shared by summary, entries and
// expense list.
type queryFlags struct {
	event       string
	method      string
	from        string
	to          string
	rateVersion int64
	page        int
	pageSize    int
}

func (q *queryFlags) bind(flags *pflag.FlagSet, priced, paged bool) {
	flags.StringVar(&q.event, "event", "", "event id")
	flags.StringVar(&q.method, "method", "", "payment method")
	flags.StringVar(&q.from, "from", "", "start, inclusive (YYYY-MM-DD or RFC 3339)")
	flags.StringVar(&q.to, "to", "", "end, exclusive (YYYY-MM-DD or RFC 3339)")
	if priced {
		flags.Int64Var(&q.rateVersion, "rate-version", 0, "price against this rate version instead of the current one")
	}
	if paged {
		flags.IntVar(&q.page, "page", 1, "page number")
		flags.IntVar(&q.pageSize, "page-size", pagination.DefaultPageSize, "rows per page")
	}
}

func (q *queryFlags) query() (financedomain.Query, error) {
	var f filter.Filter
	if q.event != "" {
		id, err := parseID(q.event, "event id")
		if err != nil {
			return financedomain.Query{}, err
		}
		f.EventID = id
	}
	from, err := parseTime(q.from)
	if err != nil {
		return financedomain.Query{}, err
	}
	to, err := parseTime(q.to)
	if err != nil {
		return financedomain.Query{}, err
	}
	f.Method = q.method
	f.From = from
	f.To = to
	return financedomain.Query{
		Filter:      f,
		Page:        pagination.Page{Number: q.page, Size: q.pageSize},
		RateVersion: q.rateVersion,
	}, nil
}

func summaryCmd() *cobra.Command {
	var (
		q           queryFlags
		pdfPath     string
		withEntries bool
		title       string
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Gross, fees, net, expenses and balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := q.query()
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, s services) error {
				summary, err := s.Finance.Summarize(ctx, query)
				if err != nil {
					return err
				}
				if pdfPath == "" {
					return printJSON(cmd.OutOrStdout(), summary)
				}

				doc := report.Report{Title: title, Summary: summary}
				if withEntries {
					entries, err := allEntries(ctx, s, query)
					if err != nil {
						return err
					}
					doc.Entries = entries
				}
				return writePDF(ctx, s.Reports, doc, pdfPath, cmd.OutOrStdout())
			})
		},
	}
	q.bind(cmd.Flags(), true, false)
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "write the summary as a PDF to this path")
	cmd.Flags().BoolVar(&withEntries, "with-entries", false, "list every ledger entry in the PDF")
	cmd.Flags().StringVar(&title, "title", "", "PDF title")
	return cmd
}

func entriesCmd() *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "List confirmed ledger entries with fees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := q.query()
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, s services) error {
				page, err := s.Finance.ListEntries(ctx, query)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), page)
			})
		},
	}
	q.bind(cmd.Flags(), true, true)
	return cmd
}

// allEntries walks every page for the PDF listing.
func allEntries(ctx context.Context, s services, query financedomain.Query) ([]financedomain.Entry, error) {
	var out []financedomain.Entry
	query.Page = pagination.Page{Number: 1, Size: pagination.MaxPageSize}
	for {
		page, err := s.Finance.ListEntries(ctx, query)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Entries...)
		if int64(len(out)) >= page.Total || len(page.Entries) == 0 {
			return out, nil
		}
		query.Page.Number++
	}
}

func writePDF(ctx context.Context, r report.Renderer, doc report.Report, path string, out io.Writer) error {
	reader, err := r.Render(ctx, doc)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, reader); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(out, "summary written to %s\n", path)
	return nil
}
