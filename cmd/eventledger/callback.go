package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/smallbiznis/eventledger/internal/observability/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func callbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "callback",
		Short: "Ingest and replay gateway notifications",
	}
	cmd.AddCommand(callbackIngestCmd(), callbackReplayCmd())
	return cmd
}

func callbackIngestCmd() *cobra.Command {
	var (
		provider string
		headers  []string
	)
	cmd := &cobra.Command{
		Use:   "ingest [payload.json|-]",
		Short: "Verify and apply one notification body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(cmd, args[0])
			if err != nil {
				return err
			}
			hdr, err := parseHeaders(headers)
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, s services) error {
				if provider == "" {
					provider = s.Cfg.Gateway.Provider
				}
				outcome, err := s.Callbacks.Ingest(ctx, provider, payload, hdr)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), outcome)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "gateway name (defaults to PAYMENT_GATEWAY)")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "request header as 'Name: value' (repeatable)")
	return cmd
}

func callbackReplayCmd() *cobra.Command {
	var (
		provider string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-apply stored notifications that never finished",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s services) error {
				if provider == "" {
					provider = s.Cfg.Gateway.Provider
				}
				return job(s, "callback_replay", func(jr *metrics.JobRun) error {
					n, err := s.Callbacks.Replay(ctx, provider, limit)
					jr.Processed(n)
					s.Log.Info("callback replay finished", zap.Int("applied", n), zap.Error(err))
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), map[string]int{"applied": n})
				})
			})
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "gateway name (defaults to PAYMENT_GATEWAY)")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum callbacks to replay")
	return cmd
}

func readPayload(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func parseHeaders(raw []string) (http.Header, error) {
	hdr := http.Header{}
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q", h)
		}
		hdr.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return hdr, nil
}
