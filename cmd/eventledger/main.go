package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	// Command output goes to stdout; keep logs out of it unless asked.
	if os.Getenv("LOG_OUTPUT") == "" {
		_ = os.Setenv("LOG_OUTPUT", "stderr")
	}

	rootCmd := &cobra.Command{
		Use:           "eventledger",
		Short:         "Registration payment ledger and fee reconciliation",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(registrationCmd())
	rootCmd.AddCommand(paymentCmd())
	rootCmd.AddCommand(cancelCmd())
	rootCmd.AddCommand(ratesCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(entriesCmd())
	rootCmd.AddCommand(expenseCmd())
	rootCmd.AddCommand(callbackCmd())
	rootCmd.AddCommand(auditCmd())
	rootCmd.AddCommand(workerCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
