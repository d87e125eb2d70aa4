// Command ledgerctl runs the balance-sheet pipeline offline: it reads a trial
// balance, classifies it with the rule oracle and writes the statement.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/classification"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	rules   string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Build balance sheets from trial balances",
		Long: `ledgerctl reads a trial balance (CSV, TSV, XLSX or delimited text),
classifies every account with the keyword and account-code rules and prints
the resulting balance sheet. The statement can be written as XLSX or CSV and
the classified lines as CSV, which can be edited and fed back with --lines.

Example Usage:
  ledgerctl statement --file sumas-y-saldos.xlsx --xlsx balance.xlsx
  ledgerctl statement --lines edited.csv --csv statement.csv
  ledgerctl check --lines edited.csv`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&opts.rules, "rules", "", "YAML rules merged over the built-in rules")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log pipeline progress to stderr")

	root.AddCommand(
		newStatementCmd(opts),
		newAnalyzeCmd(opts),
		newCheckCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display the application version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ledgerctl %s (%s)\n", Version, runtime.Version())
		},
	}
}

func (o *rootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *rootOptions) oracle() (*classification.RuleOracle, error) {
	rules := classification.DefaultRules()
	if o.rules != "" {
		custom, err := classification.LoadRulesFile(o.rules)
		if err != nil {
			return nil, err
		}
		rules = rules.Merge(custom)
	}
	return classification.NewRuleOracle(rules)
}
