package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/statement"
	"github.com/FACorreiaa/smart-balance-sheet/pkg/money"
)

var errUnbalanced = errors.New("line set has findings")

func newCheckCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that a classified lines CSV balances",
		Long: `check reads a lines CSV written by "statement --lines-csv", possibly edited
by hand, and reports its findings. It exits non-zero when there are any.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", path, err)
			}
			defer f.Close()

			lines, err := statement.ReadLinesCSV(f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d lines, grand total %s\n", len(lines), money.Fixed2(statement.GrandTotal(lines)))

			findings := statement.Check(lines)
			printFindings(out, findings)
			if len(findings) > 0 {
				return errUnbalanced
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "lines", "", "Lines CSV to check")
	_ = cmd.MarkFlagRequired("lines")
	return cmd
}
