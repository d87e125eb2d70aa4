package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/client"
	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/import/service"
)

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	var sampleRows int

	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Show the column mapping and first lines read from a trial balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			oracle, err := root.oracle()
			if err != nil {
				return err
			}
			logger := root.logger(cmd.ErrOrStderr())
			imports := service.NewImportService(client.NewService(client.NewMemoryRepository(), logger), oracle,
				service.Options{SampleRows: sampleRows}, logger)

			result, err := imports.Analyze(cmd.Context(), service.Source{Filename: filepath.Base(args[0]), Data: data})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().IntVar(&sampleRows, "sample-rows", 25, "Leading rows inspected for the header")
	return cmd
}
