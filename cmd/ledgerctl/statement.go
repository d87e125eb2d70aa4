package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/client"
	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/import/service"
	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/ledger"
	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/statement"
	"github.com/FACorreiaa/smart-balance-sheet/pkg/money"
)

// customModelPlaceholder marks a client as using its own chart of accounts
// when no regulation text is given.
const customModelPlaceholder = "custom chart of accounts"

type statementOptions struct {
	root *rootOptions

	file           string
	lines          string
	name           string
	currency       string
	regulationFile string
	customModel    bool

	xlsxOut  string
	csvOut   string
	linesOut string
}

func newStatementCmd(root *rootOptions) *cobra.Command {
	opts := &statementOptions{root: root}

	cmd := &cobra.Command{
		Use:   "statement",
		Short: "Classify a trial balance and print the balance sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatement(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.file, "file", "", "Trial balance to import (csv, tsv, xlsx, txt)")
	f.StringVar(&opts.lines, "lines", "", "Classified lines CSV written by --lines-csv")
	f.StringVar(&opts.name, "name", "", "Client name used as the workbook title (default: file name)")
	f.StringVar(&opts.currency, "currency", money.DefaultCurrency, "ISO currency code for rendered amounts")
	f.StringVar(&opts.regulationFile, "regulation", "", "File with the client's own chart of accounts")
	f.BoolVar(&opts.customModel, "custom-model", false, "Order categories as for a client with its own chart of accounts")
	f.StringVar(&opts.xlsxOut, "xlsx", "", "Write the statement workbook to this path")
	f.StringVar(&opts.csvOut, "csv", "", "Write the flattened statement CSV to this path")
	f.StringVar(&opts.linesOut, "lines-csv", "", "Write the classified lines CSV to this path")
	cmd.MarkFlagsMutuallyExclusive("file", "lines")
	cmd.MarkFlagsOneRequired("file", "lines")
	cmd.MarkFlagsMutuallyExclusive("regulation", "custom-model")

	return cmd
}

func runStatement(ctx context.Context, out, errOut io.Writer, opts *statementOptions) error {
	logger := opts.root.logger(errOut)
	clients := client.NewService(client.NewMemoryRepository(), logger)

	regulation, err := opts.regulation()
	if err != nil {
		return err
	}

	source := opts.file
	if source == "" {
		source = opts.lines
	}
	name := opts.name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	}

	c, err := clients.Create(ctx, name, opts.currency, regulation)
	if err != nil {
		return err
	}

	if opts.file != "" {
		if err := importFile(ctx, clients, c.ID, opts); err != nil {
			return err
		}
	} else if err := importLines(ctx, clients, c.ID, opts.lines); err != nil {
		return err
	}

	c, st, err := clients.Statement(ctx, c.ID)
	if err != nil {
		return err
	}
	lines, err := clients.Lines(ctx, c.ID)
	if err != nil {
		return err
	}

	if err := printStatement(out, st, c.Currency); err != nil {
		return err
	}
	printFindings(out, statement.Check(lines))

	if opts.xlsxOut != "" {
		if err := writeFile(opts.xlsxOut, func(w io.Writer) error {
			return statement.WriteXLSX(w, st, statement.ExportOptions{Title: c.Name, Currency: c.Currency})
		}); err != nil {
			return err
		}
	}
	if opts.csvOut != "" {
		if err := writeFile(opts.csvOut, func(w io.Writer) error {
			return statement.WriteStatementCSV(w, st, c.Currency)
		}); err != nil {
			return err
		}
	}
	if opts.linesOut != "" {
		if err := writeFile(opts.linesOut, func(w io.Writer) error {
			return statement.WriteLinesCSV(w, lines)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (o *statementOptions) regulation() (string, error) {
	if o.regulationFile != "" {
		data, err := os.ReadFile(o.regulationFile)
		if err != nil {
			return "", fmt.Errorf("failed to read regulation: %w", err)
		}
		if text := strings.TrimSpace(string(data)); text != "" {
			return text, nil
		}
		return "", errors.New("regulation file is empty")
	}
	if o.customModel {
		return customModelPlaceholder, nil
	}
	return "", nil
}

func importFile(ctx context.Context, clients *client.Service, id uuid.UUID, opts *statementOptions) error {
	data, err := os.ReadFile(opts.file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", opts.file, err)
	}

	oracle, err := opts.root.oracle()
	if err != nil {
		return err
	}

	imports := service.NewImportService(clients, oracle, service.Options{}, opts.root.logger(io.Discard))
	if _, err := imports.Import(ctx, id, service.Source{Filename: filepath.Base(opts.file), Data: data}); err != nil {
		return fmt.Errorf("failed to import %s: %w", opts.file, err)
	}
	return nil
}

func importLines(ctx context.Context, clients *client.Service, id uuid.UUID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	lines, err := statement.ReadLinesCSV(f)
	if err != nil {
		return err
	}
	_, err = clients.Import(ctx, id, func(context.Context, *client.Client) ([]ledger.Line, error) {
		return lines, nil
	})
	return err
}

func printStatement(out io.Writer, st statement.Statement, currency string) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, section := range st.Sections {
		if len(section.Categories) == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s\t\t\n", statement.SectionTitle(section.Section))
		for _, category := range section.Categories {
			fmt.Fprintf(tw, "  %s\t%s\t\n", category.Name, money.Display(category.Total, currency))
		}
		fmt.Fprintf(tw, "Total %s\t%s\t\n", statement.SectionTitle(section.Section), money.Display(section.Total, currency))
	}
	fmt.Fprintf(tw, "Net result\t%s\t\n", money.Display(st.NetResult, currency))
	fmt.Fprintf(tw, "Liabilities plus equity\t%s\t\n", money.Display(st.LiabilitiesPlusEquity, currency))
	return tw.Flush()
}

func printFindings(out io.Writer, findings []ledger.Finding) {
	if len(findings) == 0 {
		fmt.Fprintln(out, "Balanced: no findings")
		return
	}
	for _, f := range findings {
		fmt.Fprintf(out, "[%s] %s\n", f.Severity, f.Message)
	}
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
