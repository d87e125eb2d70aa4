package statement

import (
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/ledger"
	"github.com/FACorreiaa/smart-balance-sheet/pkg/money"
)

// SheetName is the worksheet the statement is written to.
const SheetName = "Balance Sheet"

// amountFormat is the built-in "#,##0.00" number format.
const amountFormat = 4

var sectionTitles = map[ledger.Section]string{
	ledger.SectionAsset:        "Assets",
	ledger.SectionLiability:    "Liabilities",
	ledger.SectionEquity:       "Equity",
	ledger.SectionRevenue:      "Revenue",
	ledger.SectionExpense:      "Expenses",
	ledger.SectionUnclassified: "Unclassified",
}

// SectionTitle returns the display title of a section.
func SectionTitle(s ledger.Section) string {
	if t, ok := sectionTitles[s]; ok {
		return t
	}
	return string(s)
}

// ExportOptions controls rendering.
type ExportOptions struct {
	Title    string
	Currency string
}

func (o ExportOptions) currency() string {
	if o.Currency == "" {
		return money.DefaultCurrency
	}
	return o.Currency
}

// NewWorkbook renders st into a single-sheet workbook: sections, categories
// with their lines and totals, then the result rows.
func NewWorkbook(st Statement, opts ExportOptions) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	w := &sheetWriter{f: f, sheet: SheetName, row: 1}

	titleStyle := w.style(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	headerStyle := w.style(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
	})
	amountStyle := w.style(&excelize.Style{NumFmt: amountFormat})
	totalStyle := w.style(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: amountFormat})

	title := opts.Title
	if title == "" {
		title = SheetName
	}
	w.text(titleStyle, title)
	w.row++
	w.text(headerStyle, "Code", "Account", fmt.Sprintf("Amount (%s)", opts.currency()))

	for _, section := range st.Sections {
		if len(section.Categories) == 0 && section.Section == ledger.SectionUnclassified {
			continue
		}
		w.text(headerStyle, "", SectionTitle(section.Section), "")
		for _, category := range section.Categories {
			w.text(0, "", category.Name)
			for _, line := range category.Lines {
				w.amount(amountStyle, line.Code, "    "+line.Name, line.Balance)
			}
			w.amount(totalStyle, "", "Total "+category.Name, category.Total)
		}
		w.amount(totalStyle, "", "Total "+SectionTitle(section.Section), section.Total)
		w.row++
	}

	w.amount(totalStyle, "", "Net result", st.NetResult)
	w.amount(totalStyle, "", "Equity plus result", st.EquityPlusResult)
	w.amount(totalStyle, "", "Liabilities plus equity", st.LiabilitiesPlusEquity)
	w.amount(totalStyle, "", "Total assets", st.Assets())

	w.colWidth("A", 14)
	w.colWidth("B", 48)
	w.colWidth("C", 18)

	if w.err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write statement: %w", w.err)
	}
	return f, nil
}

// WriteXLSX renders st as an XLSX workbook to out.
func WriteXLSX(out io.Writer, st Statement, opts ExportOptions) error {
	f, err := NewWorkbook(st, opts)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// sheetWriter builds one sheet and keeps the first error.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
	err   error
}

func (w *sheetWriter) style(s *excelize.Style) int {
	if w.err != nil {
		return 0
	}
	id, err := w.f.NewStyle(s)
	if err != nil {
		w.err = fmt.Errorf("failed to create style: %w", err)
		return 0
	}
	return id
}

func (w *sheetWriter) colWidth(col string, width float64) {
	if w.err != nil {
		return
	}
	if err := w.f.SetColWidth(w.sheet, col, col, width); err != nil {
		w.err = fmt.Errorf("failed to size column %s: %w", col, err)
	}
}

func (w *sheetWriter) text(style int, values ...string) {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	w.write(style, row)
}

func (w *sheetWriter) amount(style int, code, label string, amount decimal.Decimal) {
	w.write(style, []interface{}{code, label, amount.InexactFloat64()})
}

func (w *sheetWriter) write(style int, values []interface{}) {
	if w.err != nil {
		return
	}
	start, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(w.sheet, start, &values); err != nil {
		w.err = err
		return
	}
	if style != 0 {
		end, err := excelize.CoordinatesToCellName(len(values), w.row)
		if err != nil {
			w.err = err
			return
		}
		if err := w.f.SetCellStyle(w.sheet, start, end, style); err != nil {
			w.err = err
			return
		}
	}
	w.row++
}

// StatementRecord is one flattened statement row for CSV export.
type StatementRecord struct {
	Section  string `csv:"section"`
	Category string `csv:"category"`
	Code     string `csv:"code"`
	Name     string `csv:"name"`
	Amount   string `csv:"amount"`
	Display  string `csv:"display"`
}

// Records flattens st into line, category-total and section-total rows.
func Records(st Statement, currency string) []StatementRecord {
	if currency == "" {
		currency = money.DefaultCurrency
	}
	record := func(section ledger.Section, category, code, name string, amount decimal.Decimal) StatementRecord {
		return StatementRecord{
			Section:  string(section),
			Category: category,
			Code:     code,
			Name:     name,
			Amount:   money.Fixed2(amount),
			Display:  money.Display(amount, currency),
		}
	}

	var records []StatementRecord
	for _, section := range st.Sections {
		for _, category := range section.Categories {
			for _, line := range category.Lines {
				records = append(records, record(section.Section, category.Name, line.Code, line.Name, line.Balance))
			}
			records = append(records, record(section.Section, category.Name, "", "Total "+category.Name, category.Total))
		}
		records = append(records, record(section.Section, "", "", "Total "+SectionTitle(section.Section), section.Total))
	}
	records = append(records,
		record("", "", "", "Net result", st.NetResult),
		record("", "", "", "Equity plus result", st.EquityPlusResult),
		record("", "", "", "Liabilities plus equity", st.LiabilitiesPlusEquity),
	)
	return records
}

// WriteStatementCSV writes the flattened statement as CSV.
func WriteStatementCSV(out io.Writer, st Statement, currency string) error {
	records := Records(st, currency)
	if err := gocsv.Marshal(&records, out); err != nil {
		return fmt.Errorf("failed to write statement CSV: %w", err)
	}
	return nil
}

// LineRecord is the CSV form of a ledger line.
type LineRecord struct {
	ID             string `csv:"id"`
	Code           string `csv:"code"`
	Name           string `csv:"name"`
	Debit          string `csv:"debit"`
	Credit         string `csv:"credit"`
	Balance        string `csv:"balance"`
	Section        string `csv:"section"`
	Category       string `csv:"category"`
	IsGroup        bool   `csv:"is_group"`
	ManualOverride bool   `csv:"manual_override"`
}

// WriteLinesCSV writes a line set as CSV, one row per line.
func WriteLinesCSV(out io.Writer, lines []ledger.Line) error {
	records := make([]LineRecord, len(lines))
	for i, l := range lines {
		records[i] = LineRecord{
			ID:             l.ID.String(),
			Code:           l.Code,
			Name:           l.Name,
			Debit:          l.Debit.String(),
			Credit:         l.Credit.String(),
			Balance:        l.Balance.String(),
			Section:        string(l.Section),
			Category:       l.Category,
			IsGroup:        l.IsGroup,
			ManualOverride: l.ManualOverride,
		}
	}
	if err := gocsv.Marshal(&records, out); err != nil {
		return fmt.Errorf("failed to write lines CSV: %w", err)
	}
	return nil
}

// ReadLinesCSV reads a line set written by WriteLinesCSV, possibly edited by
// hand. Missing ids are generated; blank amounts are zero.
func ReadLinesCSV(in io.Reader) ([]ledger.Line, error) {
	var records []LineRecord
	if err := gocsv.Unmarshal(in, &records); err != nil {
		return nil, fmt.Errorf("failed to read lines CSV: %w", err)
	}

	lines := make([]ledger.Line, 0, len(records))
	for i, r := range records {
		id, err := uuid.Parse(strings.TrimSpace(r.ID))
		if err != nil {
			id = uuid.New()
		}

		var amounts [3]decimal.Decimal
		for j, raw := range []string{r.Debit, r.Credit, r.Balance} {
			amounts[j], err = parseCSVAmount(raw)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w: %q", i+2, ledger.ErrInvalidValue, raw)
			}
		}

		category := strings.TrimSpace(r.Category)
		if category == "" {
			category = ledger.DefaultCategory
		}

		lines = append(lines, ledger.Line{
			ID:             id,
			Code:           strings.TrimSpace(r.Code),
			Name:           strings.TrimSpace(r.Name),
			Debit:          amounts[0],
			Credit:         amounts[1],
			Balance:        amounts[2],
			Section:        ledger.ParseSection(r.Section),
			Category:       category,
			IsGroup:        r.IsGroup,
			ManualOverride: r.ManualOverride,
		})
	}
	return lines, nil
}

func parseCSVAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
