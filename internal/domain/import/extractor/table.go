package extractor

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrNoUsableRows    = errors.New("source has no usable rows")
	ErrNoSheet         = errors.New("workbook has no sheets")
	ErrUnsupportedFile = errors.New("unsupported file type")
)

// SourceKind tells the import pipeline how a document must be read.
type SourceKind int

const (
	KindUnknown  SourceKind = iota
	KindTabular             // CSV/TSV/XLSX, read into a table and extracted by mapping
	KindFreeForm            // PDF and plain text, extracted by the oracle
)

// KindOf classifies a file by its extension.
func KindOf(filename string) SourceKind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".tsv":
		return KindTabular
	case ".xlsx", ".xlsm", ".xltx":
		return KindTabular
	case ".pdf", ".txt":
		return KindFreeForm
	}
	return KindUnknown
}

// IsSpreadsheet reports whether filename is an Excel workbook.
func IsSpreadsheet(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm", ".xltx":
		return true
	}
	return false
}

// ReadCSV reads delimited text into a table. Rows may have different widths.
func ReadCSV(data []byte, delimiter rune) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\uFEFF"))

	reader := csv.NewReader(bytes.NewReader(data))
	if delimiter != 0 {
		reader.Comma = delimiter
	}
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // Variable field count

	var table [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		table = append(table, record)
	}
	return table, nil
}

// ReadXLSX reads one sheet of a workbook into a table of unformatted cell
// values. When sheet is empty the sheet that looks most like a ledger is
// chosen. The sheet name used is returned.
func ReadXLSX(r io.Reader, sheet string) ([][]string, string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = findLedgerSheet(f.GetSheetList())
	}
	if sheet == "" {
		return nil, "", ErrNoSheet
	}

	// raw values keep the sign that accounting formats render as parentheses
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, "", fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return rows, sheet, nil
}

// ReadTable reads a tabular document according to its file extension.
func ReadTable(filename string, data []byte, delimiter rune) ([][]string, error) {
	if KindOf(filename) != KindTabular {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(filename))
	}
	if IsSpreadsheet(filename) {
		table, _, err := ReadXLSX(bytes.NewReader(data), "")
		return table, err
	}
	if delimiter == 0 && strings.EqualFold(filepath.Ext(filename), ".tsv") {
		delimiter = '\t'
	}
	return ReadCSV(data, delimiter)
}

// findLedgerSheet prefers sheets named like a trial balance or ledger,
// falling back to the first sheet.
func findLedgerSheet(sheets []string) string {
	if len(sheets) == 0 {
		return ""
	}

	preferredNames := []string{
		"balance", "sumas y saldos", "balancete", "trial balance",
		"mayor", "ledger", "plan de cuentas", "sheet1",
	}

	for _, preferred := range preferredNames {
		for _, sheet := range sheets {
			if strings.EqualFold(strings.TrimSpace(sheet), preferred) {
				return sheet
			}
		}
	}

	return sheets[0]
}
