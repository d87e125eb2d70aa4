package statement

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/ledger"
)

func sampleStatement() ([]ledger.Line, Statement) {
	lines := []ledger.Line{
		line(ledger.SectionAsset, "Cash and Banks", 100),
		line(ledger.SectionLiability, "Trade Payables", -40),
		line(ledger.SectionEquity, "Capital", -60),
	}
	lines[0].Code = "1.1.01"
	return lines, Aggregate(lines, OrderingContext{})
}

func TestWriteXLSX(t *testing.T) {
	_, st := sampleStatement()

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, st, ExportOptions{Title: "ACME SA", Currency: "ARS"}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, "ACME SA", rows[0][0])

	var labels []string
	for _, r := range rows {
		if len(r) > 1 {
			labels = append(labels, r[1])
		}
	}
	assert.Contains(t, labels, "Assets")
	assert.Contains(t, labels, "Total Cash and Banks")
	assert.Contains(t, labels, "Liabilities plus equity")
	assert.NotContains(t, labels, "Unclassified", "empty unclassified section is omitted")

	code, err := f.GetCellValue(SheetName, "A6")
	require.NoError(t, err)
	assert.Equal(t, "1.1.01", code)

	width, err := f.GetColWidth(SheetName, "B")
	require.NoError(t, err)
	assert.Equal(t, 48.0, width)
}

func TestSheetWriter_KeepsFirstError(t *testing.T) {
	tests := []struct {
		name    string
		fail    func(w *sheetWriter)
		wantErr error
	}{
		{
			name:    "invalid style",
			fail:    func(w *sheetWriter) { w.style(&excelize.Style{Font: &excelize.Font{Size: excelize.MaxFontSize + 1}}) },
			wantErr: excelize.ErrFontSize,
		},
		{
			name:    "column too wide",
			fail:    func(w *sheetWriter) { w.colWidth("A", excelize.MaxColumnWidth+1) },
			wantErr: excelize.ErrColumnWidth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := excelize.NewFile()
			defer f.Close()
			w := &sheetWriter{f: f, sheet: "Sheet1", row: 1}

			tt.fail(w)
			require.ErrorIs(t, w.err, tt.wantErr)

			assert.Zero(t, w.style(&excelize.Style{Font: &excelize.Font{Bold: true}}))
			w.text(0, "skipped")
			assert.Equal(t, 1, w.row)
			assert.ErrorIs(t, w.err, tt.wantErr)
		})
	}
}

func TestWriteStatementCSV(t *testing.T) {
	_, st := sampleStatement()

	var buf bytes.Buffer
	require.NoError(t, WriteStatementCSV(&buf, st, "USD"))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "section,category,code,name,amount,display\n"))
	assert.Contains(t, out, "asset,Cash and Banks,1.1.01,Cash and Banks line,100.00,$100.00")
	assert.Contains(t, out, "Total Liabilities,-40.00")
}

func TestLinesCSVRoundTrip(t *testing.T) {
	lines, _ := sampleStatement()
	lines[1].IsGroup = true
	lines[2].ManualOverride = true

	var buf bytes.Buffer
	require.NoError(t, WriteLinesCSV(&buf, lines))

	got, err := ReadLinesCSV(&buf)
	require.NoError(t, err)
	require.Len(t, got, len(lines))

	for i := range lines {
		assert.Equal(t, lines[i].ID, got[i].ID)
		assert.Equal(t, lines[i].Section, got[i].Section)
		assert.Equal(t, lines[i].Category, got[i].Category)
		assert.True(t, lines[i].Balance.Equal(got[i].Balance))
	}
	assert.True(t, got[1].IsGroup)
	assert.True(t, got[2].ManualOverride)
}

func TestReadLinesCSV_HandEdited(t *testing.T) {
	in := "id,code,name,debit,credit,balance,section,category,is_group,manual_override\n" +
		",1.1,Caja,10,,10,Activo,,false,false\n"

	lines, err := ReadLinesCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.NotEmpty(t, lines[0].ID.String())
	assert.Equal(t, ledger.SectionAsset, lines[0].Section)
	assert.Equal(t, ledger.DefaultCategory, lines[0].Category)
	assert.True(t, lines[0].Credit.IsZero())

	_, err = ReadLinesCSV(strings.NewReader("id,name,debit\n,Caja,ten\n"))
	assert.ErrorIs(t, err, ledger.ErrInvalidValue)
}
