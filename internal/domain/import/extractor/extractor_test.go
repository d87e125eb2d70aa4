package extractor

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/ledger"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmounts(t *testing.T, line ledger.RawLine, debit, credit, balance string) {
	t.Helper()
	assert.True(t, line.Debit.Equal(dec(debit)), "debit: got %s want %s", line.Debit, debit)
	assert.True(t, line.Credit.Equal(dec(credit)), "credit: got %s want %s", line.Credit, credit)
	assert.True(t, line.Balance.Equal(dec(balance)), "balance: got %s want %s", line.Balance, balance)
}

func TestExtract_DebitCredit(t *testing.T) {
	table := [][]string{
		{"Trial balance 2024"},
		{"Code", "Account", "Debit", "Credit"},
		{"1.1.01", "Cash", "1,500.00", "200"},
		{"2.1.01", "  Suppliers   Ltd ", "", "$ 300.50"},
		{"", "", "10", "10"},
		{"9", "   ", "10", "10"},
	}
	mapping := ColumnMapping{CodeCol: 0, NameCol: 1, DebitCol: 2, CreditCol: 3, BalanceCol: Absent, StartRow: 2}

	lines := Extract(table, mapping)
	require.Len(t, lines, 2)

	assert.Equal(t, "1.1.01", lines[0].Code)
	assert.Equal(t, "Cash", lines[0].Name)
	assertAmounts(t, lines[0], "1500", "200", "1300")

	assert.Equal(t, "Suppliers Ltd", lines[1].Name)
	assertAmounts(t, lines[1], "0", "300.50", "-300.50")
}

func TestExtract_BalanceOnly(t *testing.T) {
	table := [][]string{
		{"Account", "Balance"},
		{"Loan", "-25"},
		{"Bank", "40"},
		{"Broken", "12..5"},
	}
	mapping := EmptyMapping()
	mapping.NameCol = 0
	mapping.BalanceCol = 1
	mapping.StartRow = 1

	lines := Extract(table, mapping)
	require.Len(t, lines, 3)

	assertAmounts(t, lines[0], "0", "25", "-25")
	assertAmounts(t, lines[1], "40", "0", "40")
	assertAmounts(t, lines[2], "0", "0", "0")
}

func TestExtract_DebitOnlyFallsBackToBalance(t *testing.T) {
	table := [][]string{{"Cash", "5", "-8"}}
	mapping := ColumnMapping{CodeCol: Absent, NameCol: 0, DebitCol: 1, CreditCol: Absent, BalanceCol: 2}

	lines := Extract(table, mapping)
	require.Len(t, lines, 1)
	assertAmounts(t, lines[0], "0", "8", "-8")
}

func TestExtract_NoAmountColumns(t *testing.T) {
	table := [][]string{{"Header"}, {"Cash"}, {"Inventory"}}
	mapping := EmptyMapping()
	mapping.NameCol = 0

	lines := Extract(table, mapping)
	require.Len(t, lines, 3, "rows with a name are kept even without amounts")
	for _, l := range lines {
		assert.True(t, l.Debit.IsZero())
		assert.True(t, l.Credit.IsZero())
		assert.True(t, l.Balance.IsZero())
	}
}

func TestExtract_EmptyResults(t *testing.T) {
	t.Run("nil table", func(t *testing.T) {
		assert.Empty(t, Extract(nil, EmptyMapping()))
	})

	t.Run("name column absent", func(t *testing.T) {
		table := [][]string{{"Cash", "10"}}
		mapping := EmptyMapping()
		mapping.BalanceCol = 1
		assert.Empty(t, Extract(table, mapping))
	})

	t.Run("start row past the end", func(t *testing.T) {
		table := [][]string{{"Cash", "10"}}
		mapping := ColumnMapping{CodeCol: Absent, NameCol: 0, DebitCol: Absent, CreditCol: Absent, BalanceCol: 1, StartRow: 5}
		assert.Empty(t, Extract(table, mapping))
	})

	t.Run("name index beyond short rows", func(t *testing.T) {
		table := [][]string{{"10"}}
		mapping := ColumnMapping{CodeCol: Absent, NameCol: 3, DebitCol: Absent, CreditCol: Absent, BalanceCol: 0}
		assert.Empty(t, Extract(table, mapping))
	})
}

func TestExtract_PreservesOrderAndDuplicates(t *testing.T) {
	table := [][]string{{"B", "1"}, {"A", "2"}, {"B", "1"}}
	mapping := ColumnMapping{CodeCol: Absent, NameCol: 0, DebitCol: Absent, CreditCol: Absent, BalanceCol: 1}

	lines := Extract(table, mapping)
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"B", "A", "B"}, []string{lines[0].Name, lines[1].Name, lines[2].Name})
}

func TestReadCSV(t *testing.T) {
	data := []byte("\uFEFFCode;Account;Balance\n1;Cash;\"1.000\"\n2;Loan\n")

	table, err := ReadCSV(data, ';')
	require.NoError(t, err)
	require.Len(t, table, 3)
	assert.Equal(t, []string{"Code", "Account", "Balance"}, table[0])
	assert.Equal(t, []string{"2", "Loan"}, table[2])
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "Notes"))
	_, err := f.NewSheet("Sumas y Saldos")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Sumas y Saldos", "A1", &[]interface{}{"Cuenta", "Saldo"}))
	require.NoError(t, f.SetSheetRow("Sumas y Saldos", "A2", &[]interface{}{"Caja", 150}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	table, sheet, err := ReadXLSX(bytes.NewReader(buf.Bytes()), "")
	require.NoError(t, err)
	assert.Equal(t, "Sumas y Saldos", sheet)
	require.Len(t, table, 2)
	assert.Equal(t, []string{"Caja", "150"}, table[1])
}

func TestReadXLSX_AccountingFormat(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	accounting := "#,##0.00;(#,##0.00)"
	style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &accounting})
	require.NoError(t, err)

	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Cuenta", "Saldo"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Proveedores", -1234.5}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"Caja", 1234.5}))
	require.NoError(t, f.SetCellStyle("Sheet1", "B2", "B3", style))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	table, _, err := ReadXLSX(bytes.NewReader(buf.Bytes()), "")
	require.NoError(t, err)
	require.Len(t, table, 3)
	assert.NotContains(t, table[1][1], "(")

	mapping := ColumnMapping{CodeCol: Absent, NameCol: 0, DebitCol: Absent, CreditCol: Absent, BalanceCol: 1, StartRow: 1}
	lines := Extract(table, mapping)
	require.Len(t, lines, 2)
	assertAmounts(t, lines[0], "0", "1234.5", "-1234.5")
	assertAmounts(t, lines[1], "1234.5", "0", "1234.5")
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindTabular, KindOf("tb.CSV"))
	assert.Equal(t, KindTabular, KindOf("tb.xlsx"))
	assert.Equal(t, KindFreeForm, KindOf("scan.pdf"))
	assert.Equal(t, KindUnknown, KindOf("photo.png"))

	_, err := ReadTable("scan.pdf", nil, 0)
	assert.ErrorIs(t, err, ErrUnsupportedFile)
}
