// Package extractor turns a 2-D tabular source into raw ledger line candidates
// using an externally supplied column role mapping.
package extractor

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/ledger"
	"github.com/FACorreiaa/smart-balance-sheet/pkg/money"
)

// Absent marks a column role that is not present in the source.
const Absent = -1

// ColumnMapping assigns semantic roles to physical column positions.
// A negative index means the role is absent.
type ColumnMapping struct {
	CodeCol    int `json:"code_index"`
	NameCol    int `json:"name_index"`
	DebitCol   int `json:"debit_index"`
	CreditCol  int `json:"credit_index"`
	BalanceCol int `json:"balance_index"`
	StartRow   int `json:"start_row"` // first data row, 0-based
}

// EmptyMapping returns a mapping with every role absent.
func EmptyMapping() ColumnMapping {
	return ColumnMapping{
		CodeCol:    Absent,
		NameCol:    Absent,
		DebitCol:   Absent,
		CreditCol:  Absent,
		BalanceCol: Absent,
	}
}

// HasDebitCredit reports whether both debit and credit columns are mapped.
func (m ColumnMapping) HasDebitCredit() bool {
	return m.DebitCol >= 0 && m.CreditCol >= 0
}

// HasBalance reports whether a balance column is mapped.
func (m ColumnMapping) HasBalance() bool {
	return m.BalanceCol >= 0
}

// Extract scans rows from mapping.StartRow to the end and returns one RawLine
// per row with a non-blank name, in input order.
//
// Amounts come from debit/credit when both are mapped, otherwise from a
// signed balance column, otherwise they are zero. Unparsable amounts are zero.
// Extract never fails; an empty result means the source had no usable rows.
func Extract(table [][]string, mapping ColumnMapping) []ledger.RawLine {
	lines := make([]ledger.RawLine, 0, len(table))

	start := mapping.StartRow
	if start < 0 {
		start = 0
	}

	for i := start; i < len(table); i++ {
		row := table[i]

		name := cell(row, mapping.NameCol)
		if name == "" {
			continue
		}

		line := ledger.RawLine{
			Code:    cell(row, mapping.CodeCol),
			Name:    cleanName(name),
			Debit:   decimal.Zero,
			Credit:  decimal.Zero,
			Balance: decimal.Zero,
		}

		switch {
		case mapping.HasDebitCredit():
			line.Debit = money.ParseLenient(cell(row, mapping.DebitCol))
			line.Credit = money.ParseLenient(cell(row, mapping.CreditCol))
			line.Balance = line.Debit.Sub(line.Credit)
		case mapping.HasBalance():
			line.Balance = money.ParseLenient(cell(row, mapping.BalanceCol))
			line.Debit = decimal.Max(line.Balance, decimal.Zero)
			line.Credit = decimal.Max(line.Balance.Neg(), decimal.Zero)
		}

		lines = append(lines, line)
	}

	return lines
}

// cell returns the trimmed value at idx, or "" when the column is absent or
// beyond the end of a short row.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// cleanName collapses runs of inner whitespace.
func cleanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
