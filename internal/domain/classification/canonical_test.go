package classification

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/ledger"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name    string
		section ledger.Section
		label   string
		want    string
	}{
		{"exact ignoring case", ledger.SectionAsset, "cash and banks", "Cash and Banks"},
		{"ampersand", ledger.SectionAsset, "Cash & Banks", "Cash and Banks"},
		{"typo", ledger.SectionAsset, "Trade Recievables", "Trade Receivables"},
		{"abbreviated", ledger.SectionLiability, "Payables", "Trade Payables"},
		{"decorated", ledger.SectionAsset, "Cash and Banks - USD", "Cash and Banks"},
		{"unrelated label kept", ledger.SectionExpense, "Marketing", "Marketing"},
		{"trimmed", ledger.SectionExpense, "  Marketing ", "Marketing"},
		{"default category untouched", ledger.SectionAsset, "Other", "Other"},
		{"unclassified section has no table", ledger.SectionUnclassified, "Cash", "Cash"},
		{"empty", ledger.SectionAsset, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonicalize(tt.section, tt.label))
		})
	}
}

func TestCanonicalize_SectionScoped(t *testing.T) {
	// "Sales" is only a standard name under revenue.
	assert.Equal(t, "Sales", Canonicalize(ledger.SectionRevenue, "sales"))
	assert.NotEqual(t, "Sales", Canonicalize(ledger.SectionLiability, "sales"))
}
