package classification

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/ledger"
)

func rawLines(names ...string) []ledger.RawLine {
	lines := make([]ledger.RawLine, len(names))
	for i, n := range names {
		lines[i] = ledger.RawLine{
			Code:    "",
			Name:    n,
			Debit:   decimal.NewFromInt(int64(i + 1)),
			Credit:  decimal.Zero,
			Balance: decimal.NewFromInt(int64(i + 1)),
		}
	}
	return lines
}

func TestMerge_FallbackForUnmappedIndex(t *testing.T) {
	raw := rawLines("Cash", "Suppliers", "Capital", "Mystery", "Sales")
	mapping := Mapping{
		0: {Section: ledger.SectionAsset, Category: "Cash and Banks"},
		1: {Section: ledger.SectionLiability, Category: "Trade Payables"},
		2: {Section: ledger.SectionEquity, Category: "Capital", IsGroup: true},
		4: {Section: ledger.SectionRevenue, Category: "Sales"},
	}

	lines := Merge(raw, mapping)
	require.Len(t, lines, 5)

	assert.Equal(t, ledger.SectionUnclassified, lines[3].Section)
	assert.Equal(t, "Unclassified", lines[3].Category)
	assert.False(t, lines[3].IsGroup)

	assert.Equal(t, ledger.SectionAsset, lines[0].Section)
	assert.Equal(t, "Cash and Banks", lines[0].Category)
	assert.True(t, lines[2].IsGroup)
	assert.Equal(t, ledger.SectionRevenue, lines[4].Section)

	ids := make(map[uuid.UUID]bool)
	for i, l := range lines {
		assert.NotEqual(t, uuid.Nil, l.ID)
		assert.False(t, l.ManualOverride)
		assert.Equal(t, raw[i].Name, l.Name, "order must follow the raw lines")
		assert.True(t, l.Balance.Equal(raw[i].Balance))
		ids[l.ID] = true
	}
	assert.Len(t, ids, 5, "ids must be unique")
}

func TestMerge_EntryDefaults(t *testing.T) {
	tests := []struct {
		name         string
		entry        Classification
		wantSection  ledger.Section
		wantCategory string
	}{
		{
			name:         "empty category becomes Other",
			entry:        Classification{Section: ledger.SectionExpense, Category: "  "},
			wantSection:  ledger.SectionExpense,
			wantCategory: "Other",
		},
		{
			name:         "unknown section becomes Unclassified",
			entry:        Classification{Section: "cosmic", Category: "Dust"},
			wantSection:  ledger.SectionUnclassified,
			wantCategory: "Dust",
		},
		{
			name:         "category is trimmed",
			entry:        Classification{Section: ledger.SectionAsset, Category: " Inventories "},
			wantSection:  ledger.SectionAsset,
			wantCategory: "Inventories",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := Merge(rawLines("Line"), Mapping{0: tt.entry})
			require.Len(t, lines, 1)
			assert.Equal(t, tt.wantSection, lines[0].Section)
			assert.Equal(t, tt.wantCategory, lines[0].Category)
		})
	}
}

func TestMerge_MisalignedMappings(t *testing.T) {
	raw := rawLines("A", "B")

	t.Run("nil mapping", func(t *testing.T) {
		lines := Merge(raw, nil)
		require.Len(t, lines, 2)
		for _, l := range lines {
			assert.Equal(t, ledger.SectionUnclassified, l.Section)
			assert.Equal(t, ledger.UnclassifiedCategory, l.Category)
		}
	})

	t.Run("entries beyond the end are ignored", func(t *testing.T) {
		lines := Merge(raw, Mapping{1: {Section: ledger.SectionAsset}, 7: {Section: ledger.SectionExpense}, -1: {Section: ledger.SectionEquity}})
		require.Len(t, lines, 2)
		assert.Equal(t, ledger.SectionUnclassified, lines[0].Section)
		assert.Equal(t, ledger.SectionAsset, lines[1].Section)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Merge(nil, Mapping{0: {Section: ledger.SectionAsset}}))
	})
}

func TestMerge_FreshIDsOnEveryRun(t *testing.T) {
	raw := rawLines("A")
	first := Merge(raw, nil)
	second := Merge(raw, nil)
	assert.NotEqual(t, first[0].ID, second[0].ID)
}

func TestReclassify(t *testing.T) {
	lines := Merge(rawLines("Cash", "Loan", "Edited"), nil)
	lines[2].ManualOverride = true
	lines[2].Section = ledger.SectionEquity
	lines[2].Category = "Reserves"

	mapping := Mapping{
		0: {Section: ledger.SectionAsset, Category: "Cash and Banks"},
		2: {Section: ledger.SectionExpense, Category: "Selling Expenses"},
	}

	out := Reclassify(lines, mapping)
	require.Len(t, out, 3)

	assert.Equal(t, lines[0].ID, out[0].ID)
	assert.Equal(t, ledger.SectionAsset, out[0].Section)
	assert.True(t, out[0].Balance.Equal(lines[0].Balance))

	assert.Equal(t, ledger.SectionUnclassified, out[1].Section)

	assert.Equal(t, ledger.SectionEquity, out[2].Section, "manual overrides are kept")
	assert.Equal(t, "Reserves", out[2].Category)

	assert.Equal(t, ledger.SectionUnclassified, lines[0].Section, "input must not be mutated")
}

func TestRawLines(t *testing.T) {
	lines := Merge(rawLines("A", "B"), nil)
	raw := RawLines(lines)
	require.Len(t, raw, 2)
	assert.Equal(t, "B", raw[1].Name)
	assert.True(t, raw[1].Debit.Equal(decimal.NewFromInt(2)))
}
