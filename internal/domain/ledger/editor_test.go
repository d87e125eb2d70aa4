package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleLines() []Line {
	return []Line{
		{
			ID:       uuid.New(),
			Code:     "1.1.01",
			Name:     "Cash",
			Debit:    dec("100"),
			Credit:   dec("0"),
			Balance:  dec("100"),
			Section:  SectionAsset,
			Category: "Cash and Banks",
		},
		{
			ID:       uuid.New(),
			Code:     "2.1.01",
			Name:     "Suppliers",
			Debit:    dec("10"),
			Credit:   dec("50"),
			Balance:  dec("-40"),
			Section:  SectionLiability,
			Category: "Trade Payables",
		},
	}
}

func TestEditField_DebitCredit(t *testing.T) {
	t.Run("debit edit recomputes balance with prior credit", func(t *testing.T) {
		lines := sampleLines()
		out, err := EditField(lines, lines[1].ID, FieldDebit, "30")
		require.NoError(t, err)

		edited := out[1]
		assert.True(t, edited.Debit.Equal(dec("30")))
		assert.True(t, edited.Credit.Equal(dec("50")))
		assert.True(t, edited.Balance.Equal(dec("-20")), "balance = %s", edited.Balance)
		assert.True(t, edited.ManualOverride)
	})

	t.Run("credit edit recomputes balance with prior debit", func(t *testing.T) {
		lines := sampleLines()
		out, err := EditField(lines, lines[0].ID, FieldCredit, "25.50")
		require.NoError(t, err)

		edited := out[0]
		assert.True(t, edited.Balance.Equal(dec("74.50")), "balance = %s", edited.Balance)
	})

	t.Run("balance edit leaves debit and credit alone", func(t *testing.T) {
		lines := sampleLines()
		out, err := EditField(lines, lines[0].ID, FieldBalance, "-12")
		require.NoError(t, err)

		edited := out[0]
		assert.True(t, edited.Balance.Equal(dec("-12")))
		assert.True(t, edited.Debit.Equal(dec("100")))
		assert.True(t, edited.Credit.Equal(dec("0")))
		assert.True(t, edited.ManualOverride)
	})

	t.Run("invariant holds after a sequence of side edits", func(t *testing.T) {
		lines := sampleLines()
		id := lines[1].ID
		var err error
		for _, step := range []struct {
			field Field
			value string
		}{
			{FieldDebit, "5"},
			{FieldCredit, "7.25"},
			{FieldDebit, "100"},
			{FieldCredit, ""},
		} {
			lines, err = EditField(lines, id, step.field, step.value)
			require.NoError(t, err)
			l := lines[IndexOf(lines, id)]
			assert.True(t, l.Balance.Equal(l.Debit.Sub(l.Credit)), "after %s=%s", step.field, step.value)
		}
	})

	t.Run("input is not mutated", func(t *testing.T) {
		lines := sampleLines()
		_, err := EditField(lines, lines[0].ID, FieldDebit, "1")
		require.NoError(t, err)
		assert.True(t, lines[0].Debit.Equal(dec("100")))
		assert.False(t, lines[0].ManualOverride)
	})
}

func TestEditField_TextFields(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		value string
		check func(t *testing.T, l Line)
	}{
		{"code", FieldCode, " 1.1.02 ", func(t *testing.T, l Line) { assert.Equal(t, "1.1.02", l.Code) }},
		{"name", FieldName, "Petty cash", func(t *testing.T, l Line) { assert.Equal(t, "Petty cash", l.Name) }},
		{"category", FieldCategory, "Investments", func(t *testing.T, l Line) { assert.Equal(t, "Investments", l.Category) }},
		{"section by alias", FieldSection, "Pasivo", func(t *testing.T, l Line) { assert.Equal(t, SectionLiability, l.Section) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := sampleLines()
			out, err := EditField(lines, lines[0].ID, tt.field, tt.value)
			require.NoError(t, err)
			tt.check(t, out[0])
			assert.True(t, out[0].ManualOverride)
			assert.Equal(t, lines[1], out[1], "other lines must be untouched")
		})
	}
}

func TestEditField_Errors(t *testing.T) {
	lines := sampleLines()

	_, err := EditField(lines, lines[0].ID, FieldDebit, "abc")
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = EditField(lines, lines[0].ID, FieldSection, "somewhere")
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = EditField(lines, lines[0].ID, Field(99), "x")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestEditField_UnknownID(t *testing.T) {
	lines := sampleLines()
	out, err := EditField(lines, uuid.New(), FieldName, "ghost")
	require.NoError(t, err)
	assert.Equal(t, lines, out)
}

func TestDeleteLine(t *testing.T) {
	t.Run("removes matching line", func(t *testing.T) {
		lines := sampleLines()
		out := DeleteLine(lines, lines[0].ID)
		require.Len(t, out, 1)
		assert.Equal(t, lines[1], out[0])
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		lines := sampleLines()
		out := DeleteLine(lines, uuid.New())
		assert.Equal(t, lines, out)
	})
}

func TestAddLine(t *testing.T) {
	lines := sampleLines()
	out, added := AddLine(lines)

	require.Len(t, out, 3)
	assert.Equal(t, added, out[0])
	assert.Equal(t, lines, out[1:])

	assert.NotEqual(t, uuid.Nil, added.ID)
	assert.True(t, added.Debit.IsZero())
	assert.True(t, added.Credit.IsZero())
	assert.True(t, added.Balance.IsZero())
	assert.Equal(t, SectionUnclassified, added.Section)
	assert.Equal(t, DefaultCategory, added.Category)
	assert.False(t, added.IsGroup)
	assert.True(t, added.ManualOverride)
}

func TestParseField(t *testing.T) {
	f, err := ParseField(" Credit ")
	require.NoError(t, err)
	assert.Equal(t, FieldCredit, f)
	assert.Equal(t, "credit", f.String())

	_, err = ParseField("id")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestParseSection(t *testing.T) {
	assert.Equal(t, SectionAsset, ParseSection("Activo"))
	assert.Equal(t, SectionEquity, ParseSection("Patrimonio Neto"))
	assert.Equal(t, SectionRevenue, ParseSection("income"))
	assert.Equal(t, SectionUnclassified, ParseSection("mystery"))

	_, ok := LookupSection("mystery")
	assert.False(t, ok)
}
