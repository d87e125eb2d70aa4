package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownField = errors.New("unknown editable field")
	ErrInvalidValue = errors.New("invalid field value")
)

// Field names a manually editable line field.
type Field int

const (
	FieldCode Field = iota + 1
	FieldName
	FieldCategory
	FieldDebit
	FieldCredit
	FieldBalance
	FieldSection
)

var fieldNames = map[Field]string{
	FieldCode:     "code",
	FieldName:     "name",
	FieldCategory: "category",
	FieldDebit:    "debit",
	FieldCredit:   "credit",
	FieldBalance:  "balance",
	FieldSection:  "section",
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// ParseField resolves a field name such as "debit" into a Field.
func ParseField(name string) (Field, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for f, n := range fieldNames {
		if n == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// EditField returns a copy of lines where the line with the given id has field
// set to value and is marked as manually overridden.
//
// Editing debit or credit recomputes balance from the new value and the other
// side's current value. Editing balance leaves debit and credit untouched.
// An id that is not present yields an unchanged copy.
func EditField(lines []Line, id uuid.UUID, field Field, value string) ([]Line, error) {
	out := Clone(lines)
	idx := IndexOf(out, id)
	if idx < 0 {
		return out, nil
	}

	line := out[idx]
	switch field {
	case FieldCode:
		line.Code = strings.TrimSpace(value)
	case FieldName:
		line.Name = strings.TrimSpace(value)
	case FieldCategory:
		line.Category = strings.TrimSpace(value)
	case FieldSection:
		section, ok := LookupSection(value)
		if !ok {
			return nil, fmt.Errorf("%w: section %q", ErrInvalidValue, value)
		}
		line.Section = section
	case FieldDebit, FieldCredit, FieldBalance:
		amount, err := parseAmount(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q", ErrInvalidValue, field, value)
		}
		switch field {
		case FieldDebit:
			line.Debit = amount
			line.Balance = line.Debit.Sub(line.Credit)
		case FieldCredit:
			line.Credit = amount
			line.Balance = line.Debit.Sub(line.Credit)
		default:
			line.Balance = amount
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}

	line.ManualOverride = true
	out[idx] = line
	return out, nil
}

// DeleteLine returns a copy of lines without the line with the given id.
// Deleting an id that is not present is a no-op.
func DeleteLine(lines []Line, id uuid.UUID) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.ID != id {
			out = append(out, l)
		}
	}
	return out
}

// AddLine returns a copy of lines with a new blank, manually created line first.
func AddLine(lines []Line) ([]Line, Line) {
	line := NewManualLine()
	out := make([]Line, 0, len(lines)+1)
	out = append(out, line)
	out = append(out, lines...)
	return out, line
}

// NewManualLine creates the zero-valued line used for manual insertion.
func NewManualLine() Line {
	return Line{
		ID:             uuid.New(),
		Debit:          decimal.Zero,
		Credit:         decimal.Zero,
		Balance:        decimal.Zero,
		Section:        SectionUnclassified,
		Category:       DefaultCategory,
		ManualOverride: true,
	}
}

// parseAmount parses a manually entered amount. Blank input means zero.
func parseAmount(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(value)
}
