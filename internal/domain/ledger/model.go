// Package ledger holds the line model shared by the extraction, classification
// and statement packages, and the manual line editor.
package ledger

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Section is the top-level financial statement chapter a line belongs to.
type Section string

const (
	SectionAsset        Section = "asset"
	SectionLiability    Section = "liability"
	SectionEquity       Section = "equity"
	SectionRevenue      Section = "revenue"
	SectionExpense      Section = "expense"
	SectionUnclassified Section = "unclassified"
)

// Sections lists every section in statement order.
var Sections = []Section{
	SectionAsset,
	SectionLiability,
	SectionEquity,
	SectionRevenue,
	SectionExpense,
	SectionUnclassified,
}

const (
	// DefaultCategory is used when a classification carries no category.
	DefaultCategory = "Other"
	// UnclassifiedCategory is the category of lines the oracle did not classify.
	UnclassifiedCategory = "Unclassified"
)

// Valid reports whether s is one of the known sections.
func (s Section) Valid() bool {
	switch s {
	case SectionAsset, SectionLiability, SectionEquity, SectionRevenue, SectionExpense, SectionUnclassified:
		return true
	}
	return false
}

// sectionAliases maps the labels oracles and spreadsheets commonly use.
var sectionAliases = map[string]Section{
	"asset":           SectionAsset,
	"assets":          SectionAsset,
	"activo":          SectionAsset,
	"ativo":           SectionAsset,
	"liability":       SectionLiability,
	"liabilities":     SectionLiability,
	"pasivo":          SectionLiability,
	"passivo":         SectionLiability,
	"equity":          SectionEquity,
	"patrimonio":      SectionEquity,
	"patrimonio neto": SectionEquity,
	"capital propio":  SectionEquity,
	"revenue":         SectionRevenue,
	"revenues":        SectionRevenue,
	"income":          SectionRevenue,
	"ingresos":        SectionRevenue,
	"ingreso":         SectionRevenue,
	"receitas":        SectionRevenue,
	"expense":         SectionExpense,
	"expenses":        SectionExpense,
	"gastos":          SectionExpense,
	"egresos":         SectionExpense,
	"despesas":        SectionExpense,
	"unclassified":    SectionUnclassified,
	"sin clasificar":  SectionUnclassified,
	"":                SectionUnclassified,
}

// LookupSection maps a free-text section label onto a Section and reports
// whether the label was recognised.
func LookupSection(label string) (Section, bool) {
	s, ok := sectionAliases[strings.ToLower(strings.TrimSpace(label))]
	return s, ok
}

// ParseSection is LookupSection with unknown labels mapped to SectionUnclassified.
func ParseSection(label string) Section {
	if s, ok := LookupSection(label); ok {
		return s
	}
	return SectionUnclassified
}

// RawLine is a line candidate produced by extraction, before classification.
type RawLine struct {
	Code    string          `json:"code,omitempty"`
	Name    string          `json:"name"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
	Balance decimal.Decimal `json:"balance"`
}

// Line is one ledger entry or group header.
type Line struct {
	ID             uuid.UUID       `json:"id"`
	Code           string          `json:"code,omitempty"`
	Name           string          `json:"name"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	Balance        decimal.Decimal `json:"balance"`
	Section        Section         `json:"section"`
	Category       string          `json:"category"`
	IsGroup        bool            `json:"is_group"`
	ManualOverride bool            `json:"manual_override"`
}

// Severity grades a Finding.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Finding is one structural inconsistency detected in a line set.
type Finding struct {
	ID             string      `json:"id"`
	Severity       Severity    `json:"severity"`
	Message        string      `json:"message"`
	RelatedLineIDs []uuid.UUID `json:"related_line_ids"`
}

// Clone returns a copy of lines that can be modified without touching the input.
func Clone(lines []Line) []Line {
	if lines == nil {
		return nil
	}
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}

// IndexOf returns the position of the line with the given id, or -1.
func IndexOf(lines []Line, id uuid.UUID) int {
	for i := range lines {
		if lines[i].ID == id {
			return i
		}
	}
	return -1
}

// Raw returns the extraction view of l, used when a line set is sent back to
// the oracle for reclassification.
func (l Line) Raw() RawLine {
	return RawLine{
		Code:    l.Code,
		Name:    l.Name,
		Debit:   l.Debit,
		Credit:  l.Credit,
		Balance: l.Balance,
	}
}
