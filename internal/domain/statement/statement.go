// Package statement assembles classified ledger lines into a hierarchical
// financial statement, checks a line set for structural inconsistencies and
// renders statements for export.
package statement

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/ledger"
)

// OrderingContext selects the category ordering policy.
type OrderingContext struct {
	// HasCustomModel is set when the client classifies against its own chart
	// of accounts.
	HasCustomModel bool
}

// CategoryGroup is one category of a section with its lines and total.
type CategoryGroup struct {
	Name  string          `json:"name"`
	Lines []ledger.Line   `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// SectionGroup is one statement section.
type SectionGroup struct {
	Section    ledger.Section  `json:"section"`
	Categories []CategoryGroup `json:"categories"`
	Total      decimal.Decimal `json:"total"`
}

// Statement is derived from a line set and never stored.
type Statement struct {
	Sections []SectionGroup `json:"sections"`
	// NetResult is |revenue| - |expense|.
	NetResult decimal.Decimal `json:"net_result"`
	// EquityPlusResult is the equity total plus NetResult.
	EquityPlusResult decimal.Decimal `json:"equity_plus_result"`
	// LiabilitiesPlusEquity is the liability total plus EquityPlusResult,
	// expected to match the asset total.
	LiabilitiesPlusEquity decimal.Decimal `json:"liabilities_plus_equity"`
}

// Section returns the group for s, or an empty group when s is unknown.
func (st Statement) Section(s ledger.Section) SectionGroup {
	for _, g := range st.Sections {
		if g.Section == s {
			return g
		}
	}
	return SectionGroup{Section: s, Total: decimal.Zero}
}

// Total returns the total of section s.
func (st Statement) Total(s ledger.Section) decimal.Decimal {
	return st.Section(s).Total
}

// Assets returns the asset section total.
func (st Statement) Assets() decimal.Decimal {
	return st.Total(ledger.SectionAsset)
}

// Aggregate groups the non-group lines by section and category, orders the
// categories and computes totals. Every section is present, in
// ledger.Sections order, even when empty. Lines keep their input order
// within a category.
func Aggregate(lines []ledger.Line, oc OrderingContext) Statement {
	type bucket struct {
		group CategoryGroup
		index int // discovery order within the section
	}

	buckets := make(map[ledger.Section]map[string]*bucket, len(ledger.Sections))
	order := make(map[ledger.Section][]*bucket, len(ledger.Sections))

	for _, line := range lines {
		if line.IsGroup {
			continue
		}

		section := line.Section
		if !section.Valid() {
			section = ledger.SectionUnclassified
		}

		if buckets[section] == nil {
			buckets[section] = make(map[string]*bucket)
		}
		b, ok := buckets[section][line.Category]
		if !ok {
			b = &bucket{
				group: CategoryGroup{Name: line.Category, Total: decimal.Zero},
				index: len(order[section]),
			}
			buckets[section][line.Category] = b
			order[section] = append(order[section], b)
		}
		b.group.Lines = append(b.group.Lines, line)
		b.group.Total = b.group.Total.Add(line.Balance)
	}

	st := Statement{Sections: make([]SectionGroup, 0, len(ledger.Sections))}
	for _, section := range ledger.Sections {
		discovered := order[section]
		sortCategories(section, discovered, func(b *bucket) string { return b.group.Name }, oc)

		group := SectionGroup{
			Section:    section,
			Categories: make([]CategoryGroup, 0, len(discovered)),
			Total:      decimal.Zero,
		}
		for _, b := range discovered {
			group.Categories = append(group.Categories, b.group)
			group.Total = group.Total.Add(b.group.Total)
		}
		st.Sections = append(st.Sections, group)
	}

	st.NetResult = st.Total(ledger.SectionRevenue).Abs().Sub(st.Total(ledger.SectionExpense).Abs())
	st.EquityPlusResult = st.Total(ledger.SectionEquity).Add(st.NetResult)
	st.LiabilitiesPlusEquity = st.Total(ledger.SectionLiability).Add(st.EquityPlusResult)

	return st
}

// sortCategories orders items in place. items must be in discovery order.
//
// Without a custom model, categories sort by their priority-table rank with
// unlisted ones at ledger.UnlistedRank; equal ranks keep discovery order.
// With a custom model, listed categories come first by rank and unlisted
// ones follow alphabetically.
func sortCategories[T any](section ledger.Section, items []T, name func(T) string, oc OrderingContext) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := name(items[i]), name(items[j])
		rankA, listedA := ledger.CategoryRank(section, a)
		rankB, listedB := ledger.CategoryRank(section, b)

		if !oc.HasCustomModel {
			return rankA < rankB
		}

		switch {
		case listedA && listedB:
			return rankA < rankB
		case listedA != listedB:
			return listedA
		}
		return alphabeticalLess(a, b)
	})
}

// alphabeticalLess compares case-insensitively, falling back to a byte
// comparison so the order is total.
func alphabeticalLess(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}
