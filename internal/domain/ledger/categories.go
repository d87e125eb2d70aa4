package ledger

import "strings"

// UnlistedRank is the priority of a category missing from the standard table.
const UnlistedRank = 99

// standardCategories is the fixed priority table used to order categories
// inside each section. Earlier entries are shown first.
var standardCategories = map[Section][]string{
	SectionAsset: {
		"Cash and Banks",
		"Investments",
		"Trade Receivables",
		"Other Receivables",
		"Inventories",
		"Property, Plant and Equipment",
		"Intangible Assets",
		"Other Assets",
	},
	SectionLiability: {
		"Trade Payables",
		"Bank and Financial Loans",
		"Payroll and Social Security",
		"Tax Liabilities",
		"Other Liabilities",
		"Provisions",
	},
	SectionEquity: {
		"Capital",
		"Capital Adjustment",
		"Reserves",
		"Retained Earnings",
	},
	SectionRevenue: {
		"Sales",
		"Other Income",
		"Financial Income",
	},
	SectionExpense: {
		"Cost of Sales",
		"Administrative Expenses",
		"Selling Expenses",
		"Financial Expenses",
		"Income Tax",
	},
}

// StandardCategories returns the priority-ordered category names of a section.
// Unclassified has none.
func StandardCategories(section Section) []string {
	return append([]string(nil), standardCategories[section]...)
}

// CategoryRank returns the 1-based priority of category within section and
// whether it is listed. Matching ignores case and surrounding whitespace.
// Unlisted categories rank UnlistedRank.
func CategoryRank(section Section, category string) (int, bool) {
	category = strings.TrimSpace(category)
	for i, name := range standardCategories[section] {
		if strings.EqualFold(name, category) {
			return i + 1, true
		}
	}
	return UnlistedRank, false
}
