package classification

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/ledger"
)

const systemPrompt = "You are an accountant who reads trial balances and charts of accounts. " +
	"Return ONLY valid raw JSON. Do NOT wrap the response in code fences."

const inferColumnsPrompt = `Below are the first rows of a trial balance exported as a JSON array of rows.

Identify which 0-based column holds each role and the 0-based row where account lines start.
Use -1 for a role that is not present.

Return one JSON object:
{"code_index": int, "name_index": int, "debit_index": int, "credit_index": int, "balance_index": int, "start_row": int}

Rows:
%s`

const extractLinesPrompt = `Extract every account line of the attached trial balance.

Return a JSON array of objects with these fields:
- "code": string, the account code or "" when missing
- "name": string, the account name
- "debit": number
- "credit": number
- "balance": number, signed (debit minus credit)

Keep the document order. Include group and total rows as they appear.`

const classifyPrompt = `Classify each account line of a trial balance.

Sections: asset, liability, equity, revenue, expense.
%s

Return a JSON array with one object per line you can classify:
{"index": int, "section": string, "category": string, "is_group": bool}
"index" is the line's "index" field. Set "is_group" for headings and subtotal rows.
Omit lines you cannot classify.

Lines:
%s`

// categoryGuide lists the standard categories, or the client's own chart of
// accounts when one is configured.
func categoryGuide(regulation string) string {
	if strings.TrimSpace(regulation) != "" {
		return "Use the categories of the following chart of accounts:\n" + regulation
	}

	var b strings.Builder
	b.WriteString("Use these categories:\n")
	for _, section := range ledger.Sections {
		categories := ledger.StandardCategories(section)
		if len(categories) == 0 {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", section, strings.Join(categories, "; "))
	}
	return b.String()
}
