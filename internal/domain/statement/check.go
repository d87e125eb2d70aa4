package statement

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/ledger"
)

// IdentityFindingID identifies the balance-sheet identity finding.
const IdentityFindingID = "balance-sheet-identity"

// identityTolerance absorbs rounding in source documents.
var identityTolerance = decimal.NewFromInt(1)

// GrandTotal is the signed sum of balances over non-group lines.
func GrandTotal(lines []ledger.Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		if l.IsGroup {
			continue
		}
		total = total.Add(l.Balance)
	}
	return total
}

// Check reports the structural inconsistencies of a line set. The only
// check is the balance-sheet identity: balances must sum to zero within a
// tolerance of 1.
func Check(lines []ledger.Line) []ledger.Finding {
	findings := make([]ledger.Finding, 0, 1)

	diff := GrandTotal(lines).Abs()
	if diff.GreaterThan(identityTolerance) {
		findings = append(findings, ledger.Finding{
			ID:             IdentityFindingID,
			Severity:       ledger.SeverityHigh,
			Message:        fmt.Sprintf("Balance sheet does not balance: debits and credits differ by %s", diff.StringFixed(2)),
			RelatedLineIDs: []uuid.UUID{},
		})
	}

	return findings
}
