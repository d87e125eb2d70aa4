// Package classification reconciles externally produced classification
// decisions onto extracted ledger lines, and hosts the oracle port with its
// rule-based and Gemini-backed adapters.
package classification

import (
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/ledger"
)

// Classification is the decision for a single line.
type Classification struct {
	Section  ledger.Section `json:"section"`
	Category string         `json:"category"`
	IsGroup  bool           `json:"is_group"`
}

// Mapping holds classifications keyed by the 0-based position of the line they
// apply to. Missing positions are expected.
type Mapping map[int]Classification

// Merge turns raw lines into classified lines. Entry i of mapping applies to
// raw[i]; lines without an entry fall back to the Unclassified section and
// category. Every line gets a fresh id and manualOverride=false. Entries
// beyond the end of raw are ignored.
func Merge(raw []ledger.RawLine, mapping Mapping) []ledger.Line {
	lines := make([]ledger.Line, len(raw))
	for i, r := range raw {
		line := ledger.Line{
			ID:      uuid.New(),
			Code:    r.Code,
			Name:    r.Name,
			Debit:   r.Debit,
			Credit:  r.Credit,
			Balance: r.Balance,
		}
		apply(&line, mapping, i)
		lines[i] = line
	}
	return lines
}

// Reclassify re-applies mapping to an existing line set by position. Ids and
// amounts are kept; lines with a manual override are left as they are.
func Reclassify(lines []ledger.Line, mapping Mapping) []ledger.Line {
	out := ledger.Clone(lines)
	for i := range out {
		if out[i].ManualOverride {
			continue
		}
		apply(&out[i], mapping, i)
	}
	return out
}

// RawLines returns the extraction view of a line set in the same order.
func RawLines(lines []ledger.Line) []ledger.RawLine {
	raw := make([]ledger.RawLine, len(lines))
	for i, l := range lines {
		raw[i] = l.Raw()
	}
	return raw
}

func apply(line *ledger.Line, mapping Mapping, i int) {
	c, ok := mapping[i]
	if !ok {
		line.Section = ledger.SectionUnclassified
		line.Category = ledger.UnclassifiedCategory
		line.IsGroup = false
		return
	}

	line.Section = c.Section
	if !line.Section.Valid() {
		line.Section = ledger.SectionUnclassified
	}
	line.Category = strings.TrimSpace(c.Category)
	if line.Category == "" {
		line.Category = ledger.DefaultCategory
	}
	line.IsGroup = c.IsGroup
}
