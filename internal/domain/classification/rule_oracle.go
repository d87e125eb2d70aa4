package classification

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"

	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/import/extractor"
	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/import/sniffer"
	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/ledger"
)

// RuleOracle is a deterministic Oracle. Column roles come from header
// keywords, sections and categories from account-name keywords matched with
// Aho-Corasick and from account-code prefixes. It cannot read PDFs.
type RuleOracle struct {
	matcher  *ahocorasick.Matcher
	patterns []string      // normalized keywords in matcher order
	rules    []KeywordRule // rule for each pattern
	prefixes []CodePrefixRule
	mu       sync.Mutex // the matcher keeps per-call state
}

var _ Oracle = (*RuleOracle)(nil)

// NewRuleOracle builds the keyword matcher for rules. When two rules share a
// keyword the first one wins.
func NewRuleOracle(rules RuleSet) (*RuleOracle, error) {
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}

	o := &RuleOracle{prefixes: rules.sortedPrefixes()}

	patternToIndex := make(map[string]int, len(rules.Keywords))
	for _, rule := range rules.Keywords {
		pattern := normalizeText(rule.Keyword)
		if _, exists := patternToIndex[pattern]; exists {
			continue
		}
		patternToIndex[pattern] = len(o.patterns)
		o.patterns = append(o.patterns, pattern)
		o.rules = append(o.rules, rule)
	}

	if len(o.patterns) > 0 {
		bytePatterns := make([][]byte, len(o.patterns))
		for i, p := range o.patterns {
			bytePatterns[i] = []byte(p)
		}
		o.matcher = ahocorasick.NewMatcher(bytePatterns)
	}

	return o, nil
}

// InferColumns maps header keywords onto column roles.
func (o *RuleOracle) InferColumns(_ context.Context, sample [][]string) (extractor.ColumnMapping, error) {
	mapping, ok := sniffer.SuggestMapping(sample)
	if !ok {
		return mapping, fmt.Errorf("failed to infer columns: %w", sniffer.ErrNoHeadersFound)
	}
	return mapping, nil
}

// ExtractLines reads delimited plain text. Text that has no recognisable
// header yields no lines.
func (o *RuleOracle) ExtractLines(_ context.Context, doc Document) ([]ledger.RawLine, error) {
	if doc.IsPDF() {
		return nil, fmt.Errorf("%w: rule oracle cannot read PDF documents", ErrOracleUnavailable)
	}

	text := doc.Text
	if text == "" {
		text = string(doc.Data)
	}

	delimiter, err := sniffer.DetectDelimiter([]byte(text))
	if err != nil {
		return []ledger.RawLine{}, nil
	}
	table, err := extractor.ReadCSV([]byte(text), delimiter)
	if err != nil {
		return []ledger.RawLine{}, nil
	}
	mapping, ok := sniffer.SuggestMapping(table)
	if !ok {
		return []ledger.RawLine{}, nil
	}
	return extractor.Extract(table, mapping), nil
}

// Classify matches every line against the rules. Lines nothing matches get
// no entry. Group headers (a code other codes extend, or a TOTAL row) are
// always flagged, even when unmatched. The regulation text is not
// interpreted by rules.
func (o *RuleOracle) Classify(ctx context.Context, lines []ledger.RawLine, _ string) (Mapping, error) {
	codes := sortedCodes(lines)
	mapping := make(Mapping, len(lines))

	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c, matched := o.classifyLine(line)
		group := isGroupLine(line, codes)
		if !matched && !group {
			continue
		}
		if !matched {
			c = Classification{Section: ledger.SectionUnclassified, Category: ledger.UnclassifiedCategory}
		}
		c.IsGroup = group
		mapping[i] = c
	}

	return mapping, nil
}

// classifyLine applies keyword rules, then code prefix rules. When both match
// and disagree on the section, the code prefix decides the section.
func (o *RuleOracle) classifyLine(line ledger.RawLine) (Classification, bool) {
	keyword, hasKeyword := o.matchKeyword(line.Name)
	prefix, hasPrefix := o.matchPrefix(line.Code)

	switch {
	case hasKeyword && hasPrefix:
		kwSection := ledger.ParseSection(keyword.Section)
		prefixSection := ledger.ParseSection(prefix.Section)
		if kwSection != prefixSection {
			return Classification{Section: prefixSection, Category: prefix.Category}, true
		}
		return Classification{Section: kwSection, Category: keyword.Category}, true
	case hasKeyword:
		return Classification{Section: ledger.ParseSection(keyword.Section), Category: keyword.Category}, true
	case hasPrefix:
		return Classification{Section: ledger.ParseSection(prefix.Section), Category: prefix.Category}, true
	}
	return Classification{}, false
}

// matchKeyword returns the rule of the longest keyword found in name.
func (o *RuleOracle) matchKeyword(name string) (KeywordRule, bool) {
	if o.matcher == nil {
		return KeywordRule{}, false
	}

	o.mu.Lock()
	hits := o.matcher.Match([]byte(normalizeText(name)))
	o.mu.Unlock()

	best := -1
	for _, idx := range hits {
		if idx < 0 || idx >= len(o.patterns) {
			continue
		}
		if best < 0 || len(o.patterns[idx]) > len(o.patterns[best]) ||
			(len(o.patterns[idx]) == len(o.patterns[best]) && idx < best) {
			best = idx
		}
	}
	if best < 0 {
		return KeywordRule{}, false
	}
	return o.rules[best], true
}

func (o *RuleOracle) matchPrefix(code string) (CodePrefixRule, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return CodePrefixRule{}, false
	}
	for _, p := range o.prefixes {
		if strings.HasPrefix(code, strings.TrimSpace(p.Prefix)) {
			return p, true
		}
	}
	return CodePrefixRule{}, false
}

func sortedCodes(lines []ledger.RawLine) []string {
	codes := make([]string, 0, len(lines))
	for _, l := range lines {
		if c := strings.TrimSpace(l.Code); c != "" {
			codes = append(codes, c)
		}
	}
	sort.Strings(codes)
	return codes
}

// isGroupLine reports whether line heads other lines: its code is a strict
// prefix of another code, or its name starts with TOTAL/SUBTOTAL.
func isGroupLine(line ledger.RawLine, sorted []string) bool {
	name := normalizeText(line.Name)
	if strings.HasPrefix(name, "TOTAL") || strings.HasPrefix(name, "SUBTOTAL") {
		return true
	}

	code := strings.TrimSpace(line.Code)
	if code == "" {
		return false
	}
	for i := sort.SearchStrings(sorted, code); i < len(sorted); i++ {
		if sorted[i] == code {
			continue
		}
		return strings.HasPrefix(sorted[i], code)
	}
	return false
}

var accentReplacer = strings.NewReplacer(
	"Á", "A", "À", "A", "Â", "A", "Ã", "A",
	"É", "E", "Ê", "E",
	"Í", "I",
	"Ó", "O", "Ô", "O", "Õ", "O",
	"Ú", "U", "Ü", "U",
	"Ñ", "N", "Ç", "C",
)

// normalizeText uppercases, strips common Spanish/Portuguese accents and
// collapses whitespace.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(accentReplacer.Replace(strings.ToUpper(s))), " ")
}
