package classification

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/ledger"
)

// Canonicalize maps a free-text category label produced by an oracle onto the
// standard category name of section it most likely refers to ("cash & banks",
// "Trade Recievables"). Labels that match nothing closely are returned
// trimmed and otherwise untouched, so custom charts of accounts survive.
func Canonicalize(section ledger.Section, label string) string {
	label = strings.TrimSpace(label)
	if label == "" || strings.EqualFold(label, ledger.DefaultCategory) || strings.EqualFold(label, ledger.UnclassifiedCategory) {
		return label
	}

	candidates := ledger.StandardCategories(section)
	if len(candidates) == 0 {
		return label
	}

	if name, ok := exactMatch(label, candidates); ok {
		return name
	}
	if name, ok := typoMatch(label, candidates); ok {
		return name
	}
	if name, ok := abbreviationMatch(label, candidates); ok {
		return name
	}
	if name, ok := decoratedMatch(label, candidates); ok {
		return name
	}
	return label
}

func exactMatch(label string, candidates []string) (string, bool) {
	normalized := normalizeLabel(label)
	for _, c := range candidates {
		if normalizeLabel(c) == normalized {
			return c, true
		}
	}
	return "", false
}

// typoMatch accepts a small edit distance relative to the label length.
func typoMatch(label string, candidates []string) (string, bool) {
	normalized := strings.ToLower(label)
	maxDistance := max(2, len(normalized)/6)

	best, bestDistance := "", maxDistance+1
	for _, c := range candidates {
		d := fuzzy.LevenshteinDistance(normalized, strings.ToLower(c))
		if d < bestDistance {
			best, bestDistance = c, d
		}
	}
	return best, best != ""
}

// abbreviationMatch finds candidates containing every character of label in
// order ("Payables" in "Trade Payables"). The label must cover at least half
// of the candidate; ties keep table order.
func abbreviationMatch(label string, candidates []string) (string, bool) {
	if len(label) < 4 {
		return "", false
	}

	ranks := fuzzy.RankFindNormalizedFold(label, candidates)
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].OriginalIndex < ranks[j].OriginalIndex
	})

	for _, r := range ranks {
		if r.Distance*2 <= len(r.Target) {
			return r.Target, true
		}
	}
	return "", false
}

// decoratedMatch handles labels that wrap a standard name with extra text
// ("Cash and Banks - USD"). The longest contained candidate wins.
func decoratedMatch(label string, candidates []string) (string, bool) {
	best := ""
	for _, c := range candidates {
		if !fuzzy.MatchNormalizedFold(c, label) {
			continue
		}
		if len(label)-len(c) > len(c)/2 {
			continue
		}
		if len(c) > len(best) {
			best = c
		}
	}
	return best, best != ""
}

// normalizeLabel lowercases, drops punctuation and spells out "&".
func normalizeLabel(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, "&", " and "))
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			return r
		case r > 127:
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
