// Package sniffer detects the layout of ledger exports: delimiter, header row
// and which columns carry the account code, name and amounts. It also builds
// the bounded samples handed to the classification oracle.
package sniffer

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/import/extractor"
)

const (
	// DefaultSampleRows is how many leading rows the oracle sees for column inference.
	DefaultSampleRows = 25
	// DefaultTextCap bounds the textual rendering sent for free-form summarisation.
	DefaultTextCap = 300_000
	// headerSearchRows limits how deep into a file a header row is searched for.
	headerSearchRows = 25
)

// Ledger export header keywords (multi-language)
var (
	codeKeywords    = []string{"código", "codigo", "code", "cod.", "cód.", "nro", "número", "numero", "account no"}
	nameKeywords    = []string{"descripción", "descripcion", "description", "nombre", "name", "concepto", "denominación", "denominacion", "rubro"}
	accountKeywords = []string{"cuenta", "account", "conta"}
	debitKeywords   = []string{"debe", "débito", "debito", "debit", "deudor", "dr"}
	creditKeywords  = []string{"haber", "crédito", "credito", "credit", "acreedor", "cr"}
	balanceKeywords = []string{"saldo", "balance", "importe", "amount", "monto", "valor"}
)

var (
	ErrEmptyFile        = errors.New("file is empty")
	ErrNoHeadersFound   = errors.New("could not find data headers")
	ErrInvalidDelimiter = errors.New("could not detect valid delimiter")
)

// FileConfig holds the detected configuration for a CSV/TSV file
type FileConfig struct {
	Delimiter   rune       // The field delimiter (';', ',', '\t')
	SkipLines   int        // Number of metadata lines before headers
	Headers     []string   // Detected header names
	Fingerprint string     // SHA256 hash of normalized headers
	SampleRows  [][]string // First few data rows for preview
}

// DetectConfig analyzes a CSV/TSV file and returns its configuration
func DetectConfig(data []byte) (*FileConfig, error) {
	data = bytes.TrimPrefix(data, []byte("\uFEFF"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	lines := strings.Split(string(data), "\n")

	delimiter, skipLines, err := findHeaderRow(lines)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(cleanLine(lines[skipLines])))
	reader.Comma = delimiter
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		return nil, err
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	return &FileConfig{
		Delimiter:   delimiter,
		SkipLines:   skipLines,
		Headers:     headers,
		Fingerprint: Fingerprint(headers),
		SampleRows:  getSampleRows(data, delimiter, skipLines+1, 5),
	}, nil
}

// DetectDelimiter returns the most likely delimiter of a delimited text file,
// or ErrInvalidDelimiter when no line has more than one column.
func DetectDelimiter(data []byte) (rune, error) {
	cfg, err := DetectConfig(data)
	if err != nil {
		if errors.Is(err, ErrNoHeadersFound) {
			return 0, ErrInvalidDelimiter
		}
		return 0, err
	}
	return cfg.Delimiter, nil
}

// SuggestMapping scans the leading rows of a table for a header row and maps
// its columns onto ledger roles. The returned mapping starts on the row after
// the header. ok is false when no column looks like an account name.
func SuggestMapping(table [][]string) (mapping extractor.ColumnMapping, ok bool) {
	bestRow, bestScore := -1, 0
	var best extractor.ColumnMapping

	for i, row := range table {
		if i >= headerSearchRows {
			break
		}
		var next []string
		if i+1 < len(table) {
			next = table[i+1]
		}
		m, score := mapHeaders(row, next)
		if m.NameCol < 0 {
			continue
		}
		if score > bestScore {
			bestRow, bestScore, best = i, score, m
		}
	}

	if bestRow < 0 {
		return extractor.EmptyMapping(), false
	}

	best.StartRow = bestRow + 1
	return best, true
}

// mapHeaders assigns roles to a candidate header row. Each column takes at most
// one role; the score counts how many roles were found. firstRow is the row
// below the header, used to tell account numbers from account names.
//
// A column titled like "Cuenta" or "Account" is ambiguous: it holds the name
// when it is the only name-like column, and the code when a description column
// exists or when its first value looks like an account number.
func mapHeaders(headers, firstRow []string) (extractor.ColumnMapping, int) {
	m := extractor.EmptyMapping()
	account := extractor.Absent
	taken := make(map[int]bool)

	for i, header := range headers {
		h := strings.ToLower(strings.TrimSpace(header))
		if h == "" {
			continue
		}

		switch {
		case m.CodeCol < 0 && containsAny(h, codeKeywords):
			m.CodeCol = i
		case m.DebitCol < 0 && matchesAny(h, debitKeywords):
			m.DebitCol = i
		case m.CreditCol < 0 && matchesAny(h, creditKeywords):
			m.CreditCol = i
		case m.BalanceCol < 0 && containsAny(h, balanceKeywords):
			m.BalanceCol = i
		case m.NameCol < 0 && containsAny(h, nameKeywords):
			m.NameCol = i
		case account < 0 && containsAny(h, accountKeywords):
			account = i
		default:
			continue
		}
		taken[i] = true
	}

	if account >= 0 {
		switch {
		case m.NameCol >= 0:
			if m.CodeCol < 0 {
				m.CodeCol = account
			}
		case m.CodeCol < 0 && looksLikeCode(cellAt(firstRow, account)):
			m.CodeCol = account
			m.NameCol = textColumn(firstRow, taken)
			if m.NameCol < 0 {
				m.CodeCol, m.NameCol = extractor.Absent, account
			}
		default:
			m.NameCol = account
		}
	}

	score := 0
	for _, col := range []int{m.CodeCol, m.NameCol, m.DebitCol, m.CreditCol, m.BalanceCol} {
		if col >= 0 {
			score++
		}
	}
	return m, score
}

// looksLikeCode reports whether s is an account number such as "1.1.01" or
// "430-001".
func looksLikeCode(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	digits := false
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits = true
		case r == '.' || r == '-' || r == '/' || r == ' ':
		default:
			return false
		}
	}
	return digits
}

// textColumn returns the first column of row without a role whose value
// contains letters, or Absent.
func textColumn(row []string, taken map[int]bool) int {
	for i, v := range row {
		if taken[i] {
			continue
		}
		if strings.IndexFunc(v, unicode.IsLetter) >= 0 {
			return i
		}
	}
	return extractor.Absent
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// SampleRows returns at most n leading rows of table, the shape the oracle
// consumes to infer a column mapping.
func SampleRows(table [][]string, n int) [][]string {
	if n <= 0 {
		n = DefaultSampleRows
	}
	if len(table) < n {
		n = len(table)
	}

	sample := make([][]string, n)
	for i := 0; i < n; i++ {
		sample[i] = append([]string(nil), table[i]...)
	}
	return sample
}

// RenderText renders table as CSV truncated to at most maxChars characters.
// The cut always falls on a row boundary.
func RenderText(table [][]string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultTextCap
	}

	var out strings.Builder
	chars := 0
	for _, row := range table {
		var line bytes.Buffer
		w := csv.NewWriter(&line)
		if err := w.Write(row); err != nil {
			continue
		}
		w.Flush()

		n := utf8.RuneCount(line.Bytes())
		if chars+n > maxChars {
			break
		}
		out.Write(line.Bytes())
		chars += n
	}
	return out.String()
}

// TruncateText cuts s to at most maxChars characters, ending on the last
// complete line when the cut leaves one.
func TruncateText(s string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultTextCap
	}
	n := 0
	for i := range s {
		if n == maxChars {
			cut := s[:i]
			if idx := strings.LastIndexByte(cut, '\n'); idx > 0 {
				return cut[:idx+1]
			}
			return cut
		}
		n++
	}
	return s
}

// findHeaderRow locates the header row and its delimiter
func findHeaderRow(lines []string) (rune, int, error) {
	keywordIndex, keywordDelimiter, keywordScore := -1, rune(0), 0
	fallbackIndex, fallbackDelimiter, fallbackCount := -1, rune(0), 0

	for i, line := range lines {
		if i > headerSearchRows {
			break
		}

		line = cleanLine(line)
		if line == "" {
			continue
		}

		delimiter, count := detectDelimiter(line)
		if count < 1 {
			continue
		}

		fields := strings.Split(line, string(delimiter))
		_, matches := mapHeaders(fields, nil)

		if matches > 0 {
			score := count*10 + matches
			if keywordIndex == -1 || score > keywordScore {
				keywordIndex, keywordDelimiter, keywordScore = i, delimiter, score
			}
		} else if count > fallbackCount {
			fallbackIndex, fallbackDelimiter, fallbackCount = i, delimiter, count
		}
	}

	if keywordIndex >= 0 {
		return keywordDelimiter, keywordIndex, nil
	}
	if fallbackIndex >= 0 {
		return fallbackDelimiter, fallbackIndex, nil
	}
	return 0, 0, ErrNoHeadersFound
}

func cleanLine(line string) string {
	line = strings.TrimRight(line, "\r")
	line = strings.TrimPrefix(line, "\uFEFF")
	return strings.TrimSpace(line)
}

func detectDelimiter(line string) (rune, int) {
	delimiters := []rune{';', '\t', ',', '|'}
	bestDelimiter := rune(0)
	bestCount := 0
	for _, d := range delimiters {
		count := strings.Count(line, string(d))
		if count > bestCount {
			bestCount = count
			bestDelimiter = d
		}
	}
	return bestDelimiter, bestCount
}

// containsAny reports whether s contains one of the keywords.
func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// matchesAny is containsAny for long keywords and whole-word matching for
// short ones, so "cr" does not match "description".
func matchesAny(s string, keywords []string) bool {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, kw := range keywords {
		if len(kw) > 3 {
			if strings.Contains(s, kw) {
				return true
			}
			continue
		}
		for _, w := range words {
			if w == kw {
				return true
			}
		}
	}
	return false
}

// Fingerprint hashes the letters and digits of a header row, so two exports
// of the same ledger layout share a fingerprint.
func Fingerprint(headers []string) string {
	var normalized []string
	for _, h := range headers {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, h)
		if clean != "" {
			normalized = append(normalized, clean)
		}
	}

	hash := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(hash[:])
}

// getSampleRows returns the first N data rows after the header
func getSampleRows(data []byte, delimiter rune, startLine, maxRows int) [][]string {
	table, err := extractor.ReadCSV(data, delimiter)
	if err != nil || startLine >= len(table) {
		return nil
	}
	return SampleRows(table[startLine:], maxRows)
}
