package classification

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/import/extractor"
	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/ledger"
)

var (
	ErrOracleUnavailable     = errors.New("classification oracle unavailable")
	ErrMalformedOracleOutput = errors.New("malformed oracle output")
)

// Document is a free-form source handed to the oracle for line extraction.
// Either Data (binary, e.g. a PDF) or Text is set.
type Document struct {
	Filename string
	MIMEType string
	Data     []byte
	Text     string
}

// IsPDF reports whether the document is a PDF.
func (d Document) IsPDF() bool {
	return d.MIMEType == "application/pdf" || strings.EqualFold(filepath.Ext(d.Filename), ".pdf")
}

// Oracle makes the decisions the deterministic core cannot: which column
// plays which role, what lines a free-form document contains and which
// section/category each line belongs to.
//
// Implementations may return partial results. A Mapping with missing entries
// is valid and handled by Merge.
type Oracle interface {
	// InferColumns proposes a column mapping from the leading rows of a table.
	InferColumns(ctx context.Context, sample [][]string) (extractor.ColumnMapping, error)
	// ExtractLines reads ledger lines out of a free-form document.
	ExtractLines(ctx context.Context, doc Document) ([]ledger.RawLine, error)
	// Classify assigns a section and category to lines by position. regulation
	// is the client's custom chart of accounts, empty for the standard model.
	Classify(ctx context.Context, lines []ledger.RawLine, regulation string) (Mapping, error)
}
