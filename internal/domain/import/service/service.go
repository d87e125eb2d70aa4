// Package service provides the import orchestration logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/classification"
	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/client"
	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/import/extractor"
	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/import/sniffer"
	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/ledger"
	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/statement"
)

const tracerName = "github.com/FACorreiaa/smart-balance-sheet/internal/domain/import/service"

// ErrImportInProgress is returned when an import for the same client is
// already running.
var ErrImportInProgress = client.ErrImportInProgress

// Options bounds what is handed to the oracle.
type Options struct {
	SampleRows int // leading table rows used for column inference
	TextCap    int // characters of free-form text sent for extraction
}

// Source is an uploaded document.
type Source struct {
	Filename    string
	ContentType string
	Data        []byte
}

// AnalyzeResult previews how a source would be read without touching any
// client's line set.
type AnalyzeResult struct {
	Kind        string                   `json:"kind"`
	Mapping     *extractor.ColumnMapping `json:"mapping,omitempty"`
	Fingerprint string                   `json:"fingerprint,omitempty"`
	Sample      [][]string               `json:"sample,omitempty"`
	Preview     []ledger.RawLine         `json:"preview,omitempty"`
	Rows        int                      `json:"rows"`
}

// ImportResult summarises a completed import.
type ImportResult struct {
	ClientID     uuid.UUID        `json:"client_id"`
	Filename     string           `json:"filename"`
	Lines        int              `json:"lines"`
	Groups       int              `json:"groups"`
	Classified   int              `json:"classified"`
	Unclassified int              `json:"unclassified"`
	Findings     []ledger.Finding `json:"findings"`
	Duration     time.Duration    `json:"duration"`
}

// ImportService reads uploaded documents into ledger lines, classifies them
// through the oracle and replaces the client's line set.
type ImportService struct {
	clients *client.Service
	oracle  classification.Oracle
	opts    Options
	logger  *slog.Logger
	tracer  trace.Tracer

	// Optional: nil when metrics are disabled
	imports  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

const previewLines = 20

// NewImportService creates a new import service
func NewImportService(clients *client.Service, oracle classification.Oracle, opts Options, logger *slog.Logger) *ImportService {
	if opts.SampleRows <= 0 {
		opts.SampleRows = sniffer.DefaultSampleRows
	}
	if opts.TextCap <= 0 {
		opts.TextCap = sniffer.DefaultTextCap
	}
	return &ImportService{
		clients: clients,
		oracle:  oracle,
		opts:    opts,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
	}
}

// WithMetrics registers import counters on reg.
func (s *ImportService) WithMetrics(reg prometheus.Registerer) *ImportService {
	s.imports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_imports_total",
		Help: "Imports by source kind and outcome.",
	}, []string{"kind", "outcome"})
	s.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_import_duration_seconds",
		Help:    "Import duration including oracle calls.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"kind"})
	reg.MustRegister(s.imports, s.duration)
	return s
}

// WithTracerProvider replaces the global tracer provider.
func (s *ImportService) WithTracerProvider(tp trace.TracerProvider) *ImportService {
	s.tracer = tp.Tracer(tracerName)
	return s
}

// Analyze reads a source and proposes a column mapping. Free-form sources
// are only classified by kind since reading them requires the oracle.
func (s *ImportService) Analyze(ctx context.Context, src Source) (*AnalyzeResult, error) {
	ctx, span := s.tracer.Start(ctx, "import.analyze", trace.WithAttributes(
		attribute.String("import.filename", src.Filename),
	))
	defer span.End()

	switch extractor.KindOf(src.Filename) {
	case extractor.KindFreeForm:
		return &AnalyzeResult{Kind: kindName(extractor.KindFreeForm)}, nil
	case extractor.KindTabular:
	default:
		return nil, fmt.Errorf("%w: %s", extractor.ErrUnsupportedFile, filepath.Ext(src.Filename))
	}

	table, err := s.readTable(src)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	sample := sniffer.SampleRows(table, s.opts.SampleRows)
	mapping, err := s.oracle.InferColumns(ctx, sample)
	if err != nil {
		recordError(span, err)
		return nil, fmt.Errorf("failed to infer columns: %w", err)
	}

	preview := extractor.Extract(table, mapping)
	if len(preview) > previewLines {
		preview = preview[:previewLines]
	}

	result := &AnalyzeResult{
		Kind:    kindName(extractor.KindTabular),
		Mapping: &mapping,
		Sample:  sample,
		Preview: preview,
		Rows:    len(table),
	}
	if header := mapping.StartRow - 1; header >= 0 && header < len(table) {
		result.Fingerprint = sniffer.Fingerprint(table[header])
	}
	return result, nil
}

// Import replaces the client's line set with the lines read from src. The
// previous line set is kept when any stage fails.
func (s *ImportService) Import(ctx context.Context, clientID uuid.UUID, src Source) (*ImportResult, error) {
	start := time.Now()
	kind := extractor.KindOf(src.Filename)

	ctx, span := s.tracer.Start(ctx, "import.run", trace.WithAttributes(
		attribute.String("import.client_id", clientID.String()),
		attribute.String("import.filename", src.Filename),
		attribute.String("import.kind", kindName(kind)),
		attribute.Int("import.bytes", len(src.Data)),
	))
	defer span.End()

	lines, err := s.clients.Import(ctx, clientID, func(ctx context.Context, c *client.Client) ([]ledger.Line, error) {
		raw, err := s.extract(ctx, kind, src)
		if err != nil {
			return nil, err
		}
		if len(raw) == 0 {
			return nil, extractor.ErrNoUsableRows
		}
		return s.classify(ctx, raw, c.Regulation)
	})
	elapsed := time.Since(start)
	s.observe(kind, err, elapsed)

	if err != nil {
		recordError(span, err)
		s.logger.Warn("import failed",
			slog.String("client_id", clientID.String()),
			slog.String("filename", src.Filename),
			slog.Any("error", err),
		)
		return nil, err
	}

	result := summarize(lines)
	result.ClientID = clientID
	result.Filename = src.Filename
	result.Findings = statement.Check(lines)
	result.Duration = elapsed

	span.SetAttributes(
		attribute.Int("import.lines", result.Lines),
		attribute.Int("import.unclassified", result.Unclassified),
	)
	s.logger.Info("import completed",
		slog.String("client_id", clientID.String()),
		slog.String("filename", src.Filename),
		slog.Int("lines", result.Lines),
		slog.Int("unclassified", result.Unclassified),
		slog.Int("findings", len(result.Findings)),
		slog.Duration("duration", elapsed),
	)
	return result, nil
}

// Reclassify asks the oracle to classify the client's current lines again.
// Lines edited by hand keep their section and category.
func (s *ImportService) Reclassify(ctx context.Context, clientID uuid.UUID) (*ImportResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "import.reclassify", trace.WithAttributes(
		attribute.String("import.client_id", clientID.String()),
	))
	defer span.End()

	lines, err := s.clients.Import(ctx, clientID, func(ctx context.Context, c *client.Client) ([]ledger.Line, error) {
		current, err := s.clients.Lines(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		if len(current) == 0 {
			return current, nil
		}

		mapping, err := s.oracleClassify(ctx, classification.RawLines(current), c.Regulation)
		if err != nil {
			return nil, err
		}
		return classification.Reclassify(current, mapping), nil
	})
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	result := summarize(lines)
	result.ClientID = clientID
	result.Findings = statement.Check(lines)
	result.Duration = time.Since(start)

	s.logger.Info("reclassify completed",
		slog.String("client_id", clientID.String()),
		slog.Int("lines", result.Lines),
		slog.Int("unclassified", result.Unclassified),
	)
	return result, nil
}

func (s *ImportService) extract(ctx context.Context, kind extractor.SourceKind, src Source) ([]ledger.RawLine, error) {
	ctx, span := s.tracer.Start(ctx, "import.extract")
	defer span.End()

	switch kind {
	case extractor.KindTabular:
		table, err := s.readTable(src)
		if err != nil {
			recordError(span, err)
			return nil, err
		}
		mapping, err := s.oracle.InferColumns(ctx, sniffer.SampleRows(table, s.opts.SampleRows))
		if err != nil {
			recordError(span, err)
			return nil, fmt.Errorf("failed to infer columns: %w", err)
		}
		raw := extractor.Extract(table, mapping)
		span.SetAttributes(attribute.Int("import.rows", len(table)), attribute.Int("import.raw_lines", len(raw)))
		if len(raw) > 0 {
			return raw, nil
		}

		// the mapping found nothing: hand the rendered table to the oracle as text
		s.logger.Debug("column mapping yielded no lines, falling back to text extraction",
			slog.String("filename", src.Filename))
		raw, err = s.oracle.ExtractLines(ctx, classification.Document{
			Filename: src.Filename,
			MIMEType: "text/csv",
			Text:     sniffer.RenderText(table, s.opts.TextCap),
		})
		if err != nil {
			recordError(span, err)
			return nil, fmt.Errorf("failed to extract lines: %w", err)
		}
		span.SetAttributes(attribute.Int("import.fallback_lines", len(raw)))
		return raw, nil

	case extractor.KindFreeForm:
		doc := classification.Document{
			Filename: src.Filename,
			MIMEType: src.ContentType,
		}
		if doc.IsPDF() {
			doc.Data = src.Data
		} else {
			doc.Text = sniffer.TruncateText(string(normalizeText(src.Data)), s.opts.TextCap)
		}
		raw, err := s.oracle.ExtractLines(ctx, doc)
		if err != nil {
			recordError(span, err)
			return nil, fmt.Errorf("failed to extract lines: %w", err)
		}
		span.SetAttributes(attribute.Int("import.raw_lines", len(raw)))
		return raw, nil
	}

	return nil, fmt.Errorf("%w: %s", extractor.ErrUnsupportedFile, filepath.Ext(src.Filename))
}

func (s *ImportService) classify(ctx context.Context, raw []ledger.RawLine, regulation string) ([]ledger.Line, error) {
	mapping, err := s.oracleClassify(ctx, raw, regulation)
	if err != nil {
		return nil, err
	}
	return classification.Merge(raw, mapping), nil
}

func (s *ImportService) oracleClassify(ctx context.Context, raw []ledger.RawLine, regulation string) (classification.Mapping, error) {
	ctx, span := s.tracer.Start(ctx, "import.classify", trace.WithAttributes(
		attribute.Int("import.raw_lines", len(raw)),
		attribute.Bool("import.custom_model", regulation != ""),
	))
	defer span.End()

	mapping, err := s.oracle.Classify(ctx, raw, regulation)
	if err != nil {
		recordError(span, err)
		return nil, fmt.Errorf("failed to classify lines: %w", err)
	}
	if mapping == nil {
		mapping = classification.Mapping{}
	}
	return mapping, nil
}

// readTable reads a tabular source. Delimited text is decoded from Latin-1
// when it is not valid UTF-8 and its delimiter is sniffed.
func (s *ImportService) readTable(src Source) ([][]string, error) {
	data := src.Data
	var delimiter rune
	if !extractor.IsSpreadsheet(src.Filename) {
		data = normalizeText(data)
		if d, err := sniffer.DetectDelimiter(data); err == nil {
			delimiter = d
		}
	}

	table, err := extractor.ReadTable(src.Filename, data, delimiter)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", src.Filename, err)
	}
	if len(table) == 0 {
		return nil, extractor.ErrNoUsableRows
	}
	return table, nil
}

func (s *ImportService) observe(kind extractor.SourceKind, err error, elapsed time.Duration) {
	if s.imports == nil {
		return
	}
	s.imports.WithLabelValues(kindName(kind), outcome(err)).Inc()
	s.duration.WithLabelValues(kindName(kind)).Observe(elapsed.Seconds())
}

func summarize(lines []ledger.Line) *ImportResult {
	r := &ImportResult{Lines: len(lines)}
	for _, l := range lines {
		switch {
		case l.IsGroup:
			r.Groups++
		case l.Section == ledger.SectionUnclassified:
			r.Unclassified++
		default:
			r.Classified++
		}
	}
	return r
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrImportInProgress):
		return "busy"
	case errors.Is(err, extractor.ErrNoUsableRows), errors.Is(err, sniffer.ErrNoHeadersFound):
		return "no_rows"
	case errors.Is(err, extractor.ErrUnsupportedFile):
		return "unsupported"
	case errors.Is(err, classification.ErrOracleUnavailable), errors.Is(err, classification.ErrMalformedOracleOutput):
		return "oracle_error"
	}
	return "error"
}

func kindName(kind extractor.SourceKind) string {
	switch kind {
	case extractor.KindTabular:
		return "tabular"
	case extractor.KindFreeForm:
		return "free_form"
	}
	return "unknown"
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// normalizeText strips a UTF-8 BOM and decodes Latin-1 input, which is what
// most accounting packages export.
func normalizeText(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		data = data[3:]
	}
	if utf8.Valid(data) {
		return data
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return []byte(string(runes))
}
