package classification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/import/extractor"
	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/ledger"
	"github.com/FACorreiaa/smart-balance-sheet/pkg/money"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// generateFunc sends one request to the model and returns its text.
type generateFunc func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error)

// GeminiOracle is an Oracle backed by a Gemini model.
type GeminiOracle struct {
	model    string
	logger   *slog.Logger
	generate generateFunc
}

var _ Oracle = (*GeminiOracle)(nil)

// NewGeminiOracle creates a Gemini client for apiKey. Document text is sent
// as given; callers bound its size.
func NewGeminiOracle(ctx context.Context, apiKey, model string, logger *slog.Logger) (*GeminiOracle, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing Gemini API key", ErrOracleUnavailable)
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return newGeminiOracle(model, logger, func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, model, contents, config)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}), nil
}

func newGeminiOracle(model string, logger *slog.Logger, generate generateFunc) *GeminiOracle {
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiOracle{
		model:    model,
		logger:   logger,
		generate: generate,
	}
}

type columnsResponse struct {
	CodeIndex    *int `json:"code_index"`
	NameIndex    *int `json:"name_index"`
	DebitIndex   *int `json:"debit_index"`
	CreditIndex  *int `json:"credit_index"`
	BalanceIndex *int `json:"balance_index"`
	StartRow     *int `json:"start_row"`
}

// InferColumns asks the model for the column roles of sample. Roles the
// model leaves out are absent.
func (o *GeminiOracle) InferColumns(ctx context.Context, sample [][]string) (extractor.ColumnMapping, error) {
	rows, err := json.Marshal(sample)
	if err != nil {
		return extractor.EmptyMapping(), fmt.Errorf("failed to encode sample: %w", err)
	}

	var resp columnsResponse
	if err := o.ask(ctx, "infer_columns", genai.Text(fmt.Sprintf(inferColumnsPrompt, rows)), &resp); err != nil {
		return extractor.EmptyMapping(), err
	}

	index := func(v *int) int {
		if v == nil || *v < 0 {
			return extractor.Absent
		}
		return *v
	}
	mapping := extractor.ColumnMapping{
		CodeCol:    index(resp.CodeIndex),
		NameCol:    index(resp.NameIndex),
		DebitCol:   index(resp.DebitIndex),
		CreditCol:  index(resp.CreditIndex),
		BalanceCol: index(resp.BalanceIndex),
	}
	if resp.StartRow != nil && *resp.StartRow > 0 {
		mapping.StartRow = *resp.StartRow
	}
	return mapping, nil
}

type lineResponse struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Debit   json.RawMessage `json:"debit"`
	Credit  json.RawMessage `json:"credit"`
	Balance json.RawMessage `json:"balance"`
}

// ExtractLines sends a PDF as inline data, or the document text, and decodes
// the lines the model returns.
func (o *GeminiOracle) ExtractLines(ctx context.Context, doc Document) ([]ledger.RawLine, error) {
	parts := []*genai.Part{{Text: extractLinesPrompt}}
	if doc.IsPDF() {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: "application/pdf",
				Data:     doc.Data,
			},
		})
	} else {
		text := doc.Text
		if text == "" {
			text = string(doc.Data)
		}
		parts = append(parts, &genai.Part{Text: text})
	}

	contents := []*genai.Content{{Role: "user", Parts: parts}}

	var resp []lineResponse
	if err := o.ask(ctx, "extract_lines", contents, &resp); err != nil {
		return nil, err
	}

	lines := make([]ledger.RawLine, 0, len(resp))
	for _, r := range resp {
		name := strings.Join(strings.Fields(r.Name), " ")
		if name == "" {
			continue
		}
		lines = append(lines, rawLineFromAmounts(
			strings.TrimSpace(r.Code), name,
			jsonAmount(r.Debit), jsonAmount(r.Credit), jsonAmount(r.Balance),
		))
	}
	return lines, nil
}

type classifyLine struct {
	Index   int    `json:"index"`
	Code    string `json:"code,omitempty"`
	Name    string `json:"name"`
	Balance string `json:"balance"`
}

type classifyResponse struct {
	Index    *int   `json:"index"`
	Section  string `json:"section"`
	Category string `json:"category"`
	IsGroup  bool   `json:"is_group"`
}

// Classify asks the model for a section and category per line. Entries
// with an unknown section or an index outside lines are dropped, which makes
// those lines fall back to Unclassified when merged.
func (o *GeminiOracle) Classify(ctx context.Context, lines []ledger.RawLine, regulation string) (Mapping, error) {
	payload := make([]classifyLine, len(lines))
	for i, l := range lines {
		payload[i] = classifyLine{Index: i, Code: l.Code, Name: l.Name, Balance: l.Balance.StringFixed(2)}
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode lines: %w", err)
	}

	prompt := fmt.Sprintf(classifyPrompt, categoryGuide(regulation), encoded)

	var resp []classifyResponse
	if err := o.ask(ctx, "classify", genai.Text(prompt), &resp); err != nil {
		return nil, err
	}

	custom := strings.TrimSpace(regulation) != ""
	mapping := make(Mapping, len(resp))
	dropped := 0
	for _, r := range resp {
		if r.Index == nil || *r.Index < 0 || *r.Index >= len(lines) {
			dropped++
			continue
		}
		section, ok := ledger.LookupSection(r.Section)
		if !ok {
			dropped++
			continue
		}
		category := strings.TrimSpace(r.Category)
		if !custom {
			category = Canonicalize(section, category)
		}
		mapping[*r.Index] = Classification{Section: section, Category: category, IsGroup: r.IsGroup}
	}

	if dropped > 0 {
		o.logger.WarnContext(ctx, "Dropped unusable classification entries",
			slog.Int("dropped", dropped),
			slog.Int("lines", len(lines)))
	}

	return mapping, nil
}

// ask runs one request and decodes the JSON answer into out.
func (o *GeminiOracle) ask(ctx context.Context, op string, contents []*genai.Content, out any) error {
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0.1)),
		ResponseMIMEType: "application/json",
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
	}

	start := time.Now()
	text, err := o.generate(ctx, contents, config)
	if err != nil {
		o.logger.ErrorContext(ctx, "Gemini request failed",
			slog.String("op", op),
			slog.String("model", o.model),
			slog.Any("error", err))
		return fmt.Errorf("%w: %s: %v", ErrOracleUnavailable, op, err)
	}

	o.logger.DebugContext(ctx, "Gemini request completed",
		slog.String("op", op),
		slog.String("model", o.model),
		slog.Duration("duration", time.Since(start)),
		slog.Int("response_chars", len(text)))

	if err := decodeModelJSON(text, out); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// decodeModelJSON strips code fences and surrounding prose, then decodes.
// Output that does not decode is repaired once before giving up.
func decodeModelJSON(raw string, out any) error {
	clean := cleanModelJSON(raw)
	if clean == "" {
		return fmt.Errorf("%w: empty response", ErrMalformedOracleOutput)
	}

	if err := json.Unmarshal([]byte(clean), out); err == nil {
		return nil
	}

	repaired, err := jsonrepair.RepairJSON(clean)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOracleOutput, err)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOracleOutput, err)
	}
	return nil
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return ""
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Keep only the outermost array or object.
	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return s
	}
	closer := "]"
	if s[start] == '{' {
		closer = "}"
	}
	if end := strings.LastIndex(s, closer); end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}

// jsonAmount reads a number, a numeric string or null.
func jsonAmount(raw json.RawMessage) decimal.Decimal {
	return money.ParseLenient(strings.Trim(string(raw), `"`))
}

// rawLineFromAmounts applies the extraction amount rules to model output:
// debit/credit when either is set, otherwise the signed balance.
func rawLineFromAmounts(code, name string, debit, credit, balance decimal.Decimal) ledger.RawLine {
	line := ledger.RawLine{Code: code, Name: name}
	if !debit.IsZero() || !credit.IsZero() {
		line.Debit = debit
		line.Credit = credit
		line.Balance = debit.Sub(credit)
		return line
	}
	line.Balance = balance
	line.Debit = decimal.Max(balance, decimal.Zero)
	line.Credit = decimal.Max(balance.Neg(), decimal.Zero)
	return line
}

