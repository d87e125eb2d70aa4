package classification

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/ledger"
)

// KeywordRule classifies lines whose account name contains Keyword.
type KeywordRule struct {
	Keyword  string `yaml:"keyword"`
	Section  string `yaml:"section"`
	Category string `yaml:"category"`
}

// CodePrefixRule classifies lines whose account code starts with Prefix.
// Category may be empty.
type CodePrefixRule struct {
	Prefix   string `yaml:"prefix"`
	Section  string `yaml:"section"`
	Category string `yaml:"category,omitempty"`
}

// RuleSet is the YAML document consumed by the rule oracle.
type RuleSet struct {
	Keywords     []KeywordRule    `yaml:"keywords"`
	CodePrefixes []CodePrefixRule `yaml:"code_prefixes"`
}

// LoadRules decodes a YAML rule set.
func LoadRules(r io.Reader) (RuleSet, error) {
	var rules RuleSet
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&rules); err != nil {
		if err == io.EOF {
			return RuleSet{}, nil
		}
		return RuleSet{}, fmt.Errorf("failed to decode rules: %w", err)
	}
	return rules, nil
}

// LoadRulesFile reads a YAML rule set from path.
func LoadRulesFile(path string) (RuleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("failed to open rules file: %w", err)
	}
	defer f.Close()
	return LoadRules(f)
}

// Merge returns a rule set with other's rules ahead of r's. Keyword ties are
// decided by order, so other wins.
func (r RuleSet) Merge(other RuleSet) RuleSet {
	return RuleSet{
		Keywords:     append(append([]KeywordRule(nil), other.Keywords...), r.Keywords...),
		CodePrefixes: append(append([]CodePrefixRule(nil), other.CodePrefixes...), r.CodePrefixes...),
	}
}

// Validate checks that every rule names a known section.
func (r RuleSet) Validate() error {
	for _, k := range r.Keywords {
		if strings.TrimSpace(k.Keyword) == "" {
			return fmt.Errorf("keyword rule with empty keyword")
		}
		if _, ok := ledger.LookupSection(k.Section); !ok {
			return fmt.Errorf("keyword %q: unknown section %q", k.Keyword, k.Section)
		}
	}
	for _, p := range r.CodePrefixes {
		if strings.TrimSpace(p.Prefix) == "" {
			return fmt.Errorf("code prefix rule with empty prefix")
		}
		if _, ok := ledger.LookupSection(p.Section); !ok {
			return fmt.Errorf("code prefix %q: unknown section %q", p.Prefix, p.Section)
		}
	}
	return nil
}

// sortedPrefixes returns the prefix rules longest first, keeping file order
// among equal lengths.
func (r RuleSet) sortedPrefixes() []CodePrefixRule {
	prefixes := append([]CodePrefixRule(nil), r.CodePrefixes...)
	sort.SliceStable(prefixes, func(i, j int) bool {
		return len(prefixes[i].Prefix) > len(prefixes[j].Prefix)
	})
	return prefixes
}

// DefaultRules is the built-in rule set for Spanish and English charts of
// accounts numbered 1 assets, 2 liabilities, 3 equity, 4 revenue, 5-6 expenses.
func DefaultRules() RuleSet {
	kw := func(section ledger.Section, category string, keywords ...string) []KeywordRule {
		rules := make([]KeywordRule, len(keywords))
		for i, k := range keywords {
			rules[i] = KeywordRule{Keyword: k, Section: string(section), Category: category}
		}
		return rules
	}

	var keywords []KeywordRule
	for _, group := range [][]KeywordRule{
		kw(ledger.SectionAsset, "Cash and Banks", "caja", "banco", "cash", "bank account", "efectivo", "valores a depositar"),
		kw(ledger.SectionAsset, "Investments", "inversiones", "investments", "plazo fijo"),
		kw(ledger.SectionAsset, "Trade Receivables", "deudores por ventas", "clientes", "accounts receivable", "trade receivables"),
		kw(ledger.SectionAsset, "Other Receivables", "otros creditos", "anticipo", "credito fiscal", "other receivables"),
		kw(ledger.SectionAsset, "Inventories", "mercaderias", "bienes de cambio", "inventor", "stock"),
		kw(ledger.SectionAsset, "Property, Plant and Equipment", "bienes de uso", "rodados", "muebles y utiles", "inmuebles", "instalaciones", "equipment", "vehicles", "amortizacion acumulada"),
		kw(ledger.SectionAsset, "Intangible Assets", "intangible", "marcas", "software", "goodwill", "llave de negocio"),
		kw(ledger.SectionLiability, "Trade Payables", "proveedores", "suppliers", "accounts payable", "trade payables"),
		kw(ledger.SectionLiability, "Bank and Financial Loans", "prestamo", "loan", "descubierto", "overdraft"),
		kw(ledger.SectionLiability, "Payroll and Social Security", "sueldos a pagar", "cargas sociales a pagar", "salaries payable", "payroll"),
		kw(ledger.SectionLiability, "Tax Liabilities", "debito fiscal", "impuestos a pagar", "impuesto a las ganancias a pagar", "tax payable"),
		kw(ledger.SectionLiability, "Provisions", "provision", "prevision"),
		kw(ledger.SectionEquity, "Capital", "capital social", "capital suscripto", "share capital"),
		kw(ledger.SectionEquity, "Capital Adjustment", "ajuste de capital", "ajuste del capital"),
		kw(ledger.SectionEquity, "Reserves", "reserva", "reserves"),
		kw(ledger.SectionEquity, "Retained Earnings", "resultados no asignados", "resultados acumulados", "retained earnings"),
		kw(ledger.SectionRevenue, "Sales", "ventas", "sales", "ingresos por servicios", "revenue"),
		kw(ledger.SectionRevenue, "Other Income", "otros ingresos", "other income"),
		kw(ledger.SectionRevenue, "Financial Income", "intereses ganados", "interest income"),
		kw(ledger.SectionExpense, "Cost of Sales", "costo de ventas", "costo de mercaderias vendidas", "cost of sales", "cost of goods sold"),
		kw(ledger.SectionExpense, "Administrative Expenses", "gastos de administracion", "honorarios", "alquileres", "sueldos y jornales", "administrative", "rent expense"),
		kw(ledger.SectionExpense, "Selling Expenses", "gastos de comercializacion", "publicidad", "comisiones", "selling", "advertising"),
		kw(ledger.SectionExpense, "Financial Expenses", "intereses pagados", "intereses perdidos", "gastos bancarios", "interest expense", "bank charges"),
		kw(ledger.SectionExpense, "Income Tax", "impuesto a las ganancias", "income tax"),
	} {
		keywords = append(keywords, group...)
	}

	return RuleSet{
		Keywords: keywords,
		CodePrefixes: []CodePrefixRule{
			{Prefix: "1", Section: string(ledger.SectionAsset)},
			{Prefix: "2", Section: string(ledger.SectionLiability)},
			{Prefix: "3", Section: string(ledger.SectionEquity)},
			{Prefix: "4", Section: string(ledger.SectionRevenue)},
			{Prefix: "5", Section: string(ledger.SectionExpense)},
			{Prefix: "6", Section: string(ledger.SectionExpense)},
		},
	}
}
