package ledger

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TestDataGenerator generates realistic ledger line sets using gofakeit.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a new test data generator with a random seed.
func NewTestDataGenerator() *TestDataGenerator {
	return &TestDataGenerator{
		faker: gofakeit.New(0), // Random seed
	}
}

// NewTestDataGeneratorWithSeed creates a generator with a specific seed for reproducibility.
func NewTestDataGeneratorWithSeed(seed int64) *TestDataGenerator {
	return &TestDataGenerator{
		faker: gofakeit.New(seed),
	}
}

var customCategories = []string{
	"Marketing Fund", "Escrow", "Related Parties", "Deferred Items",
	"Grants", "Shareholder Loans", "Royalties",
}

var accountNames = map[Section][]string{
	SectionAsset:        {"Caja", "Banco Nación cta. cte.", "Deudores por ventas", "Mercaderías", "Rodados", "Software"},
	SectionLiability:    {"Proveedores", "Préstamo bancario", "Sueldos a pagar", "IVA débito fiscal"},
	SectionEquity:       {"Capital social", "Reserva legal", "Resultados no asignados"},
	SectionRevenue:      {"Ventas", "Intereses ganados", "Otros ingresos"},
	SectionExpense:      {"Costo de ventas", "Honorarios", "Publicidad", "Gastos bancarios"},
	SectionUnclassified: {"Cuenta puente", "Diferencias de redondeo"},
}

// Amount returns a random amount between minCents and maxCents, in major units.
func (g *TestDataGenerator) Amount(minCents, maxCents int64) decimal.Decimal {
	if minCents > maxCents {
		minCents, maxCents = maxCents, minCents
	}
	cents := g.faker.Int64() % (maxCents - minCents + 1)
	if cents < 0 {
		cents = -cents
	}
	return decimal.New(minCents+cents, -2)
}

// Section returns a random section, Unclassified included.
func (g *TestDataGenerator) Section() Section {
	return Sections[g.faker.Number(0, len(Sections)-1)]
}

// Category returns a category of section: usually a standard one, sometimes
// a custom name missing from the priority table.
func (g *TestDataGenerator) Category(section Section) string {
	standard := StandardCategories(section)
	if len(standard) == 0 || g.faker.Number(0, 3) == 0 {
		return customCategories[g.faker.Number(0, len(customCategories)-1)]
	}
	return standard[g.faker.Number(0, len(standard)-1)]
}

// AccountName returns a plausible account name for section.
func (g *TestDataGenerator) AccountName(section Section) string {
	names := accountNames[section]
	return names[g.faker.Number(0, len(names)-1)]
}

// Line generates a single classified line. Roughly one line in ten is a
// group header.
func (g *TestDataGenerator) Line() Line {
	section := g.Section()
	debit, credit := decimal.Zero, decimal.Zero
	amount := g.Amount(1, 10_000_000)
	if g.faker.Bool() {
		debit = amount
	} else {
		credit = amount
	}

	return Line{
		ID:       uuid.New(),
		Code:     fmt.Sprintf("%d.%s", g.faker.Number(1, 6), g.faker.DigitN(3)),
		Name:     g.AccountName(section),
		Debit:    debit,
		Credit:   credit,
		Balance:  debit.Sub(credit),
		Section:  section,
		Category: g.Category(section),
		IsGroup:  g.faker.Number(0, 9) == 0,
	}
}

// Lines generates count random lines.
func (g *TestDataGenerator) Lines(count int) []Line {
	lines := make([]Line, count)
	for i := 0; i < count; i++ {
		lines[i] = g.Line()
	}
	return lines
}

// BalancedLines generates count lines plus a final equity line that makes
// the non-group balances sum to zero.
func (g *TestDataGenerator) BalancedLines(count int) []Line {
	lines := g.Lines(count)

	total := decimal.Zero
	for _, l := range lines {
		if !l.IsGroup {
			total = total.Add(l.Balance)
		}
	}

	closing := Line{
		ID:       uuid.New(),
		Code:     "3.999",
		Name:     "Resultados no asignados",
		Debit:    decimal.Max(total.Neg(), decimal.Zero),
		Credit:   decimal.Max(total, decimal.Zero),
		Balance:  total.Neg(),
		Section:  SectionEquity,
		Category: "Retained Earnings",
	}
	return append(lines, closing)
}
