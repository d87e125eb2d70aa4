package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/ledger"
	"github.com/FACorreiaa/smart-balance-sheet/pkg/money"
)

var (
	ErrNotFound         = errors.New("client not found")
	ErrImportInProgress = errors.New("an import is already in progress for this client")
)

// Client is an entity whose balance sheet is being assembled.
type Client struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Currency   string    `json:"currency"`
	Regulation string    `json:"regulation"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HasCustomModel reports whether the client classifies against its own chart
// of accounts instead of the standard one.
func (c *Client) HasCustomModel() bool {
	return c.Regulation != ""
}

// DB is the subset of *pgxpool.Pool used by the repository.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists clients and their line sets.
type Repository interface {
	Create(ctx context.Context, c *Client) error
	Get(ctx context.Context, id uuid.UUID) (*Client, error)
	List(ctx context.Context) ([]*Client, error)
	SetRegulation(ctx context.Context, id uuid.UUID, regulation string) error
	Lines(ctx context.Context, id uuid.UUID) ([]ledger.Line, error)
	ReplaceLines(ctx context.Context, id uuid.UUID, lines []ledger.Line) error

	Line(ctx context.Context, id, lineID uuid.UUID) (ledger.Line, error)
	InsertLine(ctx context.Context, id uuid.UUID, line ledger.Line) error
	UpdateLine(ctx context.Context, id uuid.UUID, line ledger.Line) error
	DeleteLine(ctx context.Context, id, lineID uuid.UUID) error
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db DB
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a new PostgreSQL client repository
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new client
func (r *PostgresRepository) Create(ctx context.Context, c *Client) error {
	query := `
		INSERT INTO clients (id, name, currency, regulation)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Currency == "" {
		c.Currency = money.DefaultCurrency
	}

	err := r.db.QueryRow(ctx, query, c.ID, c.Name, c.Currency, c.Regulation).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

// Get retrieves a client by ID
func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*Client, error) {
	query := `
		SELECT id, name, currency, regulation, created_at, updated_at
		FROM clients
		WHERE id = $1`

	c := &Client{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Name,
		&c.Currency,
		&c.Regulation,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return c, nil
}

// List returns all clients ordered by name
func (r *PostgresRepository) List(ctx context.Context) ([]*Client, error) {
	query := `
		SELECT id, name, currency, regulation, created_at, updated_at
		FROM clients
		ORDER BY name ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	clients := make([]*Client, 0)
	for rows.Next() {
		c := &Client{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Currency, &c.Regulation, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, nil
}

// SetRegulation stores the client's custom regulation text. Empty text
// returns the client to the standard model.
func (r *PostgresRepository) SetRegulation(ctx context.Context, id uuid.UUID, regulation string) error {
	query := `UPDATE clients SET regulation = $2, updated_at = now() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, regulation)
	if err != nil {
		return fmt.Errorf("failed to update regulation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const lineColumns = `id, code, name, debit::text, credit::text, balance::text, section, category, is_group, manual_override`

var lineCopyColumns = []string{
	"id", "client_id", "position", "code", "name", "debit", "credit", "balance",
	"section", "category", "is_group", "manual_override",
}

// Lines returns the client's line set in stored order.
func (r *PostgresRepository) Lines(ctx context.Context, id uuid.UUID) ([]ledger.Line, error) {
	query := `SELECT ` + lineColumns + `
		FROM ledger_lines
		WHERE client_id = $1
		ORDER BY position ASC`

	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list lines: %w", err)
	}
	defer rows.Close()

	lines := make([]ledger.Line, 0)
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list lines: %w", err)
	}
	return lines, nil
}

// Line returns one line of the client's set.
func (r *PostgresRepository) Line(ctx context.Context, id, lineID uuid.UUID) (ledger.Line, error) {
	query := `SELECT ` + lineColumns + `
		FROM ledger_lines
		WHERE client_id = $1 AND id = $2`

	l, err := scanLine(r.db.QueryRow(ctx, query, id, lineID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Line{}, fmt.Errorf("%w: %s", ErrLineNotFound, lineID)
	}
	if err != nil {
		return ledger.Line{}, err
	}
	return l, nil
}

func scanLine(row pgx.Row) (ledger.Line, error) {
	var (
		l                      ledger.Line
		debit, credit, balance string
		section                string
	)
	err := row.Scan(
		&l.ID,
		&l.Code,
		&l.Name,
		&debit,
		&credit,
		&balance,
		&section,
		&l.Category,
		&l.IsGroup,
		&l.ManualOverride,
	)
	if err != nil {
		return ledger.Line{}, fmt.Errorf("failed to scan line: %w", err)
	}
	if l.Debit, err = decimal.NewFromString(debit); err != nil {
		return ledger.Line{}, fmt.Errorf("failed to parse debit of line %s: %w", l.ID, err)
	}
	if l.Credit, err = decimal.NewFromString(credit); err != nil {
		return ledger.Line{}, fmt.Errorf("failed to parse credit of line %s: %w", l.ID, err)
	}
	if l.Balance, err = decimal.NewFromString(balance); err != nil {
		return ledger.Line{}, fmt.Errorf("failed to parse balance of line %s: %w", l.ID, err)
	}
	l.Section = ledger.ParseSection(section)
	return l, nil
}

// ReplaceLines swaps the client's whole line set for lines in one transaction.
// The new set is written with a single COPY.
func (r *PostgresRepository) ReplaceLines(ctx context.Context, id uuid.UUID, lines []ledger.Line) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := replaceLines(ctx, tx, id, lines); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit line set: %w", err)
	}
	return nil
}

func replaceLines(ctx context.Context, tx pgx.Tx, id uuid.UUID, lines []ledger.Line) error {
	result, err := tx.Exec(ctx, `UPDATE clients SET updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to touch client: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM ledger_lines WHERE client_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear line set: %w", err)
	}
	if len(lines) == 0 {
		return nil
	}

	rows := make([][]any, len(lines))
	for i, l := range lines {
		rows[i] = []any{
			l.ID,
			id,
			i,
			l.Code,
			l.Name,
			numeric(l.Debit),
			numeric(l.Credit),
			numeric(l.Balance),
			string(l.Section),
			l.Category,
			l.IsGroup,
			l.ManualOverride,
		}
	}

	copied, err := tx.CopyFrom(ctx, pgx.Identifier{"ledger_lines"}, lineCopyColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy line set: %w", err)
	}
	if copied != int64(len(lines)) {
		return fmt.Errorf("failed to copy line set: wrote %d of %d lines", copied, len(lines))
	}
	return nil
}

// InsertLine stores line ahead of every existing line of the client.
func (r *PostgresRepository) InsertLine(ctx context.Context, id uuid.UUID, line ledger.Line) error {
	query := `
		INSERT INTO ledger_lines (id, client_id, position, code, name, debit, credit, balance, section, category, is_group, manual_override)
		SELECT $1, $2, COALESCE(MIN(position), 0) - 1, $3, $4, $5::text::numeric, $6::text::numeric, $7::text::numeric, $8, $9, $10, $11
		FROM ledger_lines
		WHERE client_id = $2`

	_, err := r.db.Exec(ctx, query,
		line.ID,
		id,
		line.Code,
		line.Name,
		line.Debit.String(),
		line.Credit.String(),
		line.Balance.String(),
		string(line.Section),
		line.Category,
		line.IsGroup,
		line.ManualOverride,
	)
	if err != nil {
		return fmt.Errorf("failed to insert line: %w", err)
	}
	return nil
}

// UpdateLine overwrites the stored fields of line, keeping its position.
func (r *PostgresRepository) UpdateLine(ctx context.Context, id uuid.UUID, line ledger.Line) error {
	query := `
		UPDATE ledger_lines
		SET code = $3, name = $4,
			debit = $5::text::numeric, credit = $6::text::numeric, balance = $7::text::numeric,
			section = $8, category = $9, is_group = $10, manual_override = $11
		WHERE client_id = $1 AND id = $2`

	result, err := r.db.Exec(ctx, query,
		id,
		line.ID,
		line.Code,
		line.Name,
		line.Debit.String(),
		line.Credit.String(),
		line.Balance.String(),
		string(line.Section),
		line.Category,
		line.IsGroup,
		line.ManualOverride,
	)
	if err != nil {
		return fmt.Errorf("failed to update line: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrLineNotFound, line.ID)
	}
	return nil
}

// DeleteLine removes one line. Removing an unknown line is not an error.
func (r *PostgresRepository) DeleteLine(ctx context.Context, id, lineID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM ledger_lines WHERE client_id = $1 AND id = $2`, id, lineID); err != nil {
		return fmt.Errorf("failed to delete line: %w", err)
	}
	return nil
}

func numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}
