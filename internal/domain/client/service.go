package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/ledger"
	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/statement"
)

var (
	ErrNameRequired = errors.New("client name is required")
	ErrLineNotFound = errors.New("line not found")
)

// clientState serialises writes to one client's line set.
type clientState struct {
	mu        sync.Mutex
	importing atomic.Bool
}

// Service owns each client's line set. Edits are serialised per client and
// at most one import per client runs at a time; different clients proceed
// in parallel.
type Service struct {
	repo   Repository
	logger *slog.Logger

	mu     sync.Mutex
	states map[uuid.UUID]*clientState
}

// NewService creates a new client service
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		states: make(map[uuid.UUID]*clientState),
	}
}

// state returns the write state of a client the caller has already found in
// the repository, so unknown IDs never get an entry.
func (s *Service) state(id uuid.UUID) *clientState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[id]
	if !ok {
		st = &clientState{}
		s.states[id] = st
	}
	return st
}

// lock takes the write lock of an existing client.
func (s *Service) lock(ctx context.Context, id uuid.UUID) (*clientState, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	st := s.state(id)
	st.mu.Lock()
	return st, nil
}

// Create registers a new client.
func (s *Service) Create(ctx context.Context, name, currency, regulation string) (*Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	c := &Client{
		Name:       name,
		Currency:   strings.ToUpper(strings.TrimSpace(currency)),
		Regulation: strings.TrimSpace(regulation),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("client created",
		slog.String("client_id", c.ID.String()),
		slog.Bool("custom_model", c.HasCustomModel()),
	)
	return c, nil
}

// Get returns a client by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Client, error) {
	return s.repo.Get(ctx, id)
}

// List returns every client.
func (s *Service) List(ctx context.Context) ([]*Client, error) {
	return s.repo.List(ctx)
}

// SetRegulation replaces the client's custom regulation text.
func (s *Service) SetRegulation(ctx context.Context, id uuid.UUID, regulation string) (*Client, error) {
	if err := s.repo.SetRegulation(ctx, id, strings.TrimSpace(regulation)); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Lines returns the client's current line set.
func (s *Service) Lines(ctx context.Context, id uuid.UUID) ([]ledger.Line, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Lines(ctx, id)
}

// Import runs produce while holding the client's import slot and replaces
// the stored line set with its result. A second import for the same client
// fails with ErrImportInProgress until the first returns.
func (s *Service) Import(ctx context.Context, id uuid.UUID, produce func(ctx context.Context, c *Client) ([]ledger.Line, error)) ([]ledger.Line, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	st := s.state(id)
	if !st.importing.CompareAndSwap(false, true) {
		return nil, ErrImportInProgress
	}
	defer st.importing.Store(false)

	lines, err := produce(ctx, c)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if err := s.repo.ReplaceLines(ctx, id, lines); err != nil {
		return nil, err
	}

	s.logger.Info("line set replaced",
		slog.String("client_id", id.String()),
		slog.Int("lines", len(lines)),
	)
	return lines, nil
}

// AddLine prepends a blank manual line and returns it.
func (s *Service) AddLine(ctx context.Context, id uuid.UUID) (ledger.Line, error) {
	st, err := s.lock(ctx, id)
	if err != nil {
		return ledger.Line{}, err
	}
	defer st.mu.Unlock()

	line := ledger.NewManualLine()
	if err := s.repo.InsertLine(ctx, id, line); err != nil {
		return ledger.Line{}, err
	}
	return line, nil
}

// EditLine sets one field of a line and returns the updated line.
func (s *Service) EditLine(ctx context.Context, id, lineID uuid.UUID, field, value string) (ledger.Line, error) {
	f, err := ledger.ParseField(field)
	if err != nil {
		return ledger.Line{}, err
	}

	st, err := s.lock(ctx, id)
	if err != nil {
		return ledger.Line{}, err
	}
	defer st.mu.Unlock()

	current, err := s.repo.Line(ctx, id, lineID)
	if err != nil {
		return ledger.Line{}, err
	}
	next, err := ledger.EditField([]ledger.Line{current}, lineID, f, value)
	if err != nil {
		return ledger.Line{}, err
	}
	if err := s.repo.UpdateLine(ctx, id, next[0]); err != nil {
		return ledger.Line{}, err
	}
	return next[0], nil
}

// DeleteLine removes a line. Deleting an unknown line succeeds.
func (s *Service) DeleteLine(ctx context.Context, id, lineID uuid.UUID) error {
	st, err := s.lock(ctx, id)
	if err != nil {
		return err
	}
	defer st.mu.Unlock()

	return s.repo.DeleteLine(ctx, id, lineID)
}

// Statement aggregates the client's current line set.
func (s *Service) Statement(ctx context.Context, id uuid.UUID) (*Client, statement.Statement, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, statement.Statement{}, err
	}
	lines, err := s.repo.Lines(ctx, id)
	if err != nil {
		return nil, statement.Statement{}, err
	}
	return c, statement.Aggregate(lines, statement.OrderingContext{HasCustomModel: c.HasCustomModel()}), nil
}

// Findings checks the client's current line set.
func (s *Service) Findings(ctx context.Context, id uuid.UUID) ([]ledger.Finding, error) {
	lines, err := s.Lines(ctx, id)
	if err != nil {
		return nil, err
	}
	return statement.Check(lines), nil
}

// ExportXLSX writes the client's statement as a workbook.
func (s *Service) ExportXLSX(ctx context.Context, id uuid.UUID, out io.Writer) error {
	c, st, err := s.Statement(ctx, id)
	if err != nil {
		return err
	}
	return statement.WriteXLSX(out, st, statement.ExportOptions{Title: c.Name, Currency: c.Currency})
}
