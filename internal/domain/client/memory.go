package client

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/ledger"
	"github.com/FACorreiaa/smart-balance-sheet/pkg/money"
)

// MemoryRepository implements Repository in process memory. It backs local
// runs without a database and the service tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]Client
	lines   map[uuid.UUID][]ledger.Line
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		clients: make(map[uuid.UUID]Client),
		lines:   make(map[uuid.UUID][]ledger.Line),
	}
}

func (r *MemoryRepository) Create(_ context.Context, c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Currency == "" {
		c.Currency = money.DefaultCurrency
	}
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	r.clients[c.ID] = *c
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *MemoryRepository) List(_ context.Context) ([]*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		c := c
		clients = append(clients, &c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].Name < clients[j].Name })
	return clients, nil
}

func (r *MemoryRepository) SetRegulation(_ context.Context, id uuid.UUID, regulation string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[id]
	if !ok {
		return ErrNotFound
	}
	c.Regulation = regulation
	c.UpdatedAt = time.Now()
	r.clients[id] = c
	return nil
}

func (r *MemoryRepository) Lines(_ context.Context, id uuid.UUID) ([]ledger.Line, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := ledger.Clone(r.lines[id])
	if out == nil {
		out = []ledger.Line{}
	}
	return out, nil
}

func (r *MemoryRepository) ReplaceLines(_ context.Context, id uuid.UUID, lines []ledger.Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[id]
	if !ok {
		return ErrNotFound
	}
	c.UpdatedAt = time.Now()
	r.clients[id] = c
	r.lines[id] = ledger.Clone(lines)
	return nil
}

func (r *MemoryRepository) Line(_ context.Context, id, lineID uuid.UUID) (ledger.Line, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lines := r.lines[id]
	i := ledger.IndexOf(lines, lineID)
	if i < 0 {
		return ledger.Line{}, fmt.Errorf("%w: %s", ErrLineNotFound, lineID)
	}
	return lines[i], nil
}

func (r *MemoryRepository) InsertLine(_ context.Context, id uuid.UUID, line ledger.Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[id]; !ok {
		return ErrNotFound
	}
	r.lines[id] = append([]ledger.Line{line}, r.lines[id]...)
	return nil
}

func (r *MemoryRepository) UpdateLine(_ context.Context, id uuid.UUID, line ledger.Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lines := r.lines[id]
	i := ledger.IndexOf(lines, line.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrLineNotFound, line.ID)
	}
	lines[i] = line
	return nil
}

func (r *MemoryRepository) DeleteLine(_ context.Context, id, lineID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lines, ok := r.lines[id]; ok {
		r.lines[id] = ledger.DeleteLine(lines, lineID)
	}
	return nil
}
