package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Dhruvmer/assemblyParts/internal/core/domain"
	"github.com/Dhruvmer/assemblyParts/internal/port"
)

// MemoryAdapter is an in-memory part store. Transactions are serialized by
// a store-wide mutex; writes are buffered on the transaction handle and
// applied only when the transactional function returns nil, so an abort
// leaves no trace. It backs the tests and the load generator.
type MemoryAdapter struct {
	mu    sync.Mutex
	parts map[string]*domain.Part
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{parts: make(map[string]*domain.Part)}
}

func (m *MemoryAdapter) Get(ctx context.Context, id string) (*domain.Part, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.parts[id]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

func (m *MemoryAdapter) Exists(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.parts[id]
	return ok, nil
}

func (m *MemoryAdapter) List(ctx context.Context) ([]domain.Part, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Part, 0, len(m.parts))
	for _, p := range m.parts {
		out = append(out, *p.Clone())
	}
	return out, nil
}

func (m *MemoryAdapter) Create(ctx context.Context, part domain.Part) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.parts[part.ID]; ok {
		return fmt.Errorf("%w: %s", domain.ErrPartExists, part.ID)
	}
	m.parts[part.ID] = part.Clone()
	return nil
}

func (m *MemoryAdapter) SetQuantity(ctx context.Context, id string, quantity int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.parts[id]
	if !ok {
		return &domain.PartNotFoundError{PartID: id}
	}
	p.Quantity = quantity
	p.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryAdapter) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.parts[id]; !ok {
		return &domain.PartNotFoundError{PartID: id}
	}
	delete(m.parts, id)
	return nil
}

func (m *MemoryAdapter) CountByName(ctx context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, p := range m.parts {
		if strings.EqualFold(p.Name, name) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryAdapter) Transactionally(ctx context.Context, fn func(tx port.PartTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{parts: m.parts, deltas: make(map[string]int64)}
	if err := fn(tx); err != nil {
		return err
	}

	now := time.Now()
	for id, delta := range tx.deltas {
		p := m.parts[id]
		p.Quantity += delta
		p.UpdatedAt = now
	}
	return nil
}

// memoryTx overlays buffered quantity deltas on the shared part map. The
// store mutex is held for the whole transaction, so reads here must not
// lock again.
type memoryTx struct {
	parts  map[string]*domain.Part
	deltas map[string]int64
}

func (t *memoryTx) Get(ctx context.Context, id string) (*domain.Part, error) {
	p, ok := t.parts[id]
	if !ok {
		return nil, nil
	}
	cp := p.Clone()
	cp.Quantity += t.deltas[id]
	return cp, nil
}

func (t *memoryTx) ApplyDelta(ctx context.Context, id string, delta int64) error {
	p, ok := t.parts[id]
	if !ok {
		return &domain.PartNotFoundError{PartID: id}
	}
	if next := p.Quantity + t.deltas[id] + delta; next < 0 {
		return fmt.Errorf("%w: part %s would reach %d", domain.ErrStockConflict, id, next)
	}
	t.deltas[id] += delta
	return nil
}
