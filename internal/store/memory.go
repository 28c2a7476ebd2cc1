package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-process Store.
type Memory struct {
	mu       sync.RWMutex
	opts     options
	diagrams map[string]Diagram
	versions map[string][]Version // diagram ID -> versions, oldest first
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...Option) *Memory {
	return &Memory{
		opts:     defaultOptions(opts),
		diagrams: make(map[string]Diagram),
		versions: make(map[string][]Version),
	}
}

// ListDiagrams implements Store.
func (m *Memory) ListDiagrams(_ context.Context, userID string) ([]Diagram, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Diagram, 0, len(m.diagrams))
	for _, d := range m.diagrams {
		if visible(d, userID) {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// GetDiagram implements Store.
func (m *Memory) GetDiagram(_ context.Context, id string) (*Diagram, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.diagrams[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

// CreateDiagram implements Store.
func (m *Memory) CreateDiagram(_ context.Context, d *Diagram) (*Diagram, error) {
	out, err := m.opts.prepareDiagram(d)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.diagrams[out.ID]; exists {
		return nil, fmt.Errorf("%w: id %q already exists", ErrInvalid, out.ID)
	}
	m.diagrams[out.ID] = out
	return &out, nil
}

// UpdateDiagram implements Store.
func (m *Memory) UpdateDiagram(_ context.Context, id string, p Patch) (*Diagram, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.diagrams[id]
	if !ok {
		return nil, ErrNotFound
	}
	updated, err := p.apply(d, m.opts.now())
	if err != nil {
		return nil, err
	}
	m.diagrams[id] = updated
	return &updated, nil
}

// DeleteDiagram implements Store.
func (m *Memory) DeleteDiagram(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.diagrams[id]; !ok {
		return ErrNotFound
	}
	delete(m.diagrams, id)
	delete(m.versions, id)
	return nil
}

// CreateVersion implements Store.
func (m *Memory) CreateVersion(_ context.Context, v *Version) (*Version, error) {
	out, err := m.opts.prepareVersion(v)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.diagrams[out.DiagramID]; !ok {
		return nil, ErrNotFound
	}
	m.versions[out.DiagramID] = append(m.versions[out.DiagramID], out)
	return &out, nil
}

// ListVersions implements Store.
func (m *Memory) ListVersions(_ context.Context, diagramID string) ([]Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.diagrams[diagramID]; !ok {
		return nil, ErrNotFound
	}
	stored := m.versions[diagramID]
	result := make([]Version, len(stored))
	for i, v := range stored {
		result[len(stored)-1-i] = v
	}
	return result, nil
}

// Close implements Store.
func (m *Memory) Close() error {
	return nil
}
