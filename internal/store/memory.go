package store

import (
	"context"
	"sync"

	"bizonboard/internal/profile"
)

// Memory keeps profiles in process memory. Nothing survives a restart.
type Memory struct {
	mu   sync.Mutex
	docs map[string]*profile.Profile
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]*profile.Profile)}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Get(ctx context.Context, accountID string) (*profile.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("get", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.docs[accountID]
	if !ok {
		return nil, profile.ErrNotFound
	}
	return p.Clone(), nil
}

func (m *Memory) Create(ctx context.Context, p *profile.Profile) error {
	if err := ctx.Err(); err != nil {
		return unavailable("create", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[p.AccountID]; ok {
		return profile.ErrAlreadyExists
	}
	m.docs[p.AccountID] = p.Clone()
	return nil
}

func (m *Memory) Put(ctx context.Context, p *profile.Profile) error {
	if err := ctx.Err(); err != nil {
		return unavailable("put", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[p.AccountID] = p.Clone()
	return nil
}

// Update runs fn under the repository lock, so it is trivially serialized
// against every other write.
func (m *Memory) Update(ctx context.Context, accountID string, fn profile.UpdateFunc) (*profile.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("update", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := fn(m.docs[accountID].Clone())
	if err != nil {
		return nil, err
	}
	if next, err = prepare(accountID, next); err != nil {
		return nil, err
	}
	m.docs[accountID] = next.Clone()
	return next, nil
}

// Len reports how many documents are stored.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

func (m *Memory) Close() error { return nil }
