package storage

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// ErrNotFound is returned by Load when nothing has been saved yet.
var ErrNotFound = errors.New("recipe state not found")

// RecipeState persists the raw JSON document holding every recipe record.
type RecipeState interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// MemoryRecipeState is an in-memory implementation for tests and local runs.
type MemoryRecipeState struct {
	mu   sync.Mutex
	data []byte
	err  error
}

func NewMemoryRecipeState(data []byte) *MemoryRecipeState {
	return &MemoryRecipeState{data: slices.Clone(data)}
}

// NewMemoryRecipeStateWithError returns a state whose Load and Save always fail with err.
func NewMemoryRecipeStateWithError(err error) *MemoryRecipeState {
	return &MemoryRecipeState{err: err}
}

func (m *MemoryRecipeState) Load(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.data == nil {
		return nil, ErrNotFound
	}
	return slices.Clone(m.data), nil
}

func (m *MemoryRecipeState) Save(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data = slices.Clone(data)
	return nil
}
