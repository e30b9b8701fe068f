package checkpoint

import (
	"context"
	"sync"

	"github.com/kart-io/storybook-rag/internal/storybook/model"
)

// MemoryStore 进程内检查点存储。
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*model.ThreadState
}

// NewMemoryStore 创建内存存储。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]*model.ThreadState)}
}

// Load 读取状态副本。
func (m *MemoryStore) Load(ctx context.Context, threadID string) (*model.ThreadState, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[threadID]
	if !ok {
		return nil, false, nil
	}
	return s.Clone(), true, nil
}

// Save 保存状态副本。
func (m *MemoryStore) Save(ctx context.Context, state *model.ThreadState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(state); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.ThreadID] = state.Clone()
	return nil
}

// Len 返回线程数。
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}
