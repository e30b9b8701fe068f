package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kart-io/storybook-rag/internal/pkg/rag/textutil"
)

// MemoryStore 进程内向量存储，用于开发与测试。
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	dim     int
	indexes map[string]bool
	order   []string
	points  map[string]Point
}

var _ VectorStore = (*MemoryStore)(nil)

// NewMemoryStore 创建空的内存存储。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memCollection)}
}

// HasCollection 判断集合是否存在。
func (m *MemoryStore) HasCollection(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.collections[name]
	return ok, nil
}

// EnsureCollection 创建集合。
func (m *MemoryStore) EnsureCollection(ctx context.Context, name string, dim int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dim <= 0 {
		return fmt.Errorf("invalid dimension %d", dim)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; ok {
		return nil
	}
	m.collections[name] = &memCollection{
		dim:     dim,
		indexes: make(map[string]bool),
		points:  make(map[string]Point),
	}
	return nil
}

// EnsureFieldIndex 记录字段索引，内存实现的过滤不依赖索引。
func (m *MemoryStore) EnsureFieldIndex(ctx context.Context, name, field string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	c.indexes[field] = true
	return nil
}

// FieldIndexes 返回集合已创建的字段索引。
func (m *MemoryStore) FieldIndexes(name string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[name]
	if !ok {
		return nil
	}
	fields := make([]string, 0, len(c.indexes))
	for f := range c.indexes {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Upsert 写入点。同一 ID 覆盖旧值但保留原有位置。
func (m *MemoryStore) Upsert(ctx context.Context, name string, points []Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	for _, p := range points {
		if len(p.Vector) != c.dim {
			return fmt.Errorf("point %s: dimension %d, collection expects %d", p.ID, len(p.Vector), c.dim)
		}
	}
	for _, p := range points {
		if _, exists := c.points[p.ID]; !exists {
			c.order = append(c.order, p.ID)
		}
		c.points[p.ID] = Point{ID: p.ID, Vector: p.Vector, Payload: copyPayload(p.Payload)}
	}
	return nil
}

// Count 返回集合中的点数。
func (m *MemoryStore) Count(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.collections[name]; ok {
		return len(c.order)
	}
	return 0
}

// Search 余弦相似度检索，分数相同按写入顺序。
func (m *MemoryStore) Search(ctx context.Context, name string, vector []float32, k int) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}

	out := make([]Candidate, 0, len(c.order))
	for _, id := range c.order {
		p := c.points[id]
		out = append(out, Candidate{
			ID:      id,
			Score:   float32(textutil.CosineSimilarity(vector, p.Vector)),
			Payload: copyPayload(p.Payload),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if k >= 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// Scroll 按写入顺序返回满足过滤条件的点。
func (m *MemoryStore) Scroll(ctx context.Context, name string, filter Filter, limit int) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}

	out := make([]Candidate, 0)
	for _, id := range c.order {
		if limit >= 0 && len(out) >= limit {
			break
		}
		p := c.points[id]
		if filter.Matches(p.Payload) {
			out = append(out, Candidate{ID: id, Payload: copyPayload(p.Payload)})
		}
	}
	return out, nil
}

// Close 无操作。
func (m *MemoryStore) Close() error { return nil }

func copyPayload(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
