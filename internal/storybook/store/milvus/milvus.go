//go:build milvus

package milvus

import (
	"context"
	"fmt"

	"github.com/kart-io/storybook-rag/internal/storybook/store"
	component "github.com/kart-io/storybook-rag/pkg/component/milvus"
	milvusopts "github.com/kart-io/storybook-rag/pkg/options/milvus"
	"github.com/kart-io/storybook-rag/pkg/utils/json"
)

// Store 基于 Milvus 的向量存储，元数据保存在 JSON 列中。
type Store struct {
	client *component.Client
}

var _ store.VectorStore = (*Store)(nil)

// New 连接 Milvus 并创建存储。
func New(ctx context.Context, opts *milvusopts.Options) (store.VectorStore, error) {
	client, err := component.New(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Store{client: client}, nil
}

// HasCollection 判断集合是否存在。
func (s *Store) HasCollection(ctx context.Context, name string) (bool, error) {
	return s.client.HasCollection(ctx, CollectionName(name))
}

// EnsureCollection 创建集合。
func (s *Store) EnsureCollection(ctx context.Context, name string, dim int) error {
	return s.client.CreateCollection(ctx, CollectionName(name), dim)
}

// EnsureFieldIndex 无操作：JSON 列上的精确匹配由表达式过滤完成。
func (s *Store) EnsureFieldIndex(context.Context, string, string) error {
	return nil
}

// Upsert 写入点。
func (s *Store) Upsert(ctx context.Context, name string, points []store.Point) error {
	rows := make([]component.Row, 0, len(points))
	for _, p := range points {
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("point %s: encode payload: %w", p.ID, err)
		}
		rows = append(rows, component.Row{ID: p.ID, Embedding: p.Vector, Payload: payload})
	}
	return s.client.Upsert(ctx, CollectionName(name), rows)
}

// Search 最近邻检索。
func (s *Store) Search(ctx context.Context, name string, vector []float32, k int) ([]store.Candidate, error) {
	hits, err := s.client.Search(ctx, CollectionName(name), vector, k, "")
	if err != nil {
		return nil, err
	}
	return decodeHits(hits)
}

// Scroll 按过滤表达式查询。
func (s *Store) Scroll(ctx context.Context, name string, filter store.Filter, limit int) ([]store.Candidate, error) {
	hits, err := s.client.Query(ctx, CollectionName(name), Expr(filter), limit)
	if err != nil {
		return nil, err
	}
	return decodeHits(hits)
}

// Name 返回健康检查使用的组件名。
func (s *Store) Name() string { return "milvus" }

// Ping 检查 Milvus 是否可达。
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close 关闭连接。
func (s *Store) Close() error {
	return s.client.Close(context.Background())
}

func decodeHits(hits []component.Hit) ([]store.Candidate, error) {
	out := make([]store.Candidate, 0, len(hits))
	for _, h := range hits {
		payload := make(map[string]any)
		if len(h.Payload) > 0 {
			if err := json.Unmarshal(h.Payload, &payload); err != nil {
				return nil, fmt.Errorf("point %s: decode payload: %w", h.ID, err)
			}
		}
		out = append(out, store.Candidate{ID: h.ID, Score: h.Score, Payload: payload})
	}
	return out, nil
}
