//go:build !milvus

package store

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantStore 基于 Qdrant gRPC 客户端的向量存储。
type QdrantStore struct {
	client *qdrant.Client
}

var _ VectorStore = (*QdrantStore)(nil)

// NewQdrantStore 创建 Qdrant 存储。
func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	if cfg.Port <= 0 {
		cfg.Port = 6334
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	return &QdrantStore{client: client}, nil
}

// HasCollection 判断集合是否存在。
func (s *QdrantStore) HasCollection(ctx context.Context, name string) (bool, error) {
	return s.client.CollectionExists(ctx, name)
}

// EnsureCollection 以余弦距离创建集合。
func (s *QdrantStore) EnsureCollection(ctx context.Context, name string, dim int) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return nil
}

// EnsureFieldIndex 创建 keyword 类型的 payload 索引。
func (s *QdrantStore) EnsureFieldIndex(ctx context.Context, name, field string) error {
	_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: name,
		FieldName:      field,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create index on %s.%s: %w", name, field, err)
	}
	return nil
}

// Upsert 批量写入并等待落盘。
func (s *QdrantStore) Upsert(ctx context.Context, name string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		payload, err := qdrant.TryValueMap(toQdrantPayload(p.Payload))
		if err != nil {
			return fmt.Errorf("point %s: invalid payload: %w", p.ID, err)
		}
		structs = append(structs, &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payload,
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Wait:           qdrant.PtrOf(true),
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d points into %s: %w", len(points), name, err)
	}
	return nil
}

// Search 最近邻检索。
func (s *QdrantStore) Search(ctx context.Context, name string, vector []float32, k int) ([]Candidate, error) {
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", name, err)
	}

	out := make([]Candidate, 0, len(results))
	for _, r := range results {
		out = append(out, Candidate{
			ID:      pointID(r.GetId()),
			Score:   r.GetScore(),
			Payload: fromQdrantPayload(r.GetPayload()),
		})
	}
	return out, nil
}

// Scroll 按过滤条件扫描。
func (s *QdrantStore) Scroll(ctx context.Context, name string, filter Filter, limit int) ([]Candidate, error) {
	results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: name,
		Filter:         toQdrantFilter(filter),
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scroll %s: %w", name, err)
	}

	out := make([]Candidate, 0, len(results))
	for _, r := range results {
		out = append(out, Candidate{
			ID:      pointID(r.GetId()),
			Payload: fromQdrantPayload(r.GetPayload()),
		})
	}
	return out, nil
}

// Name 返回健康检查使用的组件名。
func (s *QdrantStore) Name() string { return "qdrant" }

// Ping 调用 Qdrant 健康检查接口。
func (s *QdrantStore) Ping(ctx context.Context) error {
	_, err := s.client.HealthCheck(ctx)
	return err
}

// Close 关闭 gRPC 连接。
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func toQdrantFilter(f Filter) *qdrant.Filter {
	out := &qdrant.Filter{}
	for _, m := range f.Must {
		out.Must = append(out.Must, qdrant.NewMatch(m.Field, m.Value))
	}
	for _, m := range f.Should {
		out.Should = append(out.Should, qdrant.NewMatch(m.Field, m.Value))
	}
	return out
}

// toQdrantPayload 把 TryValueMap 不接受的切片类型展开为 []any。
func toQdrantPayload(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		switch val := v.(type) {
		case []string:
			list := make([]any, len(val))
			for i, s := range val {
				list[i] = s
			}
			out[k] = list
		default:
			out[k] = v
		}
	}
	return out
}

func fromQdrantPayload(p map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = fromQdrantValue(v)
	}
	return out
}

func fromQdrantValue(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		values := kind.ListValue.GetValues()
		list := make([]any, 0, len(values))
		for _, item := range values {
			list = append(list, fromQdrantValue(item))
		}
		return list
	case *qdrant.Value_StructValue:
		return fromQdrantPayload(kind.StructValue.GetFields())
	}
	return nil
}

func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return fmt.Sprintf("%d", id.GetNum())
}
