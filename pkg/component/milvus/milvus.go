// Package milvus 提供基于 milvus client/v2 的轻量客户端。
//
// 集合使用固定结构：字符串主键 id、浮点向量 embedding 与 JSON 列 payload。
// 元数据全部放进 payload，过滤通过 JSON 路径表达式完成。
package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	milvusopts "github.com/kart-io/storybook-rag/pkg/options/milvus"
)

// 固定字段名。
const (
	FieldID        = "id"
	FieldEmbedding = "embedding"
	FieldPayload   = "payload"
)

const idMaxLength = 64

// Client Milvus 客户端。
type Client struct {
	client *milvusclient.Client
	opts   *milvusopts.Options
}

// New 建立连接。
func New(ctx context.Context, opts *milvusopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("milvus options is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  opts.Address,
		Username: opts.Username,
		Password: opts.Password,
		DBName:   opts.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	return &Client{client: c, opts: opts}, nil
}

// Ping 以一次集合查询确认服务可达。
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption("health_check")); err != nil {
		return fmt.Errorf("milvus health check failed: %w", err)
	}
	return nil
}

// Close 关闭连接。
func (c *Client) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// HasCollection 判断集合是否存在。
func (c *Client) HasCollection(ctx context.Context, name string) (bool, error) {
	return c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(name))
}

// CreateCollection 创建集合、余弦索引并加载到内存。集合已存在时直接返回。
func (c *Client) CreateCollection(ctx context.Context, name string, dim int) error {
	exists, err := c.HasCollection(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	schema := entity.NewSchema().
		WithName(name).
		WithField(entity.NewField().
			WithName(FieldID).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(idMaxLength).
			WithIsPrimaryKey(true)).
		WithField(entity.NewField().
			WithName(FieldEmbedding).
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(dim))).
		WithField(entity.NewField().
			WithName(FieldPayload).
			WithDataType(entity.FieldTypeJSON))

	if err := c.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(name, schema)); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx := index.NewIvfFlatIndex(entity.COSINE, 128)
	task, err := c.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(name, FieldEmbedding, idx))
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := task.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for index creation: %w", err)
	}

	return c.load(ctx, name)
}

func (c *Client) load(ctx context.Context, name string) error {
	task, err := c.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(name))
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if err := task.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for collection loading: %w", err)
	}
	return nil
}

// Row 一行待写入数据，Payload 为 JSON 编码后的元数据。
type Row struct {
	ID        string
	Embedding []float32
	Payload   []byte
}

// Upsert 写入并 flush，保证返回后可检索。
func (c *Client) Upsert(ctx context.Context, name string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	ids := make([]string, len(rows))
	vectors := make([][]float32, len(rows))
	payloads := make([][]byte, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
		vectors[i] = r.Embedding
		payloads[i] = r.Payload
	}

	opt := milvusclient.NewColumnBasedInsertOption(name,
		column.NewColumnVarChar(FieldID, ids),
		column.NewColumnFloatVector(FieldEmbedding, len(vectors[0]), vectors),
		column.NewColumnJSONBytes(FieldPayload, payloads),
	)
	if _, err := c.client.Upsert(ctx, opt); err != nil {
		return fmt.Errorf("failed to upsert data: %w", err)
	}

	task, err := c.client.Flush(ctx, milvusclient.NewFlushOption(name))
	if err != nil {
		return fmt.Errorf("failed to flush collection: %w", err)
	}
	if err := task.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for flush: %w", err)
	}
	return nil
}

// Hit 检索或查询命中的一行。
type Hit struct {
	ID      string
	Score   float32
	Payload []byte
}

// Search 向量检索，expr 为空时不过滤。
func (c *Client) Search(ctx context.Context, name string, vector []float32, topK int, expr string) ([]Hit, error) {
	opt := milvusclient.NewSearchOption(name, topK, []entity.Vector{entity.FloatVector(vector)}).
		WithANNSField(FieldEmbedding).
		WithSearchParam("nprobe", "16").
		WithOutputFields(FieldPayload)
	if expr != "" {
		opt = opt.WithFilter(expr)
	}

	results, err := c.client.Search(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	if len(results) == 0 {
		return []Hit{}, nil
	}
	rs := results[0]

	hits := make([]Hit, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		hit := Hit{Score: rs.Scores[i]}
		if ids, ok := rs.IDs.(*column.ColumnVarChar); ok {
			hit.ID = ids.Data()[i]
		}
		if col, ok := rs.GetColumn(FieldPayload).(*column.ColumnJSONBytes); ok {
			hit.Payload = col.Data()[i]
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Query 按表达式查询，至多返回 limit 行。
func (c *Client) Query(ctx context.Context, name, expr string, limit int) ([]Hit, error) {
	rs, err := c.client.Query(ctx, milvusclient.NewQueryOption(name).
		WithFilter(expr).
		WithOutputFields(FieldID, FieldPayload).
		WithLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	ids, _ := rs.GetColumn(FieldID).(*column.ColumnVarChar)
	payloads, _ := rs.GetColumn(FieldPayload).(*column.ColumnJSONBytes)
	if ids == nil || payloads == nil {
		return []Hit{}, nil
	}

	hits := make([]Hit, 0, ids.Len())
	for i, id := range ids.Data() {
		hits = append(hits, Hit{ID: id, Payload: payloads.Data()[i]})
	}
	return hits, nil
}

// DropCollection 删除集合。
func (c *Client) DropCollection(ctx context.Context, name string) error {
	if err := c.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(name)); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}
