package biz

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kart-io/logger"

	"github.com/kart-io/storybook-rag/internal/storybook/store"
	"github.com/kart-io/storybook-rag/pkg/errors"
	"github.com/kart-io/storybook-rag/pkg/infra/pool"
	"github.com/kart-io/storybook-rag/pkg/llm"
)

const (
	// DefaultDimensions 默认嵌入维度。
	DefaultDimensions = 512
	// DefaultEmbedBatchSize 每次嵌入调用的文本数。
	DefaultEmbedBatchSize = 16
)

// DefaultIndexFields 需要精确匹配索引的 payload 字段。
var DefaultIndexFields = []string{store.FieldKeywords, store.FieldSummary, store.FieldType}

// IndexerConfig 索引器配置。
type IndexerConfig struct {
	Dimensions  int
	BatchSize   int
	IndexFields []string
}

// DefaultIndexerConfig 返回默认配置。
func DefaultIndexerConfig() *IndexerConfig {
	return &IndexerConfig{
		Dimensions:  DefaultDimensions,
		BatchSize:   DefaultEmbedBatchSize,
		IndexFields: DefaultIndexFields,
	}
}

// Indexer 将文本嵌入后写入向量集合。
type Indexer struct {
	store    store.VectorStore
	embedder llm.EmbeddingProvider
	pool     *pool.Pool
	config   *IndexerConfig
}

// NewIndexer 创建索引器。p 为 nil 时批次按顺序嵌入。
func NewIndexer(vs store.VectorStore, embedder llm.EmbeddingProvider, p *pool.Pool, cfg *IndexerConfig) *Indexer {
	if cfg == nil {
		cfg = DefaultIndexerConfig()
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultEmbedBatchSize
	}
	return &Indexer{store: vs, embedder: embedder, pool: p, config: cfg}
}

// Dimensions 返回集合向量维度。
func (x *Indexer) Dimensions() int { return x.config.Dimensions }

// Index 嵌入 texts 并写入 collection。metadatas 与 texts 一一对应。
//
// 集合与字段索引的创建是幂等的；字段索引失败只记录告警。
// 任何嵌入或写入失败都会中止整个调用，不会留下部分写入的点。
func (x *Indexer) Index(ctx context.Context, collection string, texts []string, metadatas []map[string]any) error {
	if len(texts) != len(metadatas) {
		return errors.ErrInvalidRequest.WithMessagef("texts and metadatas length mismatch: %d != %d", len(texts), len(metadatas))
	}

	vectors, err := x.embed(ctx, texts)
	if err != nil {
		return errors.ErrIngestionFailed.WithCause(fmt.Errorf("embed: %w", err))
	}

	if err := x.store.EnsureCollection(ctx, collection, x.config.Dimensions); err != nil {
		return errors.ErrIngestionFailed.WithCause(fmt.Errorf("ensure collection: %w", err))
	}

	for _, field := range x.config.IndexFields {
		if err := x.store.EnsureFieldIndex(ctx, collection, field); err != nil {
			logger.Warnw("failed to create payload index",
				"collection", collection,
				"field", field,
				"error", err.Error(),
			)
		}
	}

	if len(texts) == 0 {
		return nil
	}

	points := make([]store.Point, len(texts))
	for i, text := range texts {
		payload := make(map[string]any, len(metadatas[i])+1)
		for k, v := range metadatas[i] {
			payload[k] = v
		}
		payload[store.PayloadPageContent] = text
		points[i] = store.Point{
			ID:      uuid.NewString(),
			Vector:  vectors[i],
			Payload: payload,
		}
	}

	if err := x.store.Upsert(ctx, collection, points); err != nil {
		return errors.ErrIngestionFailed.WithCause(fmt.Errorf("upsert: %w", err))
	}

	logger.Infow("indexed chunks", "collection", collection, "points", len(points))
	return nil
}

// embed 分批嵌入，结果顺序与输入一致。
func (x *Indexer) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	size := x.config.BatchSize
	batches := (len(texts) + size - 1) / size

	task := func(ctx context.Context, b int) error {
		start := b * size
		end := min(start+size, len(texts))
		out, err := x.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return err
		}
		if len(out) != end-start {
			return fmt.Errorf("embedding count mismatch: got %d, want %d", len(out), end-start)
		}
		for i, v := range out {
			if len(v) != x.config.Dimensions {
				return fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(v), x.config.Dimensions)
			}
			vectors[start+i] = v
		}
		return nil
	}

	if x.pool == nil {
		for b := 0; b < batches; b++ {
			if err := task(ctx, b); err != nil {
				return nil, err
			}
		}
		return vectors, nil
	}
	if err := x.pool.Run(ctx, batches, task); err != nil {
		return nil, err
	}
	return vectors, nil
}
