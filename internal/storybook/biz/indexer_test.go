package biz

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/storybook-rag/internal/storybook/store"
	"github.com/kart-io/storybook-rag/pkg/errors"
	"github.com/kart-io/storybook-rag/pkg/infra/pool"
	"github.com/kart-io/storybook-rag/pkg/llm/local"
)

func metas(n int) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = map[string]any{store.FieldChunkIndex: i, store.FieldKeywords: []string{"tale"}}
	}
	return out
}

func TestIndexerLengthMismatch(t *testing.T) {
	idx := NewIndexer(store.NewMemoryStore(), local.New(DefaultDimensions), nil, nil)
	err := idx.Index(context.Background(), "c", []string{"a", "b"}, metas(1))
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestIndexerIdempotentCreation(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	idx := NewIndexer(mem, local.New(DefaultDimensions), nil, nil)

	texts := []string{"پہلا حصہ", "دوسرا حصہ", "تیسرا حصہ"}
	require.NoError(t, idx.Index(ctx, "story-1", texts, metas(3)))
	require.NoError(t, idx.Index(ctx, "story-1", texts, metas(3)))

	assert.Equal(t, 6, mem.Count("story-1"), "second call duplicates points")
	assert.Equal(t, []string{store.FieldKeywords, store.FieldSummary, store.FieldType}, mem.FieldIndexes("story-1"))

	hits, err := mem.Scroll(ctx, "story-1", store.Filter{}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "پہلا حصہ", hits[0].Text())
	assert.Equal(t, 0, hits[0].Payload[store.FieldChunkIndex])
	assert.NotEmpty(t, hits[0].ID)
}

func TestIndexerParallelBatchesPreserveOrder(t *testing.T) {
	ctx := context.Background()
	p, err := pool.NewPool("embed-test", &pool.Config{Capacity: 4})
	require.NoError(t, err)
	defer p.Release()

	mem := store.NewMemoryStore()
	embedder := local.New(DefaultDimensions)
	idx := NewIndexer(mem, embedder, p, &IndexerConfig{BatchSize: 2})

	texts := make([]string, 11)
	for i := range texts {
		texts[i] = fmt.Sprintf("حصہ نمبر %d", i)
	}
	require.NoError(t, idx.Index(ctx, "c", texts, metas(len(texts))))

	for i, text := range texts {
		want, err := embedder.EmbedSingle(ctx, text)
		require.NoError(t, err)
		hits, err := mem.Search(ctx, "c", want, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, text, hits[0].Text(), "text %d", i)
		assert.Equal(t, i, hits[0].Payload[store.FieldChunkIndex])
	}
}

func TestIndexerFailuresAbort(t *testing.T) {
	tests := []struct {
		name     string
		store    func() store.VectorStore
		dim      int
		wantRows int
	}{
		{
			name:  "写入失败",
			store: func() store.VectorStore { return &flakyStore{MemoryStore: store.NewMemoryStore(), failUpsert: true} },
			dim:   DefaultDimensions,
		},
		{
			name:  "维度不一致",
			store: func() store.VectorStore { return store.NewMemoryStore() },
			dim:   128,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs := tt.store()
			idx := NewIndexer(vs, local.New(tt.dim), nil, nil)
			err := idx.Index(context.Background(), "c", []string{"a", "b"}, metas(2))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrIngestionFailed))
		})
	}
}

func TestIndexerFieldIndexFailureIsSwallowed(t *testing.T) {
	vs := &flakyStore{MemoryStore: store.NewMemoryStore(), failIndex: true}
	idx := NewIndexer(vs, local.New(DefaultDimensions), nil, nil)

	require.NoError(t, idx.Index(context.Background(), "c", []string{"a"}, metas(1)))
	assert.Empty(t, vs.FieldIndexes("c"))
	assert.Equal(t, 1, vs.Count("c"))
}
