package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterMatches(t *testing.T) {
	payload := map[string]any{
		FieldType:       TypeSummary,
		FieldSummary:    "ایک لومڑی کی کہانی",
		FieldKeywords:   []any{"لومڑی", "انگور"},
		FieldChunkIndex: -1,
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"空过滤", Filter{}, true},
		{"标量相等", Filter{Must: []Match{{FieldType, TypeSummary}}}, true},
		{"标量不等", Filter{Must: []Match{{FieldType, "chunk"}}}, false},
		{"列表包含", Filter{Should: []Match{{FieldKeywords, "انگور"}}}, true},
		{"任一满足", Filter{Should: []Match{{FieldKeywords, "شیر"}, {FieldSummary, "ایک لومڑی کی کہانی"}}}, true},
		{"均不满足", Filter{Should: []Match{{FieldKeywords, "شیر"}, {FieldSummary, "x"}}}, false},
		{"整数字段", Filter{Must: []Match{{FieldChunkIndex, "-1"}}}, true},
		{"缺失字段", Filter{Must: []Match{{FieldSourcePDF, "a.pdf"}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(payload))
		})
	}
}

func TestFilterMatchesStringSlice(t *testing.T) {
	f := Filter{Must: []Match{{FieldKeywords, "b"}}}
	assert.True(t, f.Matches(map[string]any{FieldKeywords: []string{"a", "b"}}))
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	ok, err := s.HasCollection(ctx, "story-abc1234")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.EnsureCollection(ctx, "story-abc1234", 2))
	require.NoError(t, s.EnsureCollection(ctx, "story-abc1234", 2))
	require.NoError(t, s.EnsureFieldIndex(ctx, "story-abc1234", FieldType))
	require.NoError(t, s.EnsureFieldIndex(ctx, "story-abc1234", FieldType))
	assert.Equal(t, []string{FieldType}, s.FieldIndexes("story-abc1234"))

	ok, err = s.HasCollection(ctx, "story-abc1234")
	require.NoError(t, err)
	assert.True(t, ok)

	err = s.Upsert(ctx, "story-abc1234", []Point{
		{ID: "1", Vector: []float32{1, 0}, Payload: map[string]any{PayloadPageContent: "east"}},
		{ID: "2", Vector: []float32{0, 1}, Payload: map[string]any{PayloadPageContent: "north", FieldType: TypeSummary}},
		{ID: "3", Vector: []float32{1, 0}, Payload: map[string]any{PayloadPageContent: "east again"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Count("story-abc1234"))

	hits, err := s.Search(ctx, "story-abc1234", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "east", hits[0].Text())
	assert.Equal(t, "east again", hits[1].Text())

	scrolled, err := s.Scroll(ctx, "story-abc1234", Filter{Must: []Match{{FieldType, TypeSummary}}}, 1)
	require.NoError(t, err)
	require.Len(t, scrolled, 1)
	assert.Equal(t, "north", scrolled[0].Text())
	assert.Equal(t, map[string]any{FieldType: TypeSummary}, scrolled[0].Metadata())
}

func TestMemoryStoreErrors(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Search(ctx, "missing", []float32{1}, 3)
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	_, err = s.Scroll(ctx, "missing", Filter{}, 3)
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	assert.Error(t, s.EnsureCollection(ctx, "bad", 0))

	require.NoError(t, s.EnsureCollection(ctx, "c", 3))
	err = s.Upsert(ctx, "c", []Point{{ID: "1", Vector: []float32{1, 2, 3}}, {ID: "2", Vector: []float32{1}}})
	assert.Error(t, err)
	assert.Equal(t, 0, s.Count("c"), "a rejected batch must not be partially written")
}

func TestMemoryStoreUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.EnsureCollection(ctx, "c", 1))

	require.NoError(t, s.Upsert(ctx, "c", []Point{{ID: "a", Vector: []float32{1}, Payload: map[string]any{PayloadPageContent: "v1"}}}))
	require.NoError(t, s.Upsert(ctx, "c", []Point{{ID: "a", Vector: []float32{1}, Payload: map[string]any{PayloadPageContent: "v2"}}}))

	assert.Equal(t, 1, s.Count("c"))
	hits, err := s.Scroll(ctx, "c", Filter{}, 10)
	require.NoError(t, err)
	assert.Equal(t, "v2", hits[0].Text())
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("qdrant")
	require.NoError(t, err)
	assert.Equal(t, KindQdrant, k)

	_, err = ParseKind("pinecone")
	assert.Error(t, err)
}
