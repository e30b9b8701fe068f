package reranker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// axisEmbedder 将已知文本映射到固定向量，便于断言排序。
type axisEmbedder struct {
	vectors map[string][]float32
	calls   int
	err     error
}

func (e *axisEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := e.vectors[t]
		if !ok {
			v = []float32{0, 0, 1}
		}
		out[i] = v
	}
	return out, nil
}

func (e *axisEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *axisEmbedder) Name() string { return "axis" }

func newEmbedder() *axisEmbedder {
	return &axisEmbedder{vectors: map[string][]float32{
		"query": {1, 0, 0},
		"best":  {1, 0, 0},
		"good":  {0.8, 0.6, 0},
		"okay":  {0.6, 0.8, 0},
		"bad":   {0, 1, 0},
	}}
}

func indices(ranked []Ranked) []int {
	out := make([]int, len(ranked))
	for i, r := range ranked {
		out[i] = r.Index
	}
	return out
}

func TestRerank(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		topN  int
		want  []int
	}{
		{"按相似度降序", []string{"bad", "okay", "best", "good"}, 3, []int{2, 3, 1}},
		{"topN 大于候选数", []string{"bad", "best"}, 5, []int{1, 0}},
		{"topN 为零取默认值", []string{"bad", "okay", "good", "best"}, 0, []int{3, 2, 1}},
		{"相同分数保持输入顺序", []string{"x1", "best", "x2", "x3"}, 4, []int{1, 0, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(newEmbedder())
			ranked, err := r.Rerank(context.Background(), "query", tt.texts, tt.topN)
			require.NoError(t, err)
			assert.Equal(t, tt.want, indices(ranked))

			for i := 1; i < len(ranked); i++ {
				assert.GreaterOrEqual(t, ranked[i-1].Score, ranked[i].Score)
			}
		})
	}
}

func TestRerankSingleCandidate(t *testing.T) {
	e := newEmbedder()
	ranked, err := New(e).Rerank(context.Background(), "query", []string{"bad"}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, indices(ranked))
	assert.Zero(t, e.calls)
}

func TestRerankEmpty(t *testing.T) {
	ranked, err := New(newEmbedder()).Rerank(context.Background(), "query", nil, 3)
	require.NoError(t, err)
	assert.NotNil(t, ranked)
	assert.Empty(t, ranked)
}

func TestRerankEmbedderError(t *testing.T) {
	e := newEmbedder()
	e.err = errors.New("quota exceeded")

	_, err := New(e).Rerank(context.Background(), "query", []string{"a", "b"}, 3)
	assert.ErrorIs(t, err, e.err)
}
