// Package reranker 在嵌入空间中对检索候选重新排序。
//
// 重排使用与检索相互独立的嵌入模型，对查询和每个候选文本分别编码，
// 按余弦相似度降序排列；相似度相同的候选保持输入顺序。
package reranker

import (
	"context"
	"fmt"
	"sort"

	"github.com/kart-io/logger"
	"github.com/kart-io/storybook-rag/internal/pkg/rag/textutil"
	"github.com/kart-io/storybook-rag/pkg/llm"
)

// DefaultTopN 默认保留的候选数量。
const DefaultTopN = 3

// Ranked 一个重排结果，Index 指向输入切片中的位置。
type Ranked struct {
	Index int
	Score float64
}

// Reranker 嵌入相似度重排器。
type Reranker struct {
	embedder llm.EmbeddingProvider
}

// New 创建重排器。
func New(embedder llm.EmbeddingProvider) *Reranker {
	return &Reranker{embedder: embedder}
}

// Rerank 返回 min(topN, len(texts)) 个结果，topN<=0 时取 DefaultTopN。
// 只有一个候选时不调用嵌入模型，原样返回。
func (r *Reranker) Rerank(ctx context.Context, query string, texts []string, topN int) ([]Ranked, error) {
	if topN <= 0 {
		topN = DefaultTopN
	}

	switch len(texts) {
	case 0:
		return []Ranked{}, nil
	case 1:
		return []Ranked{{Index: 0, Score: 1}}, nil
	}

	inputs := make([]string, 0, len(texts)+1)
	inputs = append(inputs, query)
	inputs = append(inputs, texts...)

	vecs, err := r.embedder.Embed(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("rerank embedding: %w", err)
	}
	if len(vecs) != len(inputs) {
		return nil, fmt.Errorf("rerank embedding: expected %d vectors, got %d", len(inputs), len(vecs))
	}

	queryVec := vecs[0]
	ranked := make([]Ranked, len(texts))
	for i := range texts {
		ranked[i] = Ranked{Index: i, Score: textutil.CosineSimilarity(queryVec, vecs[i+1])}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	logger.Debugw("rerank finished", "candidates", len(texts), "kept", len(ranked), "embedder", r.embedder.Name())
	return ranked, nil
}
