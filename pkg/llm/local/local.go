// Package local 提供无需网络的哈希嵌入供应商。
//
// 文本被切成词元与字符三元组，经 FNV 哈希映射到固定维度并做 L2 归一化。
// 它适合离线开发、测试，以及在重排阶段作为与检索模型相互独立的嵌入器。
package local

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/kart-io/storybook-rag/pkg/llm"
)

// ProviderName 本地哈希嵌入供应商名称。
const ProviderName = "local"

// DefaultDimensions 默认向量维度。
const DefaultDimensions = 512

func init() {
	llm.RegisterEmbeddingProvider(ProviderName, func(config map[string]any) (llm.EmbeddingProvider, error) {
		dim, _ := config["dimensions"].(int)
		return New(dim), nil
	})
}

// Embedder 哈希嵌入器。
type Embedder struct {
	dim int
}

// New 创建哈希嵌入器，dim<=0 时使用 DefaultDimensions。
func New(dim int) *Embedder {
	if dim <= 0 {
		dim = DefaultDimensions
	}
	return &Embedder{dim: dim}
}

// Name 返回供应商名称。
func (e *Embedder) Name() string { return ProviderName }

// Dimensions 返回向量维度。
func (e *Embedder) Dimensions() int { return e.dim }

// Embed 为多个文本生成向量嵌入。
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(t)
	}
	return out, nil
}

// EmbedSingle 为单个文本生成向量嵌入。
func (e *Embedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.vector(text), nil
}

func (e *Embedder) vector(text string) []float32 {
	vec := make([]float32, e.dim)

	for _, tok := range tokenize(text) {
		e.add(vec, "w:"+tok, 1)

		runes := []rune(tok)
		for i := 0; i+3 <= len(runes); i++ {
			e.add(vec, "g:"+string(runes[i:i+3]), 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

func (e *Embedder) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()

	idx := int(sum % uint64(e.dim))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && !unicode.Is(unicode.Mn, r)
	})
}
