package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/storybook-rag/internal/pkg/rag/textutil"
	"github.com/kart-io/storybook-rag/internal/storybook/metrics"
	"github.com/kart-io/storybook-rag/internal/storybook/store"
	"github.com/kart-io/storybook-rag/pkg/errors"
	"github.com/kart-io/storybook-rag/pkg/llm"
)

const (
	// DefaultTopK 默认检索数量。
	DefaultTopK = 5
	// dedupeKeyLen 去重键取正文前缀的字符数。
	dedupeKeyLen = 100
)

// DefaultTriggerTerms 触发摘要检索的词。
var DefaultTriggerTerms = []string{"خلاصہ", "مرکزی خیال", "theme", "summary", "main idea", "موضوع"}

// RetrieverConfig 检索配置。
type RetrieverConfig struct {
	TopK         int
	TriggerTerms []string
}

// DefaultRetrieverConfig 返回默认配置。
func DefaultRetrieverConfig() *RetrieverConfig {
	return &RetrieverConfig{TopK: DefaultTopK, TriggerTerms: DefaultTriggerTerms}
}

// HybridRetriever 合并摘要、关键词过滤与向量三路信号。
type HybridRetriever struct {
	store    store.VectorStore
	embedder llm.EmbeddingProvider
	metrics  *metrics.Metrics
	config   *RetrieverConfig
}

// NewHybridRetriever 创建检索器。
func NewHybridRetriever(vs store.VectorStore, embedder llm.EmbeddingProvider, m *metrics.Metrics, cfg *RetrieverConfig) *HybridRetriever {
	if cfg == nil {
		cfg = DefaultRetrieverConfig()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.TriggerTerms == nil {
		cfg.TriggerTerms = DefaultTriggerTerms
	}
	return &HybridRetriever{store: vs, embedder: embedder, metrics: m, config: cfg}
}

// Retrieve 检索 collection 中与 query 相关的至多 k 个候选。
//
// 集合不存在时返回空结果。只有向量检索失败会返回错误，
// 摘要与过滤信号失败时降级为空并记录在 Signals 中。
func (r *HybridRetriever) Retrieve(ctx context.Context, query, collection string, k int) (*Retrieval, error) {
	if k <= 0 {
		k = r.config.TopK
	}
	start := time.Now()
	defer func() { r.metrics.RecordRetrieval(time.Since(start)) }()

	result := &Retrieval{Candidates: []Candidate{}}

	exists, err := r.store.HasCollection(ctx, collection)
	if err != nil {
		logger.Warnw("collection lookup failed, treating as missing",
			"collection", collection,
			"error", err.Error(),
		)
		return result, nil
	}
	if !exists {
		logger.Debugw("collection not found", "collection", collection)
		return result, nil
	}

	vector, err := r.vectorSignal(ctx, query, collection, k)
	if err != nil {
		r.metrics.RecordSignal(string(ProvenanceVector), metrics.SignalDegraded)
		return nil, errors.ErrRetrievalFailed.WithCause(err)
	}
	summary := r.summarySignal(ctx, query, collection)
	filter := r.filterSignal(ctx, query, collection, k)

	result.Signals = []SignalResult{summary, filter, vector}
	for _, s := range result.Signals {
		r.metrics.RecordSignal(string(s.Signal), signalStatus(s))
	}

	result.Candidates = Merge(k, summary.Candidates, filter.Candidates, vector.Candidates)
	return result, nil
}

func (r *HybridRetriever) vectorSignal(ctx context.Context, query, collection string, k int) (SignalResult, error) {
	res := SignalResult{Signal: ProvenanceVector}
	vec, err := r.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return res, fmt.Errorf("embed query: %w", err)
	}
	hits, err := r.store.Search(ctx, collection, vec, k)
	if err != nil {
		return res, fmt.Errorf("vector search: %w", err)
	}
	res.Candidates = toCandidates(hits, ProvenanceVector)
	return res, nil
}

func (r *HybridRetriever) summarySignal(ctx context.Context, query, collection string) SignalResult {
	res := SignalResult{Signal: ProvenanceSummary}
	if !textutil.ContainsAny(query, r.config.TriggerTerms) {
		res.Skipped = true
		return res
	}
	hits, err := r.store.Scroll(ctx, collection, store.Filter{
		Must: []store.Match{{Field: store.FieldType, Value: store.TypeSummary}},
	}, 1)
	if err != nil {
		logger.Warnw("summary retrieval degraded", "collection", collection, "signal", ProvenanceSummary, "error", err.Error())
		res.Degraded, res.Err = true, err
		return res
	}
	res.Candidates = toCandidates(hits, ProvenanceSummary)
	return res
}

func (r *HybridRetriever) filterSignal(ctx context.Context, query, collection string, k int) SignalResult {
	res := SignalResult{Signal: ProvenanceFilter}
	hits, err := r.store.Scroll(ctx, collection, store.Filter{
		Should: []store.Match{
			{Field: store.FieldKeywords, Value: query},
			{Field: store.FieldSummary, Value: query},
		},
	}, k)
	if err != nil {
		logger.Warnw("filter retrieval degraded", "collection", collection, "signal", ProvenanceFilter, "error", err.Error())
		res.Degraded, res.Err = true, err
		return res
	}
	res.Candidates = toCandidates(hits, ProvenanceFilter)
	return res
}

// Merge 按参数顺序拼接候选，以正文前 100 个字符去重（先出现者保留），截断到 k。
func Merge(k int, groups ...[]Candidate) []Candidate {
	seen := make(map[string]struct{})
	out := make([]Candidate, 0, k)
	for _, group := range groups {
		for _, c := range group {
			key := textutil.TruncateString(c.Text, dedupeKeyLen)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, c)
		}
	}
	if len(out) > k {
		out = out[:k]
	}
	return out
}

func toCandidates(hits []store.Candidate, p Provenance) []Candidate {
	out := make([]Candidate, 0, len(hits))
	for _, h := range hits {
		out = append(out, Candidate{
			Text:       h.Text(),
			Metadata:   h.Metadata(),
			Provenance: p,
			Score:      float64(h.Score),
		})
	}
	return out
}

func signalStatus(s SignalResult) string {
	switch {
	case s.Skipped:
		return metrics.SignalSkipped
	case s.Degraded:
		return metrics.SignalDegraded
	case len(s.Candidates) == 0:
		return metrics.SignalEmpty
	default:
		return metrics.SignalOK
	}
}
