package biz

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kart-io/storybook-rag/internal/pkg/rag/reranker"
	"github.com/kart-io/storybook-rag/internal/storybook/store"
	"github.com/kart-io/storybook-rag/pkg/llm"
	"github.com/kart-io/storybook-rag/pkg/llm/local"
)

// scriptedChat 按提示内容返回预设回复并记录调用。
type scriptedChat struct {
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string) (string, error)
}

func newScriptedChat(reply func(prompt string) (string, error)) *scriptedChat {
	return &scriptedChat{reply: reply}
}

func (c *scriptedChat) Name() string { return "scripted" }

func (c *scriptedChat) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(m.Content)
	}
	return c.Generate(ctx, b.String(), "")
}

func (c *scriptedChat) Generate(ctx context.Context, prompt, _ string) (string, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	c.mu.Unlock()
	return c.reply(prompt)
}

func (c *scriptedChat) calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}

// countPrefix 统计以 prefix 开头的提示数。
func (c *scriptedChat) countPrefix(prefix string) int {
	n := 0
	for _, p := range c.calls() {
		if strings.HasPrefix(p, prefix) {
			n++
		}
	}
	return n
}

const (
	storyAnswer      = "جواب: ایک **اہم** کہانی\n\n\n- دوسری سطر"
	storyAnswerClean = "جواب: ایک اہم کہانی\nدوسری سطر"
)

// storyReply 模拟摘要、关键词、对话摘要与回答四类调用。
func storyReply(prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "(keywords)"):
		return "time, tale", nil
	case strings.HasPrefix(prompt, "مندرجہ ذیل"):
		return "A short tale.", nil
	case strings.HasPrefix(prompt, "Summarize the following conversation history"):
		return "  rolling summary  ", nil
	default:
		return storyAnswer, nil
	}
}

// flakyStore 在指定操作上返回错误。
type flakyStore struct {
	*store.MemoryStore
	failScroll bool
	failSearch bool
	failUpsert bool
	failHas    bool
	failIndex  bool
}

func (f *flakyStore) EnsureFieldIndex(ctx context.Context, name, field string) error {
	if f.failIndex {
		return fmt.Errorf("index failed")
	}
	return f.MemoryStore.EnsureFieldIndex(ctx, name, field)
}

func (f *flakyStore) HasCollection(ctx context.Context, name string) (bool, error) {
	if f.failHas {
		return false, fmt.Errorf("store unreachable")
	}
	return f.MemoryStore.HasCollection(ctx, name)
}

func (f *flakyStore) Scroll(ctx context.Context, name string, filter store.Filter, limit int) ([]store.Candidate, error) {
	if f.failScroll {
		return nil, fmt.Errorf("scroll failed")
	}
	return f.MemoryStore.Scroll(ctx, name, filter, limit)
}

func (f *flakyStore) Search(ctx context.Context, name string, vector []float32, k int) ([]store.Candidate, error) {
	if f.failSearch {
		return nil, fmt.Errorf("search failed")
	}
	return f.MemoryStore.Search(ctx, name, vector, k)
}

func (f *flakyStore) Upsert(ctx context.Context, name string, points []store.Point) error {
	if f.failUpsert {
		return fmt.Errorf("upsert failed")
	}
	return f.MemoryStore.Upsert(ctx, name, points)
}

// fixture 组装一套基于内存存储与本地嵌入的依赖。
type fixture struct {
	store     store.VectorStore
	memory    *store.MemoryStore
	embedder  *local.Embedder
	chat      *scriptedChat
	indexer   *Indexer
	ingestor  *Ingestor
	retriever *HybridRetriever
}

func newFixture(t *testing.T, vs store.VectorStore, chat *scriptedChat) *fixture {
	t.Helper()
	mem, _ := vs.(*store.MemoryStore)
	if f, ok := vs.(*flakyStore); ok {
		mem = f.MemoryStore
	}
	embedder := local.New(DefaultDimensions)
	indexer := NewIndexer(vs, embedder, nil, nil)
	f := &fixture{
		store:     vs,
		memory:    mem,
		embedder:  embedder,
		chat:      chat,
		indexer:   indexer,
		ingestor:  NewIngestor(vs, indexer, chat, nil, nil),
		retriever: NewHybridRetriever(vs, embedder, nil, nil),
	}
	f.ingestor.newSuffix = func() string { return "abc1234" }
	return f
}

func (f *fixture) workflowDeps() WorkflowDeps {
	return WorkflowDeps{
		Retriever: f.retriever,
		Reranker:  reranker.New(local.New(256)),
		Chat:      f.chat,
	}
}

// ingestTale 写入场景 A 的文档并返回集合名。
func (f *fixture) ingestTale(t *testing.T) string {
	t.Helper()
	res, err := f.ingestor.Ingest(context.Background(), IngestRequest{FileName: "tale.pdf", Text: "Once upon a time..."})
	require.NoError(t, err)
	require.Equal(t, StatusNew, res.Status)
	return res.CollectionName
}
