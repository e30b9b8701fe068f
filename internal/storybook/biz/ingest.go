package biz

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kart-io/logger"

	"github.com/kart-io/storybook-rag/internal/pkg/rag/chunker"
	"github.com/kart-io/storybook-rag/internal/pkg/rag/textutil"
	"github.com/kart-io/storybook-rag/internal/storybook/metrics"
	"github.com/kart-io/storybook-rag/internal/storybook/store"
	"github.com/kart-io/storybook-rag/pkg/errors"
	"github.com/kart-io/storybook-rag/pkg/llm"
)

// 上传状态。
const (
	StatusNew    = "new"
	StatusExists = "exists"
)

const collectionSuffixLen = 7

// IngestRequest 上传请求。Text 为上游 OCR 抽取的全文。
type IngestRequest struct {
	FileName string
	Text     string
}

// IngestResult 上传结果。
type IngestResult struct {
	CollectionName string   `json:"collection_name"`
	Status         string   `json:"status"`
	Message        string   `json:"message"`
	Chunks         int      `json:"chunks"`
	Summary        string   `json:"summary,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
}

// IngestConfig 上传配置。
type IngestConfig struct {
	ChunkSize      int
	ChunkOverlap   int
	SummaryPrompt  string
	KeywordsPrompt string
}

// DefaultIngestConfig 返回默认配置。
func DefaultIngestConfig() *IngestConfig {
	return &IngestConfig{
		ChunkSize:      chunker.DefaultChunkSize,
		ChunkOverlap:   chunker.DefaultChunkOverlap,
		SummaryPrompt:  DocumentSummaryPrompt,
		KeywordsPrompt: KeywordPrompt,
	}
}

// Ingestor 文档上传流水线。
type Ingestor struct {
	store    store.VectorStore
	indexer  *Indexer
	chat     llm.ChatProvider
	splitter *chunker.Splitter
	metrics  *metrics.Metrics
	config   *IngestConfig

	// newSuffix 生成集合名后缀，测试中可替换。
	newSuffix func() string
}

// NewIngestor 创建上传流水线。
func NewIngestor(vs store.VectorStore, indexer *Indexer, chat llm.ChatProvider, m *metrics.Metrics, cfg *IngestConfig) *Ingestor {
	if cfg == nil {
		cfg = DefaultIngestConfig()
	}
	if cfg.SummaryPrompt == "" {
		cfg.SummaryPrompt = DocumentSummaryPrompt
	}
	if cfg.KeywordsPrompt == "" {
		cfg.KeywordsPrompt = KeywordPrompt
	}
	return &Ingestor{
		store:     vs,
		indexer:   indexer,
		chat:      chat,
		splitter:  chunker.New(cfg.ChunkSize, cfg.ChunkOverlap),
		metrics:   m,
		config:    cfg,
		newSuffix: func() string { return uuid.NewString()[:collectionSuffixLen] },
	}
}

// Ingest 摘要、关键词、分块并写入新集合。集合已存在时直接返回 StatusExists。
func (g *Ingestor) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if !strings.HasSuffix(strings.ToLower(req.FileName), ".pdf") {
		return nil, errors.ErrInvalidRequest.WithMessage("Only PDF files are allowed")
	}

	collection := CollectionName(req.FileName, g.newSuffix())

	exists, err := g.store.HasCollection(ctx, collection)
	if err != nil {
		return nil, errors.ErrIngestionFailed.WithCause(fmt.Errorf("check collection: %w", err))
	}
	if exists {
		logger.Infow("document already indexed", "file", req.FileName, "collection", collection)
		g.metrics.RecordDocument(StatusExists, 0)
		return &IngestResult{
			CollectionName: collection,
			Status:         StatusExists,
			Message:        fmt.Sprintf("PDF '%s' already exists in the system!", req.FileName),
		}, nil
	}

	chunks := g.splitter.Split(req.Text)
	if len(chunks) == 0 {
		return nil, errors.ErrEmptyDocument
	}

	summary, err := g.generate(ctx, "document_summary", render(g.config.SummaryPrompt, map[string]string{"text": req.Text}))
	if err != nil {
		return nil, err
	}
	rawKeywords, err := g.generate(ctx, "keywords", render(g.config.KeywordsPrompt, map[string]string{"text": req.Text}))
	if err != nil {
		return nil, err
	}
	keywords := textutil.SplitKeywords(rawKeywords)

	texts, metadatas := BuildChunks(req.FileName, chunks, summary, keywords)
	if err := g.indexer.Index(ctx, collection, texts, metadatas); err != nil {
		return nil, err
	}

	g.metrics.RecordDocument(StatusNew, len(texts))
	logger.Infow("document ingested",
		"file", req.FileName,
		"collection", collection,
		"chunks", len(texts),
		"summary", textutil.TruncateString(summary, 200),
	)

	return &IngestResult{
		CollectionName: collection,
		Status:         StatusNew,
		Message:        "PDF processed and stored successfully!",
		Chunks:         len(texts),
		Summary:        summary,
		Keywords:       keywords,
	}, nil
}

func (g *Ingestor) generate(ctx context.Context, purpose, prompt string) (string, error) {
	start := time.Now()
	out, err := g.chat.Generate(ctx, prompt, "")
	g.metrics.RecordLLMCall(purpose, time.Since(start), err)
	if err != nil {
		return "", errors.ErrGenerationFailed.WithCause(fmt.Errorf("%s: %w", purpose, err))
	}
	return strings.TrimSpace(out), nil
}

// BuildChunks 为正文分块附加元数据，并在末尾追加摘要分块。空文本分块被丢弃。
func BuildChunks(source string, chunks []string, summary string, keywords []string) ([]string, []map[string]any) {
	texts := make([]string, 0, len(chunks)+1)
	metadatas := make([]map[string]any, 0, len(chunks)+1)

	for i, c := range chunks {
		if c == "" {
			continue
		}
		texts = append(texts, c)
		metadatas = append(metadatas, map[string]any{
			store.FieldSourcePDF:  source,
			store.FieldSummary:    summary,
			store.FieldKeywords:   keywords,
			store.FieldChunkIndex: i,
		})
	}

	if summary != "" {
		texts = append(texts, summary)
		metadatas = append(metadatas, map[string]any{
			store.FieldSourcePDF:  source,
			store.FieldType:       store.TypeSummary,
			store.FieldKeywords:   keywords,
			store.FieldSummary:    summary,
			store.FieldChunkIndex: -1,
		})
	}
	return texts, metadatas
}

// CollectionName 由文件名与后缀生成集合名 "<base>-<suffix>"。
// base 只含 [A-Za-z0-9_]，其余字符（包括 "-"）替换为 "_"，数字开头时加前缀 "_"，
// 因此 "-" 只作为后缀分隔符出现，各向量库的名称映射不会产生冲突。
func CollectionName(fileName, suffix string) string {
	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	var b strings.Builder
	for i, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		b.WriteString("document")
	}
	return b.String() + "-" + suffix
}

// BaseName 去掉集合名最后一个 "-" 之后的后缀。
func BaseName(collection string) string {
	if i := strings.LastIndex(collection, "-"); i > 0 {
		return collection[:i]
	}
	return collection
}
