// Package llm 提供统一的 LLM 供应商抽象层。
// 检索、重排与生成可以分别使用不同供应商的模型。
package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// EmbeddingProvider 定义 Embedding 供应商接口。
type EmbeddingProvider interface {
	// Embed 为多个文本生成向量嵌入，结果顺序与输入一致。
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle 为单个文本生成向量嵌入。
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Name 返回供应商名称。
	Name() string
}

// ChatProvider 定义 Chat 供应商接口。
type ChatProvider interface {
	// Chat 进行多轮对话。
	Chat(ctx context.Context, messages []Message) (string, error)

	// Generate 根据提示生成文本（单轮）。
	Generate(ctx context.Context, prompt string, systemPrompt string) (string, error)

	// Name 返回供应商名称。
	Name() string
}

// Message 表示对话中的一条消息。
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role 定义消息角色。
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Provider 同时支持 Embedding 和 Chat 的完整供应商。
type Provider interface {
	EmbeddingProvider
	ChatProvider
}

// ProviderFactory 供应商工厂函数类型。
type ProviderFactory func(config map[string]any) (Provider, error)

// EmbeddingProviderFactory Embedding 供应商工厂函数类型。
type EmbeddingProviderFactory func(config map[string]any) (EmbeddingProvider, error)

// ErrUnknownProvider 表示供应商名称未注册。
var ErrUnknownProvider = errors.New("unknown llm provider")

var registry = &providerRegistry{
	providers:          make(map[string]ProviderFactory),
	embeddingProviders: make(map[string]EmbeddingProviderFactory),
}

type providerRegistry struct {
	mu                 sync.RWMutex
	providers          map[string]ProviderFactory
	embeddingProviders map[string]EmbeddingProviderFactory
}

// 配置中的供应商名不区分大小写。
func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// RegisterProvider 注册同时支持 Embedding 与 Chat 的供应商，如 openai、ollama。
func RegisterProvider(name string, factory ProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.providers[normalize(name)] = factory
}

// RegisterEmbeddingProvider 注册只提供 Embedding 的供应商，如本地哈希嵌入。
func RegisterEmbeddingProvider(name string, factory EmbeddingProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.embeddingProviders[normalize(name)] = factory
}

// NewEmbeddingProvider 根据名称创建 Embedding 供应商。专用工厂优先。
func NewEmbeddingProvider(name string, config map[string]any) (EmbeddingProvider, error) {
	key := normalize(name)

	registry.mu.RLock()
	embedding, hasEmbedding := registry.embeddingProviders[key]
	full, hasFull := registry.providers[key]
	registry.mu.RUnlock()

	switch {
	case hasEmbedding:
		return embedding(config)
	case hasFull:
		return full(config)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

// NewChatProvider 根据名称创建 Chat 供应商。
func NewChatProvider(name string, config map[string]any) (ChatProvider, error) {
	key := normalize(name)

	registry.mu.RLock()
	full, hasFull := registry.providers[key]
	_, embeddingOnly := registry.embeddingProviders[key]
	registry.mu.RUnlock()

	switch {
	case hasFull:
		return full(config)
	case embeddingOnly:
		return nil, fmt.Errorf("provider %q only supports embeddings", name)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

// ListProviders 按名称排序列出所有已注册的供应商。
func ListProviders() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	names := make([]string, 0, len(registry.providers)+len(registry.embeddingProviders))
	for name := range registry.providers {
		names = append(names, name)
	}
	for name := range registry.embeddingProviders {
		if _, ok := registry.providers[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
