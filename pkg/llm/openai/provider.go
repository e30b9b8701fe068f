// Package openai 基于 go-openai 提供 OpenAI 兼容供应商实现。
//
// 同一实现以不同预设注册为 openai、deepseek、gemini、ollama 四个供应商，
// 它们的区别只在默认地址、默认模型以及是否要求 API 密钥。
//
//	import _ "github.com/kart-io/storybook-rag/pkg/llm/openai"
//
//	embedder, err := llm.NewEmbeddingProvider("openai", map[string]any{
//	    "api_key":    "sk-...",
//	    "dimensions": 512,
//	})
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kart-io/storybook-rag/pkg/llm"
	goopenai "github.com/sashabaranov/go-openai"
)

// ProviderName 是 OpenAI 供应商的名称标识符。
const ProviderName = "openai"

// preset 描述一个 OpenAI 兼容服务的默认值。
type preset struct {
	baseURL    string
	embedModel string
	chatModel  string
	requireKey bool
}

var presets = map[string]preset{
	ProviderName: {
		baseURL:    "https://api.openai.com/v1",
		embedModel: string(goopenai.SmallEmbedding3),
		chatModel:  goopenai.GPT4oMini,
		requireKey: true,
	},
	"deepseek": {
		baseURL:    "https://api.deepseek.com/v1",
		embedModel: "deepseek-embedding",
		chatModel:  "deepseek-chat",
		requireKey: true,
	},
	"gemini": {
		baseURL:    "https://generativelanguage.googleapis.com/v1beta/openai/",
		embedModel: "text-embedding-004",
		chatModel:  "gemini-2.0-flash",
		requireKey: true,
	},
	"ollama": {
		baseURL:    "http://localhost:11434/v1",
		embedModel: "nomic-embed-text",
		chatModel:  "llama3",
	},
}

func init() {
	for name := range presets {
		llm.RegisterProvider(name, factory(name))
	}
}

func factory(name string) llm.ProviderFactory {
	return func(config map[string]any) (llm.Provider, error) {
		return NewProviderFor(name, config)
	}
}

// Config OpenAI 兼容供应商配置。
type Config struct {
	// Name 注册名，用于日志与错误信息。
	Name string `json:"name" mapstructure:"name"`

	// BaseURL API 基础地址。
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// APIKey API 密钥。
	APIKey string `json:"api_key" mapstructure:"api_key"`

	// EmbedModel 用于生成嵌入的模型。
	EmbedModel string `json:"embed_model" mapstructure:"embed_model"`

	// ChatModel 用于对话的模型。
	ChatModel string `json:"chat_model" mapstructure:"chat_model"`

	// Dimensions 嵌入维度，0 表示使用模型默认维度。
	Dimensions int `json:"dimensions" mapstructure:"dimensions"`

	// Temperature 生成温度，0 表示使用 API 默认值。
	Temperature float64 `json:"temperature" mapstructure:"temperature"`

	// Timeout 单次请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 最大重试次数，由 resilience 包装器使用。
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`

	// Organization 组织 ID（可选）。
	Organization string `json:"organization" mapstructure:"organization"`
}

// DefaultConfig 返回 OpenAI 官方服务的默认配置。
func DefaultConfig() *Config {
	return defaultConfigFor(ProviderName)
}

func defaultConfigFor(name string) *Config {
	p, ok := presets[name]
	if !ok {
		p = presets[ProviderName]
	}
	return &Config{
		Name:       name,
		BaseURL:    p.baseURL,
		EmbedModel: p.embedModel,
		ChatModel:  p.chatModel,
		Timeout:    120 * time.Second,
		MaxRetries: 3,
	}
}

// Provider OpenAI 兼容供应商实现。
type Provider struct {
	config *Config
	client *goopenai.Client
}

// NewProvider 从配置 map 创建 OpenAI 供应商。
func NewProvider(configMap map[string]any) (llm.Provider, error) {
	return NewProviderFor(ProviderName, configMap)
}

// NewProviderFor 使用指定预设从配置 map 创建供应商。
func NewProviderFor(name string, configMap map[string]any) (*Provider, error) {
	cfg := defaultConfigFor(name)

	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
	}
	if v, ok := configMap["api_key"].(string); ok && v != "" {
		cfg.APIKey = v
	}
	if v, ok := configMap["embed_model"].(string); ok && v != "" {
		cfg.EmbedModel = v
	}
	if v, ok := configMap["chat_model"].(string); ok && v != "" {
		cfg.ChatModel = v
	}
	if v, ok := configMap["dimensions"].(int); ok && v > 0 {
		cfg.Dimensions = v
	}
	if v, ok := configMap["temperature"].(float64); ok {
		cfg.Temperature = v
	}
	if v, ok := configMap["timeout"].(time.Duration); ok && v > 0 {
		cfg.Timeout = v
	}
	if v, ok := configMap["max_retries"].(int); ok && v > 0 {
		cfg.MaxRetries = v
	}
	if v, ok := configMap["organization"].(string); ok && v != "" {
		cfg.Organization = v
	}

	if cfg.APIKey == "" && presets[name].requireKey {
		return nil, fmt.Errorf("%s: api_key is required", name)
	}

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig 使用结构化配置创建供应商。
func NewProviderWithConfig(cfg *Config) *Provider {
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	clientCfg.OrgID = cfg.Organization
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Provider{
		config: cfg,
		client: goopenai.NewClientWithConfig(clientCfg),
	}
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	if p.config.Name != "" {
		return p.config.Name
	}
	return ProviderName
}

// Config 返回生效配置的副本。
func (p *Provider) Config() Config {
	return *p.config
}

// Embed 为多个文本生成向量嵌入。
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	req := goopenai.EmbeddingRequest{
		Input: texts,
		Model: goopenai.EmbeddingModel(p.config.EmbedModel),
	}
	if p.config.Dimensions > 0 {
		req.Dimensions = p.config.Dimensions
	}

	resp, err := p.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: create embeddings: %w", p.Name(), err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%s: expected %d embeddings, got %d", p.Name(), len(texts), len(resp.Data))
	}

	// 按 Index 回填，保证与输入顺序一致
	out := make([][]float32, len(texts))
	for i, d := range resp.Data {
		idx := d.Index
		if idx < 0 || idx >= len(out) {
			idx = i
		}
		out[idx] = d.Embedding
	}
	return out, nil
}

// EmbedSingle 为单个文本生成向量嵌入。
func (p *Provider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// Chat 进行多轮对话。
func (p *Provider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model:    p.config.ChatModel,
		Messages: make([]goopenai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, goopenai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	if p.config.Temperature > 0 {
		req.Temperature = float32(p.config.Temperature)
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s: create chat completion: %w", p.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices in response", p.Name())
	}
	return resp.Choices[0].Message.Content, nil
}

// Generate 根据提示生成文本。
func (p *Provider) Generate(ctx context.Context, prompt string, systemPrompt string) (string, error) {
	messages := make([]llm.Message, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: prompt})
	return p.Chat(ctx, messages)
}
