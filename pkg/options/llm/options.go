// Package llm provides LLM provider configuration options.
package llm

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/storybook-rag/pkg/llm/resilience"
	"github.com/kart-io/storybook-rag/pkg/options"
)

var _ options.IOptions = (*ProviderOptions)(nil)

// 需要 API 密钥的托管供应商。
var keyedProviders = map[string]bool{
	"openai":   true,
	"deepseek": true,
	"gemini":   true,
}

// ProviderOptions 定义 LLM 供应商配置。
type ProviderOptions struct {
	// Provider 供应商名称（openai, ollama, deepseek, gemini, local）。
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL API 基础地址，为空时使用供应商默认地址。
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey API 密钥（托管供应商需要）。
	APIKey string `json:"-" mapstructure:"api-key"`

	// Model 使用的模型名称，为空时使用供应商默认模型。
	Model string `json:"model" mapstructure:"model"`

	// Dimensions 嵌入维度，仅用于嵌入供应商。
	Dimensions int `json:"dimensions" mapstructure:"dimensions"`

	// Temperature 生成温度，仅用于对话供应商。
	Temperature float64 `json:"temperature" mapstructure:"temperature"`

	// Timeout 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 最大尝试次数。
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`

	// Organization 组织 ID（OpenAI 可选）。
	Organization string `json:"organization" mapstructure:"organization"`

	// section 是该配置在命令行中的前缀，例如 embedding、chat。
	section string
}

// NewProviderOptions 创建指定配置段的默认供应商配置。
func NewProviderOptions(section string) *ProviderOptions {
	return &ProviderOptions{
		Provider:   "openai",
		Timeout:    120 * time.Second,
		MaxRetries: 3,
		section:    section,
	}
}

// NewEmbeddingOptions 创建默认 Embedding 供应商配置。
func NewEmbeddingOptions() *ProviderOptions {
	opts := NewProviderOptions("embedding")
	opts.Model = "text-embedding-3-small"
	opts.Dimensions = 512
	return opts
}

// NewRerankEmbeddingOptions 创建重排序使用的 Embedding 配置，默认使用本地哈希嵌入。
func NewRerankEmbeddingOptions() *ProviderOptions {
	opts := NewProviderOptions("rerank-embedding")
	opts.Provider = "local"
	opts.Dimensions = 384
	return opts
}

// NewChatOptions 创建默认 Chat 供应商配置。
func NewChatOptions() *ProviderOptions {
	opts := NewProviderOptions("chat")
	opts.Model = "gpt-4o-mini"
	return opts
}

// ToConfigMap 转换为配置 map，用于供应商工厂。
func (o *ProviderOptions) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url":     o.BaseURL,
		"api_key":      o.APIKey,
		"embed_model":  o.Model,
		"chat_model":   o.Model,
		"dimensions":   o.Dimensions,
		"temperature":  o.Temperature,
		"timeout":      o.Timeout,
		"max_retries":  o.MaxRetries,
		"organization": o.Organization,
	}
}

// RetryConfig 返回供应商调用使用的重试配置。
func (o *ProviderOptions) RetryConfig() *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	if o.MaxRetries > 0 {
		cfg.MaxAttempts = o.MaxRetries
	}
	return cfg
}

// AddFlags adds flags for LLM provider options to the specified FlagSet.
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + o.section + "."

	fs.StringVar(&o.Provider, p+"provider", o.Provider, "Provider name (openai, ollama, deepseek, gemini, local).")
	fs.StringVar(&o.BaseURL, p+"base-url", o.BaseURL, "API base URL, empty for the provider default.")
	fs.StringVar(&o.APIKey, p+"api-key", o.APIKey, "API key, required by openai, deepseek and gemini.")
	fs.StringVar(&o.Model, p+"model", o.Model, "Model name, empty for the provider default.")
	fs.IntVar(&o.Dimensions, p+"dimensions", o.Dimensions, "Embedding dimensions.")
	fs.Float64Var(&o.Temperature, p+"temperature", o.Temperature, "Sampling temperature, 0 for the API default.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Request timeout.")
	fs.IntVar(&o.MaxRetries, p+"max-retries", o.MaxRetries, "Maximum attempts per call.")
	fs.StringVar(&o.Organization, p+"organization", o.Organization, "Organization ID (optional).")
}

// Complete completes the LLM provider options with defaults.
func (o *ProviderOptions) Complete() error {
	if o.APIKey == "" && keyedProviders[o.Provider] {
		o.APIKey = os.Getenv(strings.ToUpper(o.Provider) + "_API_KEY")
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	return nil
}

// Validate validates the LLM provider options.
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Provider == "" {
		errs = append(errs, fmt.Errorf("%s.provider is required", o.section))
	}
	if keyedProviders[o.Provider] && o.APIKey == "" {
		errs = append(errs, fmt.Errorf("%s.api-key is required for %s provider", o.section, o.Provider))
	}
	if o.Dimensions < 0 {
		errs = append(errs, fmt.Errorf("%s.dimensions must not be negative", o.section))
	}
	if o.Temperature < 0 || o.Temperature > 2 {
		errs = append(errs, fmt.Errorf("%s.temperature must be in [0, 2]", o.section))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%s.timeout must be positive", o.section))
	}
	return errs
}
