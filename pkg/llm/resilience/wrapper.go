package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/kart-io/storybook-rag/pkg/llm"
	goopenai "github.com/sashabaranov/go-openai"
)

// EmbeddingProvider 带重试与熔断的 Embedding 供应商包装器。
type EmbeddingProvider struct {
	provider llm.EmbeddingProvider
	retry    *RetryConfig
	cb       *CircuitBreaker
}

// WrapEmbedding 包装 Embedding 供应商。
func WrapEmbedding(provider llm.EmbeddingProvider, retry *RetryConfig, cb *CircuitBreakerConfig) *EmbeddingProvider {
	if retry == nil {
		retry = DefaultRetryConfig()
	}
	return &EmbeddingProvider{
		provider: provider,
		retry:    retry,
		cb:       NewCircuitBreaker(cb),
	}
}

// Embed 为多个文本生成向量嵌入。
func (r *EmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var result [][]float32
	err := Do(ctx, r.retry, r.cb, func() error {
		var err error
		result, err = r.provider.Embed(ctx, texts)
		return err
	})
	return result, err
}

// EmbedSingle 为单个文本生成向量嵌入。
func (r *EmbeddingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	var result []float32
	err := Do(ctx, r.retry, r.cb, func() error {
		var err error
		result, err = r.provider.EmbedSingle(ctx, text)
		return err
	})
	return result, err
}

// Name 返回被包装供应商的名称。
func (r *EmbeddingProvider) Name() string { return r.provider.Name() }

// CircuitBreaker 返回熔断器实例。
func (r *EmbeddingProvider) CircuitBreaker() *CircuitBreaker { return r.cb }

// ChatProvider 带重试与熔断的 Chat 供应商包装器。
type ChatProvider struct {
	provider llm.ChatProvider
	retry    *RetryConfig
	cb       *CircuitBreaker
}

// WrapChat 包装 Chat 供应商。
func WrapChat(provider llm.ChatProvider, retry *RetryConfig, cb *CircuitBreakerConfig) *ChatProvider {
	if retry == nil {
		retry = DefaultRetryConfig()
	}
	return &ChatProvider{
		provider: provider,
		retry:    retry,
		cb:       NewCircuitBreaker(cb),
	}
}

// Chat 进行多轮对话。
func (r *ChatProvider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	var result string
	err := Do(ctx, r.retry, r.cb, func() error {
		var err error
		result, err = r.provider.Chat(ctx, messages)
		return err
	})
	return result, err
}

// Generate 根据提示生成文本。
func (r *ChatProvider) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	var result string
	err := Do(ctx, r.retry, r.cb, func() error {
		var err error
		result, err = r.provider.Generate(ctx, prompt, systemPrompt)
		return err
	})
	return result, err
}

// Name 返回被包装供应商的名称。
func (r *ChatProvider) Name() string { return r.provider.Name() }

// CircuitBreaker 返回熔断器实例。
func (r *ChatProvider) CircuitBreaker() *CircuitBreaker { return r.cb }

// IsRetryableError 判断错误是否值得重试：限流、超时、5xx 与连接类错误。
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "eof")
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusRequestTimeout:
		return true
	}
	return code >= http.StatusInternalServerError
}
