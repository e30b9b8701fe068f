package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProvider 模拟供应商实现，用于测试。
type mockProvider struct {
	name string
}

func (m *mockProvider) Name() string {
	return m.name
}

func (m *mockProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{0.1, 0.2, 0.3}
	}
	return result, nil
}

func (m *mockProvider) EmbedSingle(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *mockProvider) Chat(_ context.Context, _ []Message) (string, error) {
	return "mock response", nil
}

func (m *mockProvider) Generate(_ context.Context, _ string, _ string) (string, error) {
	return "mock generated text", nil
}

func TestRegisterAndNewProvider(t *testing.T) {
	RegisterProvider("test-provider", func(config map[string]any) (Provider, error) {
		name := "test-provider"
		if n, ok := config["name"].(string); ok {
			name = n
		}
		return &mockProvider{name: name}, nil
	})

	chat, err := NewChatProvider("test-provider", map[string]any{"name": "custom-name"})
	require.NoError(t, err)
	assert.Equal(t, "custom-name", chat.Name())

	embed, err := NewEmbeddingProvider("test-provider", nil)
	require.NoError(t, err)
	assert.Equal(t, "test-provider", embed.Name())
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewChatProvider("unknown-provider", nil)
	assert.ErrorIs(t, err, ErrUnknownProvider)

	_, err = NewEmbeddingProvider("unknown-provider", nil)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestProviderNamesAreCaseInsensitive(t *testing.T) {
	RegisterProvider("Mixed-Case", func(map[string]any) (Provider, error) {
		return &mockProvider{name: "mixed"}, nil
	})

	chat, err := NewChatProvider("  MIXED-case ", nil)
	require.NoError(t, err)
	assert.Equal(t, "mixed", chat.Name())
	assert.Contains(t, ListProviders(), "mixed-case")
}

func TestEmbeddingOnlyProvider(t *testing.T) {
	RegisterEmbeddingProvider("embed-only", func(config map[string]any) (EmbeddingProvider, error) {
		return &mockProvider{name: "embed-only"}, nil
	})

	provider, err := NewEmbeddingProvider("embed-only", nil)
	require.NoError(t, err)
	assert.Equal(t, "embed-only", provider.Name())

	// Embedding 专用工厂不能作为 Chat 供应商
	_, err = NewChatProvider("embed-only", nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownProvider)
	assert.Contains(t, err.Error(), "only supports embeddings")
}

func TestListProviders(t *testing.T) {
	RegisterProvider("b-provider", func(map[string]any) (Provider, error) { return &mockProvider{}, nil })
	RegisterEmbeddingProvider("a-provider", func(map[string]any) (EmbeddingProvider, error) { return &mockProvider{}, nil })

	providers := ListProviders()
	assert.Contains(t, providers, "a-provider")
	assert.Contains(t, providers, "b-provider")
	assert.IsNonDecreasing(t, providers)
}
