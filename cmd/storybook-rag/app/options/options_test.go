package options

import (
	"errors"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kart-io/storybook-rag/pkg/errors"
)

func withKeys(o *ServerOptions) *ServerOptions {
	o.EmbeddingOptions.APIKey = "sk-embed"
	o.ChatOptions.APIKey = "sk-chat"
	return o
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerOptions)
		wantErr string
	}{
		{"默认后端带密钥", func(*ServerOptions) {}, ""},
		{"纯内存后端", func(o *ServerOptions) {
			o.RAGOptions.VectorStore = "memory"
			o.RAGOptions.Checkpoint = "memory"
			o.RAGOptions.Sessions = "memory"
			o.MongoOptions.Host = ""
			o.RedisOptions.Host = ""
		}, ""},
		{"缺少 OpenAI 密钥", func(o *ServerOptions) { o.ChatOptions.APIKey = "" }, "chat.api-key is required"},
		{"缺少 Qdrant 地址", func(o *ServerOptions) { o.QdrantOptions.Host = "" }, "qdrant.host is required"},
		{"未选用的后端不校验", func(o *ServerOptions) { o.MilvusOptions.Address = "" }, ""},
		{"未知向量库", func(o *ServerOptions) { o.RAGOptions.VectorStore = "faiss" }, `unknown vector store "faiss"`},
		{"Mongo 检查点需要主机", func(o *ServerOptions) {
			o.RAGOptions.Checkpoint = "mongo"
			o.RAGOptions.Sessions = "memory"
			o.MongoOptions.Host = ""
		}, "mongodb.host is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := withKeys(NewServerOptions())
			tt.mutate(o)

			err := o.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrConfiguration))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFlagsSections(t *testing.T) {
	o := NewServerOptions()
	fss := o.Flags()

	assert.Equal(t, []string{
		"http", "log", "qdrant", "milvus", "redis", "mongodb",
		"embedding", "rerank-embedding", "chat", "rag", "misc",
	}, fss.Order)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	for _, name := range fss.Order {
		fs.AddFlagSet(fss.FlagSets[name])
	}
	require.NoError(t, fs.Parse([]string{
		"--rag.vector-store=milvus",
		"--rerank-embedding.provider=ollama",
		"--shutdown-timeout=5s",
	}))

	cfg, err := o.Config()
	require.NoError(t, err)
	assert.Equal(t, "milvus", cfg.RAGOptions.VectorStore)
	assert.Equal(t, "ollama", cfg.RerankEmbeddingOptions.Provider)
	assert.Equal(t, "5s", cfg.ShutdownTimeout.String())
}
