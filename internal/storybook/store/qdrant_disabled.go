//go:build milvus

package store

import "github.com/kart-io/storybook-rag/pkg/errors"

// NewQdrantStore 在 milvus 构建中不可用：两个 gRPC 客户端不能链接进同一个二进制。
func NewQdrantStore(QdrantConfig) (VectorStore, error) {
	return nil, errors.ErrConfiguration.WithMessage("qdrant vector store is not compiled into milvus builds")
}
