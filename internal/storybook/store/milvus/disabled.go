//go:build !milvus

package milvus

import (
	"context"

	"github.com/kart-io/storybook-rag/internal/storybook/store"
	"github.com/kart-io/storybook-rag/pkg/errors"
	milvusopts "github.com/kart-io/storybook-rag/pkg/options/milvus"
)

// New 未启用 milvus 构建标签时返回配置错误。
func New(context.Context, *milvusopts.Options) (store.VectorStore, error) {
	return nil, errors.ErrConfiguration.WithMessage("milvus vector store is not compiled in, rebuild with -tags milvus")
}
