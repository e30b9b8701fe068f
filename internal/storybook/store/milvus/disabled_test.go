//go:build !milvus

package milvus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/storybook-rag/pkg/errors"
	milvusopts "github.com/kart-io/storybook-rag/pkg/options/milvus"
)

func TestNewWithoutBuildTag(t *testing.T) {
	vs, err := New(context.Background(), milvusopts.NewOptions())
	require.Error(t, err)
	assert.Nil(t, vs)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}
