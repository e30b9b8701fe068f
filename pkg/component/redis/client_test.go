package redis

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	options "github.com/kart-io/storybook-rag/pkg/options/redis"
)

func optionsFor(t *testing.T, mr *miniredis.Miniredis) *options.Options {
	t.Helper()
	opts := options.NewOptions()
	opts.Host = mr.Host()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	opts.Port = port
	return opts
}

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	client, err := New(ctx, optionsFor(t, mr))
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, "redis", client.Name())
	assert.NoError(t, client.Ping(ctx))

	require.NoError(t, client.Raw().Set(ctx, "k", "v", 0).Err())
	mr.CheckGet(t, "k", "v")
}

func TestNewErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	tests := []struct {
		name string
		opts func() *options.Options
	}{
		{"空配置", func() *options.Options { return nil }},
		{"非法端口", func() *options.Options {
			o := optionsFor(t, mr)
			o.Port = 0
			return o
		}},
		{"连接失败", func() *options.Options {
			stopped := miniredis.RunT(t)
			o := optionsFor(t, stopped)
			stopped.Close()
			return o
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(ctx, tt.opts())
			assert.Error(t, err)
		})
	}
}

func TestPingAfterServerStops(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	client, err := New(ctx, optionsFor(t, mr))
	require.NoError(t, err)
	defer client.Close()

	mr.Close()
	assert.Error(t, client.Ping(ctx))
}
