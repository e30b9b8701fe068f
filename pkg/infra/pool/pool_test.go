package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPool(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{"默认配置", nil, false},
		{"自定义容量", &Config{Capacity: 2}, false},
		{"非法容量", &Config{Capacity: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPool("test", tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer p.Release()
			assert.Equal(t, "test", p.Name())
			assert.Positive(t, p.Cap())
		})
	}
}

func TestPoolRun(t *testing.T) {
	p, err := NewPool("run", &Config{Capacity: 3})
	require.NoError(t, err)
	defer p.Release()

	results := make([]int, 20)
	err = p.Run(context.Background(), len(results), func(_ context.Context, i int) error {
		results[i] = i * i
		return nil
	})
	require.NoError(t, err)
	for i, v := range results {
		assert.Equal(t, i*i, v)
	}
}

func TestPoolRunFirstError(t *testing.T) {
	p, err := NewPool("run-err", &Config{Capacity: 1})
	require.NoError(t, err)
	defer p.Release()

	boom := errors.New("boom")
	var ran atomic.Int32
	err = p.Run(context.Background(), 10, func(ctx context.Context, i int) error {
		ran.Add(1)
		if i == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.LessOrEqual(t, int(ran.Load()), 10)
}

func TestPoolSubmitAfterRelease(t *testing.T) {
	p, err := NewPool("closed", nil)
	require.NoError(t, err)
	p.Release()
	p.Release()

	assert.ErrorIs(t, p.Submit(func() {}), ErrPoolClosed)
	assert.ErrorIs(t, p.Run(context.Background(), 1, func(context.Context, int) error { return nil }), ErrPoolClosed)
}
