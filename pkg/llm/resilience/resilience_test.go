package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
		Retryable:    func(error) bool { return true },
	}
}

func TestRetry(t *testing.T) {
	tests := []struct {
		name      string
		failFirst int
		attempts  int
		wantCalls int
		wantErr   bool
	}{
		{"首次成功", 0, 3, 1, false},
		{"重试后成功", 2, 3, 3, false},
		{"次数耗尽", 5, 3, 3, true},
		{"单次不重试", 1, 1, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), fastRetry(tt.attempts), func() error {
				calls++
				if calls <= tt.failFirst {
					return errors.New("transient")
				}
				return nil
			})
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	cfg := fastRetry(5)
	cfg.Retryable = func(error) bool { return false }

	permanent := errors.New("bad request")
	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastRetry(10)
	cfg.InitialDelay = time.Second
	cfg.MaxDelay = time.Second

	calls := 0
	err := Retry(ctx, cfg, func() error {
		calls++
		cancel()
		return errors.New("transient")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Minute, HalfOpenMaxCalls: 1})
	now := time.Now()
	cb.now = func() time.Time { return now }

	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return boom }), boom)
	}
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(func() error { return nil }), ErrCircuitBreakerOpen)

	now = now.Add(2 * time.Minute)
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitBreakerHalfOpenFailure(t *testing.T) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Second})
	now := time.Now()
	cb.now = func() time.Time { return now }

	_ = cb.Execute(func() error { return errors.New("x") })
	now = now.Add(2 * time.Second)
	_ = cb.Execute(func() error { return errors.New("still failing") })
	assert.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerIgnoresCancel(t *testing.T) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Second})
	_ = cb.Execute(func() error { return fmt.Errorf("wrapped: %w", context.Canceled) })
	assert.Equal(t, StateClosed, cb.State())
}

func TestDoDoesNotRetryOpenBreaker(t *testing.T) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Hour})
	calls := 0
	err := Do(context.Background(), fastRetry(5), cb, func() error {
		calls++
		return errors.New("down")
	})
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
	assert.Equal(t, 1, calls)
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"取消", context.Canceled, false},
		{"限流", &goopenai.APIError{HTTPStatusCode: http.StatusTooManyRequests}, true},
		{"服务端错误", fmt.Errorf("x: %w", &goopenai.APIError{HTTPStatusCode: http.StatusBadGateway}), true},
		{"参数错误", &goopenai.APIError{HTTPStatusCode: http.StatusBadRequest}, false},
		{"请求错误 503", &goopenai.RequestError{HTTPStatusCode: http.StatusServiceUnavailable, Err: errors.New("x")}, true},
		{"连接重置", errors.New("read: connection reset by peer"), true},
		{"其他", errors.New("invalid json"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableError(tt.err))
		})
	}
}
