// Package pool 基于 ants 提供有界 goroutine 池。
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"
)

// Config 池配置。
type Config struct {
	// Capacity 最大并发 goroutine 数。
	Capacity int
	// ExpiryDuration 空闲 goroutine 过期时间。
	ExpiryDuration time.Duration
	// Nonblocking 池满时 Submit 立即返回 ErrPoolOverload。
	Nonblocking bool
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		Capacity:       8,
		ExpiryDuration: 10 * time.Second,
	}
}

// Pool goroutine 池。
type Pool struct {
	name   string
	pool   *ants.Pool
	closed atomic.Bool
	once   sync.Once
}

// NewPool 创建池。
func NewPool(name string, config *Config) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Capacity <= 0 {
		return nil, fmt.Errorf("pool %s: capacity must be positive", name)
	}

	p, err := ants.NewPool(config.Capacity,
		ants.WithExpiryDuration(config.ExpiryDuration),
		ants.WithNonblocking(config.Nonblocking),
		ants.WithPanicHandler(func(r any) {
			logger.Errorw("Worker panic recovered", "pool", name, "panic", r)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create ants pool %s: %w", name, err)
	}

	logger.Infow("Worker pool created", "name", name, "capacity", config.Capacity)
	return &Pool{name: name, pool: p}, nil
}

// Name 返回池名称。
func (p *Pool) Name() string { return p.name }

// Cap 返回池容量。
func (p *Pool) Cap() int { return p.pool.Cap() }

// Running 返回正在运行的 goroutine 数量。
func (p *Pool) Running() int { return p.pool.Running() }

// Submit 提交任务。
func (p *Pool) Submit(task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	if err := p.pool.Submit(task); err != nil {
		if errors.Is(err, ants.ErrPoolOverload) {
			return ErrPoolOverload
		}
		if errors.Is(err, ants.ErrPoolClosed) {
			return ErrPoolClosed
		}
		return err
	}
	return nil
}

// Run 在池中执行 n 个任务并等待全部结束，返回第一个错误。
// 任一任务失败后，尚未开始的任务收到已取消的 ctx。
func (p *Pool) Run(ctx context.Context, n int, task func(ctx context.Context, i int) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		i := i
		wg.Add(1)
		err := p.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				fail(err)
				return
			}
			if err := task(ctx, i); err != nil {
				fail(err)
			}
		})
		if err != nil {
			wg.Done()
			fail(err)
			break
		}
	}

	wg.Wait()
	return firstErr
}

// Release 关闭池。
func (p *Pool) Release() {
	p.once.Do(func() {
		p.closed.Store(true)
		p.pool.Release()
		logger.Infow("Worker pool released", "name", p.name)
	})
}
