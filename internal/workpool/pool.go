// Package workpool 有界协程池，支持拒绝与调用方执行两种饱和策略。
package workpool

import (
	"context"
	"errors"
	"sync"

	"github.com/promotion-next/internal/logger"

	"golang.org/x/sync/semaphore"
)

// ErrRejected 池已饱和且策略为拒绝
var ErrRejected = errors.New("workpool: task rejected")

// ErrClosed 池已关闭
var ErrClosed = errors.New("workpool: closed")

// Policy 饱和策略
type Policy int

const (
	// Abort 等待队列已满时拒绝任务
	Abort Policy = iota
	// CallerRuns 等待队列已满时由提交方同步执行
	CallerRuns
)

// Pool 固定并发数的协程池；workers 个任务并发执行，最多 queue 个任务排队
type Pool struct {
	name    string
	policy  Policy
	slots   *semaphore.Weighted
	pending *semaphore.Weighted
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// New 创建协程池
func New(name string, workers, queue int, policy Policy) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queue < 0 {
		queue = 0
	}
	return &Pool{
		name:    name,
		policy:  policy,
		slots:   semaphore.NewWeighted(int64(workers)),
		pending: semaphore.NewWeighted(int64(workers + queue)),
	}
}

// Name 池名称
func (p *Pool) Name() string {
	return p.name
}

// Submit 提交任务；返回 nil 表示任务已执行或已排队
func (p *Pool) Submit(fn func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	if !p.pending.TryAcquire(1) {
		if p.policy == CallerRuns {
			p.run(fn)
			return nil
		}
		return ErrRejected
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.pending.Release(1)
		_ = p.slots.Acquire(context.Background(), 1)
		defer p.slots.Release(1)
		p.run(fn)
	}()
	return nil
}

func (p *Pool) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorw("workpool_task_panic", "pool", p.name, "panic", r)
		}
	}()
	fn()
}

// Close 停止接收新任务并等待已提交任务完成，ctx 到期时提前返回
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
