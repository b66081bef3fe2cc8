package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	defaultDispatcherWorkers   = 4
	defaultDispatcherQueueSize = 256
	defaultDispatcherTimeout   = 10 * time.Second
)

// SideEffectDispatcherDeps configures the post-commit side effect worker pool.
type SideEffectDispatcherDeps struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type queuedEffect struct {
	name string
	task func(context.Context) error
}

type sideEffectDispatcher struct {
	tasks   chan queuedEffect
	timeout time.Duration
	logger  func(context.Context, string, map[string]any)

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewSideEffectDispatcher starts a bounded worker pool for post-commit side
// effects. Tasks run with their own context detached from the request; task
// failures and panics are logged and never propagate to callers.
func NewSideEffectDispatcher(deps SideEffectDispatcherDeps) (SideEffectDispatcher, error) {
	workers := deps.Workers
	if workers <= 0 {
		workers = defaultDispatcherWorkers
	}
	queueSize := deps.QueueSize
	if queueSize <= 0 {
		queueSize = defaultDispatcherQueueSize
	}
	timeout := deps.TaskTimeout
	if timeout <= 0 {
		timeout = defaultDispatcherTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	d := &sideEffectDispatcher{
		tasks:   make(chan queuedEffect, queueSize),
		timeout: timeout,
		logger:  logger,
	}

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}

	return d, nil
}

// Enqueue hands a task to the pool. It never blocks: when the queue is full
// or the dispatcher is closed the task is dropped and false is returned.
func (d *sideEffectDispatcher) Enqueue(name string, task func(context.Context) error) bool {
	if task == nil {
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	select {
	case d.tasks <- queuedEffect{name: name, task: task}:
		return true
	default:
		return false
	}
}

// Close stops intake and drains queued tasks. It returns the context error
// when the drain does not finish in time.
func (d *sideEffectDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return errors.New("side effect dispatcher: already closed")
	}
	d.closed = true
	close(d.tasks)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *sideEffectDispatcher) worker() {
	defer d.wg.Done()
	for effect := range d.tasks {
		d.run(effect)
	}
}

func (d *sideEffectDispatcher) run(effect queuedEffect) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.logger(ctx, "effect.panic", map[string]any{
				"effect": effect.name,
				"panic":  fmt.Sprintf("%v", r),
			})
		}
	}()

	if err := effect.task(ctx); err != nil {
		d.logger(ctx, "effect.failed", map[string]any{
			"effect": effect.name,
			"error":  err.Error(),
		})
	}
}
