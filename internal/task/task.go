// Package task manages the lifecycle of named goroutines.
//
// A Manager starts goroutines under a shared cancellable context, recovers panics raised by
// them, and waits for their termination with a bound. After Wait returns the Manager can be
// reused: a fresh context is derived from the parent context.
package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-fsmsock/internal/pool"
	"github.com/arloliu/go-fsmsock/logger"
)

var (
	// ErrStopped is returned when a task is started on a stopped Manager.
	ErrStopped = errors.New("task manager already stopped")

	// ErrWaitTimeout is returned by Wait when tasks are still running after the timeout.
	ErrWaitTimeout = errors.New("timeout waiting for tasks to terminate")
)

// Func is a task body run in a loop. It returns true to run again, or false to terminate.
type Func func() bool

// Manager manages a group of goroutines.
type Manager struct {
	pctx   context.Context
	ctx    context.Context
	cancel context.CancelFunc
	logger logger.Logger
	wg     *sync.WaitGroup
	count  atomic.Int32
	mu     sync.RWMutex // protects ctx, cancel and wg
}

// NewManager creates a Manager whose tasks are cancelled when ctx is done.
func NewManager(ctx context.Context, l logger.Logger) *Manager {
	mgr := &Manager{pctx: ctx, logger: l, wg: &sync.WaitGroup{}}
	mgr.ctx, mgr.cancel = context.WithCancel(ctx)

	return mgr
}

// Context returns the context shared by the running tasks.
func (mgr *Manager) Context() context.Context {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()

	return mgr.ctx
}

// Go runs fn once on a new goroutine.
func (mgr *Manager) Go(name string, fn func()) error {
	return mgr.spawn(name, fn)
}

// Start runs taskFunc repeatedly on a new goroutine until it returns false or the
// Manager is stopped.
func (mgr *Manager) Start(name string, taskFunc Func) error {
	return mgr.spawn(name, func() {
		for {
			select {
			case <-mgr.Context().Done():
				return
			default:
				if !taskFunc() {
					return
				}
			}
		}
	})
}

func (mgr *Manager) spawn(name string, body func()) error {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()

	select {
	case <-mgr.ctx.Done():
		return fmt.Errorf("start %s: %w", name, ErrStopped)
	default:
	}

	wg := mgr.wg
	wg.Add(1)
	mgr.count.Add(1)

	go func() {
		defer wg.Done()
		defer func() {
			mgr.count.Add(-1)
			mgr.logger.Debug("task terminated", "name", name, "task_count", mgr.Count())
		}()
		defer func() {
			if r := recover(); r != nil {
				mgr.logger.Error("panic in task", "name", name, "panic", r)
			}
		}()

		body()
	}()

	return nil
}

// Stop cancels the context shared by all tasks.
func (mgr *Manager) Stop() {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()

	mgr.cancel()
}

// Wait waits up to timeout for all tasks started so far to terminate, then resets the
// Manager so new tasks can be started.
func (mgr *Manager) Wait(timeout time.Duration) error {
	mgr.mu.Lock()
	wg := mgr.wg
	mgr.wg = &sync.WaitGroup{}
	mgr.mu.Unlock()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	timer := pool.GetTimer(timeout)
	defer pool.PutTimer(timer)

	var err error
	select {
	case <-done:
	case <-timer.C:
		err = ErrWaitTimeout
	}

	mgr.mu.Lock()
	mgr.cancel()
	mgr.ctx, mgr.cancel = context.WithCancel(mgr.pctx)
	mgr.mu.Unlock()

	return err
}

// Count returns the number of running tasks.
func (mgr *Manager) Count() int {
	return int(mgr.count.Load())
}
