// Package worker provides a bounded goroutine pool that runs batches of
// context-aware tasks. The module center uses it to initialize independent
// modules concurrently.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrPoolClosed is returned when running tasks on a released pool.
var ErrPoolClosed = errors.New("worker pool is closed")

// Task is a context-aware unit of work.
type Task func(ctx context.Context) error

// Pool wraps ants.Pool.
type Pool struct {
	pool   *ants.Pool
	name   string
	logger *zap.Logger
}

// New creates a pool running at most size tasks at a time.
func New(name string, size int, logger *zap.Logger) (*Pool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("pool", name))

	p, err := ants.NewPool(size,
		ants.WithPanicHandler(func(v interface{}) {
			logger.Error("worker panic recovered", zap.Any("panic", v), zap.Stack("stack"))
		}),
		ants.WithNonblocking(false),
		ants.WithExpiryDuration(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create pool %s: %w", name, err)
	}
	return &Pool{pool: p, name: name, logger: logger}, nil
}

// Run executes tasks on the pool and waits for all of them. The returned
// error combines every task failure; a panicking task is reported as an
// error instead of crashing the process.
func (p *Pool) Run(ctx context.Context, tasks ...Task) error {
	errs := make([]error, len(tasks))
	var wg sync.WaitGroup

	for i, task := range tasks {
		i, task := i, task
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("task panicked: %v", r)
				}
			}()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			errs[i] = task(ctx)
		})
		if err != nil {
			wg.Done()
			errs[i] = p.translate(err)
		}
	}

	wg.Wait()
	return multierr.Combine(errs...)
}

// Release waits up to timeout for running tasks and closes the pool.
func (p *Pool) Release(timeout time.Duration) {
	if err := p.pool.ReleaseTimeout(timeout); err != nil {
		p.logger.Warn("pool release timeout", zap.Error(err))
	}
}

func (p *Pool) translate(err error) error {
	if errors.Is(err, ants.ErrPoolClosed) {
		return ErrPoolClosed
	}
	return err
}
