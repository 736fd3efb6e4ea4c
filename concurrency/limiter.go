// Package concurrency bounds how many functions run at once.
package concurrency

import (
	"context"
	"sync"

	apperrors "github.com/leeforge/globaltree/errors"
)

// Semaphore is a counting semaphore.
type Semaphore struct {
	tickets chan struct{}
}

func NewSemaphore(capacity int) *Semaphore {
	if capacity <= 0 {
		capacity = 1
	}
	return &Semaphore{tickets: make(chan struct{}, capacity)}
}

// Acquire blocks until a ticket is free or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.tickets <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Semaphore) Release() {
	<-s.tickets
}

// Limiter runs functions with at most maxConcurrent in flight.
type Limiter struct {
	semaphore *Semaphore
}

func NewLimiter(maxConcurrent int) *Limiter {
	return &Limiter{semaphore: NewSemaphore(maxConcurrent)}
}

// Execute runs fn under the limit. A panic in fn becomes an internal error.
func (l *Limiter) Execute(ctx context.Context, fn func() error) error {
	if err := l.semaphore.Acquire(ctx); err != nil {
		return err
	}
	defer l.semaphore.Release()
	return apperrors.Recover(fn)
}

// ExecuteBatch runs every fn and returns their errors by index. All
// functions are attempted; one failure does not cancel the others.
func (l *Limiter) ExecuteBatch(ctx context.Context, fns []func() error) []error {
	results := make([]error, len(fns))
	var wg sync.WaitGroup

	for i, fn := range fns {
		wg.Add(1)
		go func(index int, f func() error) {
			defer wg.Done()
			results[index] = l.Execute(ctx, f)
		}(i, fn)
	}

	wg.Wait()
	return results
}
