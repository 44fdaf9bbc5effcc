package syncx

import "context"

// Guarded wraps a value behind a single-permit semaphore so that reads,
// writes, and compound operations get exclusive access.
type Guarded[T any] struct {
	sem   *Semaphore
	value T
}

// NewGuarded creates a guarded wrapper around the given initial value.
func NewGuarded[T any](initial T) *Guarded[T] {
	return &Guarded[T]{sem: NewSemaphore(1), value: initial}
}

// Get returns the current value under the guard.
func (g *Guarded[T]) Get(ctx context.Context) (T, error) {
	var zero T
	if err := g.sem.Acquire(ctx); err != nil {
		return zero, err
	}
	defer g.sem.Release()
	return g.value, nil
}

// Set replaces the value under the guard.
func (g *Guarded[T]) Set(ctx context.Context, value T) error {
	if err := g.sem.Acquire(ctx); err != nil {
		return err
	}
	defer g.sem.Release()
	g.value = value
	return nil
}

// Use runs fn with exclusive access to the wrapped value. The guard is
// released when fn returns, whether or not it failed.
func (g *Guarded[T]) Use(ctx context.Context, fn func(*T) error) error {
	if err := g.sem.Acquire(ctx); err != nil {
		return err
	}
	defer g.sem.Release()
	return fn(&g.value)
}
