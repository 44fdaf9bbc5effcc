package syncx

import (
	"context"
	"sync"
)

// Semaphore is a counting semaphore with FIFO fairness. Acquire suspends
// the caller when no permit is available; Release wakes the longest-waiting
// acquirer, or returns the permit to the pool when nobody is queued.
//
// A Semaphore with one permit behaves as a mutex that supports
// context-aware acquisition.
type Semaphore struct {
	mu      sync.Mutex
	permits int
	max     int
	waiters []chan struct{}
}

// NewSemaphore creates a semaphore with the given number of permits.
// It panics if permits is not positive.
func NewSemaphore(permits int) *Semaphore {
	if permits < 1 {
		panic("syncx: semaphore needs at least one permit")
	}
	return &Semaphore{permits: permits, max: permits}
}

// Acquire takes a permit, suspending the caller until one becomes
// available or the context is done. Waiters are served in arrival order.
func (s *Semaphore) Acquire(ctx context.Context) error {
	s.mu.Lock()
	if s.permits > 0 {
		s.permits--
		s.mu.Unlock()
		return nil
	}

	ready := make(chan struct{})
	s.waiters = append(s.waiters, ready)
	s.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		// The permit may have been handed over while we were cancelling.
		select {
		case <-ready:
			s.mu.Unlock()
			return nil
		default:
		}
		for i, w := range s.waiters {
			if w == ready {
				s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		return ctx.Err()
	}
}

// TryAcquire takes a permit without waiting. It reports whether a permit
// was available.
func (s *Semaphore) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.permits > 0 {
		s.permits--
		return true
	}
	return false
}

// Release returns a permit. If acquirers are queued, the permit is handed
// directly to the one that has waited longest; otherwise the available
// count grows, capped at the configured maximum.
func (s *Semaphore) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.waiters) > 0 {
		ready := s.waiters[0]
		s.waiters = s.waiters[1:]
		close(ready)
		return
	}
	if s.permits < s.max {
		s.permits++
	}
}

// Available returns the number of permits that can be acquired without
// waiting.
func (s *Semaphore) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permits
}
