// Package syncx provides the concurrency primitives used by the lifecycle
// orchestrator and other components that need to serialize access to shared
// state.
//
// Design decisions:
//   - Context-first: blocking operations accept context.Context so callers
//     can abandon a wait
//   - FIFO fairness: the semaphore wakes waiters in arrival order, which
//     keeps module state transitions deterministic under contention
//   - Failure isolation: the retry queue keeps executing queued work even
//     when an individual operation exhausts its attempts
//
// Components:
//   - Semaphore: counting semaphore with a fair waiter queue
//   - Guarded: a value wrapper that grants exclusive access through a
//     single-permit semaphore
//   - Queue: a sequential executor that retries failed operations up to a
//     configured bound
package syncx
