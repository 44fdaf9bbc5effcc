// Package lifecycle orchestrates application modules through a strict
// finite state machine, coordinating startup in dependency order and
// broadcasting every transition over the events bus.
//
// Design decisions:
//   - Strict FSM: an invalid transition fails synchronously with a
//     TransitionError naming the current and attempted states
//   - Retained broadcasts: every transition emits a retained
//     "module/<name>/state_changed" event, so late-joining observers learn
//     the current state of each module without polling
//   - Dependency-ordered startup: Initialize walks the dependency graph
//     depth-first with an on-path set; a cycle fails before any module is
//     touched, naming the full cycle
//   - Sequential initialization: modules start one at a time so a
//     dependency is fully active before its dependents run
//   - Guarded transitions: each module serializes its own transitions with
//     a single-permit semaphore, leaving different modules independent
//   - Request stack: every module carries a push/pop stack of pending
//     requests with awaitable response handles, for nested interactions
//
// Reserved channels owned by this package:
//   - module/<name>/state_changed (retained)
//   - module_manager/module_activated
//   - router/push
//   - router/pop
package lifecycle
