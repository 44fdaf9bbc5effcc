// Package events implements a process-local publish/subscribe bus with
// hierarchical wildcard channels and retained events. It is the backbone
// used by the lifecycle package to broadcast module state changes, and by
// application code for decoupled communication between components.
//
// Design decisions:
//   - Hierarchical channels: a channel is a separator-delimited path such
//     as "module/editor/state_changed"
//   - Wildcard patterns: "*" matches exactly one segment, "#" matches all
//     remaining segments (including zero)
//   - Bucketed dispatch: listeners are classified once at registration into
//     static (exact string key), fixed-wildcard (keyed by segment count),
//     or global ("#") buckets, keeping emit cost proportional to the
//     listeners that can actually match
//   - Retained events: the last payload emitted with retain is replayed
//     synchronously to new matching registrants, so late subscribers learn
//     current state without polling
//   - Failure isolation: a panicking or failing handler is logged and never
//     interrupts delivery to the remaining listeners, nor the emitter
//   - Shared namespaces: a namespace view prepends its prefix and delegates
//     to the root bus, which remains the single owner of all state
//
// Example usage:
//
//	bus := events.New()
//
//	handle, err := bus.Register("user/*/update", func(ev events.Event) error {
//	    fmt.Println("user", ev.Params[0], "updated")
//	    return nil
//	})
//	if err != nil {
//	    return err
//	}
//	defer bus.Deafen(handle)
//
//	if err := bus.Emit("user/42/update", profile, false); err != nil {
//	    return err
//	}
//
// Dispatch for a single Emit call completes before Emit returns: the bus is
// synchronous from the emitter's perspective. Buckets are visited in a
// fixed order (static, fixed-wildcard, global); within a bucket, listeners
// run in registration order.
package events
