// Package signal wraps a single reactive value around the events bus. A
// signal's writes are retained emits, so observers attached late still see
// the current value immediately. It is a thin observer layer; all delivery
// semantics come from the bus.
package signal

import (
	"sync"

	"github.com/casualjim/switchboard/events"
)

// Signal is a typed reactive value broadcast over a bus channel. The type
// parameter makes payload mismatches a compile-time concern for writers;
// foreign payloads emitted on the same channel by untyped code are skipped
// by Watch.
type Signal[T any] struct {
	bus     *events.Bus
	channel string

	mu    sync.RWMutex
	value T
}

// New creates a signal on the given channel holding initial. The initial
// value is not broadcast; the first Set is.
func New[T any](bus *events.Bus, channel string, initial T) (*Signal[T], error) {
	if _, err := events.ParseChannel(channel, bus.Separator()); err != nil {
		return nil, err
	}
	return &Signal[T]{bus: bus, channel: channel, value: initial}, nil
}

// Get returns the current value.
func (s *Signal[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set stores the value and broadcasts it as a retained event.
func (s *Signal[T]) Set(value T) error {
	s.mu.Lock()
	s.value = value
	s.mu.Unlock()
	return s.bus.Emit(s.channel, value, true)
}

// Update applies fn to the current value and broadcasts the result.
func (s *Signal[T]) Update(fn func(T) T) error {
	s.mu.Lock()
	s.value = fn(s.value)
	value := s.value
	s.mu.Unlock()
	return s.bus.Emit(s.channel, value, true)
}

// Watch invokes fn for every value broadcast on the signal's channel,
// including the retained current value if one was already set. The
// returned handle unsubscribes via the bus.
func (s *Signal[T]) Watch(fn func(T)) (events.Handle, error) {
	return s.bus.Register(s.channel, func(ev events.Event) error {
		if value, ok := ev.Payload.(T); ok {
			fn(value)
		}
		return nil
	})
}

// Channel returns the bus channel this signal broadcasts on.
func (s *Signal[T]) Channel() string { return s.channel }
