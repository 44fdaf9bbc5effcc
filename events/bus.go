package events

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/switchboard/pkg/slogx"
	"github.com/fogfish/opts"
	"github.com/go-openapi/strfmt"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// retainedEvent is the last payload emitted with retain for an exact
// channel.
type retainedEvent struct {
	payload   any
	timestamp strfmt.DateTime
}

// Bus is the topic router. It owns the listener buckets and the retained
// event map; namespace views delegate to it and never hold private state.
//
// All methods are safe for concurrent use. Dispatch for a single Emit call
// runs all currently matching listeners before Emit returns.
type Bus struct {
	sep string
	log *slog.Logger

	mu     sync.RWMutex
	static *orderedmap.OrderedMap[string, []*listener]
	fixed  *orderedmap.OrderedMap[int, []*listener]
	global []*listener

	retained *haxmap.Map[string, retainedEvent]
}

// WithSeparator configures the segment separator used when parsing
// channels and patterns. The default is "/".
func WithSeparator(sep string) opts.Option[Bus] {
	return opts.Type[Bus](func(b *Bus) error {
		if sep == "" {
			return fmt.Errorf("events: separator must not be empty")
		}
		b.sep = sep
		return nil
	})
}

// WithLogger configures the logger used to report isolated listener
// failures.
func WithLogger(log *slog.Logger) opts.Option[Bus] {
	return opts.Type[Bus](func(b *Bus) error {
		if log == nil {
			return fmt.Errorf("events: logger must not be nil")
		}
		b.log = log
		return nil
	})
}

// New creates an empty bus.
func New(options ...opts.Option[Bus]) *Bus {
	b := &Bus{
		sep:      DefaultSeparator,
		log:      slog.Default(),
		static:   orderedmap.New[string, []*listener](),
		fixed:    orderedmap.New[int, []*listener](),
		retained: haxmap.New[string, retainedEvent](),
	}
	if err := opts.Apply(b, options); err != nil {
		panic(err)
	}
	b.log = b.log.With(slogx.LoggerName("events"))
	return b
}

// Separator returns the configured segment separator.
func (b *Bus) Separator() string { return b.sep }

// Register adds a listener for pattern. Retained events matching the
// pattern are replayed synchronously to the handler before it is stored;
// replay failures are logged per event and never surface to the caller.
func (b *Bus) Register(pattern string, handler Handler) (Handle, error) {
	return b.register(pattern, handler, false)
}

// Once registers a listener that removes itself after its first
// successful delivery, including delivery during retained replay. The
// returned handle is zero when a retained event already consumed the
// listener.
func (b *Bus) Once(pattern string, handler Handler) (Handle, error) {
	return b.register(pattern, handler, true)
}

// Wait registers a one-shot listener and returns a channel that yields the
// single matching event. The channel is buffered, so the bus never blocks
// on a caller that has not collected the result yet.
func (b *Bus) Wait(pattern string) (<-chan Event, error) {
	ch := make(chan Event, 1)
	_, err := b.Once(pattern, func(ev Event) error {
		ch <- ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func (b *Bus) register(pattern string, handler Handler, once bool) (Handle, error) {
	if handler == nil {
		return Handle{}, ErrNilHandler
	}
	parsed, err := ParseChannel(pattern, b.sep)
	if err != nil {
		return Handle{}, fmt.Errorf("register %q: %w", pattern, err)
	}

	l := newListener(parsed, handler, once)
	b.replayRetained(l)
	if once && l.fired.Load() {
		// Consumed during replay; nothing to store or remove later.
		return Handle{}, nil
	}

	kind := classify(parsed)
	handle := Handle{id: l.id, kind: kind, key: parsed.Join(b.sep), length: len(parsed)}

	b.mu.Lock()
	switch kind {
	case bucketStatic:
		cur, _ := b.static.Get(handle.key)
		b.static.Set(handle.key, append(cur, l))
	case bucketFixed:
		cur, _ := b.fixed.Get(handle.length)
		b.fixed.Set(handle.length, append(cur, l))
	case bucketGlobal:
		b.global = append(b.global, l)
	}
	b.mu.Unlock()

	return handle, nil
}

// replayRetained synchronously delivers every retained event the pattern
// matches. For one-shot listeners, delivery stops after the first match.
func (b *Bus) replayRetained(l *listener) {
	b.retained.ForEach(func(channel string, re retainedEvent) bool {
		parsed, err := ParseChannel(channel, b.sep)
		if err != nil {
			return true
		}
		params, ok := match(l.pattern, parsed)
		if !ok {
			return true
		}
		if !l.claim() {
			return false
		}
		b.invoke(l, Event{
			Channel:   channel,
			Params:    params,
			Payload:   re.payload,
			Retained:  true,
			Timestamp: re.timestamp,
		})
		return !l.once
	})
}

// Emit delivers payload to every listener whose pattern matches channel.
// The channel must normalize to at least one segment and must not contain
// wildcards. When retain is true, the payload is stored for the exact
// channel before dispatch and replayed to future matching registrations.
//
// Buckets are visited static first, then fixed-wildcard, then global;
// within each bucket listeners run in registration order. Handler errors
// and panics are logged and never stop dispatch.
func (b *Bus) Emit(channel string, payload any, retain bool) error {
	parsed, err := ParseChannel(channel, b.sep)
	if err != nil {
		return fmt.Errorf("emit %q: %w", channel, err)
	}
	if parsed.HasWildcard() {
		return fmt.Errorf("emit %q: %w", channel, ErrWildcardChannel)
	}

	joined := parsed.Join(b.sep)
	now := strfmt.DateTime(time.Now())
	if retain {
		b.retained.Set(joined, retainedEvent{payload: payload, timestamp: now})
	}

	for _, m := range b.collect(parsed) {
		if !m.l.claim() {
			continue
		}
		b.invoke(m.l, Event{
			Channel:   joined,
			Params:    m.params,
			Payload:   payload,
			Retained:  false,
			Timestamp: now,
		})
		if m.l.once {
			b.remove(Handle{id: m.l.id, kind: m.kind, key: m.key, length: len(parsed)})
		}
	}
	return nil
}

type matched struct {
	l      *listener
	params []string
	kind   bucketKind
	key    string
}

// collect snapshots the matching listeners under the read lock so that
// handlers can register or deafen without deadlocking dispatch.
func (b *Bus) collect(channel Channel) []matched {
	joined := channel.Join(b.sep)

	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []matched
	if ls, ok := b.static.Get(joined); ok {
		for _, l := range ls {
			out = append(out, matched{l: l, kind: bucketStatic, key: joined})
		}
	}
	if ls, ok := b.fixed.Get(len(channel)); ok {
		for _, l := range ls {
			if params, ok := match(l.pattern, channel); ok {
				out = append(out, matched{l: l, params: params, kind: bucketFixed, key: l.pattern.Join(b.sep)})
			}
		}
	}
	for _, l := range b.global {
		if params, ok := match(l.pattern, channel); ok {
			out = append(out, matched{l: l, params: params, kind: bucketGlobal, key: l.pattern.Join(b.sep)})
		}
	}
	return out
}

// invoke runs a handler with panic and error isolation.
func (b *Bus) invoke(l *listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Warn("listener panicked",
				slog.String("channel", ev.Channel),
				slog.String("listener", l.id),
				slog.Any("panic", r),
			)
		}
	}()
	if err := l.handler(ev); err != nil {
		b.log.Warn("listener failed",
			slog.String("channel", ev.Channel),
			slog.String("listener", l.id),
			slogx.Error(err),
		)
	}
}

// Deafen removes the listener behind handle from its bucket. Unknown or
// zero handles are a no-op. Emptied bucket keys are deleted so the maps do
// not grow without bound over the bus's lifetime.
func (b *Bus) Deafen(handle Handle) {
	if handle.Zero() {
		return
	}
	b.remove(handle)
}

func (b *Bus) remove(handle Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch handle.kind {
	case bucketStatic:
		ls, ok := b.static.Get(handle.key)
		if !ok {
			return
		}
		ls = withoutListener(ls, handle.id)
		if len(ls) == 0 {
			b.static.Delete(handle.key)
		} else {
			b.static.Set(handle.key, ls)
		}
	case bucketFixed:
		ls, ok := b.fixed.Get(handle.length)
		if !ok {
			return
		}
		ls = withoutListener(ls, handle.id)
		if len(ls) == 0 {
			b.fixed.Delete(handle.length)
		} else {
			b.fixed.Set(handle.length, ls)
		}
	case bucketGlobal:
		b.global = withoutListener(b.global, handle.id)
	}
}

func withoutListener(ls []*listener, id string) []*listener {
	for i, l := range ls {
		if l.id == id {
			return append(ls[:i:i], ls[i+1:]...)
		}
	}
	return ls
}

// ListenerCount returns the number of stored listeners across all buckets.
func (b *Bus) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := len(b.global)
	for pair := b.static.Oldest(); pair != nil; pair = pair.Next() {
		count += len(pair.Value)
	}
	for pair := b.fixed.Oldest(); pair != nil; pair = pair.Next() {
		count += len(pair.Value)
	}
	return count
}

// RetainedEventCount returns the number of channels with a retained event.
func (b *Bus) RetainedEventCount() int {
	return int(b.retained.Len())
}

// RetainedChannels returns the channels with retained events, sorted.
func (b *Bus) RetainedChannels() []string {
	channels := make([]string, 0, b.retained.Len())
	b.retained.ForEach(func(channel string, _ retainedEvent) bool {
		channels = append(channels, channel)
		return true
	})
	sort.Strings(channels)
	return channels
}

// Retained returns the retained payload for the exact channel, if any.
func (b *Bus) Retained(channel string) (any, bool) {
	parsed, err := ParseChannel(channel, b.sep)
	if err != nil {
		return nil, false
	}
	re, ok := b.retained.Get(parsed.Join(b.sep))
	if !ok {
		return nil, false
	}
	return re.payload, true
}

// Clear removes all listeners and all retained events, root-wide.
func (b *Bus) Clear() {
	b.mu.Lock()
	b.static = orderedmap.New[string, []*listener]()
	b.fixed = orderedmap.New[int, []*listener]()
	b.global = nil
	b.mu.Unlock()
	b.ClearRetained()
}

// ClearRetained removes all retained events, leaving listeners in place.
func (b *Bus) ClearRetained() {
	b.retained.ForEach(func(channel string, _ retainedEvent) bool {
		b.retained.Del(channel)
		return true
	})
}

// String describes the bus for debug output.
func (b *Bus) String() string {
	return "events.Bus(listeners=" + strconv.Itoa(b.ListenerCount()) +
		", retained=" + strconv.Itoa(b.RetainedEventCount()) + ")"
}
