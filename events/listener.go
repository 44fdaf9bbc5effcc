package events

import (
	"sync/atomic"

	"github.com/casualjim/switchboard/pkg/uuidx"
	"github.com/go-openapi/strfmt"
)

// Event is the envelope delivered to handlers. Params holds the channel
// segments captured by wildcard positions in the listener's pattern, in
// left-to-right order.
type Event struct {
	Channel   string          `json:"channel"`
	Params    []string        `json:"params,omitempty"`
	Payload   any             `json:"payload,omitempty"`
	Retained  bool            `json:"retained"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

// Handler processes a delivered event. A returned error (or a panic) is
// logged by the bus and isolated to this listener.
type Handler func(Event) error

type bucketKind int

const (
	bucketStatic bucketKind = iota
	bucketFixed
	bucketGlobal
)

// classify puts a pattern in exactly one bucket for its whole lifetime:
// static when it has no wildcards, fixed when it has "*" but no "#",
// global when it contains "#".
func classify(pattern Channel) bucketKind {
	kind := bucketStatic
	for _, seg := range pattern {
		switch seg {
		case WildcardMulti:
			return bucketGlobal
		case WildcardSingle:
			kind = bucketFixed
		}
	}
	return kind
}

type listener struct {
	id      string
	pattern Channel
	handler Handler
	once    bool
	fired   atomic.Bool
}

func newListener(pattern Channel, handler Handler, once bool) *listener {
	return &listener{
		id:      uuidx.NewString(),
		pattern: pattern,
		handler: handler,
		once:    once,
	}
}

// claim marks a one-shot listener as consumed. It reports whether this
// caller won the race; repeated or concurrent matching emits lose.
func (l *listener) claim() bool {
	return !l.once || l.fired.CompareAndSwap(false, true)
}

// Handle identifies a registered listener and the bucket it lives in,
// which is enough to remove exactly that listener later.
type Handle struct {
	id     string
	kind   bucketKind
	key    string
	length int
}

// ID returns the listener's unique identifier.
func (h Handle) ID() string { return h.id }

// Zero reports whether the handle does not reference a stored listener,
// such as the handle returned by Once when a retained event already
// consumed it during registration.
func (h Handle) Zero() bool { return h.id == "" }
