package lifecycle

import (
	"context"
	"sync"

	"github.com/casualjim/switchboard/pkg/stdx"
)

// Response is the resolvable handle returned by Module.Push. It is
// completed exactly once, either by Pop with a caller-supplied value or by
// ClearStack with no value.
type Response struct {
	done  chan struct{}
	value any
	once  sync.Once
}

func newResponse() *Response {
	return &Response{done: make(chan struct{})}
}

func (r *Response) complete(value any) {
	r.once.Do(func() {
		r.value = value
		close(r.done)
	})
}

// Get blocks until the response is resolved or the context is done. A
// stack entry resolved by ClearStack yields a nil value.
func (r *Response) Get(ctx context.Context) (any, error) {
	select {
	case <-r.done:
		return r.value, nil
	case <-ctx.Done():
		return stdx.Zero[any](), ctx.Err()
	}
}

// Resolved reports whether the response has been completed.
func (r *Response) Resolved() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}
