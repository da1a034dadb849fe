// Package completer implements the single-shot request/reply primitive
// used by the model registry's awaitable send: a future fulfilled once,
// from the destination model's loop thread, and awaited by the caller.
package completer

import (
	"context"
	"sync"

	"github.com/meshframe/actorcore/errcode"
)

// Completer is a one-shot future/promise pair. Fulfill may be called at
// most once; later calls are no-ops. Await blocks until Fulfill runs or
// ctx is done, whichever comes first.
type Completer struct {
	once   sync.Once
	result chan any
}

// New returns a ready-to-use Completer.
func New() *Completer {
	return &Completer{result: make(chan any, 1)}
}

// Fulfill delivers v to any pending or future Await call. Only the first
// call takes effect.
func (c *Completer) Fulfill(v any) {
	c.once.Do(func() {
		c.result <- v
	})
}

// Await blocks until Fulfill has run or ctx is cancelled.
func (c *Completer) Await(ctx context.Context) (any, error) {
	select {
	case v := <-c.result:
		c.result <- v // put it back for every other Await
		return v, nil
	case <-ctx.Done():
		return nil, errcode.New(errcode.Error, "Completer.Await", ctx.Err().Error())
	}
}
