package transcoder

import (
	"context"
	"errors"
	"fmt"
)

// errAbandoned marks an await that returned before its work finished. The
// work keeps running and release takes over its result.
var errAbandoned = errors.New("abandoned to background")

type outcome[T any] struct {
	val T
	err error
}

// async runs fn in the background. The returned channel yields exactly one
// outcome.
func async[T any](fn func() (T, error)) <-chan outcome[T] {
	ch := make(chan outcome[T], 1)
	go func() {
		v, err := fn()
		ch <- outcome[T]{val: v, err: err}
	}()
	return ch
}

// await waits for ch or ctx. When ctx wins, the error wraps errAbandoned
// and ctx.Err(), and release (if non-nil) is called with whatever the
// background work produces once it finishes.
func await[T any](ctx context.Context, ch <-chan outcome[T], release func(T)) (T, error) {
	select {
	case o := <-ch:
		return o.val, o.err
	case <-ctx.Done():
		go func() {
			o := <-ch
			if release != nil {
				release(o.val)
			}
		}()
		var zero T
		return zero, fmt.Errorf("%w: %w", errAbandoned, ctx.Err())
	}
}
