// Package inflight collapses concurrent calls for the same key into one.
package inflight

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// Group runs at most one call per key at a time. Callers that arrive while a call
// is outstanding wait for its result. The key is released as soon as the call
// returns, so a failed call is never replayed to later callers.
type Group[T any] struct {
	sf      singleflight.Group
	timeout time.Duration
}

// New creates a Group. A positive timeout bounds each shared call; zero means the
// call is bounded only by fn itself.
func New[T any](timeout time.Duration) *Group[T] {
	return &Group[T]{timeout: timeout}
}

// Do runs fn for key, or joins the call already running for it. shared reports
// whether the result was delivered to more than one caller.
//
// fn receives a context detached from ctx: a caller that gives up returns
// ctx.Err() immediately, while the shared call keeps running for the others.
func (g *Group[T]) Do(ctx context.Context, key string, fn func(context.Context) (T, error)) (v T, shared bool, err error) {
	ch := g.sf.DoChan(key, func() (any, error) {
		callCtx := context.WithoutCancel(ctx)
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(callCtx, g.timeout)
			defer cancel()
		}
		return fn(callCtx)
	})

	select {
	case <-ctx.Done():
		return v, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return v, res.Shared, res.Err
		}
		return res.Val.(T), res.Shared, nil
	}
}
