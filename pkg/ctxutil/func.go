package ctxutil

import (
	"context"
)

// doneContext reports done only after the cleanup function attached to the
// parent cancellation has returned.
type doneContext struct {
	context.Context
	done chan struct{}
}

// OnDone runs fn once parent is cancelled or the returned cancel function is
// called. The returned context is done after fn returns, so callers waiting
// on it observe the completed cleanup.
func OnDone(parent context.Context, fn func()) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	dc := &doneContext{
		Context: ctx,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(dc.done)
		<-ctx.Done()
		fn()
	}()

	return dc, cancel
}

func (c *doneContext) Done() <-chan struct{} {
	return c.done
}

func (c *doneContext) Err() error {
	select {
	case <-c.done:
		return c.Context.Err()
	default:
		return nil
	}
}
