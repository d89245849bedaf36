package ctxutil

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOnDone(t *testing.T) {
	var called atomic.Bool
	ctx, cancel := OnDone(context.Background(), func() { called.Store(true) })
	assert.NoError(t, ctx.Err())

	cancel()
	<-ctx.Done()
	assert.True(t, called.Load())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestOnDoneCancelledParent(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	cancelParent()

	var called atomic.Bool
	ctx, cancel := OnDone(parent, func() { called.Store(true) })
	defer cancel()

	<-ctx.Done()
	assert.True(t, called.Load())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
