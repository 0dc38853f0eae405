package poller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvery_RunsImmediatelyThenTicks(t *testing.T) {
	var calls atomic.Int32
	stop := Start(context.Background(), 10*time.Millisecond, func(context.Context) {
		calls.Add(1)
	})

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	stop()

	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, calls.Load(), "no calls after stop")
}

func TestEvery_CancelledContextNeverCalls(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	Every(ctx, time.Millisecond, func(context.Context) { called = true })
	assert.False(t, called)
}

func TestStart_CallsBeforeFirstInterval(t *testing.T) {
	first := make(chan struct{}, 1)
	stop := Start(context.Background(), time.Hour, func(context.Context) {
		select {
		case first <- struct{}{}:
		default:
		}
	})
	defer stop()

	select {
	case <-first:
	case <-time.After(time.Second):
		t.Fatal("fn was not called before the first interval")
	}
}
