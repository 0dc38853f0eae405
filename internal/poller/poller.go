// Package poller runs periodic refreshes such as dashboard stats and the
// backend health check.
package poller

import (
	"context"
	"time"
)

const (
	StatsInterval  = 30 * time.Second
	HealthInterval = 15 * time.Second
)

// Every calls fn immediately and then once per interval until ctx is
// cancelled. Calls never overlap; a slow fn delays the next tick.
func Every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	if ctx.Err() != nil {
		return
	}
	fn(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// Start runs Every in a goroutine and returns a function that stops it and
// waits for the last call to finish.
func Start(ctx context.Context, interval time.Duration, fn func(context.Context)) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		Every(ctx, interval, fn)
	}()
	return func() {
		cancel()
		<-done
	}
}
