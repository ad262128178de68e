// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package watchdog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	ticker chan time.Time
	ready  chan struct{}
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0), ready: make(chan struct{})}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTicker(time.Duration) ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticker = make(chan time.Time)
	close(c.ready)
	return fakeTicker{c.ticker}
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now, ch := c.now, c.ticker
	c.mu.Unlock()
	ch <- now
}

type fakeTicker struct{ c chan time.Time }

func (t fakeTicker) C() <-chan time.Time { return t.c }
func (fakeTicker) Stop()                 {}

func start(t *testing.T, w *Watchdog, clk *fakeClock) <-chan error {
	t.Helper()
	w.clock = clk
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	select {
	case <-clk.ready:
	case <-time.After(time.Second):
		t.Fatal("watchdog did not start")
	}
	return errCh
}

func TestWatchdog_NoProgressTimesOut(t *testing.T) {
	clk := newFakeClock()
	w := New(2*time.Second, 5*time.Second)
	errCh := start(t, w, clk)

	clk.advance(time.Second)
	clk.advance(2 * time.Second)

	require.ErrorIs(t, <-errCh, ErrNoProgress)
	assert.Equal(t, StateTimedOut, w.State())
}

func TestWatchdog_StallAfterProgress(t *testing.T) {
	clk := newFakeClock()
	w := New(2*time.Second, 5*time.Second)
	errCh := start(t, w, clk)

	w.Observe("out_time_us=100")
	assert.Equal(t, StateRunning, w.State())
	clk.advance(4 * time.Second)
	w.Observe("total_size=2048")
	clk.advance(4 * time.Second)
	clk.advance(2 * time.Second)

	require.ErrorIs(t, <-errCh, ErrStalled)
	assert.Equal(t, StateStalled, w.State())
}

func TestWatchdog_EndOfOutputStopsRun(t *testing.T) {
	clk := newFakeClock()
	w := New(time.Second, time.Second)
	errCh := start(t, w, clk)

	w.Observe("progress=continue")
	w.Observe("progress=end")
	w.Observe("progress=end")

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after progress=end")
	}
	assert.Equal(t, StateCompleted, w.State())
}

func TestWatchdog_ObserveIgnoresNoise(t *testing.T) {
	w := New(time.Second, time.Second)
	w.clock = newFakeClock()

	for _, line := range []string{"frame=10", "out_time_us=N/A", "out_time_us=0", "garbage", ""} {
		w.Observe(line)
	}
	assert.Equal(t, StateStarting, w.State())

	w.Observe("total_size=100")
	w.Observe("total_size=50")
	assert.Equal(t, int64(100), w.totalSize)
	assert.Equal(t, StateRunning, w.State())
	assert.Equal(t, "running", w.State().String())
}
