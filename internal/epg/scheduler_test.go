// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package epg

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/tvinput/internal/channels"
	"github.com/ManuGH/tvinput/internal/provider"
)

type fakeTimer struct {
	ch chan time.Time
}

func (f *fakeTimer) C() <-chan time.Time { return f.ch }
func (f *fakeTimer) Stop() bool          { return true }

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTimer(time.Duration) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{ch: make(chan time.Time, 1)}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) fire(i int) {
	c.mu.Lock()
	t := c.timers[i]
	c.mu.Unlock()
	t.ch <- time.Now()
}

func (c *fakeClock) timerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

var ignoreSQL = goleak.IgnoreTopFunction("database/sql.(*DB).connectionCleaner")

func newProvider(t *testing.T) (*provider.Provider, int64) {
	t.Helper()
	p, err := provider.Open(filepath.Join(t.TempDir(), "tv.db"), provider.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	ids, err := p.InsertChannels(context.Background(), "input", []provider.ChannelRow{{DisplayNumber: "1-1", DisplayName: "One"}})
	require.NoError(t, err)
	return p, ids[0]
}

func TestSlots(t *testing.T) {
	tmpl := channels.ProgramTemplate{StartTimeSec: 100, DurationSec: 60}

	tests := []struct {
		name      string
		nowSec    int64
		wantStart int64
	}{
		{"on boundary", 160, 160},
		{"inside slot", 219, 160},
		{"before template start", 50, 40},
		{"exactly template start", 100, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots := Slots(tmpl, time.Unix(tt.nowSec, 0), DefaultRepeatCount)
			require.Len(t, slots, DefaultRepeatCount)
			assert.Equal(t, tt.wantStart*1000, slots[0].StartMillis)
			assert.LessOrEqual(t, slots[0].StartMillis, tt.nowSec*1000)
			assert.Equal(t, int64(0), ((slots[0].StartMillis/1000-tmpl.StartTimeSec)%60+60)%60)
			for i := 1; i < len(slots); i++ {
				assert.Equal(t, slots[i-1].EndMillis, slots[i].StartMillis)
				assert.Equal(t, int64(60_000), slots[i].EndMillis-slots[i].StartMillis)
			}
		})
	}

	assert.Empty(t, Slots(channels.ProgramTemplate{DurationSec: 0}, time.Now(), 24))
}

func TestFill_Idempotent(t *testing.T) {
	ctx := context.Background()
	p, ch := newProvider(t)
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := NewScheduler(p).WithClock(clock)
	tmpl := channels.ProgramTemplate{Title: "Loop", Description: "d", StartTimeSec: 0, DurationSec: 600}

	n, err := s.Fill(ctx, ch, tmpl)
	require.NoError(t, err)
	assert.Equal(t, 24, n)

	n, err = s.Fill(ctx, ch, tmpl)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	rows, err := p.ListPrograms(ctx, ch, 0, 1<<62)
	require.NoError(t, err)
	require.Len(t, rows, 24)
	assert.Equal(t, "Loop", rows[0].Title)
	assert.Equal(t, int64(1_700_000_000_000-(1_700_000_000%600)*1000), rows[0].StartTimeUTCMillis)

	// Half an hour later only the new tail is added.
	clock.mu.Lock()
	clock.now = clock.now.Add(30 * time.Minute)
	clock.mu.Unlock()
	n, err = s.Fill(ctx, ch, tmpl)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSchedule_RunsAfterDelay(t *testing.T) {
	p, ch := newProvider(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent(), ignoreSQL)
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := NewScheduler(p).WithClock(clock)
	tmpl := channels.ProgramTemplate{Title: "Loop", DurationSec: 300}

	require.NoError(t, s.Schedule(provider.ChannelURI(ch), tmpl))
	assert.Equal(t, 1, s.Pending())

	rows, err := p.ListPrograms(context.Background(), ch, 0, 1<<62)
	require.NoError(t, err)
	assert.Empty(t, rows)

	clock.fire(0)
	require.Eventually(t, func() bool { return s.Pending() == 0 }, 5*time.Second, 10*time.Millisecond)

	rows, err = p.ListPrograms(context.Background(), ch, 0, 1<<62)
	require.NoError(t, err)
	assert.Len(t, rows, 24)
	s.Stop()
}

func TestSchedule_SupersedesPending(t *testing.T) {
	p, ch := newProvider(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent(), ignoreSQL)
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := NewScheduler(p).WithClock(clock)

	require.NoError(t, s.Schedule(provider.ChannelURI(ch), channels.ProgramTemplate{Title: "First", DurationSec: 300}))
	require.NoError(t, s.Schedule(provider.ChannelURI(ch), channels.ProgramTemplate{Title: "Second", DurationSec: 300}))
	assert.Equal(t, 1, s.Pending())
	require.Equal(t, 2, clock.timerCount())

	clock.fire(1)
	require.Eventually(t, func() bool { return s.Pending() == 0 }, 5*time.Second, 10*time.Millisecond)

	rows, err := p.ListPrograms(context.Background(), ch, 0, 1<<62)
	require.NoError(t, err)
	require.Len(t, rows, 24)
	for _, r := range rows {
		assert.Equal(t, "Second", r.Title)
	}
	s.Stop()
}

func TestSchedule_ZeroDurationAndStop(t *testing.T) {
	p, ch := newProvider(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent(), ignoreSQL)
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := NewScheduler(p).WithClock(clock)

	require.NoError(t, s.Schedule(provider.ChannelURI(ch), channels.ProgramTemplate{DurationSec: 0}))
	assert.Equal(t, 0, s.Pending())

	require.NoError(t, s.Schedule(provider.ChannelURI(ch), channels.ProgramTemplate{DurationSec: 10}))
	s.Stop()
	assert.Equal(t, 0, s.Pending())
	assert.ErrorIs(t, s.Schedule(provider.ChannelURI(ch), channels.ProgramTemplate{DurationSec: 10}), ErrStopped)

	assert.ErrorIs(t, s.Schedule("bogus", channels.ProgramTemplate{DurationSec: 10}), provider.ErrInvalidURI)
}
