// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package app

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/tvinput/internal/config"
	"github.com/ManuGH/tvinput/internal/provider"
)

func TestSingletons_Defaults(t *testing.T) {
	cfg := config.Defaults()
	cfg.Version = "v0.1.0"
	s := New(cfg, nil, nil)

	assert.Equal(t, BuildTypeAOSP, s.BuildType())
	assert.Equal(t, TunerSetup{InputID: cfg.InputID, AfterCompletion: "tv"}, s.TunerSetup())
	assert.False(t, s.CloudEpgFlags().Enabled)
	assert.False(t, s.ConcurrentDvrPlaybackFlags().Enabled)
	assert.Equal(t, 1, s.ConcurrentDvrPlaybackFlags().MaxSessions)
	assert.True(t, s.BackendKnobs().EnableRecordingRefresh)
	assert.Empty(t, s.AccountHelper().Accounts())
	_, ok := s.AccountHelper().FirstEligibleAccount()
	assert.False(t, ok)
	_, ok = s.BuiltInTunerManager()
	assert.False(t, ok)

	info := s.Info()
	assert.Equal(t, "v0.1.0", info.Version)
	assert.Zero(t, info.StartupMillis)
}

func TestSingletons_FlagOverrides(t *testing.T) {
	cfg := config.Defaults()
	on, off, four := true, false, 4
	cfg.Flags = config.FlagsConfig{CloudEpg: &on, ConcurrentDvrPlayback: &four, EnableRecordingRefresh: &off}
	s := New(cfg, nil, nil)

	assert.True(t, s.CloudEpgFlags().Enabled)
	assert.Equal(t, ConcurrentDvrPlaybackFlags{Enabled: true, MaxSessions: 4}, s.ConcurrentDvrPlaybackFlags())
	assert.False(t, s.BackendKnobs().EnableRecordingRefresh)
}

func TestSingletons_LazyValuesAreShared(t *testing.T) {
	s := New(config.Defaults(), nil, nil)

	var wg sync.WaitGroup
	trackers := make([]Tracker, 8)
	for i := range trackers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			trackers[i] = s.Tracker()
		}()
	}
	wg.Wait()
	for _, tr := range trackers {
		assert.Same(t, trackers[0], tr)
	}
	assert.Same(t, s.Analytics().DefaultTracker(), s.Tracker())
	assert.Same(t, s.AccountHelper(), s.AccountHelper())
}

func TestStubAnalytics_OptOut(t *testing.T) {
	a := NewStubAnalytics()
	tr := a.DefaultTracker().(*logTracker)

	tr.SendEvent("playback", "tune", "1-1")
	tr.SendScreenView("banner")
	assert.Equal(t, int64(2), tr.events.Load())

	a.SetOptOut(true)
	tr.SendEvent("playback", "tune", "1-2")
	assert.Equal(t, int64(2), tr.events.Load())
}

func TestPerformanceMonitor(t *testing.T) {
	now := time.Unix(100, 0)
	p := NewPerformanceMonitor(func() time.Time { return now })
	assert.Zero(t, p.StartupDuration())

	now = now.Add(1500 * time.Millisecond)
	p.MarkCreated()
	now = now.Add(time.Hour)
	p.MarkCreated()
	assert.Equal(t, 1500*time.Millisecond, p.StartupDuration())
}

func TestStubEpgReader(t *testing.T) {
	ctx := context.Background()
	p, err := provider.Open(filepath.Join(t.TempDir(), "tv.db"), provider.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	ids, err := p.InsertChannels(ctx, "input", []provider.ChannelRow{{DisplayNumber: "1-1", DisplayName: "Blender"}})
	require.NoError(t, err)
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	_, err = p.InsertProgram(ctx, provider.ProgramRow{
		ChannelID:          ids[0],
		Title:              "Sintel",
		StartTimeUTCMillis: start.UnixMilli(),
		EndTimeUTCMillis:   start.Add(15 * time.Minute).UnixMilli(),
	})
	require.NoError(t, err)

	cfg := config.Defaults()
	cfg.InputID = "input"
	reader := New(cfg, p, nil).EpgReader()
	assert.False(t, reader.IsAvailable())

	channels, err := reader.Channels(ctx)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, "Blender", channels[0].DisplayName)

	programs, err := reader.Programs(ctx, ids[0], start.Add(5*time.Minute), start.Add(10*time.Minute))
	require.NoError(t, err)
	require.Len(t, programs, 1)
	assert.Equal(t, "Sintel", programs[0].Title)

	programs, err = reader.Programs(ctx, ids[0], start.Add(time.Hour), start.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, programs)

	empty := NewStubEpgReader(nil, "input")
	channels, err = empty.Channels(ctx)
	require.NoError(t, err)
	assert.Empty(t, channels)
}
