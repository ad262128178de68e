// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/tvinput/internal/channels"
	"github.com/ManuGH/tvinput/internal/media"
	"github.com/ManuGH/tvinput/internal/provider"
)

type fakeDirectory struct {
	entries map[string]channels.Entry
	loads   int
}

func (f *fakeDirectory) LookupByURI(_ context.Context, uri string) (channels.Entry, error) {
	e, ok := f.entries[uri]
	if !ok {
		return channels.Entry{}, &channels.UnknownChannelError{Key: uri}
	}
	return e, nil
}

func (f *fakeDirectory) EnsureLoaded(context.Context) error {
	f.loads++
	return nil
}

type fakeResources map[int]media.Source

func (f fakeResources) Resolve(id int) (media.Source, error) {
	src, ok := f[id]
	if !ok {
		return media.Source{}, media.ErrResourceNotFound
	}
	return src, nil
}

type recordingScheduler struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingScheduler) Schedule(uri string, _ channels.ProgramTemplate) error {
	r.mu.Lock()
	r.calls = append(r.calls, uri)
	r.mu.Unlock()
	return nil
}

type mockObserver struct {
	mock.Mock
}

func (m *mockObserver) VideoStreamChanged(width, height int, interlaced bool) {
	m.Called(width, height, interlaced)
}

func (m *mockObserver) AudioStreamChanged(channels int) { m.Called(channels) }

func (m *mockObserver) ClosedCaptionStreamChanged(hasClosedCaption bool) {
	m.Called(hasClosedCaption)
}

var (
	urlURI      = provider.ChannelURI(1)
	resourceURI = provider.ChannelURI(2)
	missingURI  = provider.ChannelURI(3)
)

func testDirectory() *fakeDirectory {
	return &fakeDirectory{entries: map[string]channels.Entry{
		urlURI: {ID: 1, URI: urlURI, Descriptor: channels.Descriptor{
			Number: "1-2", Name: "Sintel", VideoWidth: 1920, VideoHeight: 1080, AudioChannels: 6, HasClosedCaption: true,
			Program: channels.ProgramTemplate{Title: "Sintel", DurationSec: 888, URL: "https://example.com/sintel.mp4"},
		}},
		resourceURI: {ID: 2, URI: resourceURI, Descriptor: channels.Descriptor{
			Number: "1-1", Name: "BBB", VideoWidth: 1280, VideoHeight: 720, AudioChannels: 2,
			Program: channels.ProgramTemplate{Title: "BBB", DurationSec: 596, ResourceID: 1},
		}},
		missingURI: {ID: 3, URI: missingURI, Descriptor: channels.Descriptor{
			Number: "1003", Program: channels.ProgramTemplate{ResourceID: 99},
		}},
	}}
}

type fixture struct {
	sess     *Session
	player   *media.StubPlayer
	sched    *recordingScheduler
	observer *mockObserver
}

func newFixture(t *testing.T, probe media.ProbeResult, now time.Time) *fixture {
	t.Helper()
	f := &fixture{
		player:   media.NewStubPlayer(probe),
		sched:    &recordingScheduler{},
		observer: &mockObserver{},
	}
	f.sess = newSession("s1", sessionDeps{
		channels:  testDirectory(),
		resources: fakeResources{1: {Path: "/assets/1.mp4"}},
		scheduler: f.sched,
		observer:  f.observer,
		player:    f.player,
		now:       func() time.Time { return now },
	})
	t.Cleanup(f.sess.Release)
	return f
}

func TestTune_NetworkSourceSeeksToLivePosition(t *testing.T) {
	now := time.UnixMilli(1_700_000_123_456)
	f := newFixture(t, media.ProbeResult{Duration: 888 * time.Second, Width: 640, Height: 360}, now)
	f.observer.On("VideoStreamChanged", 1920, 1080, false).Once()
	f.observer.On("AudioStreamChanged", 6).Once()
	f.observer.On("ClosedCaptionStreamChanged", true).Once()

	ok, err := f.sess.Tune(context.Background(), urlURI)
	require.NoError(t, err)
	require.True(t, ok)

	st := f.player.State()
	assert.False(t, st.Looping)
	assert.True(t, st.Playing)
	assert.Equal(t, "https://example.com/sintel.mp4", st.Source.URL)
	want := time.Duration(now.UnixMilli()%888_000) * time.Millisecond
	assert.Equal(t, []time.Duration{want}, st.Seeks)

	snap := f.sess.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, "1-2", snap.ChannelNumber)
	assert.Equal(t, StreamInfo{VideoWidth: 1920, VideoHeight: 1080, AudioChannels: 6, HasClosedCaption: true, Known: true}, snap.Stream)
	assert.Equal(t, []string{urlURI}, f.sched.calls)
	f.observer.AssertExpectations(t)
}

func TestTune_ResourceSourceLoops(t *testing.T) {
	f := newFixture(t, media.ProbeResult{}, time.Now())
	f.observer.On("VideoStreamChanged", mock.Anything, mock.Anything, mock.Anything).Maybe()

	ok, err := f.sess.Tune(context.Background(), resourceURI)
	require.NoError(t, err)
	require.True(t, ok)

	st := f.player.State()
	assert.True(t, st.Looping)
	assert.Equal(t, "/assets/1.mp4", st.Source.Path)
	// Zero duration starts without seeking.
	assert.Empty(t, st.Seeks)
	assert.Equal(t, 1, st.Starts)
}

func TestTune_BindFailureReturnsFalse(t *testing.T) {
	f := newFixture(t, media.ProbeResult{}, time.Now())

	ok, err := f.sess.Tune(context.Background(), missingURI)
	require.NoError(t, err)
	assert.False(t, ok)
	snap := f.sess.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Empty(t, snap.ChannelURI)
	assert.Empty(t, snap.ChannelNumber)
	assert.Empty(t, snap.ChannelName)
	assert.Empty(t, f.sched.calls)
	assert.Equal(t, media.Source{}, f.player.State().Source)
	f.observer.AssertNotCalled(t, "VideoStreamChanged", mock.Anything, mock.Anything, mock.Anything)
}

func TestTune_UnknownChannelIsError(t *testing.T) {
	f := newFixture(t, media.ProbeResult{}, time.Now())
	ok, err := f.sess.Tune(context.Background(), provider.ChannelURI(404))
	assert.False(t, ok)
	assert.ErrorIs(t, err, channels.ErrUnknownChannel)
}

func TestCallbacks_IgnoredAfterRetuneOrRelease(t *testing.T) {
	f := newFixture(t, media.ProbeResult{Duration: time.Minute}, time.Now())
	f.player.ManualPrepare = true

	ok, err := f.sess.Tune(context.Background(), resourceURI)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StatePreparing, f.sess.Snapshot().State)

	f.sess.mu.Lock()
	stale := f.sess.gen - 1
	f.sess.mu.Unlock()
	f.sess.onPrepared(stale)
	f.sess.onVideoSizeChanged(stale)
	assert.Equal(t, 0, f.player.State().Starts)

	f.sess.Release()
	f.player.CompletePrepare()
	assert.Equal(t, 0, f.player.State().Starts)
	assert.Equal(t, StateReleased, f.sess.Snapshot().State)
}

func TestPrepareError_MarksFailed(t *testing.T) {
	f := newFixture(t, media.ProbeResult{}, time.Now())
	f.player.ManualPrepare = true

	ok, err := f.sess.Tune(context.Background(), resourceURI)
	require.NoError(t, err)
	require.True(t, ok)
	f.player.FailPrepare(assert.AnError)
	snap := f.sess.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Empty(t, snap.ChannelURI)
}

func TestTune_SubMillisecondDurationStartsWithoutSeek(t *testing.T) {
	f := newFixture(t, media.ProbeResult{Duration: 500 * time.Microsecond}, time.Now())
	f.observer.On("VideoStreamChanged", mock.Anything, mock.Anything, mock.Anything).Maybe()
	f.observer.On("AudioStreamChanged", mock.Anything).Maybe()
	f.observer.On("ClosedCaptionStreamChanged", mock.Anything).Maybe()

	var ok bool
	require.NotPanics(t, func() {
		var err error
		ok, err = f.sess.Tune(context.Background(), urlURI)
		require.NoError(t, err)
	})
	assert.True(t, ok)

	st := f.player.State()
	assert.Empty(t, st.Seeks)
	assert.Equal(t, 1, st.Starts)
	assert.Equal(t, StateReady, f.sess.Snapshot().State)
}

func TestKeyDown(t *testing.T) {
	f := newFixture(t, media.ProbeResult{}, time.Now())

	require.NoError(t, f.sess.SetStreamVolume(0.4))
	assert.InDelta(t, 0.4, f.player.State().Volume, 1e-9)

	assert.True(t, f.sess.KeyDown(KeyMute))
	assert.Zero(t, f.player.State().Volume)
	assert.True(t, f.sess.Snapshot().Muted)

	// Volume changes while muted are remembered but not applied.
	require.NoError(t, f.sess.SetStreamVolume(0.6))
	assert.Zero(t, f.player.State().Volume)

	assert.True(t, f.sess.KeyDown(KeyMute))
	assert.InDelta(t, 0.6, f.player.State().Volume, 1e-9)

	assert.True(t, f.sess.Snapshot().Available)
	assert.True(t, f.sess.KeyDown(KeyAvailability))
	assert.False(t, f.sess.Snapshot().Available)

	assert.False(t, f.sess.KeyDown(Key("x")))
	assert.Error(t, f.sess.SetStreamVolume(2))
}

func TestRelease_ExactlyOnce(t *testing.T) {
	f := newFixture(t, media.ProbeResult{}, time.Now())
	require.NoError(t, f.sess.SetSurface("udp://127.0.0.1:5000"))
	assert.Equal(t, "udp://127.0.0.1:5000", f.player.State().Surface)

	f.sess.Release()
	f.sess.Release()
	assert.Equal(t, 1, f.player.State().Releases)

	_, err := f.sess.Tune(context.Background(), urlURI)
	assert.ErrorIs(t, err, ErrReleased)
	assert.ErrorIs(t, f.sess.SetSurface("x"), ErrReleased)
	assert.ErrorIs(t, f.sess.SetStreamVolume(0.1), ErrReleased)
	assert.False(t, f.sess.KeyDown(KeyMute))
}
