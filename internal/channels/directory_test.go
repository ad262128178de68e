// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package channels

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/tvinput/internal/config"
	"github.com/ManuGH/tvinput/internal/provider"
)

const testInput = "com.example/.Input"

type countingStore struct {
	*provider.Provider
	mu      sync.Mutex
	inserts int
}

func (s *countingStore) InsertChannels(ctx context.Context, inputID string, rows []provider.ChannelRow) ([]int64, error) {
	s.mu.Lock()
	s.inserts++
	s.mu.Unlock()
	return s.Provider.InsertChannels(ctx, inputID, rows)
}

func newStore(t *testing.T) *countingStore {
	t.Helper()
	p, err := provider.Open(filepath.Join(t.TempDir(), "tv.db"), provider.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return &countingStore{Provider: p}
}

func sample() []Descriptor {
	return FromConfig(config.DefaultChannels())
}

func TestEnsureLoaded_InsertsOnce(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	d := NewDirectory(store, testInput, sample())
	require.NoError(t, d.EnsureLoaded(ctx))
	require.NoError(t, d.EnsureLoaded(ctx))
	assert.Equal(t, 1, store.inserts)

	for _, desc := range sample() {
		e, err := d.LookupByNumber(ctx, desc.Number)
		require.NoError(t, err)
		assert.Equal(t, desc, e.Descriptor)
		assert.Equal(t, provider.ChannelURI(e.ID), e.URI)
	}

	// A second directory over the same provider reuses the rows.
	d2 := NewDirectory(store, testInput, sample())
	require.NoError(t, d2.EnsureLoaded(ctx))
	assert.Equal(t, 1, store.inserts)

	rows, err := store.QueryChannels(ctx, testInput)
	require.NoError(t, err)
	assert.Len(t, rows, len(sample()))
}

func TestEnsureLoaded_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	d := NewDirectory(store, testInput, sample())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, d.EnsureLoaded(ctx))
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, store.inserts)
	assert.Equal(t, int64(1), d.Rebuilds())
}

func TestLookupByURI_UnknownRebuildsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory(newStore(t), testInput, sample())
	require.NoError(t, d.EnsureLoaded(ctx))
	before := d.Rebuilds()

	_, err := d.LookupByURI(ctx, provider.ChannelURI(9999))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownChannel)
	var unknown *UnknownChannelError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, provider.ChannelURI(9999), unknown.Key)
	assert.Equal(t, before+1, d.Rebuilds())

	_, err = d.LookupByURI(ctx, "not-a-uri")
	assert.ErrorIs(t, err, provider.ErrInvalidURI)
	assert.Equal(t, before+1, d.Rebuilds())

	// A program URI sharing a channel's id is not that channel.
	_, err = d.LookupByURI(ctx, provider.ProgramURI(1))
	assert.ErrorIs(t, err, provider.ErrInvalidURI)
	assert.NotErrorIs(t, err, ErrUnknownChannel)
	assert.Equal(t, before+1, d.Rebuilds())
}

func TestLookupByNumber_MissRebuildsOnce(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory(newStore(t), testInput, sample())
	require.NoError(t, d.EnsureLoaded(ctx))

	_, err := d.LookupByNumber(ctx, "42")
	assert.ErrorIs(t, err, ErrUnknownChannel)
	assert.Equal(t, int64(2), d.Rebuilds())
}

func TestLookup_PicksUpRowsAddedLater(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	descs := sample()

	// The provider already knows every channel before this directory loads.
	seed := NewDirectory(store, testInput, descs)
	entries, err := seed.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, len(descs))

	d := NewDirectory(store, testInput, descs)
	e, err := d.LookupByID(ctx, entries[1].ID)
	require.NoError(t, err)
	assert.Equal(t, descs[1].Number, e.Descriptor.Number)
	assert.Equal(t, int64(1), d.Rebuilds())
}

func TestEnsureLoaded_DriftIsFatal(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	_, err := store.Provider.InsertChannels(ctx, testInput, []provider.ChannelRow{{DisplayNumber: "77"}})
	require.NoError(t, err)

	d := NewDirectory(store, testInput, sample())
	err = d.EnsureLoaded(ctx)
	assert.ErrorIs(t, err, ErrChannelListDrift)
	assert.Equal(t, 0, store.inserts)
}

func TestReplace(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	d := NewDirectory(store, testInput, sample())
	require.NoError(t, d.EnsureLoaded(ctx))

	renamed := sample()
	renamed[0].Name = "Renamed"
	require.NoError(t, d.Replace(ctx, renamed))
	e, err := d.LookupByNumber(ctx, renamed[0].Number)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", e.Descriptor.Name)

	err = d.Replace(ctx, renamed[1:])
	assert.ErrorIs(t, err, ErrChannelListDrift)
	e, err = d.LookupByNumber(ctx, renamed[0].Number)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", e.Descriptor.Name, "failed replace keeps the previous list")
	assert.Equal(t, 1, store.inserts)
}

func TestEnsureLoaded_EmptyList(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	d := NewDirectory(store, testInput, nil)
	require.NoError(t, d.EnsureLoaded(ctx))

	entries, err := d.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 0, store.inserts)
}

func TestLookupWithRefresh(t *testing.T) {
	ctx := context.Background()
	m := map[string]int{}
	lookup := func(k string) (int, bool) { v, ok := m[k]; return v, ok }
	refreshes := 0
	refresh := func(context.Context) error { refreshes++; m["b"] = 2; return nil }

	v, err := LookupWithRefresh(ctx, "b", lookup, refresh, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, refreshes)

	_, err = LookupWithRefresh(ctx, "z", lookup, refresh, 1)
	assert.ErrorIs(t, err, ErrUnknownChannel)
	assert.Equal(t, 2, refreshes)

	boom := errors.New("boom")
	_, err = LookupWithRefresh(ctx, "z", lookup, func(context.Context) error { return boom }, 1)
	assert.ErrorIs(t, err, boom)

	_, err = LookupWithRefresh(ctx, "z", lookup, refresh, 0)
	assert.ErrorIs(t, err, ErrUnknownChannel)
	assert.Equal(t, 2, refreshes)
}

func TestProgramTemplate_IsNetwork(t *testing.T) {
	assert.True(t, ProgramTemplate{URL: "https://x/y.mp4"}.IsNetwork())
	assert.True(t, ProgramTemplate{URL: "HTTP://x"}.IsNetwork())
	assert.False(t, ProgramTemplate{ResourceID: 1}.IsNetwork())
	assert.False(t, ProgramTemplate{URL: "/local/file.mp4"}.IsNetwork())
}
