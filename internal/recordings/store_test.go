// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recordings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/tvinput/internal/provider"
)

const testPackage = "com.example.sampletvinput"

func newStore(t *testing.T, version int, bundled ...string) (*Store, *provider.Provider) {
	t.Helper()
	p, err := provider.Open(filepath.Join(t.TempDir(), "tv.db"), provider.Options{
		SchemaVersion: version,
		PackageName:   testPackage,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	s, err := NewStore(context.Background(), p, "input", bundled...)
	require.NoError(t, err)
	return s, p
}

func fullProgram() Builder {
	b := NewBuilder()
	b.PackageName = testPackage
	b.InputID = "input"
	b.ChannelID = 4
	b.Title = "Sintel"
	b.SeriesID = "blender/sintel"
	b.SeasonNumber = "1"
	b.SeasonTitle = "Open Movies"
	b.EpisodeNumber = "2"
	b.EpisodeTitle = "The Dragon"
	b.StartTimeUTCMillis = 1_700_000_000_000
	b.EndTimeUTCMillis = 1_700_000_900_000
	b.BroadcastGenres = []string{"Animation", "Fantasy, Adventure"}
	b.CanonicalGenres = []string{"MOVIES", "DRAMA"}
	b.Description = "A girl and her dragon."
	b.LongDescription = "A lonely young woman searches for a baby dragon."
	b.VideoWidth = 1920
	b.VideoHeight = 1080
	b.AudioLanguage = "en"
	b.ContentRatings = []ContentRating{{Domain: "com.android.tv", System: "US_TV", Rating: "US_TV_PG", SubRatings: []string{"US_TV_V"}}}
	b.PosterArtURI = "https://example.com/poster.png"
	b.ThumbnailURI = "https://example.com/thumb.png"
	b.Searchable = true
	b.DataURI = "file:///recordings/sintel.ts"
	b.DataBytes = 1 << 30
	b.DurationMillis = 880_000
	b.ExpireTimeUTCMillis = 1_800_000_000_000
	b.VersionNumber = 3
	b.ScheduledRecordingID = 12
	return b
}

var programCmp = []cmp.Option{cmp.AllowUnexported(RecordedProgram{}), cmpopts.EquateEmpty()}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, provider.SchemaCurrent)

	want := fullProgram().Build()
	inserted, err := s.Insert(ctx, want)
	require.NoError(t, err)
	require.NotEqual(t, IDNotSet, inserted.ID())

	got, err := s.Get(ctx, inserted.ID())
	require.NoError(t, err)
	if diff := cmp.Diff(inserted, got, programCmp...); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCodec_RowRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, p := newStore(t, provider.SchemaCurrent)

	inserted, err := s.Insert(ctx, fullProgram().Build())
	require.NoError(t, err)

	row, err := p.GetRecordedRow(ctx, inserted.ID(), s.Codec().Columns())
	require.NoError(t, err)

	rp, err := s.Codec().FromRow(row)
	require.NoError(t, err)
	back := s.Codec().ToRow(rp)

	// package_name is owned by the provider.
	delete(row, provider.ColumnPackageName)
	if diff := cmp.Diff(map[string]any(row), map[string]any(back)); diff != "" {
		t.Fatalf("row mismatch (-stored +encoded):\n%s", diff)
	}
}

func TestCodec_Encoding(t *testing.T) {
	c := NewCodec(provider.SchemaCurrent, func(string) bool { return true })

	b := fullProgram()
	b.VideoWidth = 0
	b.VideoHeight = 0
	b.Searchable = false
	row := c.ToRow(b.Build())

	_, hasID := row[provider.ColumnID]
	assert.False(t, hasID, "unset id is not written")
	_, hasPkg := row[provider.ColumnPackageName]
	assert.False(t, hasPkg)
	assert.Nil(t, row[provider.ColumnVideoWidth])
	assert.Nil(t, row[provider.ColumnVideoHeight])
	assert.Equal(t, int64(0), row[provider.ColumnSearchable])
	assert.Equal(t, `Animation,Fantasy", Adventure`, row[provider.ColumnBroadcastGenre])
	assert.Equal(t, "blender/sintel", row[provider.ColumnSeriesID])

	b.ID = 42
	assert.Equal(t, int64(42), c.ToRow(b.Build())[provider.ColumnID])
}

func TestCodec_OptionalColumns(t *testing.T) {
	v1 := NewCodec(provider.SchemaV1, func(string) bool { return true })
	assert.False(t, v1.Has(provider.ColumnSeriesID))

	missing := NewCodec(provider.SchemaV2, func(string) bool { return false })
	assert.False(t, missing.Has(provider.ColumnSeriesID))

	v2 := NewCodec(provider.SchemaV2, func(name string) bool { return name == provider.ColumnSeriesID })
	assert.True(t, v2.Has(provider.ColumnSeriesID))
	assert.Equal(t, provider.ColumnID, v2.Columns()[0])
	assert.Equal(t, provider.ColumnSeriesID, v2.Columns()[len(v2.Columns())-1])
}

func TestStore_SeriesIDOnV1ComesFromInternalData(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, provider.SchemaV1)

	inserted, err := s.Insert(ctx, fullProgram().Build())
	require.NoError(t, err)

	got, err := s.Get(ctx, inserted.ID())
	require.NoError(t, err)
	assert.Equal(t, "blender/sintel", got.SeriesID())
	assert.Equal(t, int64(12), got.ScheduledRecordingID())
}

func TestCodec_InternalDataOnlyForBundledPackages(t *testing.T) {
	row := provider.Values{
		provider.ColumnID:                   int64(1),
		provider.ColumnPackageName:          "com.thirdparty",
		provider.ColumnTitle:                "Elephants Dream",
		provider.ColumnInternalProviderData: MarshalInternalData(InternalData{SeriesID: "x", ScheduledRecordingID: 3}),
	}

	c := NewCodec(provider.SchemaV1, nil, testPackage)
	rp, err := c.FromRow(row)
	require.NoError(t, err)
	assert.Empty(t, rp.SeriesID())
	assert.Zero(t, rp.ScheduledRecordingID())

	row[provider.ColumnPackageName] = testPackage
	rp, err = c.FromRow(row)
	require.NoError(t, err)
	assert.Equal(t, "x", rp.SeriesID())
	assert.Equal(t, int64(3), rp.ScheduledRecordingID())
}

func TestCodec_FromRowTypeMismatch(t *testing.T) {
	c := NewCodec(provider.SchemaV1, nil)
	_, err := c.FromRow(provider.Values{provider.ColumnChannelID: "four"})
	assert.Error(t, err)
}

func TestStore_ListUpdateDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, provider.SchemaCurrent)

	late := fullProgram()
	late.StartTimeUTCMillis = 2000
	early := fullProgram()
	early.InputID = ""
	early.StartTimeUTCMillis = 1000

	a, err := s.Insert(ctx, late.Build())
	require.NoError(t, err)
	b, err := s.Insert(ctx, early.Build())
	require.NoError(t, err)
	assert.Equal(t, "input", b.InputID(), "store fills in its input id")

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID(), list[0].ID())
	assert.Equal(t, a.ID(), list[1].ID())

	edit := a.ToBuilder()
	edit.Title = "Sintel (Director's Cut)"
	require.NoError(t, s.Update(ctx, edit.Build()))
	got, err := s.Get(ctx, a.ID())
	require.NoError(t, err)
	assert.Equal(t, "Sintel (Director's Cut)", got.Title())

	assert.ErrorIs(t, s.Update(ctx, fullProgram().Build()), ErrIDNotSet)
	assert.ErrorIs(t, s.Update(ctx, a.WithID(999)), ErrNotFound)

	require.NoError(t, s.Delete(ctx, a.ID()))
	_, err = s.Get(ctx, a.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, a.ID()), ErrNotFound)
}
