// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package provider

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/tvinput/internal/bus"
)

func openTest(t *testing.T, opts Options) *Provider {
	t.Helper()
	p, err := Open(filepath.Join(t.TempDir(), "tv.db"), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestURIs(t *testing.T) {
	assert.Equal(t, "content://tvinput/channel/7", ChannelURI(7))
	assert.Equal(t, "content://tvinput/program/12", ProgramURI(12))
	assert.Equal(t, "content://tvinput/recorded_program/3", RecordedProgramURI(3))

	id, err := ParseID(ChannelURI(42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "content://other/channel/1", "content://tvinput/channel/", "content://tvinput/channel/x", "content://tvinput/5"} {
		_, err := ParseID(bad)
		assert.ErrorIs(t, err, ErrInvalidURI, bad)
	}

	id, err = ParseChannelID(ChannelURI(7))
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	for _, other := range []string{ProgramURI(1), RecordedProgramURI(1), "content://tvinput/channel/x"} {
		_, err := ParseChannelID(other)
		assert.ErrorIs(t, err, ErrInvalidURI, other)
	}
}

func TestChannels_InsertAndQuery(t *testing.T) {
	ctx := context.Background()
	p := openTest(t, Options{})

	rows, err := p.QueryChannels(ctx, "input")
	require.NoError(t, err)
	assert.Empty(t, rows)

	ids, err := p.InsertChannels(ctx, "input", []ChannelRow{
		{DisplayNumber: "1-1", DisplayName: "One", VideoWidth: 1280, VideoHeight: 720},
		{DisplayNumber: "1-2", DisplayName: "Two", HasClosedCaption: true, AudioChannels: 6},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)

	_, err = p.InsertChannels(ctx, "other", []ChannelRow{{DisplayNumber: "9"}})
	require.NoError(t, err)

	rows, err = p.QueryChannels(ctx, "input")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ids[0], rows[0].ID)
	assert.Equal(t, "1-1", rows[0].DisplayNumber)
	assert.Equal(t, 720, rows[0].VideoHeight)
	assert.True(t, rows[1].HasClosedCaption)
	assert.Equal(t, 6, rows[1].AudioChannels)

	got, err := p.GetChannel(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, "Two", got.DisplayName)

	_, err = p.GetChannel(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPrograms_Windows(t *testing.T) {
	ctx := context.Background()
	p := openTest(t, Options{})
	ids, err := p.InsertChannels(ctx, "input", []ChannelRow{{DisplayNumber: "1"}})
	require.NoError(t, err)
	ch := ids[0]

	_, err = p.InsertProgram(ctx, ProgramRow{ChannelID: ch, Title: "A", StartTimeUTCMillis: 0, EndTimeUTCMillis: 1000})
	require.NoError(t, err)
	_, err = p.InsertProgram(ctx, ProgramRow{ChannelID: ch, Title: "B", StartTimeUTCMillis: 1000, EndTimeUTCMillis: 2000})
	require.NoError(t, err)

	at, err := p.ProgramsAt(ctx, ch, 500)
	require.NoError(t, err)
	require.Len(t, at, 1)
	assert.Equal(t, "A", at[0].Title)

	// Both windows touch the boundary instant.
	at, err = p.ProgramsAt(ctx, ch, 1000)
	require.NoError(t, err)
	assert.Len(t, at, 2)

	cur, err := p.CurrentProgram(ctx, ch, 1000)
	require.NoError(t, err)
	assert.Equal(t, "B", cur.Title)

	_, err = p.CurrentProgram(ctx, ch, 5000)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := p.ListPrograms(ctx, ch, 0, 5000)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].Title)

	all, err := p.AllPrograms(ctx, 0, 5000)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = p.InsertProgram(ctx, ProgramRow{ChannelID: ch, StartTimeUTCMillis: 10, EndTimeUTCMillis: 5})
	assert.Error(t, err)
}

func TestSchemaVersion_SeriesColumn(t *testing.T) {
	ctx := context.Background()

	v1 := openTest(t, Options{SchemaVersion: SchemaV1})
	assert.Equal(t, SchemaV1, v1.SchemaVersion())
	ok, err := v1.HasColumn(ctx, TableRecordedPrograms, ColumnSeriesID)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = v1.HasColumn(ctx, TableRecordedPrograms, ColumnTitle)
	require.NoError(t, err)
	assert.True(t, ok)

	v2 := openTest(t, Options{})
	ok, err = v2.HasColumn(ctx, TableRecordedPrograms, ColumnSeriesID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = v2.HasColumn(ctx, "nope", "x")
	assert.Error(t, err)

	_, err = Open(filepath.Join(t.TempDir(), "x.db"), Options{SchemaVersion: 9})
	assert.Error(t, err)
}

func TestSchemaUpgrade_AddsSeriesColumn(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tv.db")

	v1, err := Open(path, Options{SchemaVersion: SchemaV1})
	require.NoError(t, err)
	require.NoError(t, v1.Close())

	v2, err := Open(path, Options{})
	require.NoError(t, err)
	defer func() { _ = v2.Close() }()
	ok, err := v2.HasColumn(ctx, TableRecordedPrograms, ColumnSeriesID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRecordedRows_CRUD(t *testing.T) {
	ctx := context.Background()
	p := openTest(t, Options{PackageName: "com.example.pkg"})

	uri, err := p.InsertRecordedRow(ctx, Values{
		ColumnInputID:              "input",
		ColumnTitle:                "Show",
		ColumnVideoWidth:           nil,
		ColumnInternalProviderData: []byte{1, 2, 3},
	})
	require.NoError(t, err)
	id, err := ParseID(uri)
	require.NoError(t, err)

	row, err := p.GetRecordedRow(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, "Show", row[ColumnTitle])
	assert.Equal(t, "com.example.pkg", row[ColumnPackageName])
	assert.Nil(t, row[ColumnVideoWidth])
	assert.Equal(t, []byte{1, 2, 3}, row[ColumnInternalProviderData])
	assert.Equal(t, int64(1), row[ColumnSearchable])

	require.NoError(t, p.UpdateRecordedRow(ctx, id, Values{ColumnTitle: "Renamed"}))
	row, err = p.GetRecordedRow(ctx, id, []string{ColumnTitle})
	require.NoError(t, err)
	assert.Equal(t, Values{ColumnTitle: "Renamed"}, row)

	all, err := p.QueryRecordedRows(ctx, []string{ColumnID})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = p.QueryRecordedRows(ctx, []string{"bogus"})
	assert.ErrorIs(t, err, ErrUnknownColumn)
	_, err = p.InsertRecordedRow(ctx, Values{ColumnInputID: "i", "bogus; DROP": 1})
	assert.ErrorIs(t, err, ErrUnknownColumn)

	require.NoError(t, p.DeleteRecorded(ctx, id))
	assert.ErrorIs(t, p.DeleteRecorded(ctx, id), ErrNotFound)
	assert.ErrorIs(t, p.UpdateRecordedRow(ctx, id, Values{ColumnTitle: "x"}), ErrNotFound)
	_, err = p.GetRecordedRow(ctx, id, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordedRows_SeriesColumnRejectedOnV1(t *testing.T) {
	p := openTest(t, Options{SchemaVersion: SchemaV1})
	_, err := p.InsertRecordedRow(context.Background(), Values{ColumnInputID: "i", ColumnSeriesID: "s"})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestChangesArePublished(t *testing.T) {
	ctx := context.Background()
	b := bus.NewMemoryBus()
	p := openTest(t, Options{Bus: b})

	sub, err := Subscribe(ctx, b, TablePrograms)
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	ids, err := p.InsertChannels(ctx, "input", []ChannelRow{{DisplayNumber: "1"}})
	require.NoError(t, err)
	uri, err := p.InsertProgram(ctx, ProgramRow{ChannelID: ids[0], StartTimeUTCMillis: 0, EndTimeUTCMillis: 1})
	require.NoError(t, err)

	select {
	case msg := <-sub.C():
		assert.Equal(t, Change{URI: uri, Table: TablePrograms}, msg)
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}
}
