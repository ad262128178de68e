// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recordings

import (
	"fmt"

	"github.com/ManuGH/tvinput/internal/provider"
)

// Kind selects how a column value is encoded.
type Kind int

const (
	KindID          Kind = iota // int64, omitted on write while unset
	KindText                    // string, "" stored as NULL
	KindInt64                   // int64
	KindInt                     // int
	KindNullableInt             // int, 0 stored as NULL
	KindBool                    // 1 or 0
	KindGenres                  // encoded genre list
	KindRatings                 // flattened content ratings
	KindInternal                // internal provider data blob
)

// Column describes one recorded_programs column and the builder field behind it.
type Column struct {
	Name string
	Kind Kind
	// Optional columns are only used when the provider reports them.
	Optional   bool
	MinVersion int
	// ReadOnly columns are filled in by the provider and never written.
	ReadOnly bool

	field func(*Builder) any
}

// Schema lists the recorded program columns in projection order. Both
// directions of the row mapping are driven by it.
var Schema = []Column{
	{Name: provider.ColumnID, Kind: KindID, field: func(b *Builder) any { return &b.ID }},
	{Name: provider.ColumnPackageName, Kind: KindText, ReadOnly: true, field: func(b *Builder) any { return &b.PackageName }},
	{Name: provider.ColumnInputID, Kind: KindText, field: func(b *Builder) any { return &b.InputID }},
	{Name: provider.ColumnChannelID, Kind: KindInt64, field: func(b *Builder) any { return &b.ChannelID }},
	{Name: provider.ColumnTitle, Kind: KindText, field: func(b *Builder) any { return &b.Title }},
	{Name: provider.ColumnSeasonDisplayNumber, Kind: KindText, field: func(b *Builder) any { return &b.SeasonNumber }},
	{Name: provider.ColumnSeasonTitle, Kind: KindText, field: func(b *Builder) any { return &b.SeasonTitle }},
	{Name: provider.ColumnEpisodeDisplayNumber, Kind: KindText, field: func(b *Builder) any { return &b.EpisodeNumber }},
	{Name: provider.ColumnEpisodeTitle, Kind: KindText, field: func(b *Builder) any { return &b.EpisodeTitle }},
	{Name: provider.ColumnStartTimeUTCMillis, Kind: KindInt64, field: func(b *Builder) any { return &b.StartTimeUTCMillis }},
	{Name: provider.ColumnEndTimeUTCMillis, Kind: KindInt64, field: func(b *Builder) any { return &b.EndTimeUTCMillis }},
	{Name: provider.ColumnBroadcastGenre, Kind: KindGenres, field: func(b *Builder) any { return &b.BroadcastGenres }},
	{Name: provider.ColumnCanonicalGenre, Kind: KindGenres, field: func(b *Builder) any { return &b.CanonicalGenres }},
	{Name: provider.ColumnShortDescription, Kind: KindText, field: func(b *Builder) any { return &b.Description }},
	{Name: provider.ColumnLongDescription, Kind: KindText, field: func(b *Builder) any { return &b.LongDescription }},
	{Name: provider.ColumnVideoWidth, Kind: KindNullableInt, field: func(b *Builder) any { return &b.VideoWidth }},
	{Name: provider.ColumnVideoHeight, Kind: KindNullableInt, field: func(b *Builder) any { return &b.VideoHeight }},
	{Name: provider.ColumnAudioLanguage, Kind: KindText, field: func(b *Builder) any { return &b.AudioLanguage }},
	{Name: provider.ColumnContentRating, Kind: KindRatings, field: func(b *Builder) any { return &b.ContentRatings }},
	{Name: provider.ColumnPosterArtURI, Kind: KindText, field: func(b *Builder) any { return &b.PosterArtURI }},
	{Name: provider.ColumnThumbnailURI, Kind: KindText, field: func(b *Builder) any { return &b.ThumbnailURI }},
	{Name: provider.ColumnSearchable, Kind: KindBool, field: func(b *Builder) any { return &b.Searchable }},
	{Name: provider.ColumnRecordingDataURI, Kind: KindText, field: func(b *Builder) any { return &b.DataURI }},
	{Name: provider.ColumnRecordingDataBytes, Kind: KindInt64, field: func(b *Builder) any { return &b.DataBytes }},
	{Name: provider.ColumnRecordingDurationMillis, Kind: KindInt64, field: func(b *Builder) any { return &b.DurationMillis }},
	{Name: provider.ColumnRecordingExpireTimeUTCMillis, Kind: KindInt64, field: func(b *Builder) any { return &b.ExpireTimeUTCMillis }},
	{Name: provider.ColumnVersionNumber, Kind: KindInt, field: func(b *Builder) any { return &b.VersionNumber }},
	{Name: provider.ColumnInternalProviderData, Kind: KindInternal, field: func(b *Builder) any { return b }},
	{Name: provider.ColumnSeriesID, Kind: KindText, Optional: true, MinVersion: provider.SchemaV2, field: func(b *Builder) any { return &b.SeriesID }},
}

// Codec maps recorded programs to provider rows for one provider instance.
type Codec struct {
	columns []Column
	bundled map[string]bool
}

// NewCodec selects the columns usable at the given schema version. hasColumn
// is consulted for optional columns. Internal provider data is only decoded
// for rows owned by a bundled package.
func NewCodec(version int, hasColumn func(name string) bool, bundled ...string) *Codec {
	c := &Codec{bundled: make(map[string]bool, len(bundled))}
	for _, pkg := range bundled {
		c.bundled[pkg] = true
	}
	for _, col := range Schema {
		if col.MinVersion > version {
			continue
		}
		if col.Optional && (hasColumn == nil || !hasColumn(col.Name)) {
			continue
		}
		c.columns = append(c.columns, col)
	}
	return c
}

// Columns returns the projection in schema order.
func (c *Codec) Columns() []string {
	names := make([]string, len(c.columns))
	for i, col := range c.columns {
		names[i] = col.Name
	}
	return names
}

// Has reports whether the codec reads and writes the named column.
func (c *Codec) Has(name string) bool {
	for _, col := range c.columns {
		if col.Name == name {
			return true
		}
	}
	return false
}

// ToRow encodes p for insert or update.
func (c *Codec) ToRow(p RecordedProgram) provider.Values {
	b := p.ToBuilder()
	row := make(provider.Values, len(c.columns))
	for _, col := range c.columns {
		if col.ReadOnly {
			continue
		}
		f := col.field(&b)
		switch col.Kind {
		case KindID:
			if id := *f.(*int64); id != IDNotSet {
				row[col.Name] = id
			}
		case KindText:
			row[col.Name] = nullIfEmpty(*f.(*string))
		case KindInt64:
			row[col.Name] = *f.(*int64)
		case KindInt:
			row[col.Name] = int64(*f.(*int))
		case KindNullableInt:
			if v := *f.(*int); v != 0 {
				row[col.Name] = int64(v)
			} else {
				row[col.Name] = nil
			}
		case KindBool:
			row[col.Name] = boolToInt(*f.(*bool))
		case KindGenres:
			row[col.Name] = nullIfEmpty(EncodeGenres(*f.(*[]string)))
		case KindRatings:
			row[col.Name] = nullIfEmpty(EncodeRatings(*f.(*[]ContentRating)))
		case KindInternal:
			blob := MarshalInternalData(InternalData{
				SeriesID:             b.SeriesID,
				ScheduledRecordingID: b.ScheduledRecordingID,
			})
			if len(blob) == 0 {
				row[col.Name] = nil
			} else {
				row[col.Name] = blob
			}
		}
	}
	return row
}

// FromRow decodes a provider row. Columns missing from the row keep their
// builder defaults.
func (c *Codec) FromRow(row provider.Values) (RecordedProgram, error) {
	b := NewBuilder()
	for _, col := range c.columns {
		v, ok := row[col.Name]
		if !ok || v == nil {
			continue
		}
		f := col.field(&b)
		switch col.Kind {
		case KindID, KindInt64:
			n, err := asInt64(col.Name, v)
			if err != nil {
				return RecordedProgram{}, err
			}
			*f.(*int64) = n
		case KindInt, KindNullableInt:
			n, err := asInt64(col.Name, v)
			if err != nil {
				return RecordedProgram{}, err
			}
			*f.(*int) = int(n)
		case KindBool:
			n, err := asInt64(col.Name, v)
			if err != nil {
				return RecordedProgram{}, err
			}
			*f.(*bool) = n == 1
		case KindText:
			s, err := asString(col.Name, v)
			if err != nil {
				return RecordedProgram{}, err
			}
			*f.(*string) = s
		case KindGenres:
			s, err := asString(col.Name, v)
			if err != nil {
				return RecordedProgram{}, err
			}
			*f.(*[]string) = DecodeGenres(s)
		case KindRatings:
			s, err := asString(col.Name, v)
			if err != nil {
				return RecordedProgram{}, err
			}
			*f.(*[]ContentRating) = DecodeRatings(s)
		case KindInternal:
			if !c.bundled[b.PackageName] {
				continue
			}
			blob, ok := v.([]byte)
			if !ok {
				return RecordedProgram{}, fmt.Errorf("column %s: unexpected %T", col.Name, v)
			}
			d, err := UnmarshalInternalData(blob)
			if err != nil {
				return RecordedProgram{}, fmt.Errorf("column %s: %w", col.Name, err)
			}
			b.SeriesID = d.SeriesID
			b.ScheduledRecordingID = d.ScheduledRecordingID
		}
	}
	return b.Build(), nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func asInt64(col string, v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("column %s: unexpected %T", col, v)
	}
}

func asString(col string, v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	default:
		return "", fmt.Errorf("column %s: unexpected %T", col, v)
	}
}
