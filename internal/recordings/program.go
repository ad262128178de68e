// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package recordings models recorded programs and maps them onto the
// provider's recorded_programs table.
package recordings

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/ManuGH/tvinput/internal/provider"
)

// IDNotSet marks an id that has not been assigned by the provider.
const IDNotSet int64 = -1

// ClippedThreshold is the largest gap between the scheduled window and the
// recorded duration that still counts as a complete recording.
const ClippedThreshold = 5 * time.Minute

// Builder collects the attributes of a RecordedProgram. Start from NewBuilder
// or RecordedProgram.ToBuilder.
type Builder struct {
	ID                  int64           `json:"id"`
	PackageName         string          `json:"package_name"`
	InputID             string          `json:"input_id"`
	ChannelID           int64           `json:"channel_id"`
	Title               string          `json:"title"`
	SeriesID            string          `json:"series_id,omitempty"`
	SeasonNumber        string          `json:"season_number,omitempty"`
	SeasonTitle         string          `json:"season_title,omitempty"`
	EpisodeNumber       string          `json:"episode_number,omitempty"`
	EpisodeTitle        string          `json:"episode_title,omitempty"`
	StartTimeUTCMillis  int64           `json:"start_time_utc_millis"`
	EndTimeUTCMillis    int64           `json:"end_time_utc_millis"`
	BroadcastGenres     []string        `json:"broadcast_genres,omitempty"`
	CanonicalGenres     []string        `json:"canonical_genres,omitempty"`
	Description         string          `json:"description,omitempty"`
	LongDescription     string          `json:"long_description,omitempty"`
	VideoWidth          int             `json:"video_width,omitempty"`
	VideoHeight         int             `json:"video_height,omitempty"`
	AudioLanguage       string          `json:"audio_language,omitempty"`
	ContentRatings      []ContentRating `json:"content_ratings,omitempty"`
	PosterArtURI        string          `json:"poster_art_uri,omitempty"`
	ThumbnailURI        string          `json:"thumbnail_uri,omitempty"`
	Searchable          bool            `json:"searchable"`
	DataURI             string          `json:"data_uri,omitempty"`
	DataBytes           int64           `json:"data_bytes,omitempty"`
	DurationMillis      int64           `json:"duration_millis"`
	ExpireTimeUTCMillis int64           `json:"expire_time_utc_millis,omitempty"`
	VersionNumber       int             `json:"version_number,omitempty"`

	// ScheduledRecordingID links the recording to the schedule entry that
	// produced it. It travels in the internal provider data blob.
	ScheduledRecordingID int64 `json:"scheduled_recording_id,omitempty"`
}

// NewBuilder returns a builder with unset ids and empty values.
func NewBuilder() Builder {
	return Builder{ID: IDNotSet, ChannelID: IDNotSet}
}

// Build applies the series id rules and freezes the values: a program without
// a title has no series; an episodic program without a series id gets one
// derived from its package and title.
func (b Builder) Build() RecordedProgram {
	switch {
	case b.Title == "":
		b.SeriesID = ""
	case b.SeriesID == "" && b.EpisodeNumber != "":
		b.SeriesID = GenerateSeriesID(b.PackageName, b.Title)
	}
	return RecordedProgram{b: b.clone()}
}

func (b Builder) clone() Builder {
	b.BroadcastGenres = slices.Clone(b.BroadcastGenres)
	b.CanonicalGenres = slices.Clone(b.CanonicalGenres)
	if b.ContentRatings != nil {
		ratings := make([]ContentRating, len(b.ContentRatings))
		for i, r := range b.ContentRatings {
			r.SubRatings = slices.Clone(r.SubRatings)
			ratings[i] = r
		}
		b.ContentRatings = ratings
	}
	return b
}

// GenerateSeriesID derives a series id for programs whose input supplied none.
func GenerateSeriesID(packageName, title string) string {
	return packageName + "/" + title
}

// RecordedProgram is an immutable recorded program.
type RecordedProgram struct {
	b Builder
}

// ToBuilder returns a builder holding a copy of p's values.
func (p RecordedProgram) ToBuilder() Builder { return p.b.clone() }

// WithID returns a copy of p with only the id changed.
func (p RecordedProgram) WithID(id int64) RecordedProgram {
	b := p.ToBuilder()
	b.ID = id
	return b.Build()
}

func (p RecordedProgram) ID() int64                   { return p.b.ID }
func (p RecordedProgram) PackageName() string         { return p.b.PackageName }
func (p RecordedProgram) InputID() string             { return p.b.InputID }
func (p RecordedProgram) ChannelID() int64            { return p.b.ChannelID }
func (p RecordedProgram) Title() string               { return p.b.Title }
func (p RecordedProgram) SeriesID() string            { return p.b.SeriesID }
func (p RecordedProgram) SeasonNumber() string        { return p.b.SeasonNumber }
func (p RecordedProgram) SeasonTitle() string         { return p.b.SeasonTitle }
func (p RecordedProgram) EpisodeNumber() string       { return p.b.EpisodeNumber }
func (p RecordedProgram) EpisodeTitle() string        { return p.b.EpisodeTitle }
func (p RecordedProgram) StartTimeUTCMillis() int64   { return p.b.StartTimeUTCMillis }
func (p RecordedProgram) EndTimeUTCMillis() int64     { return p.b.EndTimeUTCMillis }
func (p RecordedProgram) Description() string         { return p.b.Description }
func (p RecordedProgram) LongDescription() string     { return p.b.LongDescription }
func (p RecordedProgram) VideoWidth() int             { return p.b.VideoWidth }
func (p RecordedProgram) VideoHeight() int            { return p.b.VideoHeight }
func (p RecordedProgram) AudioLanguage() string       { return p.b.AudioLanguage }
func (p RecordedProgram) PosterArtURI() string        { return p.b.PosterArtURI }
func (p RecordedProgram) ThumbnailURI() string        { return p.b.ThumbnailURI }
func (p RecordedProgram) Searchable() bool            { return p.b.Searchable }
func (p RecordedProgram) DataURI() string             { return p.b.DataURI }
func (p RecordedProgram) DataBytes() int64            { return p.b.DataBytes }
func (p RecordedProgram) DurationMillis() int64       { return p.b.DurationMillis }
func (p RecordedProgram) ExpireTimeUTCMillis() int64  { return p.b.ExpireTimeUTCMillis }
func (p RecordedProgram) VersionNumber() int          { return p.b.VersionNumber }
func (p RecordedProgram) ScheduledRecordingID() int64 { return p.b.ScheduledRecordingID }
func (p RecordedProgram) BroadcastGenres() []string   { return slices.Clone(p.b.BroadcastGenres) }
func (p RecordedProgram) CanonicalGenres() []string   { return slices.Clone(p.b.CanonicalGenres) }
func (p RecordedProgram) ContentRatings() []ContentRating {
	return p.ToBuilder().ContentRatings
}

// URI returns the provider URI of the program.
func (p RecordedProgram) URI() string { return provider.RecordedProgramURI(p.b.ID) }

// IsClipped reports whether the recording is more than ClippedThreshold
// shorter than its scheduled window.
func (p RecordedProgram) IsClipped() bool {
	return p.b.EndTimeUTCMillis-p.b.StartTimeUTCMillis-p.b.DurationMillis > ClippedThreshold.Milliseconds()
}

// CanonicalGenreIDs maps the canonical genres onto the fixed taxonomy.
func (p RecordedProgram) CanonicalGenreIDs() []int {
	ids := make([]int, len(p.b.CanonicalGenres))
	for i, g := range p.b.CanonicalGenres {
		ids[i] = GenreID(g)
	}
	return ids
}

// EpisodeDisplayNumber formats season and episode, omitting a "0" season.
// It returns "" when there is no episode number.
func (p RecordedProgram) EpisodeDisplayNumber() string {
	if p.b.EpisodeNumber == "" {
		return ""
	}
	if p.b.SeasonNumber == "0" {
		return fmt.Sprintf("E%s", p.b.EpisodeNumber)
	}
	return fmt.Sprintf("S%s: E%s", p.b.SeasonNumber, p.b.EpisodeNumber)
}

// ByStartTimeThenID orders programs by start time, then id.
func ByStartTimeThenID(a, b RecordedProgram) int {
	if c := cmpInt64(a.b.StartTimeUTCMillis, b.b.StartTimeUTCMillis); c != 0 {
		return c
	}
	return cmpInt64(a.b.ID, b.b.ID)
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

type programJSON struct {
	Builder
	URI                  string `json:"uri"`
	Clipped              bool   `json:"clipped"`
	EpisodeDisplayNumber string `json:"episode_display_number,omitempty"`
	CanonicalGenreIDs    []int  `json:"canonical_genre_ids,omitempty"`
}

// MarshalJSON renders the program with its derived attributes.
func (p RecordedProgram) MarshalJSON() ([]byte, error) {
	return json.Marshal(programJSON{
		Builder:              p.b,
		URI:                  p.URI(),
		Clipped:              p.IsClipped(),
		EpisodeDisplayNumber: p.EpisodeDisplayNumber(),
		CanonicalGenreIDs:    p.CanonicalGenreIDs(),
	})
}
